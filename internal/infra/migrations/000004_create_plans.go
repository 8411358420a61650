package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/outreach-engine/internal/repository"
	"gorm.io/gorm"
)

func createPlansTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_plans",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.PlanModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_plans_client_generated ON plans (client_slug, generated_at)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.PlanModel{})
		},
	}
}
