package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/outreach-engine/internal/repository"
	"gorm.io/gorm"
)

func createVariantStatsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_variant_stats",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.VariantStatModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.VariantStatModel{})
		},
	}
}
