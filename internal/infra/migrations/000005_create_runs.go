package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/outreach-engine/internal/repository"
	"gorm.io/gorm"
)

func createRunsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000005_create_runs",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.RunModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.RunModel{})
		},
	}
}
