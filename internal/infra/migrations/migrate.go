package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate brings one tenant namespace up to date.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createMessagesTable(),
		createEventsTable(),
		createVariantStatsTable(),
		createPlansTable(),
		createRunsTable(),
		createSendAttemptsTable(),
	})

	return m.Migrate()
}
