package migrations

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// options keeps the migration ledger apart from other services sharing the
// database and refuses to run against a schema migrated by a newer build.
var options = &gormigrate.Options{
	TableName:                 "infobip_dispatch_migrations",
	IDColumnName:              "id",
	IDColumnSize:              255,
	UseTransaction:            true,
	ValidateUnknownMigrations: true,
}

func all() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		createDispatchRecordsTable(),
		createDeliveryReportsTable(),
	}
}

func Migrate(db *gorm.DB) error {
	if err := gormigrate.New(db, options, all()).Migrate(); err != nil {
		return fmt.Errorf("failed to migrate dispatch schema: %w", err)
	}
	return nil
}

func execAll(tx *gorm.DB, statements []string) error {
	for _, sql := range statements {
		if err := tx.Exec(sql).Error; err != nil {
			return err
		}
	}
	return nil
}
