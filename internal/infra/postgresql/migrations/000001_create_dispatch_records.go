package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/infobip-dispatch/internal/repository"
	"gorm.io/gorm"
)

func createDispatchRecordsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_dispatch_records",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DispatchRecordModel{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_dispatch_records_resource ON dispatch_records (channel, resource_id)`,
				`CREATE INDEX IF NOT EXISTS idx_dispatch_records_bulk_id ON dispatch_records (bulk_id) WHERE bulk_id IS NOT NULL`,
				`CREATE INDEX IF NOT EXISTS idx_dispatch_records_pipeline ON dispatch_records (pipeline_id, created_at) WHERE pipeline_id IS NOT NULL`,
				`CREATE INDEX IF NOT EXISTS idx_dispatch_records_status_channel_created ON dispatch_records (status, channel, created_at)`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DispatchRecordModel{})
		},
	}
}
