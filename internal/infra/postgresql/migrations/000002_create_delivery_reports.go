package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/infobip-dispatch/internal/repository"
	"gorm.io/gorm"
)

func createDeliveryReportsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_delivery_reports",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DeliveryReportModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_delivery_reports_resource_received ON delivery_reports (resource_id, received_at)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DeliveryReportModel{})
		},
	}
}
