package repository

import (
	"context"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"gorm.io/gorm"
)

type ReportRepository interface {
	Create(ctx context.Context, report *domain.StoredReport) error
	ListByResourceID(ctx context.Context, resourceID string) ([]domain.StoredReport, error)
}

type GormReportRepo struct {
	db *gorm.DB
}

func NewGormReportRepo(db *gorm.DB) *GormReportRepo {
	return &GormReportRepo{db: db}
}

func (r *GormReportRepo) Create(ctx context.Context, report *domain.StoredReport) error {
	model := deliveryReportModelFromDomain(report)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err, "delivery report")
	}
	if report != nil {
		*report = *deliveryReportModelToDomain(model)
	}
	return nil
}

func (r *GormReportRepo) ListByResourceID(ctx context.Context, resourceID string) ([]domain.StoredReport, error) {
	var models []DeliveryReportModel
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Order("received_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	reports := make([]domain.StoredReport, 0, len(models))
	for i := range models {
		reports = append(reports, *deliveryReportModelToDomain(&models[i]))
	}

	return reports, nil
}
