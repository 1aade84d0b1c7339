package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"gorm.io/gorm"
)

type ListParams struct {
	Status     *domain.DispatchStatus
	Channel    *domain.ChannelID
	PipelineID *string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

type BulkSummary struct {
	Status domain.DispatchStatus `gorm:"column:status"`
	Count  int                   `gorm:"column:count"`
}

type DispatchRepository interface {
	CreateBatch(ctx context.Context, records []*domain.DispatchRecord) error
	GetByResourceID(ctx context.Context, resourceID string) (*domain.DispatchRecord, error)
	List(ctx context.Context, params ListParams) ([]domain.DispatchRecord, int64, error)
	UpdateStatusByResourceID(ctx context.Context, channel domain.ChannelID, resourceID string, status domain.DispatchStatus) error
	GetBulkSummary(ctx context.Context, bulkID string) ([]BulkSummary, error)
}

type GormDispatchRepo struct {
	db *gorm.DB
}

func NewGormDispatchRepo(db *gorm.DB) *GormDispatchRepo {
	return &GormDispatchRepo{db: db}
}

func (r *GormDispatchRepo) CreateBatch(ctx context.Context, records []*domain.DispatchRecord) error {
	models := make([]DispatchRecordModel, 0, len(records))
	modelIndexes := make([]int, 0, len(records))
	for i, rec := range records {
		model := dispatchRecordModelFromDomain(rec)
		if model != nil {
			models = append(models, *model)
			modelIndexes = append(modelIndexes, i)
		}
	}

	if len(models) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).CreateInBatches(&models, 100).Error; err != nil {
		return translateError(err, "dispatch record")
	}

	for i := range models {
		idx := modelIndexes[i]
		if idx < len(records) && records[idx] != nil {
			*records[idx] = *dispatchRecordModelToDomain(&models[i])
		}
	}

	return nil
}

// GetByResourceID returns the most recent record for the vendor message id.
func (r *GormDispatchRepo) GetByResourceID(ctx context.Context, resourceID string) (*domain.DispatchRecord, error) {
	var model DispatchRecordModel
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Order("created_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return dispatchRecordModelToDomain(&model), nil
}

func (r *GormDispatchRepo) List(ctx context.Context, params ListParams) ([]domain.DispatchRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&DispatchRecordModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Channel != nil {
		query = query.Where("channel = ?", *params.Channel)
	}
	if params.PipelineID != nil {
		query = query.Where("pipeline_id = ?", *params.PipelineID)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []DispatchRecordModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	records := make([]domain.DispatchRecord, 0, len(models))
	for i := range models {
		records = append(records, *dispatchRecordModelToDomain(&models[i]))
	}

	return records, total, nil
}

func (r *GormDispatchRepo) UpdateStatusByResourceID(ctx context.Context, channel domain.ChannelID, resourceID string, status domain.DispatchStatus) error {
	result := r.db.WithContext(ctx).
		Model(&DispatchRecordModel{}).
		Where("channel = ? AND resource_id = ?", channel, resourceID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormDispatchRepo) GetBulkSummary(ctx context.Context, bulkID string) ([]BulkSummary, error) {
	var summaries []BulkSummary
	err := r.db.WithContext(ctx).
		Model(&DispatchRecordModel{}).
		Select("status, COUNT(*) as count").
		Where("bulk_id = ?", bulkID).
		Group("status").
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
