package repository

import (
	"time"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
)

// DispatchRecordModel is the persistence model for the dispatch_records table.
type DispatchRecordModel struct {
	ID             string                `gorm:"type:uuid;primaryKey"`
	ResourceID     string                `gorm:"type:varchar(64);not null"`
	BulkID         *string               `gorm:"type:varchar(64)"`
	Channel        domain.ChannelID      `gorm:"type:varchar(10);not null"`
	PipelineIntent *string               `gorm:"type:varchar(255)"`
	PipelineID     *string               `gorm:"type:varchar(255)"`
	Recipient      string                `gorm:"type:varchar(320);not null"`
	Status         domain.DispatchStatus `gorm:"type:varchar(20);not null"`
	Error          *string               `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (DispatchRecordModel) TableName() string {
	return "dispatch_records"
}

// DeliveryReportModel is the persistence model for delivery_reports.
type DeliveryReportModel struct {
	ID                string                   `gorm:"type:uuid;primaryKey"`
	ResourceID        string                   `gorm:"type:varchar(64);not null"`
	Channel           domain.ChannelID         `gorm:"type:varchar(10);not null"`
	ChannelProviderID string                   `gorm:"type:varchar(64);not null"`
	EventName         string                   `gorm:"type:varchar(32);not null"`
	PipelineIntent    *string                  `gorm:"type:varchar(255)"`
	PipelineID        *string                  `gorm:"type:varchar(255)"`
	Status            domain.DispatchStatus    `gorm:"type:varchar(20);not null"`
	Properties        *domain.ReportProperties `gorm:"type:jsonb;serializer:json"`
	ReceivedAt        time.Time                `gorm:"not null"`
}

func (DeliveryReportModel) TableName() string {
	return "delivery_reports"
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dispatchRecordModelFromDomain(r *domain.DispatchRecord) *DispatchRecordModel {
	if r == nil {
		return nil
	}

	return &DispatchRecordModel{
		ID:             r.ID,
		ResourceID:     r.ResourceID,
		BulkID:         optional(r.BulkID),
		Channel:        r.Channel,
		PipelineIntent: optional(r.PipelineIntent),
		PipelineID:     optional(r.PipelineID),
		Recipient:      r.Recipient,
		Status:         r.Status,
		Error:          r.Error,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func dispatchRecordModelToDomain(m *DispatchRecordModel) *domain.DispatchRecord {
	if m == nil {
		return nil
	}

	return &domain.DispatchRecord{
		ID:             m.ID,
		ResourceID:     m.ResourceID,
		BulkID:         deref(m.BulkID),
		Channel:        m.Channel,
		PipelineIntent: deref(m.PipelineIntent),
		PipelineID:     deref(m.PipelineID),
		Recipient:      m.Recipient,
		Status:         m.Status,
		Error:          m.Error,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func deliveryReportModelFromDomain(r *domain.StoredReport) *DeliveryReportModel {
	if r == nil {
		return nil
	}

	return &DeliveryReportModel{
		ID:                r.ID,
		ResourceID:        r.ResourceID,
		Channel:           r.ChannelID,
		ChannelProviderID: r.ChannelProviderID,
		EventName:         r.EventName,
		PipelineIntent:    optional(r.PipelineIntent),
		PipelineID:        optional(r.PipelineID),
		Status:            r.Status,
		Properties:        r.Properties,
		ReceivedAt:        r.ReceivedAt,
	}
}

func deliveryReportModelToDomain(m *DeliveryReportModel) *domain.StoredReport {
	if m == nil {
		return nil
	}

	return &domain.StoredReport{
		ID:         m.ID,
		ReceivedAt: m.ReceivedAt,
		DeliveryReport: domain.DeliveryReport{
			EventName:         m.EventName,
			ChannelID:         m.Channel,
			ChannelProviderID: m.ChannelProviderID,
			PipelineIntent:    deref(m.PipelineIntent),
			PipelineID:        deref(m.PipelineID),
			ResourceID:        m.ResourceID,
			Status:            m.Status,
			Properties:        m.Properties,
		},
	}
}
