package domain

import "time"

// DispatchRecord is the persisted outcome of one vendor message.
type DispatchRecord struct {
	ID             string         `json:"id"`
	ResourceID     string         `json:"resourceId"`
	BulkID         string         `json:"bulkId,omitempty"`
	Channel        ChannelID      `json:"channel"`
	PipelineIntent string         `json:"pipelineIntent,omitempty"`
	PipelineID     string         `json:"pipelineId,omitempty"`
	Recipient      string         `json:"recipient,omitempty"`
	Status         DispatchStatus `json:"status"`
	Error          *string        `json:"error,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// NewDispatchRecord builds a record from a dispatch result.
func NewDispatchRecord(id string, dc DispatchContext, result DispatchResult) *DispatchRecord {
	record := &DispatchRecord{
		ID:             id,
		ResourceID:     result.ResourceID,
		BulkID:         result.BulkID,
		Channel:        dc.ChannelID,
		PipelineIntent: dc.PipelineIntent,
		PipelineID:     dc.PipelineID,
		Recipient:      result.Recipient,
		Status:         result.Status,
	}
	if msg := result.ErrorMessage(); msg != "" {
		record.Error = &msg
	}
	return record
}

// StoredReport is a delivery report accepted by the webhook endpoint.
type StoredReport struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"receivedAt"`
	DeliveryReport
}
