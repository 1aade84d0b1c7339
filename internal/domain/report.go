package domain

import (
	"strings"
	"time"
)

// EventStatusChanged is the event name carried by every adapted delivery report.
const EventStatusChanged = "StatusChanged"

// WebhookRequest is an inbound delivery callback before adaptation.
type WebhookRequest struct {
	Body              []byte
	ChannelID         string
	ChannelProviderID string
	PipelineIntent    string
	PipelineID        string
	ResourceID        string
}

func (r WebhookRequest) HasBody() bool {
	return strings.TrimSpace(string(r.Body)) != ""
}

// DeliveryReport is a normalized delivery status event.
type DeliveryReport struct {
	EventName         string            `json:"eventName"`
	ChannelID         ChannelID         `json:"channelId"`
	ChannelProviderID string            `json:"channelProviderId"`
	PipelineIntent    string            `json:"pipelineIntent,omitempty"`
	PipelineID        string            `json:"pipelineId,omitempty"`
	ResourceID        string            `json:"resourceId"`
	Status            DispatchStatus    `json:"status"`
	Properties        *ReportProperties `json:"properties,omitempty"`
}

// ReportProperties holds the vendor fields of a delivery report.
type ReportProperties struct {
	BulkID        string           `json:"bulkId,omitempty"`
	MessageID     string           `json:"messageId,omitempty"`
	To            string           `json:"to,omitempty"`
	From          string           `json:"from,omitempty"`
	SentAt        *time.Time       `json:"sentAt,omitempty"`
	DoneAt        *time.Time       `json:"doneAt,omitempty"`
	MessageCount  int              `json:"messageCount,omitempty"`
	MCCMNC        string           `json:"mccMnc,omitempty"`
	CallbackData  string           `json:"callbackData,omitempty"`
	Price         *Price           `json:"price,omitempty"`
	Status        *VendorStatus    `json:"status,omitempty"`
	Error         *VendorError     `json:"error,omitempty"`
	EntityID      string           `json:"entityId,omitempty"`
	ApplicationID string           `json:"applicationId,omitempty"`
	BrowserLink   string           `json:"browserLink,omitempty"`
	VoiceCall     *VoiceCallDetail `json:"voiceCall,omitempty"`
}

type Price struct {
	PricePerMessage float64 `json:"pricePerMessage"`
	Currency        string  `json:"currency"`
}

// VendorStatus is the raw vendor status object.
type VendorStatus struct {
	GroupID     int    `json:"groupId"`
	GroupName   string `json:"groupName,omitempty"`
	ID          int    `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Action      string `json:"action,omitempty"`
}

// VendorError is the raw vendor error object. GroupID 0 with ID 0 means no error.
type VendorError struct {
	GroupID     int    `json:"groupId"`
	GroupName   string `json:"groupName,omitempty"`
	ID          int    `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Permanent   bool   `json:"permanent"`
}

// VoiceCallDetail describes a completed or attempted call.
type VoiceCallDetail struct {
	Feature        string     `json:"feature,omitempty"`
	StartTime      *time.Time `json:"startTime,omitempty"`
	AnswerTime     *time.Time `json:"answerTime,omitempty"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	Duration       int        `json:"duration"`
	ChargeDuration int        `json:"chargeDuration"`
	FileDuration   float64    `json:"fileDuration,omitempty"`
	DTMFCodes      string     `json:"dtmfCodes,omitempty"`
	IVR            any        `json:"ivr,omitempty"`
}
