package domain

import (
	"context"
	"strings"
	"time"
)

// Vendor-documented limits enforced before a request is sent.
const (
	MaxEntityIDLength        = 50
	MaxApplicationIDLength   = 50
	MaxSMSCallbackDataLength = 4000
	MaxSMSValidityPeriod     = 2880
	MaxVoiceTextLength       = 1400
	MaxVoiceCallbackData     = 200
	MaxVoiceRingTimeout      = 45
	MaxVoicePause            = 10
	MaxVoiceDestinations     = 20000
	MaxEmailRecipients       = 1000
)

// URLResolver computes a notify URL for one dispatch.
type URLResolver func(ctx context.Context, dc DispatchContext) (string, error)

// Address is a recipient or sender identity: a phone number or an email address.
type Address struct {
	Value   string `json:"value"`
	Display string `json:"display,omitempty"`
}

func (a Address) String() string {
	value := strings.TrimSpace(a.Value)
	display := strings.TrimSpace(a.Display)
	if display == "" || value == "" {
		return value
	}
	return display + " <" + value + ">"
}

func (a Address) IsBlank() bool {
	return strings.TrimSpace(a.Value) == ""
}

// SMS is an outbound text message.
type SMS struct {
	From       Address       `json:"from"`
	To         []Address     `json:"to"`
	Text       string        `json:"text"`
	Properties SMSProperties `json:"properties"`

	// DeliveryReportCallbackURLResolver is consulted when Properties carries no resolver.
	DeliveryReportCallbackURLResolver URLResolver `json:"-"`
}

// SMSProperties holds vendor-specific optional SMS fields.
type SMSProperties struct {
	// ValidityPeriod is in minutes.
	ValidityPeriod    int         `json:"validityPeriod,omitempty"`
	EntityID          string      `json:"entityId,omitempty"`
	ApplicationID     string      `json:"applicationId,omitempty"`
	CallbackData      string      `json:"callbackData,omitempty"`
	Flash             bool        `json:"flash,omitempty"`
	NotifyURL         string      `json:"notifyUrl,omitempty"`
	NotifyURLResolver URLResolver `json:"-"`
}

// Email is an outbound email sent in one vendor call for all recipients.
type Email struct {
	From       Address         `json:"from"`
	ReplyTo    []Address       `json:"replyTo,omitempty"`
	To         []Address       `json:"to"`
	Cc         []Address       `json:"cc,omitempty"`
	Bcc        []Address       `json:"bcc,omitempty"`
	Subject    string          `json:"subject"`
	TextBody   string          `json:"textBody,omitempty"`
	HTMLBody   string          `json:"htmlBody,omitempty"`
	Properties EmailProperties `json:"properties"`

	DeliveryReportCallbackURLResolver URLResolver `json:"-"`
}

// RecipientCount is the combined To, Cc and Bcc count.
func (e Email) RecipientCount() int {
	return len(e.To) + len(e.Cc) + len(e.Bcc)
}

// EmailProperties holds vendor-specific optional email fields.
type EmailProperties struct {
	TemplateID int64 `json:"templateId,omitempty"`
	// AMPHTML is rendered through the dispatch template engine when one is set.
	AMPHTML            string      `json:"ampHtml,omitempty"`
	IntermediateReport bool        `json:"intermediateReport,omitempty"`
	Track              *bool       `json:"track,omitempty"`
	TrackClicks        *bool       `json:"trackClicks,omitempty"`
	TrackOpens         *bool       `json:"trackOpens,omitempty"`
	TrackingURL        string      `json:"trackingUrl,omitempty"`
	PreserveRecipients bool        `json:"preserveRecipients,omitempty"`
	BulkID             string      `json:"bulkId,omitempty"`
	SendAt             *time.Time  `json:"sendAt,omitempty"`
	EntityID           string      `json:"entityId,omitempty"`
	ApplicationID      string      `json:"applicationId,omitempty"`
	NotifyURL          string      `json:"notifyUrl,omitempty"`
	NotifyURLResolver  URLResolver `json:"-"`
}

// Voice is an outbound text-to-speech call.
type Voice struct {
	From       Address         `json:"from"`
	To         []Address       `json:"to"`
	Message    string          `json:"message"`
	VoiceType  VoiceType       `json:"voiceType"`
	Properties VoiceProperties `json:"properties"`

	DeliveryReportCallbackURLResolver URLResolver `json:"-"`
}

// VoiceType selects the synthesized voice.
type VoiceType struct {
	Gender string `json:"gender,omitempty"`
	Name   string `json:"name,omitempty"`
}

// MachineDetection is the vendor answering-machine behavior.
type MachineDetection string

const (
	MachineDetectionNone     MachineDetection = ""
	MachineDetectionHangup   MachineDetection = "hangup"
	MachineDetectionContinue MachineDetection = "continue"
)

func (m MachineDetection) IsValid() bool {
	switch m {
	case MachineDetectionNone, MachineDetectionHangup, MachineDetectionContinue:
		return true
	}
	return false
}

// VoiceProperties holds vendor-specific optional voice fields. Durations are in seconds.
type VoiceProperties struct {
	VoiceName            string           `json:"voiceName,omitempty"`
	VoiceGender          string           `json:"voiceGender,omitempty"`
	CallTimeout          *int             `json:"callTimeout,omitempty"`
	RingTimeout          *int             `json:"ringTimeout,omitempty"`
	Pause                *int             `json:"pause,omitempty"`
	MaxDtmf              *int             `json:"maxDtmf,omitempty"`
	DtmfTimeout          *int             `json:"dtmfTimeout,omitempty"`
	Record               bool             `json:"record,omitempty"`
	MachineDetection     MachineDetection `json:"machineDetection,omitempty"`
	CallbackData         string           `json:"callbackData,omitempty"`
	ValidityPeriod       *int             `json:"validityPeriod,omitempty"`
	AudioFileURL         string           `json:"audioFileUrl,omitempty"`
	NotifyContentVersion *int             `json:"notifyContentVersion,omitempty"`
	EntityID             string           `json:"entityId,omitempty"`
	ApplicationID        string           `json:"applicationId,omitempty"`
	// Single sends through the simple single-destination endpoint.
	Single            bool        `json:"single,omitempty"`
	NotifyURL         string      `json:"notifyUrl,omitempty"`
	NotifyURLResolver URLResolver `json:"-"`
}

// EffectiveVoiceType merges per-message overrides onto the communication voice type.
func (v Voice) EffectiveVoiceType() VoiceType {
	vt := VoiceType{
		Gender: strings.TrimSpace(v.VoiceType.Gender),
		Name:   strings.TrimSpace(v.VoiceType.Name),
	}
	if gender := strings.TrimSpace(v.Properties.VoiceGender); gender != "" {
		vt.Gender = gender
	}
	if name := strings.TrimSpace(v.Properties.VoiceName); name != "" {
		vt.Name = name
	}
	vt.Gender = strings.ToLower(vt.Gender)
	vt.Name = strings.ToLower(vt.Name)
	return vt
}
