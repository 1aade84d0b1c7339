package queue

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
)

// DispatchMessage is the broker payload asking a worker to send one communication.
type DispatchMessage struct {
	ID             string           `json:"id"`
	Channel        domain.ChannelID `json:"channel"`
	PipelineIntent string           `json:"pipelineIntent,omitempty"`
	PipelineID     string           `json:"pipelineId,omitempty"`
	Language       string           `json:"language,omitempty"`
	Model          map[string]any   `json:"model,omitempty"`
	SMS            *domain.SMS      `json:"sms,omitempty"`
	Email          *domain.Email    `json:"email,omitempty"`
	Voice          *domain.Voice    `json:"voice,omitempty"`
}

// Validate checks the envelope only. ValidateCommunication checks the payload.
func (m DispatchMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if !m.Channel.IsValid() {
		return fmt.Errorf("invalid channel %q", m.Channel)
	}

	payloads := 0
	for _, present := range []bool{m.SMS != nil, m.Email != nil, m.Voice != nil} {
		if present {
			payloads++
		}
	}
	if payloads != 1 {
		return fmt.Errorf("exactly one communication is required, got %d", payloads)
	}

	var matches bool
	switch m.Channel {
	case domain.ChannelSMS:
		matches = m.SMS != nil
	case domain.ChannelEmail:
		matches = m.Email != nil
	case domain.ChannelVoice:
		matches = m.Voice != nil
	}
	if !matches {
		return fmt.Errorf("communication does not match channel %q", m.Channel)
	}
	return nil
}

// ValidateCommunication applies the channel rules to the carried payload.
// The envelope must already be valid.
func (m DispatchMessage) ValidateCommunication() error {
	switch {
	case m.SMS != nil:
		return m.SMS.Validate()
	case m.Email != nil:
		return m.Email.Validate()
	case m.Voice != nil:
		return m.Voice.Validate()
	default:
		return fmt.Errorf("%w: communication is required", domain.ErrValidation)
	}
}

// DispatchContext returns the pipeline identity carried by the message.
func (m DispatchMessage) DispatchContext() domain.DispatchContext {
	return domain.DispatchContext{
		PipelineIntent:    m.PipelineIntent,
		PipelineID:        m.PipelineID,
		ChannelID:         m.Channel,
		ChannelProviderID: domain.ProviderID,
		Language:          m.Language,
		Model:             m.Model,
	}
}
