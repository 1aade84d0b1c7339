package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

func (s SMS) Validate() error {
	if err := validateRecipients(s.To); err != nil {
		return err
	}
	if strings.TrimSpace(s.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrValidation)
	}

	p := s.Properties
	if err := validateIdentifiers(p.EntityID, p.ApplicationID); err != nil {
		return err
	}
	if utf8.RuneCountInString(p.CallbackData) > MaxSMSCallbackDataLength {
		return fmt.Errorf("%w: callbackData exceeds %d characters", ErrValidation, MaxSMSCallbackDataLength)
	}
	if p.ValidityPeriod < 0 || p.ValidityPeriod > MaxSMSValidityPeriod {
		return fmt.Errorf("%w: validityPeriod must be between 0 and %d minutes", ErrValidation, MaxSMSValidityPeriod)
	}
	return nil
}

func (e Email) Validate() error {
	if len(e.To) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrValidation)
	}
	if count := e.RecipientCount(); count > MaxEmailRecipients {
		return fmt.Errorf("%w: %d recipients exceed the limit of %d", ErrValidation, count, MaxEmailRecipients)
	}
	for _, group := range [][]Address{e.To, e.Cc, e.Bcc} {
		for _, addr := range group {
			if addr.IsBlank() {
				return fmt.Errorf("%w: recipient address is required", ErrValidation)
			}
		}
	}

	p := e.Properties
	if p.TemplateID < 0 {
		return fmt.Errorf("%w: templateId must be positive", ErrValidation)
	}
	if p.TemplateID == 0 {
		if e.From.IsBlank() {
			return fmt.Errorf("%w: from is required without a template", ErrValidation)
		}
		if strings.TrimSpace(e.Subject) == "" {
			return fmt.Errorf("%w: subject is required without a template", ErrValidation)
		}
	}
	if strings.TrimSpace(p.AMPHTML) != "" && strings.TrimSpace(e.HTMLBody) == "" {
		return fmt.Errorf("%w: ampHtml requires an html body", ErrValidation)
	}
	return validateIdentifiers(p.EntityID, p.ApplicationID)
}

func (v Voice) Validate() error {
	if err := validateRecipients(v.To); err != nil {
		return err
	}
	if len(v.To) > MaxVoiceDestinations {
		return fmt.Errorf("%w: %d destinations exceed the limit of %d", ErrValidation, len(v.To), MaxVoiceDestinations)
	}
	if v.From.IsBlank() {
		return fmt.Errorf("%w: from is required", ErrValidation)
	}

	p := v.Properties
	if utf8.RuneCountInString(v.Message) > MaxVoiceTextLength {
		return fmt.Errorf("%w: text exceeds %d characters", ErrValidation, MaxVoiceTextLength)
	}
	if strings.TrimSpace(v.Message) == "" && strings.TrimSpace(p.AudioFileURL) == "" {
		return fmt.Errorf("%w: text or audioFileUrl is required", ErrValidation)
	}
	if p.Single && strings.TrimSpace(v.Message) == "" {
		return fmt.Errorf("%w: text is required for single calls", ErrValidation)
	}
	if utf8.RuneCountInString(p.CallbackData) > MaxVoiceCallbackData {
		return fmt.Errorf("%w: callbackData exceeds %d characters", ErrValidation, MaxVoiceCallbackData)
	}
	if err := validateRange("ringTimeout", p.RingTimeout, 0, MaxVoiceRingTimeout); err != nil {
		return err
	}
	if err := validateRange("pause", p.Pause, 0, MaxVoicePause); err != nil {
		return err
	}
	if !p.MachineDetection.IsValid() {
		return fmt.Errorf("%w: invalid machineDetection %q", ErrValidation, p.MachineDetection)
	}
	return validateIdentifiers(p.EntityID, p.ApplicationID)
}

func validateRecipients(to []Address) error {
	if len(to) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrValidation)
	}
	for _, addr := range to {
		if addr.IsBlank() {
			return fmt.Errorf("%w: recipient address is required", ErrValidation)
		}
	}
	return nil
}

func validateIdentifiers(entityID, applicationID string) error {
	if utf8.RuneCountInString(entityID) > MaxEntityIDLength {
		return fmt.Errorf("%w: entityId exceeds %d characters", ErrValidation, MaxEntityIDLength)
	}
	if utf8.RuneCountInString(applicationID) > MaxApplicationIDLength {
		return fmt.Errorf("%w: applicationId exceeds %d characters", ErrValidation, MaxApplicationIDLength)
	}
	return nil
}

func validateRange(field string, value *int, min, max int) error {
	if value == nil {
		return nil
	}
	if *value < min || *value > max {
		return fmt.Errorf("%w: %s must be between %d and %d", ErrValidation, field, min, max)
	}
	return nil
}
