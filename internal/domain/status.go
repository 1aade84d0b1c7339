package domain

import (
	"fmt"
	"strings"
)

// DispatchStatus is the provider-neutral outcome of a dispatch or delivery report.
type DispatchStatus string

const (
	StatusDispatched    DispatchStatus = "DISPATCHED"
	StatusDelivered     DispatchStatus = "DELIVERED"
	StatusUndeliverable DispatchStatus = "UNDELIVERABLE"
	StatusError         DispatchStatus = "ERROR"
	StatusUnknown       DispatchStatus = "UNKNOWN"
)

func (s DispatchStatus) String() string { return string(s) }

func (s DispatchStatus) IsValid() bool {
	switch s {
	case StatusDispatched, StatusDelivered, StatusUndeliverable, StatusError, StatusUnknown:
		return true
	}
	return false
}

// IsFailure reports whether the status ends the message without delivery.
func (s DispatchStatus) IsFailure() bool {
	return s == StatusError || s == StatusUndeliverable
}

func ParseDispatchStatus(s string) (DispatchStatus, error) {
	st := DispatchStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid dispatch status %q", ErrValidation, s)
	}
	return st, nil
}

// ChannelID identifies a communication channel.
type ChannelID string

const (
	ChannelSMS   ChannelID = "sms"
	ChannelEmail ChannelID = "email"
	ChannelVoice ChannelID = "voice"
)

// ProviderID is the channel-provider id this module registers under.
const ProviderID = "infobip"

func (c ChannelID) String() string { return string(c) }

func (c ChannelID) IsValid() bool {
	switch c {
	case ChannelSMS, ChannelEmail, ChannelVoice:
		return true
	}
	return false
}

func ParseChannelID(s string) (ChannelID, error) {
	ch := ChannelID(strings.ToLower(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// Channels lists every supported channel.
func Channels() []ChannelID {
	return []ChannelID{ChannelSMS, ChannelEmail, ChannelVoice}
}
