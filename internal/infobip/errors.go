package infobip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
)

// ErrUnexpectedResponse marks a 2xx vendor response that could not be used.
var ErrUnexpectedResponse = errors.New("unexpected infobip response")

// APIError is a vendor rejection decoded from the request error envelope.
type APIError struct {
	StatusCode       int
	MessageID        string
	Text             string
	ValidationErrors []string
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "infobip api error")
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if text := strings.TrimSpace(e.Text); text != "" {
		parts = append(parts, text)
	}
	if len(e.ValidationErrors) > 0 {
		parts = append(parts, strings.Join(e.ValidationErrors, ","))
	}

	return strings.Join(parts, ": ")
}

// Transient reports whether the vendor rejection is worth retrying by a caller.
func (e *APIError) Transient() bool {
	return e != nil && isTransientHTTPStatus(e.StatusCode)
}

// ProviderError classifies transport failures as transient/permanent.
type ProviderError struct {
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "provider error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether an error should be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

type apiErrorEnvelope struct {
	RequestError struct {
		ServiceException struct {
			MessageID        string          `json:"messageId"`
			Text             string          `json:"text"`
			ValidationErrors json.RawMessage `json:"validationErrors"`
		} `json:"serviceException"`
	} `json:"requestError"`
}

// parseAPIError decodes a non-2xx body. Bodies that are not an error envelope keep the raw text.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		apiErr.Text = strings.TrimSpace(string(body))
		if apiErr.Text == "" {
			apiErr.Text = http.StatusText(statusCode)
		}
		return apiErr
	}

	exception := envelope.RequestError.ServiceException
	apiErr.MessageID = strings.TrimSpace(exception.MessageID)
	apiErr.Text = strings.TrimSpace(exception.Text)
	apiErr.ValidationErrors = decodeValidationErrors(exception.ValidationErrors)
	if apiErr.Text == "" {
		apiErr.Text = http.StatusText(statusCode)
	}
	return apiErr
}

// decodeValidationErrors accepts either a list of messages or a field to messages object.
func decodeValidationErrors(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var byField map[string][]string
	if err := json.Unmarshal(raw, &byField); err != nil {
		return nil
	}

	fields := make([]string, 0, len(byField))
	for field := range byField {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]string, 0, len(byField))
	for _, field := range fields {
		for _, msg := range byField[field] {
			out = append(out, field+": "+msg)
		}
	}
	return out
}
