package domain

import (
	"context"
	"strings"
)

// Query parameter keys appended to notify URLs and read back by the webhook endpoint.
const (
	QueryResourceID        = "resourceId"
	QueryPipelineIntent    = "pipelineIntent"
	QueryPipelineID        = "pipelineId"
	QueryChannelID         = "channelId"
	QueryChannelProviderID = "channelProviderId"
)

// TemplateEngine renders template content against a model.
type TemplateEngine interface {
	Render(ctx context.Context, content string, model map[string]any) (string, error)
}

// DispatchObserver receives per-message dispatch side effects.
type DispatchObserver interface {
	Dispatching(ctx context.Context, dc DispatchContext, recipient Address)
	Dispatched(ctx context.Context, dc DispatchContext, result DispatchResult)
	Failed(ctx context.Context, dc DispatchContext, result DispatchResult)
}

// NopObserver ignores every callback.
type NopObserver struct{}

func (NopObserver) Dispatching(context.Context, DispatchContext, Address)       {}
func (NopObserver) Dispatched(context.Context, DispatchContext, DispatchResult) {}
func (NopObserver) Failed(context.Context, DispatchContext, DispatchResult)     {}

// DispatchContext carries pipeline identity and collaborators for one dispatch.
type DispatchContext struct {
	PipelineIntent    string
	PipelineID        string
	ChannelID         ChannelID
	ChannelProviderID string
	// Language is a culture name such as "en-US".
	Language       string
	Model          map[string]any
	TemplateEngine TemplateEngine
	Observer       DispatchObserver
}

func (dc DispatchContext) ObserverOrNop() DispatchObserver {
	if dc.Observer == nil {
		return NopObserver{}
	}
	return dc.Observer
}

// TwoLetterLanguage returns the ISO language part of Language, or fallback.
func (dc DispatchContext) TwoLetterLanguage(fallback string) string {
	lang := strings.TrimSpace(dc.Language)
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	if len(lang) != 2 {
		return fallback
	}
	return strings.ToLower(lang)
}

// DispatchResult is the outcome for one vendor message.
type DispatchResult struct {
	ResourceID string         `json:"resourceId,omitempty"`
	BulkID     string         `json:"bulkId,omitempty"`
	Recipient  string         `json:"recipient,omitempty"`
	Status     DispatchStatus `json:"status"`
	Err        error          `json:"-"`
}

func (r DispatchResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
