package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"github.com/kursadbilgin/infobip-dispatch/internal/infobip"
	"go.uber.org/zap"
)

// Adaptor converts inbound webhooks of one channel into delivery reports.
// Adapt returns nil for requests it does not own.
type Adaptor interface {
	Channel() domain.ChannelID
	Adapt(ctx context.Context, req domain.WebhookRequest) []domain.DeliveryReport
}

// Router resolves the adaptor for a webhook by its channel id.
type Router struct {
	byChannel map[domain.ChannelID]Adaptor
}

func NewRouter(adaptors ...Adaptor) (*Router, error) {
	r := &Router{byChannel: make(map[domain.ChannelID]Adaptor, len(adaptors))}
	for _, adaptor := range adaptors {
		if adaptor == nil {
			return nil, fmt.Errorf("adaptor is required")
		}
		channel := adaptor.Channel()
		if _, exists := r.byChannel[channel]; exists {
			return nil, fmt.Errorf("%w: adaptor for channel %q already registered", domain.ErrConflict, channel)
		}
		r.byChannel[channel] = adaptor
	}
	return r, nil
}

// NewInfobipRouter registers the SMS, email and voice report adaptors.
func NewInfobipRouter(logger *zap.Logger) *Router {
	r, _ := NewRouter(
		infobip.NewSMSReportAdaptor(logger),
		infobip.NewEmailReportAdaptor(logger),
		infobip.NewVoiceReportAdaptor(logger),
	)
	return r
}

// Route adapts req with the adaptor registered for its channel, or returns nil.
func (r *Router) Route(ctx context.Context, req domain.WebhookRequest) []domain.DeliveryReport {
	if r == nil {
		return nil
	}
	adaptor, ok := r.byChannel[domain.ChannelID(strings.ToLower(strings.TrimSpace(req.ChannelID)))]
	if !ok {
		return nil
	}
	return adaptor.Adapt(ctx, req)
}
