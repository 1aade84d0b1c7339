package infobip

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"go.uber.org/zap"
)

// SMSDispatcher sends text messages, one vendor call per recipient.
type SMSDispatcher struct {
	*dispatcher
}

func NewSMSDispatcher(client *Client, opts ...Option) (*SMSDispatcher, error) {
	d, err := newDispatcher(client, domain.ChannelSMS, opts)
	if err != nil {
		return nil, err
	}
	return &SMSDispatcher{dispatcher: d}, nil
}

func (d *SMSDispatcher) Channel() domain.ChannelID { return domain.ChannelSMS }

func (d *SMSDispatcher) Dispatch(ctx context.Context, sms domain.SMS, dc domain.DispatchContext) ([]domain.DispatchResult, error) {
	if d == nil || d.dispatcher == nil {
		return nil, fmt.Errorf("sms dispatcher is not initialized")
	}
	if err := sms.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sms: %w", err)
	}
	dc = d.normalize(dc)

	results, err := d.forEachRecipient(ctx, dc, sms.To, func(ctx context.Context, to domain.Address) ([]domain.DispatchResult, error) {
		messageID := d.newID()
		notifyURL, err := resolveNotifyURL(ctx, dc, notifySource{
			messageResolver:       sms.Properties.NotifyURLResolver,
			communicationResolver: sms.DeliveryReportCallbackURLResolver,
			static:                sms.Properties.NotifyURL,
		}, d.notifyURL, messageID)
		if err != nil {
			return nil, err
		}

		request := buildSMSRequest(sms, to, messageID, d.newID(), notifyURL)
		return d.exchange(ctx, dc, to.Value, smsAdvancedPath, func(ctx context.Context) (*resty.Response, error) {
			return d.client.postJSON(ctx, smsAdvancedPath, request)
		})
	})
	if err != nil {
		d.logger.Warn("sms dispatch stopped", zap.Int("results", len(results)), zap.Error(err))
	}
	return results, err
}

func buildSMSRequest(sms domain.SMS, to domain.Address, messageID, bulkID, notifyURL string) smsRequest {
	p := sms.Properties
	return smsRequest{
		BulkID: bulkID,
		Messages: []smsMessage{{
			Destinations:   []destination{{To: strings.TrimSpace(to.Value), MessageID: messageID}},
			From:           strings.TrimSpace(sms.From.Value),
			Text:           sms.Text,
			Flash:          p.Flash,
			ValidityPeriod: p.ValidityPeriod,
			EntityID:       p.EntityID,
			ApplicationID:  p.ApplicationID,
			NotifyURL:      notifyURL,
			CallbackData:   p.CallbackData,
		}},
	}
}
