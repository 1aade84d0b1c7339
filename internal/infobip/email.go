package infobip

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"go.uber.org/zap"
)

const vendorTimeFormat = "2006-01-02T15:04:05.000-0700"

// EmailDispatcher sends one multipart request covering every recipient.
type EmailDispatcher struct {
	*dispatcher
}

func NewEmailDispatcher(client *Client, opts ...Option) (*EmailDispatcher, error) {
	d, err := newDispatcher(client, domain.ChannelEmail, opts)
	if err != nil {
		return nil, err
	}
	return &EmailDispatcher{dispatcher: d}, nil
}

func (d *EmailDispatcher) Channel() domain.ChannelID { return domain.ChannelEmail }

func (d *EmailDispatcher) Dispatch(ctx context.Context, email domain.Email, dc domain.DispatchContext) ([]domain.DispatchResult, error) {
	if d == nil || d.dispatcher == nil {
		return nil, fmt.Errorf("email dispatcher is not initialized")
	}
	if err := email.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dc = d.normalize(dc)

	ampHTML, err := renderAMP(ctx, email.Properties.AMPHTML, dc)
	if err != nil {
		return nil, err
	}

	bulkID := strings.TrimSpace(email.Properties.BulkID)
	if bulkID == "" {
		bulkID = d.newID()
	}
	// A single recipient gets a caller-known message id; the vendor assigns ids otherwise.
	messageID := ""
	// Multi-recipient mails carry the bulk id as the notify-URL resourceId, since
	// one messageId cannot name every recipient.
	resourceID := bulkID
	if email.RecipientCount() == 1 {
		messageID = d.newID()
		resourceID = messageID
	}

	notifyURL, err := resolveNotifyURL(ctx, dc, notifySource{
		messageResolver:       email.Properties.NotifyURLResolver,
		communicationResolver: email.DeliveryReportCallbackURLResolver,
		static:                email.Properties.NotifyURL,
	}, d.notifyURL, resourceID)
	if err != nil {
		return nil, err
	}

	fields := buildEmailForm(email, ampHTML, notifyURL, messageID, bulkID)
	recipient := strings.TrimSpace(email.To[0].Value)

	dc.ObserverOrNop().Dispatching(ctx, dc, email.To[0])
	results, err := d.exchange(ctx, dc, recipient, emailSendPath, func(ctx context.Context) (*resty.Response, error) {
		return d.client.postMultipart(ctx, emailSendPath, fields)
	})
	if err != nil {
		d.logger.Warn("email dispatch failed", zap.Int("recipients", email.RecipientCount()), zap.Error(err))
	}
	return results, err
}

func renderAMP(ctx context.Context, content string, dc domain.DispatchContext) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	if dc.TemplateEngine == nil {
		return content, nil
	}
	rendered, err := dc.TemplateEngine.Render(ctx, content, dc.Model)
	if err != nil {
		return "", fmt.Errorf("failed to render amp html: %w", err)
	}
	return rendered, nil
}

// formBuilder collects multipart form values in insertion order.
type formBuilder struct {
	fields []*resty.MultipartField
}

func (b *formBuilder) add(param, value string) {
	if value = strings.TrimSpace(value); value == "" {
		return
	}
	b.fields = append(b.fields, &resty.MultipartField{
		Param:       param,
		ContentType: "text/plain; charset=utf-8",
		Reader:      strings.NewReader(value),
	})
}

func (b *formBuilder) addBool(param string, value *bool) {
	if value == nil {
		return
	}
	b.add(param, strconv.FormatBool(*value))
}

func (b *formBuilder) addAddresses(param string, addresses []domain.Address) {
	for _, addr := range addresses {
		b.add(param, addr.String())
	}
}

func buildEmailForm(email domain.Email, ampHTML, notifyURL, messageID, bulkID string) []*resty.MultipartField {
	p := email.Properties
	b := &formBuilder{}

	b.addAddresses("to", email.To)
	b.addAddresses("cc", email.Cc)
	b.addAddresses("bcc", email.Bcc)
	if len(email.ReplyTo) > 0 {
		b.add("replyTo", email.ReplyTo[0].Value)
	}

	if p.TemplateID > 0 {
		b.add("templateId", strconv.FormatInt(p.TemplateID, 10))
	}
	b.add("from", email.From.String())
	b.add("subject", email.Subject)
	b.add("text", email.TextBody)
	b.add("html", email.HTMLBody)
	b.add("ampHtml", ampHTML)

	if p.IntermediateReport {
		b.add("intermediateReport", "true")
	}
	b.add("notifyUrl", notifyURL)
	b.add("notifyContentType", notifyContentType(notifyURL))

	track := true
	if p.Track != nil {
		track = *p.Track
	}
	b.addBool("track", &track)
	b.addBool("trackClicks", p.TrackClicks)
	b.addBool("trackOpens", p.TrackOpens)
	b.add("trackingUrl", p.TrackingURL)

	b.add("messageId", messageID)
	b.add("bulkId", bulkID)
	b.add("applicationId", p.ApplicationID)
	b.add("entityId", p.EntityID)
	if p.PreserveRecipients {
		b.add("preserveRecipients", "true")
	}
	if p.SendAt != nil && !p.SendAt.IsZero() {
		b.add("sendAt", p.SendAt.UTC().Format(vendorTimeFormat))
	}

	return b.fields
}

func notifyContentType(notifyURL string) string {
	if notifyURL == "" {
		return ""
	}
	return "application/json"
}
