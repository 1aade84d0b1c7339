package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func TestQueueNames(t *testing.T) {
	work := WorkQueueNames()
	if len(work) != 3 {
		t.Fatalf("WorkQueueNames len = %d, want 3", len(work))
	}

	expected := map[string]struct{}{
		"dispatch.sms":   {},
		"dispatch.email": {},
		"dispatch.voice": {},
	}

	for _, name := range work {
		if _, ok := expected[name]; !ok {
			t.Fatalf("unexpected queue name: %s", name)
		}
	}

	dlq := DLQNames()
	if len(dlq) != 3 {
		t.Fatalf("DLQNames len = %d, want 3", len(dlq))
	}

	expectedDLQ := map[string]struct{}{
		"dlq.dispatch.sms":   {},
		"dlq.dispatch.email": {},
		"dlq.dispatch.voice": {},
	}

	for _, name := range dlq {
		if _, ok := expectedDLQ[name]; !ok {
			t.Fatalf("unexpected dlq name: %s", name)
		}
	}

	reports := ReportQueueNames()
	if len(reports) != 3 || reports[0] != "delivery.sms" {
		t.Fatalf("ReportQueueNames = %v, want delivery.<channel> for 3 channels", reports)
	}
}

func TestQueueName(t *testing.T) {
	queueName := QueueName(domain.ChannelSMS)
	if queueName != "dispatch.sms" {
		t.Fatalf("QueueName = %s, want dispatch.sms", queueName)
	}

	dlqName := DLQName(domain.ChannelEmail)
	if dlqName != "dlq.dispatch.email" {
		t.Fatalf("DLQName = %s, want dlq.dispatch.email", dlqName)
	}

	if got := ReportQueueName(domain.ChannelVoice); got != "delivery.voice" {
		t.Fatalf("ReportQueueName = %s, want delivery.voice", got)
	}
}

func validMessage() DispatchMessage {
	return DispatchMessage{
		ID:      "m1",
		Channel: domain.ChannelSMS,
		SMS: &domain.SMS{
			From: domain.Address{Value: "InfoSMS"},
			To:   []domain.Address{{Value: "41793026727"}},
			Text: "hello",
		},
	}
}

func TestDispatchMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DispatchMessage)
		wantErr bool
	}{
		{name: "valid", mutate: func(*DispatchMessage) {}},
		{name: "empty id", mutate: func(m *DispatchMessage) { m.ID = " " }, wantErr: true},
		{name: "invalid channel", mutate: func(m *DispatchMessage) { m.Channel = "push" }, wantErr: true},
		{name: "no payload", mutate: func(m *DispatchMessage) { m.SMS = nil }, wantErr: true},
		{name: "two payloads", mutate: func(m *DispatchMessage) { m.Voice = &domain.Voice{} }, wantErr: true},
		{name: "payload mismatch", mutate: func(m *DispatchMessage) { m.Channel = domain.ChannelEmail }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			msg := validMessage()
			tt.mutate(&msg)
			err := msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDispatchMessageValidateCommunication(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DispatchMessage)
		wantErr bool
	}{
		{name: "valid", mutate: func(*DispatchMessage) {}},
		{name: "no recipients", mutate: func(m *DispatchMessage) { m.SMS.To = nil }, wantErr: true},
		{name: "blank text", mutate: func(m *DispatchMessage) { m.SMS.Text = " " }, wantErr: true},
		{name: "no payload", mutate: func(m *DispatchMessage) { m.SMS = nil }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			msg := validMessage()
			tt.mutate(&msg)
			err := msg.ValidateCommunication()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateCommunication() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("ValidateCommunication() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestDispatchMessageDispatchContext(t *testing.T) {
	msg := validMessage()
	msg.PipelineIntent = "otp"
	msg.PipelineID = "pl-1"
	msg.Language = "de-CH"

	dc := msg.DispatchContext()
	if dc.ChannelID != domain.ChannelSMS || dc.ChannelProviderID != domain.ProviderID {
		t.Fatalf("DispatchContext() = %+v, want sms/infobip", dc)
	}
	if dc.PipelineIntent != "otp" || dc.PipelineID != "pl-1" || dc.Language != "de-CH" {
		t.Fatalf("DispatchContext() = %+v, want pipeline fields carried", dc)
	}
}

type fakeAcknowledger struct {
	acked    int
	rejected int
	requeued bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error { a.acked++; return nil }

func (a *fakeAcknowledger) Nack(uint64, bool, bool) error { return errors.New("nack not expected") }

func (a *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	a.rejected++
	a.requeued = requeue
	return nil
}

func TestConsumerHandleDelivery(t *testing.T) {
	validBody, err := json.Marshal(validMessage())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	noID := validMessage()
	noID.ID = ""
	noIDBody, err := json.Marshal(noID)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	tests := []struct {
		name         string
		queue        string
		delivery     amqp.Delivery
		handlerErr   error
		wantAcked    int
		wantRejected int
		wantCalls    int
		wantID       string
	}{
		{name: "ack on success", queue: "dispatch.sms", delivery: amqp.Delivery{Body: validBody}, wantAcked: 1, wantCalls: 1, wantID: "m1"},
		{name: "dead-letter on handler error", queue: "dispatch.sms", delivery: amqp.Delivery{Body: validBody}, handlerErr: errors.New("vendor down"), wantRejected: 1, wantCalls: 1, wantID: "m1"},
		{name: "reject invalid json", queue: "dispatch.sms", delivery: amqp.Delivery{Body: []byte("{")}, wantRejected: 1},
		{name: "reject invalid envelope", queue: "dispatch.sms", delivery: amqp.Delivery{Body: []byte(`{"id":"x","channel":"sms"}`)}, wantRejected: 1},
		{name: "reject channel mismatch", queue: "dispatch.email", delivery: amqp.Delivery{Body: validBody}, wantRejected: 1},
		{name: "dead-letter redelivery", queue: "dispatch.sms", delivery: amqp.Delivery{Body: validBody, Redelivered: true}, wantRejected: 1},
		{name: "amqp message id fallback", queue: "dispatch.sms", delivery: amqp.Delivery{Body: noIDBody, MessageId: "amqp-1"}, wantAcked: 1, wantCalls: 1, wantID: "amqp-1"},
		{name: "unknown queue skips channel check", queue: "custom", delivery: amqp.Delivery{Body: validBody}, wantAcked: 1, wantCalls: 1, wantID: "m1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAcknowledger{}
			calls := 0
			handler := func(_ context.Context, msg DispatchMessage) error {
				calls++
				if msg.SMS == nil || msg.SMS.Text != "hello" {
					t.Fatalf("handler got %+v, want decoded sms", msg)
				}
				if msg.ID != tt.wantID {
					t.Fatalf("handler id = %q, want %q", msg.ID, tt.wantID)
				}
				return tt.handlerErr
			}

			d := tt.delivery
			d.Acknowledger = ack
			c := NewRabbitMQConsumer(nil, 0, zap.NewNop())
			if err := c.handleDelivery(context.Background(), tt.queue, d, handler); err != nil {
				t.Fatalf("handleDelivery() error = %v", err)
			}

			if calls != tt.wantCalls {
				t.Fatalf("handler calls = %d, want %d", calls, tt.wantCalls)
			}
			if ack.acked != tt.wantAcked || ack.rejected != tt.wantRejected {
				t.Fatalf("acked=%d rejected=%d, want %d/%d", ack.acked, ack.rejected, tt.wantAcked, tt.wantRejected)
			}
			if ack.requeued {
				t.Fatal("rejected deliveries must not be requeued")
			}
		})
	}
}

func TestChannelForQueue(t *testing.T) {
	tests := []struct {
		queue  string
		want   domain.ChannelID
		wantOK bool
	}{
		{queue: "dispatch.sms", want: domain.ChannelSMS, wantOK: true},
		{queue: QueueName(domain.ChannelVoice), want: domain.ChannelVoice, wantOK: true},
		{queue: "dispatch.fax"},
		{queue: "delivery.sms"},
	}

	for _, tt := range tests {
		got, ok := channelForQueue(tt.queue)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Fatalf("channelForQueue(%q) = %q, %v, want %q, %v", tt.queue, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestTopology(t *testing.T) {
	exchanges, queues := topology()

	kinds := map[string]string{}
	for _, ex := range exchanges {
		kinds[ex.name] = ex.kind
	}
	if kinds[dlxExchangeName] != amqp.ExchangeDirect || kinds[reportExchangeName] != amqp.ExchangeTopic {
		t.Fatalf("exchanges = %+v, want direct dlx and topic report exchange", exchanges)
	}

	byName := map[string]queueDecl{}
	for _, q := range queues {
		byName[q.name] = q
	}
	if len(byName) != 3*len(domain.Channels()) {
		t.Fatalf("queues = %d, want 3 per channel", len(byName))
	}

	for _, channel := range domain.Channels() {
		work, ok := byName[QueueName(channel)]
		if !ok {
			t.Fatalf("work queue for %s missing", channel)
		}
		if work.args["x-dead-letter-exchange"] != dlxExchangeName {
			t.Fatalf("work queue %s args = %v, want dlx", work.name, work.args)
		}

		dlq := byName[DLQName(channel)]
		if dlq.exchange != dlxExchangeName || dlq.key != work.args["x-dead-letter-routing-key"] {
			t.Fatalf("dlq %s = %+v, want bound to dlx with the work queue routing key", dlq.name, dlq)
		}

		report := byName[ReportQueueName(channel)]
		if report.exchange != reportExchangeName || report.key != ReportQueueName(channel) {
			t.Fatalf("report queue %s = %+v, want bound to report exchange", report.name, report)
		}
	}
}

func TestRabbitMQRequiresURL(t *testing.T) {
	if _, err := NewRabbitMQ(context.Background(), " ", nil); err == nil {
		t.Fatal("expected error for blank url")
	}
}

func TestPublisherRequiresClient(t *testing.T) {
	p := NewRabbitMQPublisher(nil)
	if err := p.PublishDispatch(context.Background(), validMessage()); err == nil {
		t.Fatal("expected error for uninitialized publisher")
	}
	if err := p.PublishReport(context.Background(), domain.DeliveryReport{ChannelID: "fax"}); err == nil {
		t.Fatal("expected error for invalid report channel")
	}
}
