package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQPublisher struct {
	client *RabbitMQ
}

func NewRabbitMQPublisher(client *RabbitMQ) *RabbitMQPublisher {
	return &RabbitMQPublisher{client: client}
}

// PublishDispatch routes the message straight to its channel work queue.
func (p *RabbitMQPublisher) PublishDispatch(ctx context.Context, msg DispatchMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid dispatch message: %w", err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch message: %w", err)
	}

	return p.publish(ctx, "", QueueName(msg.Channel), amqp.Publishing{
		MessageId:     msg.ID,
		CorrelationId: msg.PipelineID,
		Body:          payload,
	})
}

// PublishReport fans the report out through the report exchange; other
// services may bind their own queues to delivery.<channel>.
func (p *RabbitMQPublisher) PublishReport(ctx context.Context, report domain.DeliveryReport) error {
	if !report.ChannelID.IsValid() {
		return fmt.Errorf("invalid delivery report: channel %q", report.ChannelID)
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery report: %w", err)
	}

	return p.publish(ctx, reportExchangeName, ReportQueueName(report.ChannelID), amqp.Publishing{
		MessageId:     report.ResourceID,
		CorrelationId: report.PipelineID,
		Type:          report.EventName,
		Body:          payload,
	})
}

// publish waits for the broker confirm so a nil error means the message is
// stored, not just written to the socket.
func (p *RabbitMQPublisher) publish(ctx context.Context, exchange, key string, publishing amqp.Publishing) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is not initialized")
	}

	ch, err := p.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	publishing.ContentType = "application/json"
	publishing.DeliveryMode = amqp.Persistent
	publishing.Timestamp = time.Now().UTC()
	publishing.AppId = connectionName

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, true, false, publishing)
	if err != nil {
		return fmt.Errorf("failed to publish %q: %w", key, err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to confirm %q: %w", key, err)
	}
	if !acked {
		return fmt.Errorf("broker nacked %q", key)
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
