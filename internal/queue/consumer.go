package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// outcome is how a delivery is settled with the broker.
type outcome int

const (
	outcomeAck outcome = iota
	outcomeDeadLetter
)

type RabbitMQConsumer struct {
	client   *RabbitMQ
	prefetch int
	logger   *zap.Logger
}

func NewRabbitMQConsumer(client *RabbitMQ, prefetch int, logger *zap.Logger) *RabbitMQConsumer {
	if prefetch < 1 {
		prefetch = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RabbitMQConsumer{
		client:   client,
		prefetch: prefetch,
		logger:   logger,
	}
}

// Consume subscribes to queue and resubscribes with backoff whenever the
// channel drops, until ctx is done.
func (c *RabbitMQConsumer) Consume(ctx context.Context, queue string, handler MessageHandler) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("consumer is not initialized")
	}
	if queue == "" {
		return fmt.Errorf("queue name is required")
	}
	if handler == nil {
		return fmt.Errorf("message handler is required")
	}

	backoff := reconnectBackoff
	for {
		err := c.consumeOnce(ctx, queue, handler)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			backoff = reconnectBackoff
			continue
		}

		c.logger.Warn("consumer stopped, resubscribing",
			zap.String("queue", queue),
			zap.Duration("retryIn", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (c *RabbitMQConsumer) consumeOnce(ctx context.Context, queue string, handler MessageHandler) error {
	ch, err := c.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	tag := fmt.Sprintf("%s.%s.%s", connectionName, queue, uuid.NewString())
	deliveries, err := ch.Consume(queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume queue %q: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := c.handleDelivery(ctx, queue, d, handler); err != nil {
				return err
			}
		}
	}
}

// handleDelivery settles every delivery exactly once. Anything that cannot
// be sent cleanly is dead-lettered; nothing is requeued, so a vendor call is
// never repeated from here.
func (c *RabbitMQConsumer) handleDelivery(ctx context.Context, queue string, d amqp.Delivery, handler MessageHandler) error {
	out, msg, reason, err := c.evaluate(ctx, queue, d, handler)

	if out == outcomeDeadLetter {
		c.logger.Warn("dead-lettering message",
			zap.String("queue", queue),
			zap.String("messageId", msg.ID),
			zap.String("reason", reason),
			zap.Error(err),
		)
		if rejectErr := d.Reject(false); rejectErr != nil {
			return fmt.Errorf("failed to reject delivery: %w", rejectErr)
		}
		return nil
	}

	if ackErr := d.Ack(false); ackErr != nil {
		return fmt.Errorf("failed to ack delivery: %w", ackErr)
	}
	return nil
}

func (c *RabbitMQConsumer) evaluate(
	ctx context.Context,
	queue string,
	d amqp.Delivery,
	handler MessageHandler,
) (outcome, DispatchMessage, string, error) {
	msg, err := decodeDispatch(d)
	if err != nil {
		return outcomeDeadLetter, msg, "invalid message", err
	}
	if expected, ok := channelForQueue(queue); ok && msg.Channel != expected {
		return outcomeDeadLetter, msg, "channel mismatch", fmt.Errorf("message for %q on queue %q", msg.Channel, queue)
	}
	// A redelivery may follow a crash after the vendor accepted the message.
	if d.Redelivered {
		return outcomeDeadLetter, msg, "redelivered", nil
	}
	if err := handler(ctx, msg); err != nil {
		return outcomeDeadLetter, msg, "handler failed", err
	}
	return outcomeAck, msg, "", nil
}

// decodeDispatch falls back to the AMQP message id when the body has none.
func decodeDispatch(d amqp.Delivery) (DispatchMessage, error) {
	var msg DispatchMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return DispatchMessage{ID: d.MessageId}, fmt.Errorf("invalid json: %w", err)
	}
	if strings.TrimSpace(msg.ID) == "" {
		msg.ID = d.MessageId
	}
	if err := msg.Validate(); err != nil {
		return msg, err
	}
	return msg, nil
}

func (c *RabbitMQConsumer) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
