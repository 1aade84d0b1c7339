package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	dlxExchangeName    = "infobip.dispatch.dlx"
	reportExchangeName = "infobip.dispatch.reports"
	connectionName     = "infobip-dispatch"

	dialTimeout      = 15 * time.Second
	heartbeat        = 10 * time.Second
	reconnectBackoff = time.Second
	maxBackoff       = 30 * time.Second
)

type exchangeDecl struct {
	name string
	kind string
}

type queueDecl struct {
	name     string
	args     amqp.Table
	exchange string
	key      string
}

// topology lists what the broker must hold: per channel a work queue that
// dead-letters into its DLQ, and a delivery queue fed by the report exchange.
func topology() ([]exchangeDecl, []queueDecl) {
	exchanges := []exchangeDecl{
		{name: dlxExchangeName, kind: amqp.ExchangeDirect},
		{name: reportExchangeName, kind: amqp.ExchangeTopic},
	}

	channels := domain.Channels()
	queues := make([]queueDecl, 0, 3*len(channels))
	for _, channel := range channels {
		work := QueueName(channel)
		queues = append(queues,
			queueDecl{name: DLQName(channel), exchange: dlxExchangeName, key: work},
			queueDecl{name: work, args: amqp.Table{
				"x-dead-letter-exchange":    dlxExchangeName,
				"x-dead-letter-routing-key": work,
			}},
			queueDecl{name: ReportQueueName(channel), exchange: reportExchangeName, key: ReportQueueName(channel)},
		)
	}
	return exchanges, queues
}

func declareTopology(ch *amqp.Channel) error {
	exchanges, queues := topology()
	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex.name, ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange %q: %w", ex.name, err)
		}
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
			return fmt.Errorf("failed to declare queue %q: %w", q.name, err)
		}
		if q.exchange == "" {
			continue
		}
		if err := ch.QueueBind(q.name, q.key, q.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %q to %q: %w", q.name, q.exchange, err)
		}
	}
	return nil
}

// RabbitMQ owns one broker connection shared by the publisher and consumer.
// The topology is declared once per established connection.
type RabbitMQ struct {
	url    string
	logger *zap.Logger

	mu          sync.RWMutex
	reconnectMu sync.Mutex
	conn        *amqp.Connection
	closed      bool
}

func NewRabbitMQ(ctx context.Context, url string, logger *zap.Logger) (*RabbitMQ, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &RabbitMQ{url: url, logger: logger.With(zap.String("component", "rabbitmq"))}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if _, err := r.connection(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Close is idempotent; a closed client refuses to reconnect.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.closed = true
	r.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}
	return conn.Close()
}

// Ping reports whether a channel can be opened on the live connection.
func (r *RabbitMQ) Ping(ctx context.Context) error {
	r.mu.RLock()
	conn := r.conn
	r.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	return ch.Close()
}

func (r *RabbitMQ) channel(ctx context.Context) (*amqp.Channel, error) {
	conn, err := r.connection(ctx)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err == nil {
		return ch, nil
	}

	// The connection died between the check and the open; dial once more.
	r.logger.Warn("rabbitmq channel open failed, reconnecting", zap.Error(err))
	if conn, err = r.reconnect(ctx, conn); err != nil {
		return nil, err
	}
	ch, err = conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create rabbitmq channel after reconnect: %w", err)
	}
	return ch, nil
}

func (r *RabbitMQ) connection(ctx context.Context) (*amqp.Connection, error) {
	r.mu.RLock()
	conn, closed := r.conn, r.closed
	r.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("rabbitmq client is closed")
	}
	if conn != nil && !conn.IsClosed() {
		return conn, nil
	}
	return r.reconnect(ctx, conn)
}

// reconnect replaces stale with a fresh connection unless another caller
// already did.
func (r *RabbitMQ) reconnect(ctx context.Context, stale *amqp.Connection) (*amqp.Connection, error) {
	r.reconnectMu.Lock()
	defer r.reconnectMu.Unlock()

	r.mu.RLock()
	current, closed := r.conn, r.closed
	r.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("rabbitmq client is closed")
	}
	if current != nil && current != stale && !current.IsClosed() {
		return current, nil
	}

	wait := reconnectBackoff
	for {
		conn, err := r.dial()
		if err == nil {
			r.mu.Lock()
			r.conn = conn
			r.mu.Unlock()

			if stale != nil && !stale.IsClosed() {
				_ = stale.Close()
			}
			r.logger.Info("rabbitmq connected")
			return conn, nil
		}

		r.logger.Warn("rabbitmq dial failed", zap.Duration("retryIn", wait), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq reconnect canceled: %w", ctx.Err())
		case <-time.After(wait):
		}

		wait = min(wait*2, maxBackoff)
	}
}

func (r *RabbitMQ) dial() (*amqp.Connection, error) {
	conn, err := amqp.DialConfig(r.url, amqp.Config{
		Heartbeat:  heartbeat,
		Locale:     "en_US",
		Dial:       amqp.DefaultDial(dialTimeout),
		Properties: amqp.Table{"connection_name": connectionName},
	})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open topology channel: %w", err)
	}
	defer ch.Close() //nolint:errcheck

	if err := declareTopology(ch); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}
