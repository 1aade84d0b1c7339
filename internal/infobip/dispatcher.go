package infobip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"github.com/kursadbilgin/infobip-dispatch/internal/observability"
	"github.com/kursadbilgin/infobip-dispatch/internal/ratelimit"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Option configures a dispatcher.
type Option func(*dispatcher)

func WithLogger(logger *zap.Logger) Option {
	return func(d *dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRateLimiter waits on the limiter before every vendor call.
func WithRateLimiter(limiter ratelimit.Limiter) Option {
	return func(d *dispatcher) { d.limiter = limiter }
}

// WithConcurrency bounds parallel per-recipient calls. 1 keeps recipient order.
func WithConcurrency(n int) Option {
	return func(d *dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithNotifyURL sets the notify URL used when a communication resolves none.
func WithNotifyURL(notifyURL string) Option {
	return func(d *dispatcher) { d.notifyURL = strings.TrimSpace(notifyURL) }
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(d *dispatcher) { d.metrics = metrics }
}

// WithIDGenerator replaces the vendor message id generator.
func WithIDGenerator(fn func() string) Option {
	return func(d *dispatcher) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// dispatcher holds what every channel dispatcher shares.
type dispatcher struct {
	client      *Client
	channel     domain.ChannelID
	logger      *zap.Logger
	limiter     ratelimit.Limiter
	metrics     *observability.Metrics
	concurrency int
	notifyURL   string
	newID       func() string
	now         func() time.Time
}

func newDispatcher(client *Client, channel domain.ChannelID, opts []Option) (*dispatcher, error) {
	if client == nil || client.http == nil {
		return nil, fmt.Errorf("infobip client is required")
	}

	d := &dispatcher{
		client:      client,
		channel:     channel,
		logger:      zap.NewNop(),
		concurrency: 1,
		newID:       newMessageID,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(zap.String("channel", channel.String()))

	return d, nil
}

// newMessageID returns a dashless UUID, the vendor's message id format.
func newMessageID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (d *dispatcher) normalize(dc domain.DispatchContext) domain.DispatchContext {
	if dc.ChannelID == "" {
		dc.ChannelID = d.channel
	}
	if strings.TrimSpace(dc.ChannelProviderID) == "" {
		dc.ChannelProviderID = domain.ProviderID
	}
	return dc
}

// forEachRecipient runs send for every recipient. Sequential unless a concurrency
// above 1 is configured. It stops at the first hard failure or cancellation and
// returns the results gathered so far.
func (d *dispatcher) forEachRecipient(
	ctx context.Context,
	dc domain.DispatchContext,
	recipients []domain.Address,
	send func(ctx context.Context, to domain.Address) ([]domain.DispatchResult, error),
) ([]domain.DispatchResult, error) {
	observer := dc.ObserverOrNop()
	results := make([]domain.DispatchResult, 0, len(recipients))

	if d.concurrency <= 1 {
		for _, to := range recipients {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			observer.Dispatching(ctx, dc, to)

			sent, err := send(ctx, to)
			results = append(results, sent...)
			if err != nil {
				return results, err
			}
		}
		return results, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	sem := semaphore.NewWeighted(int64(d.concurrency))

	for _, to := range recipients {
		if err := sem.Acquire(runCtx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(to domain.Address) {
			defer wg.Done()
			defer sem.Release(1)

			if runCtx.Err() != nil {
				return
			}
			observer.Dispatching(runCtx, dc, to)

			sent, err := send(runCtx, to)

			mu.Lock()
			defer mu.Unlock()
			results = append(results, sent...)
			if err != nil && firstErr == nil && !errors.Is(err, context.Canceled) {
				firstErr = err
				cancel()
			}
		}(to)
	}
	wg.Wait()

	if firstErr != nil {
		return results, firstErr
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// exchange performs one vendor call and converts its outcome into dispatch results.
// Vendor rejections and transport failures produce an ERROR result and a nil error;
// an unusable 2xx body or cancellation returns an error.
func (d *dispatcher) exchange(
	ctx context.Context,
	dc domain.DispatchContext,
	recipient string,
	endpoint string,
	call func(ctx context.Context) (*resty.Response, error),
) ([]domain.DispatchResult, error) {
	observer := dc.ObserverOrNop()
	logger := observability.WithContextLogger(d.logger, ctx).With(
		zap.String("endpoint", endpoint),
		zap.String("recipient", recipient),
	)

	failed := func(err error, resourceID string) []domain.DispatchResult {
		result := domain.DispatchResult{
			ResourceID: resourceID,
			Recipient:  recipient,
			Status:     domain.StatusError,
			Err:        err,
		}
		observer.Failed(ctx, dc, result)
		return []domain.DispatchResult{result}
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, d.channel); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("rate limiter wait failed", zap.Error(err))
			return failed(&ProviderError{Message: "rate limiter wait failed", Transient: true, Cause: err}, ""), nil
		}
	}

	spanCtx, span := d.client.tracer.Start(ctx, "infobip."+d.channel.String()+".send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("infobip.channel", d.channel.String()),
			attribute.String("infobip.endpoint", endpoint),
			attribute.String("pipeline.id", dc.PipelineID),
		),
	)
	defer span.End()

	start := d.now()
	response, err := call(spanCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		d.metrics.ObserveVendorCall(d.channel.String(), 0, d.now().Sub(start))

		logger.Warn("infobip request failed", zap.Error(err))
		return failed(&ProviderError{
			Message:   "infobip request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}, ""), nil
	}
	if response == nil {
		span.SetStatus(codes.Error, "empty response")
		return failed(&ProviderError{Message: "infobip returned empty response", Transient: true}, ""), nil
	}

	statusCode := response.StatusCode()
	d.metrics.ObserveVendorCall(d.channel.String(), statusCode, d.now().Sub(start))
	span.SetAttributes(attribute.Int("http.response.status_code", statusCode))

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		apiErr := parseAPIError(statusCode, response.Body())
		span.SetStatus(codes.Error, apiErr.Error())
		logger.Warn("infobip rejected request",
			zap.Int("statusCode", statusCode),
			zap.String("messageId", apiErr.MessageID),
			zap.Error(apiErr),
		)
		return failed(apiErr, apiErr.MessageID), nil
	}

	var payload sendResponse
	decodeErr := json.Unmarshal(response.Body(), &payload)
	if decodeErr != nil || len(payload.Messages) == 0 {
		err := fmt.Errorf("%w: status %d with no messages", ErrUnexpectedResponse, statusCode)
		if decodeErr != nil {
			err = fmt.Errorf("%w: %v", ErrUnexpectedResponse, decodeErr)
		}
		span.SetStatus(codes.Error, err.Error())
		logger.Error("infobip response could not be used", zap.Error(err))
		failed(err, "")
		return nil, err
	}

	results := make([]domain.DispatchResult, 0, len(payload.Messages))
	for _, msg := range payload.Messages {
		to := strings.TrimSpace(msg.To)
		if to == "" {
			to = recipient
		}
		result := domain.DispatchResult{
			ResourceID: msg.MessageID,
			BulkID:     payload.BulkID,
			Recipient:  to,
			Status:     sendStatus(msg.Status),
		}
		observer.Dispatched(ctx, dc, result)
		results = append(results, result)
	}

	logger.Debug("infobip accepted request",
		zap.String("bulkId", payload.BulkID),
		zap.Int("messages", len(results)),
	)
	return results, nil
}
