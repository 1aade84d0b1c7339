package service

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"github.com/kursadbilgin/infobip-dispatch/internal/observability"
	"github.com/kursadbilgin/infobip-dispatch/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// MessageDispatcher sends the communication carried by a queue message.
type MessageDispatcher interface {
	Handle(ctx context.Context, msg queue.DispatchMessage) ([]domain.DispatchResult, error)
}

type WorkerService struct {
	consumer    queue.Consumer
	dispatcher  MessageDispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
}

func NewWorkerService(
	consumer queue.Consumer,
	dispatcher MessageDispatcher,
	concurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("message dispatcher is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		consumer:    consumer,
		dispatcher:  dispatcher,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

func (s *WorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start consumes the channel work queues until context cancellation.
// Workers are spread round-robin over the queues, at least one per queue.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	queueNames := queue.WorkQueueNames()
	if len(queueNames) == 0 {
		return fmt.Errorf("no work queues configured")
	}

	workers := max(s.concurrency, len(queueNames))

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		queueName := queueNames[i%len(queueNames)]
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)

			err := s.consumer.Consume(groupCtx, queueName, s.processMessage)
			if err != nil {
				s.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.String("queue", queueName),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("worker stopped",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)
			return nil
		})
	}

	return g.Wait()
}

// processMessage returns an error only when nothing was sent, so the message
// is dead-lettered. Per-recipient failures are recorded and acknowledged.
func (s *WorkerService) processMessage(ctx context.Context, msg queue.DispatchMessage) error {
	channel := msg.Channel.String()
	s.metrics.IncWorkerInFlight(channel)
	defer s.metrics.DecWorkerInFlight(channel)

	ctx = observability.WithChannel(observability.WithPipelineID(ctx, msg.PipelineID), channel)
	logger := observability.WithContextLogger(s.logger, ctx).With(zap.String("messageId", msg.ID))

	results, err := s.dispatcher.Handle(ctx, msg)
	if err != nil && len(results) == 0 {
		return fmt.Errorf("dispatch %s message %s: %w", channel, msg.ID, err)
	}
	if err != nil {
		logger.Warn("dispatch stopped early", zap.Int("results", len(results)), zap.Error(err))
	}

	failed := 0
	for _, r := range results {
		if r.Status.IsFailure() {
			failed++
		}
	}
	logger.Info("dispatch message processed",
		zap.Int("results", len(results)),
		zap.Int("failed", failed),
	)
	return nil
}
