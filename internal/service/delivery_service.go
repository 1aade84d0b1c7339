package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"github.com/kursadbilgin/infobip-dispatch/internal/observability"
	"github.com/kursadbilgin/infobip-dispatch/internal/queue"
	"github.com/kursadbilgin/infobip-dispatch/internal/repository"
	"go.uber.org/zap"
)

// ReportRouter adapts an inbound webhook into delivery reports.
type ReportRouter interface {
	Route(ctx context.Context, req domain.WebhookRequest) []domain.DeliveryReport
}

// ReportDeduplicator filters delivery reports that were already accepted.
type ReportDeduplicator interface {
	FirstSeen(ctx context.Context, report domain.DeliveryReport) (bool, error)
	Forget(ctx context.Context, report domain.DeliveryReport) error
}

type DeliveryService struct {
	router    ReportRouter
	dedupe    ReportDeduplicator
	records   repository.DispatchRepository
	reports   repository.ReportRepository
	publisher queue.Publisher
	logger    *zap.Logger
	metrics   *observability.Metrics
	newID     func() string
	now       func() time.Time
}

// ProcessResult counts the reports taken from one webhook.
type ProcessResult struct {
	Accepted   int `json:"reports"`
	Duplicates int `json:"duplicates"`
}

func NewDeliveryService(
	router ReportRouter,
	dedupe ReportDeduplicator,
	records repository.DispatchRepository,
	reports repository.ReportRepository,
	publisher queue.Publisher,
	logger *zap.Logger,
) (*DeliveryService, error) {
	if router == nil {
		return nil, fmt.Errorf("report router is required")
	}
	if reports == nil {
		return nil, fmt.Errorf("report repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeliveryService{
		router:    router,
		dedupe:    dedupe,
		records:   records,
		reports:   reports,
		publisher: publisher,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}, nil
}

func (s *DeliveryService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Process adapts req and stores every new report. Unrecognized payloads yield
// an empty result without error so the vendor does not redeliver them.
func (s *DeliveryService) Process(ctx context.Context, req domain.WebhookRequest) (ProcessResult, error) {
	var result ProcessResult

	ctx = observability.WithChannel(observability.WithPipelineID(ctx, req.PipelineID), req.ChannelID)
	logger := observability.WithContextLogger(s.logger, ctx)

	reports := s.router.Route(ctx, req)
	if len(reports) == 0 {
		logger.Debug("webhook not recognized", zap.String("channelProviderId", req.ChannelProviderID))
		return result, nil
	}

	for _, report := range reports {
		accepted, err := s.accept(ctx, logger, report)
		if err != nil {
			return result, err
		}
		if accepted {
			result.Accepted++
		} else {
			result.Duplicates++
		}
	}

	return result, nil
}

func (s *DeliveryService) accept(ctx context.Context, logger *zap.Logger, report domain.DeliveryReport) (bool, error) {
	channel := report.ChannelID.String()
	logger = logger.With(zap.String("resourceId", report.ResourceID), zap.String("status", report.Status.String()))

	if s.dedupe != nil {
		first, err := s.dedupe.FirstSeen(ctx, report)
		switch {
		case err != nil:
			// Storing a duplicate is preferable to dropping a report.
			logger.Warn("report de-duplication unavailable", zap.Error(err))
		case !first:
			s.metrics.IncDuplicateReport(channel)
			logger.Debug("duplicate delivery report ignored")
			return false, nil
		}
	}

	stored := &domain.StoredReport{
		ID:             s.newID(),
		ReceivedAt:     s.now().UTC(),
		DeliveryReport: report,
	}
	if err := s.reports.Create(ctx, stored); err != nil {
		if s.dedupe != nil {
			if forgetErr := s.dedupe.Forget(ctx, report); forgetErr != nil {
				logger.Warn("failed to release report marker", zap.Error(forgetErr))
			}
		}
		return false, fmt.Errorf("failed to store delivery report: %w", err)
	}

	if s.records != nil && report.ResourceID != "" {
		err := s.records.UpdateStatusByResourceID(ctx, report.ChannelID, report.ResourceID, report.Status)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			logger.Debug("no dispatch record for delivery report")
		case err != nil:
			logger.Warn("failed to update dispatch record status", zap.Error(err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishReport(ctx, report); err != nil {
			logger.Error("failed to publish delivery report", zap.Error(err))
		}
	}

	s.metrics.IncDeliveryReport(channel, report.Status.String())
	logger.Info("delivery report accepted")
	return true, nil
}
