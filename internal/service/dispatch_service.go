package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"github.com/kursadbilgin/infobip-dispatch/internal/infobip"
	"github.com/kursadbilgin/infobip-dispatch/internal/observability"
	"github.com/kursadbilgin/infobip-dispatch/internal/queue"
	"github.com/kursadbilgin/infobip-dispatch/internal/repository"
	"go.uber.org/zap"
)

type SMSSender interface {
	Dispatch(ctx context.Context, sms domain.SMS, dc domain.DispatchContext) ([]domain.DispatchResult, error)
}

type EmailSender interface {
	Dispatch(ctx context.Context, email domain.Email, dc domain.DispatchContext) ([]domain.DispatchResult, error)
}

type VoiceSender interface {
	Dispatch(ctx context.Context, voice domain.Voice, dc domain.DispatchContext) ([]domain.DispatchResult, error)
}

// Dispatchers groups the per-channel senders. A nil sender disables its channel.
type Dispatchers struct {
	SMS   SMSSender
	Email EmailSender
	Voice VoiceSender
}

type DispatchService struct {
	dispatchers Dispatchers
	records     repository.DispatchRepository
	reports     repository.ReportRepository
	publisher   queue.Publisher
	templates   domain.TemplateEngine
	logger      *zap.Logger
	metrics     *observability.Metrics
	newID       func() string
	now         func() time.Time
}

// DispatchDetails is a dispatch record with the delivery reports received for it.
type DispatchDetails struct {
	Record  *domain.DispatchRecord `json:"record"`
	Reports []domain.StoredReport  `json:"reports"`
}

type BulkSummary struct {
	BulkID     string        `json:"bulkId"`
	TotalCount int           `json:"totalCount"`
	Counts     []StatusCount `json:"counts"`
}

type StatusCount struct {
	Status domain.DispatchStatus `json:"status"`
	Count  int                   `json:"count"`
}

func NewDispatchService(
	dispatchers Dispatchers,
	records repository.DispatchRepository,
	reports repository.ReportRepository,
	publisher queue.Publisher,
	templates domain.TemplateEngine,
	logger *zap.Logger,
) (*DispatchService, error) {
	if records == nil {
		return nil, fmt.Errorf("dispatch repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchService{
		dispatchers: dispatchers,
		records:     records,
		reports:     reports,
		publisher:   publisher,
		templates:   templates,
		logger:      logger,
		newID:       uuid.NewString,
		now:         time.Now,
	}, nil
}

func (s *DispatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *DispatchService) SendSMS(ctx context.Context, sms domain.SMS, dc domain.DispatchContext) ([]domain.DispatchResult, error) {
	if s.dispatchers.SMS == nil {
		return nil, channelDisabled(domain.ChannelSMS)
	}
	dc = s.prepare(dc, domain.ChannelSMS)
	results, err := s.dispatchers.SMS.Dispatch(ctx, sms, dc)
	return s.complete(ctx, dc, results, err)
}

func (s *DispatchService) SendEmail(ctx context.Context, email domain.Email, dc domain.DispatchContext) ([]domain.DispatchResult, error) {
	if s.dispatchers.Email == nil {
		return nil, channelDisabled(domain.ChannelEmail)
	}
	dc = s.prepare(dc, domain.ChannelEmail)
	results, err := s.dispatchers.Email.Dispatch(ctx, email, dc)
	return s.complete(ctx, dc, results, err)
}

func (s *DispatchService) SendVoice(ctx context.Context, voice domain.Voice, dc domain.DispatchContext) ([]domain.DispatchResult, error) {
	if s.dispatchers.Voice == nil {
		return nil, channelDisabled(domain.ChannelVoice)
	}
	dc = s.prepare(dc, domain.ChannelVoice)
	results, err := s.dispatchers.Voice.Dispatch(ctx, voice, dc)
	return s.complete(ctx, dc, results, err)
}

// Handle sends the communication carried by a queue message.
func (s *DispatchService) Handle(ctx context.Context, msg queue.DispatchMessage) ([]domain.DispatchResult, error) {
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	dc := msg.DispatchContext()
	switch msg.Channel {
	case domain.ChannelSMS:
		return s.SendSMS(ctx, *msg.SMS, dc)
	case domain.ChannelEmail:
		return s.SendEmail(ctx, *msg.Email, dc)
	default:
		return s.SendVoice(ctx, *msg.Voice, dc)
	}
}

// Enqueue hands a communication to the workers and returns the message id.
func (s *DispatchService) Enqueue(ctx context.Context, msg queue.DispatchMessage) (string, error) {
	if s.publisher == nil {
		return "", fmt.Errorf("dispatch queue is not configured")
	}

	msg.ID = strings.TrimSpace(msg.ID)
	if msg.ID == "" {
		msg.ID = s.newID()
	}
	if err := msg.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	// Rejected here so the caller gets a 400 instead of a dead-lettered message.
	if err := msg.ValidateCommunication(); err != nil {
		return "", err
	}

	if err := s.publisher.PublishDispatch(ctx, msg); err != nil {
		s.logger.Error("failed to publish dispatch message",
			zap.String("messageId", msg.ID),
			zap.String("channel", msg.Channel.String()),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to enqueue dispatch: %w", err)
	}

	return msg.ID, nil
}

func (s *DispatchService) Get(ctx context.Context, resourceID string) (*DispatchDetails, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return nil, fmt.Errorf("%w: resource id is required", domain.ErrValidation)
	}

	record, err := s.records.GetByResourceID(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	details := &DispatchDetails{Record: record, Reports: []domain.StoredReport{}}
	if s.reports == nil {
		return details, nil
	}

	reports, err := s.reports.ListByResourceID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	details.Reports = reports
	return details, nil
}

func (s *DispatchService) GetBulkSummary(ctx context.Context, bulkID string) (*BulkSummary, error) {
	bulkID = strings.TrimSpace(bulkID)
	if bulkID == "" {
		return nil, fmt.Errorf("%w: bulk id is required", domain.ErrValidation)
	}

	statuses, err := s.records.GetBulkSummary(ctx, bulkID)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, domain.ErrNotFound
	}

	summary := &BulkSummary{BulkID: bulkID, Counts: make([]StatusCount, 0, len(statuses))}
	for _, st := range statuses {
		summary.TotalCount += st.Count
		summary.Counts = append(summary.Counts, StatusCount{Status: st.Status, Count: st.Count})
	}
	return summary, nil
}

func (s *DispatchService) List(ctx context.Context, params repository.ListParams) ([]domain.DispatchRecord, int64, error) {
	return s.records.List(ctx, params)
}

func (s *DispatchService) prepare(dc domain.DispatchContext, channel domain.ChannelID) domain.DispatchContext {
	dc.ChannelID = channel
	if strings.TrimSpace(dc.ChannelProviderID) == "" {
		dc.ChannelProviderID = domain.ProviderID
	}
	if dc.TemplateEngine == nil {
		dc.TemplateEngine = s.templates
	}
	dc.Observer = &dispatchObserver{
		next:    dc.Observer,
		logger:  s.logger,
		metrics: s.metrics,
	}
	return dc
}

// complete persists whatever the dispatcher produced, including partial results.
func (s *DispatchService) complete(
	ctx context.Context,
	dc domain.DispatchContext,
	results []domain.DispatchResult,
	dispatchErr error,
) ([]domain.DispatchResult, error) {
	if len(results) > 0 {
		s.persist(ctx, dc, results)
	}
	if dispatchErr != nil {
		if observer, ok := dc.Observer.(*dispatchObserver); !ok || !observer.counted(dispatchErr) {
			s.metrics.IncDispatchFailure(dc.ChannelID.String(), failureReason(dispatchErr))
		}
		return results, dispatchErr
	}
	return results, nil
}

// persist stores one record per result. The vendor has already accepted the
// messages at this point, so a storage failure is logged rather than returned.
func (s *DispatchService) persist(ctx context.Context, dc domain.DispatchContext, results []domain.DispatchResult) {
	now := s.now().UTC()
	records := make([]*domain.DispatchRecord, 0, len(results))
	for _, result := range results {
		record := domain.NewDispatchRecord(s.newID(), dc, result)
		record.CreatedAt = now
		record.UpdatedAt = now
		records = append(records, record)
	}

	// A canceled request must not drop the records of messages already sent.
	if err := s.records.CreateBatch(context.WithoutCancel(ctx), records); err != nil {
		observability.WithContextLogger(s.logger, ctx).Error("failed to persist dispatch records",
			zap.String("channel", dc.ChannelID.String()),
			zap.Int("records", len(records)),
			zap.Error(err),
		)
		s.metrics.IncDispatchFailure(dc.ChannelID.String(), "persist")
	}
}

func channelDisabled(channel domain.ChannelID) error {
	return fmt.Errorf("%w: channel %q is not enabled", domain.ErrValidation, channel)
}

func failureReason(err error) string {
	var apiErr *infobip.APIError
	var providerErr *infobip.ProviderError
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, infobip.ErrUnexpectedResponse):
		return "unexpected_response"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.As(err, &providerErr):
		return "transport"
	default:
		return "other"
	}
}

// dispatchObserver logs and counts per-message outcomes before delegating.
type dispatchObserver struct {
	next    domain.DispatchObserver
	logger  *zap.Logger
	metrics *observability.Metrics

	mu     sync.Mutex
	failed []error
}

// counted reports whether err was already recorded through Failed.
func (o *dispatchObserver) counted(err error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, seen := range o.failed {
		if errors.Is(err, seen) {
			return true
		}
	}
	return false
}

func (o *dispatchObserver) Dispatching(ctx context.Context, dc domain.DispatchContext, recipient domain.Address) {
	o.log(ctx, dc).Debug("dispatching", zap.String("recipient", recipient.Value))
	if o.next != nil {
		o.next.Dispatching(ctx, dc, recipient)
	}
}

func (o *dispatchObserver) Dispatched(ctx context.Context, dc domain.DispatchContext, result domain.DispatchResult) {
	o.metrics.IncDispatchResult(dc.ChannelID.String(), result.Status.String())
	o.log(ctx, dc).Info("dispatched",
		zap.String("resourceId", result.ResourceID),
		zap.String("status", result.Status.String()),
	)
	if o.next != nil {
		o.next.Dispatched(ctx, dc, result)
	}
}

func (o *dispatchObserver) Failed(ctx context.Context, dc domain.DispatchContext, result domain.DispatchResult) {
	o.metrics.IncDispatchResult(dc.ChannelID.String(), result.Status.String())
	o.metrics.IncDispatchFailure(dc.ChannelID.String(), failureReason(result.Err))
	if result.Err != nil {
		o.mu.Lock()
		o.failed = append(o.failed, result.Err)
		o.mu.Unlock()
	}
	o.log(ctx, dc).Warn("dispatch failed",
		zap.String("recipient", result.Recipient),
		zap.String("resourceId", result.ResourceID),
		zap.Bool("transient", infobip.IsTransient(result.Err)),
		zap.Error(result.Err),
	)
	if o.next != nil {
		o.next.Failed(ctx, dc, result)
	}
}

func (o *dispatchObserver) log(ctx context.Context, dc domain.DispatchContext) *zap.Logger {
	ctx = observability.WithChannel(observability.WithPipelineID(ctx, dc.PipelineID), dc.ChannelID.String())
	return observability.WithContextLogger(o.logger, ctx)
}
