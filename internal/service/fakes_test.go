package service

import (
	"context"
	"sync"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"github.com/kursadbilgin/infobip-dispatch/internal/queue"
	"github.com/kursadbilgin/infobip-dispatch/internal/repository"
)

type fakeDispatchRepo struct {
	mu                sync.Mutex
	created           []*domain.DispatchRecord
	createBatchFn     func(ctx context.Context, records []*domain.DispatchRecord) error
	getByResourceIDFn func(ctx context.Context, resourceID string) (*domain.DispatchRecord, error)
	listFn            func(ctx context.Context, params repository.ListParams) ([]domain.DispatchRecord, int64, error)
	updateStatusFn    func(ctx context.Context, channel domain.ChannelID, resourceID string, status domain.DispatchStatus) error
	getBulkSummaryFn  func(ctx context.Context, bulkID string) ([]repository.BulkSummary, error)
}

func (f *fakeDispatchRepo) CreateBatch(ctx context.Context, records []*domain.DispatchRecord) error {
	if f.createBatchFn != nil {
		return f.createBatchFn(ctx, records)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, records...)
	return nil
}

func (f *fakeDispatchRepo) GetByResourceID(ctx context.Context, resourceID string) (*domain.DispatchRecord, error) {
	if f.getByResourceIDFn != nil {
		return f.getByResourceIDFn(ctx, resourceID)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDispatchRepo) List(ctx context.Context, params repository.ListParams) ([]domain.DispatchRecord, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (f *fakeDispatchRepo) UpdateStatusByResourceID(ctx context.Context, channel domain.ChannelID, resourceID string, status domain.DispatchStatus) error {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, channel, resourceID, status)
	}
	return nil
}

func (f *fakeDispatchRepo) GetBulkSummary(ctx context.Context, bulkID string) ([]repository.BulkSummary, error) {
	if f.getBulkSummaryFn != nil {
		return f.getBulkSummaryFn(ctx, bulkID)
	}
	return nil, nil
}

type fakeReportRepo struct {
	mu                 sync.Mutex
	created            []domain.StoredReport
	createFn           func(ctx context.Context, report *domain.StoredReport) error
	listByResourceIDFn func(ctx context.Context, resourceID string) ([]domain.StoredReport, error)
}

func (f *fakeReportRepo) Create(ctx context.Context, report *domain.StoredReport) error {
	if f.createFn != nil {
		return f.createFn(ctx, report)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *report)
	return nil
}

func (f *fakeReportRepo) ListByResourceID(ctx context.Context, resourceID string) ([]domain.StoredReport, error) {
	if f.listByResourceIDFn != nil {
		return f.listByResourceIDFn(ctx, resourceID)
	}
	return nil, nil
}

type fakePublisher struct {
	publishDispatchFn func(ctx context.Context, msg queue.DispatchMessage) error
	publishReportFn   func(ctx context.Context, report domain.DeliveryReport) error
}

func (f *fakePublisher) PublishDispatch(ctx context.Context, msg queue.DispatchMessage) error {
	if f.publishDispatchFn != nil {
		return f.publishDispatchFn(ctx, msg)
	}
	return nil
}

func (f *fakePublisher) PublishReport(ctx context.Context, report domain.DeliveryReport) error {
	if f.publishReportFn != nil {
		return f.publishReportFn(ctx, report)
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeSMSSender struct {
	dispatchFn func(ctx context.Context, sms domain.SMS, dc domain.DispatchContext) ([]domain.DispatchResult, error)
}

func (f *fakeSMSSender) Dispatch(ctx context.Context, sms domain.SMS, dc domain.DispatchContext) ([]domain.DispatchResult, error) {
	return f.dispatchFn(ctx, sms, dc)
}

type fakeEmailSender struct {
	dispatchFn func(ctx context.Context, email domain.Email, dc domain.DispatchContext) ([]domain.DispatchResult, error)
}

func (f *fakeEmailSender) Dispatch(ctx context.Context, email domain.Email, dc domain.DispatchContext) ([]domain.DispatchResult, error) {
	return f.dispatchFn(ctx, email, dc)
}

type fakeVoiceSender struct {
	dispatchFn func(ctx context.Context, voice domain.Voice, dc domain.DispatchContext) ([]domain.DispatchResult, error)
}

func (f *fakeVoiceSender) Dispatch(ctx context.Context, voice domain.Voice, dc domain.DispatchContext) ([]domain.DispatchResult, error) {
	return f.dispatchFn(ctx, voice, dc)
}

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queue string, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

type fakeRouter struct {
	reports []domain.DeliveryReport
}

func (f *fakeRouter) Route(context.Context, domain.WebhookRequest) []domain.DeliveryReport {
	return f.reports
}

type fakeDeduplicator struct {
	mu        sync.Mutex
	seen      map[string]bool
	err       error
	forgotten []string
}

func (f *fakeDeduplicator) FirstSeen(_ context.Context, report domain.DeliveryReport) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	key := report.ResourceID + ":" + report.Status.String()
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeDeduplicator) Forget(_ context.Context, report domain.DeliveryReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, report.ResourceID+":"+report.Status.String())
	f.forgotten = append(f.forgotten, report.ResourceID)
	return nil
}
