package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"github.com/kursadbilgin/infobip-dispatch/internal/observability"
	"go.uber.org/zap"
)

func deliveredReport(resourceID string) domain.DeliveryReport {
	return domain.DeliveryReport{
		EventName:         domain.EventStatusChanged,
		ChannelID:         domain.ChannelSMS,
		ChannelProviderID: domain.ProviderID,
		ResourceID:        resourceID,
		Status:            domain.StatusDelivered,
	}
}

func TestDeliveryServiceProcess(t *testing.T) {
	t.Parallel()

	var updated []string
	records := &fakeDispatchRepo{
		updateStatusFn: func(ctx context.Context, channel domain.ChannelID, resourceID string, status domain.DispatchStatus) error {
			if channel != domain.ChannelSMS || status != domain.StatusDelivered {
				t.Fatalf("update = %s/%s, want sms/DELIVERED", channel, status)
			}
			updated = append(updated, resourceID)
			if resourceID == "unknown" {
				return domain.ErrNotFound
			}
			return nil
		},
	}
	reports := &fakeReportRepo{}
	var published []domain.DeliveryReport
	publisher := &fakePublisher{
		publishReportFn: func(ctx context.Context, report domain.DeliveryReport) error {
			published = append(published, report)
			return nil
		},
	}
	router := &fakeRouter{reports: []domain.DeliveryReport{deliveredReport("m1"), deliveredReport("unknown")}}
	metrics := observability.NewMetrics()

	svc, err := NewDeliveryService(router, &fakeDeduplicator{}, records, reports, publisher, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDeliveryService() error = %v", err)
	}
	svc.newID = sequence("rep")
	svc.SetMetrics(metrics)

	result, err := svc.Process(context.Background(), domain.WebhookRequest{Body: []byte("{}"), ChannelID: "sms"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Accepted != 2 || result.Duplicates != 0 {
		t.Fatalf("result = %+v, want 2 accepted", result)
	}
	if len(reports.created) != 2 || reports.created[0].ID != "rep-1" {
		t.Fatalf("stored reports = %+v", reports.created)
	}
	if reports.created[0].ReceivedAt.IsZero() {
		t.Fatal("received time should be set")
	}
	if len(updated) != 2 || len(published) != 2 {
		t.Fatalf("updated=%d published=%d, want 2/2", len(updated), len(published))
	}

	// Redelivery of the same webhook is dropped.
	result, err = svc.Process(context.Background(), domain.WebhookRequest{Body: []byte("{}"), ChannelID: "sms"})
	if err != nil {
		t.Fatalf("Process() repeat error = %v", err)
	}
	if result.Accepted != 0 || result.Duplicates != 2 {
		t.Fatalf("repeat result = %+v, want 2 duplicates", result)
	}
	if len(reports.created) != 2 {
		t.Fatalf("stored reports after repeat = %d, want 2", len(reports.created))
	}

	exposition := scrape(t, metrics)
	for _, want := range []string{
		`infobip_dispatch_delivery_reports_total{channel="sms",status="delivered"} 2`,
		`infobip_dispatch_delivery_reports_duplicate_total{channel="sms"} 2`,
	} {
		if !strings.Contains(exposition, want) {
			t.Fatalf("metrics missing %s", want)
		}
	}
}

func TestDeliveryServiceUnrecognizedWebhook(t *testing.T) {
	t.Parallel()

	reports := &fakeReportRepo{}
	svc, err := NewDeliveryService(&fakeRouter{}, nil, nil, reports, nil, nil)
	if err != nil {
		t.Fatalf("NewDeliveryService() error = %v", err)
	}

	result, err := svc.Process(context.Background(), domain.WebhookRequest{ChannelID: "push"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Accepted != 0 || len(reports.created) != 0 {
		t.Fatalf("result = %+v, stored %d, want nothing", result, len(reports.created))
	}
}

func TestDeliveryServiceStoreFailureReleasesMarker(t *testing.T) {
	t.Parallel()

	dedupe := &fakeDeduplicator{}
	reports := &fakeReportRepo{
		createFn: func(context.Context, *domain.StoredReport) error { return errors.New("db down") },
	}
	svc, err := NewDeliveryService(&fakeRouter{reports: []domain.DeliveryReport{deliveredReport("m1")}}, dedupe, nil, reports, nil, nil)
	if err != nil {
		t.Fatalf("NewDeliveryService() error = %v", err)
	}

	if _, err := svc.Process(context.Background(), domain.WebhookRequest{}); err == nil {
		t.Fatal("expected store error")
	}
	if len(dedupe.forgotten) != 1 || dedupe.forgotten[0] != "m1" {
		t.Fatalf("forgotten = %v, want [m1]", dedupe.forgotten)
	}

	first, _ := dedupe.FirstSeen(context.Background(), deliveredReport("m1"))
	if !first {
		t.Fatal("report should be accepted again after a failed store")
	}
}

func TestDeliveryServiceDedupeUnavailableStillStores(t *testing.T) {
	t.Parallel()

	reports := &fakeReportRepo{}
	publisher := &fakePublisher{
		publishReportFn: func(context.Context, domain.DeliveryReport) error { return errors.New("broker down") },
	}
	svc, err := NewDeliveryService(
		&fakeRouter{reports: []domain.DeliveryReport{deliveredReport("m1")}},
		&fakeDeduplicator{err: errors.New("redis down")},
		&fakeDispatchRepo{updateStatusFn: func(context.Context, domain.ChannelID, string, domain.DispatchStatus) error {
			return errors.New("db slow")
		}},
		reports,
		publisher,
		nil,
	)
	if err != nil {
		t.Fatalf("NewDeliveryService() error = %v", err)
	}

	result, err := svc.Process(context.Background(), domain.WebhookRequest{})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Accepted != 1 || len(reports.created) != 1 {
		t.Fatalf("result = %+v stored = %d, want 1/1", result, len(reports.created))
	}
}

func TestNewDeliveryServiceRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewDeliveryService(nil, nil, nil, &fakeReportRepo{}, nil, nil); err == nil {
		t.Fatal("expected error for nil router")
	}
	if _, err := NewDeliveryService(&fakeRouter{}, nil, nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil report repository")
	}
}
