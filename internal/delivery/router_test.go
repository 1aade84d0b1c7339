package delivery

import (
	"context"
	"errors"
	"testing"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"github.com/kursadbilgin/infobip-dispatch/internal/infobip"
)

const reportBody = `{"results":[{"messageId":"m-1","status":{"groupId":3}}]}`

func TestRouterRoute(t *testing.T) {
	t.Parallel()

	router := NewInfobipRouter(nil)

	tests := []struct {
		name        string
		req         domain.WebhookRequest
		wantReports int
	}{
		{name: "sms", req: domain.WebhookRequest{Body: []byte(reportBody), ChannelID: "sms", ChannelProviderID: "infobip"}, wantReports: 1},
		{name: "email mixed case", req: domain.WebhookRequest{Body: []byte(reportBody), ChannelID: " Email ", ChannelProviderID: "INFOBIP.eu"}, wantReports: 1},
		{name: "voice", req: domain.WebhookRequest{Body: []byte(reportBody), ChannelID: "voice", ChannelProviderID: "infobip"}, wantReports: 1},
		{name: "foreign provider", req: domain.WebhookRequest{Body: []byte(reportBody), ChannelID: "sms", ChannelProviderID: "twilio"}},
		{name: "unknown channel", req: domain.WebhookRequest{Body: []byte(reportBody), ChannelID: "push", ChannelProviderID: "infobip"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			routed := router.Route(context.Background(), tt.req)

			if len(routed) != tt.wantReports {
				t.Fatalf("Route() reports = %d, want %d", len(routed), tt.wantReports)
			}
			if tt.wantReports > 0 && routed[0].Status != domain.StatusDelivered {
				t.Fatalf("status = %s, want %s", routed[0].Status, domain.StatusDelivered)
			}
		})
	}
}

func TestNewRouterRejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := NewRouter(infobip.NewSMSReportAdaptor(nil), infobip.NewSMSReportAdaptor(nil))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("NewRouter() error = %v, want ErrConflict", err)
	}
}
