package infobip

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"github.com/kursadbilgin/infobip-dispatch/internal/observability"
	"go.uber.org/zap"
)

// ReportAdaptor turns vendor delivery webhooks of one channel into delivery reports.
type ReportAdaptor struct {
	channel domain.ChannelID
	logger  *zap.Logger
	extend  func(props *domain.ReportProperties, report statusReport)
}

func NewSMSReportAdaptor(logger *zap.Logger) *ReportAdaptor {
	return newReportAdaptor(domain.ChannelSMS, logger, nil)
}

func NewEmailReportAdaptor(logger *zap.Logger) *ReportAdaptor {
	return newReportAdaptor(domain.ChannelEmail, logger, func(props *domain.ReportProperties, report statusReport) {
		props.BrowserLink = report.BrowserLink
	})
}

func NewVoiceReportAdaptor(logger *zap.Logger) *ReportAdaptor {
	return newReportAdaptor(domain.ChannelVoice, logger, func(props *domain.ReportProperties, report statusReport) {
		if report.VoiceCall == nil {
			return
		}
		call := report.VoiceCall
		props.VoiceCall = &domain.VoiceCallDetail{
			Feature:        call.Feature,
			StartTime:      call.StartTime.ptr(),
			AnswerTime:     call.AnswerTime.ptr(),
			EndTime:        call.EndTime.ptr(),
			Duration:       call.Duration,
			ChargeDuration: call.ChargedDuration,
			FileDuration:   call.FileDuration,
			DTMFCodes:      call.DTMFCodes,
			IVR:            call.IVR,
		}
	})
}

func newReportAdaptor(
	channel domain.ChannelID,
	logger *zap.Logger,
	extend func(props *domain.ReportProperties, report statusReport),
) *ReportAdaptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportAdaptor{
		channel: channel,
		logger:  logger.With(zap.String("channel", channel.String())),
		extend:  extend,
	}
}

func (a *ReportAdaptor) Channel() domain.ChannelID { return a.channel }

// Matches reports whether the request targets this adaptor's channel and provider.
func (a *ReportAdaptor) Matches(req domain.WebhookRequest) bool {
	if !req.HasBody() {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(req.ChannelID), a.channel.String()) {
		return false
	}
	providerID := strings.ToLower(strings.TrimSpace(req.ChannelProviderID))
	return strings.HasPrefix(providerID, domain.ProviderID)
}

// Adapt returns nil when the request is not for this adaptor or the body is unusable.
func (a *ReportAdaptor) Adapt(ctx context.Context, req domain.WebhookRequest) []domain.DeliveryReport {
	if a == nil || !a.Matches(req) {
		return nil
	}

	var payload statusReports
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		observability.WithContextLogger(a.logger, ctx).Debug("ignoring malformed status report", zap.Error(err))
		return nil
	}
	if payload.Results == nil {
		return nil
	}

	reports := make([]domain.DeliveryReport, 0, len(payload.Results))
	for _, result := range payload.Results {
		resourceID := strings.TrimSpace(result.MessageID)
		if resourceID == "" {
			resourceID = strings.TrimSpace(req.ResourceID)
		}

		status := domain.StatusUnknown
		if result.Status != nil {
			status = ToDispatchStatus(result.Status.GroupID)
		}

		reports = append(reports, domain.DeliveryReport{
			EventName:         domain.EventStatusChanged,
			ChannelID:         a.channel,
			ChannelProviderID: strings.TrimSpace(req.ChannelProviderID),
			PipelineIntent:    req.PipelineIntent,
			PipelineID:        req.PipelineID,
			ResourceID:        resourceID,
			Status:            status,
			Properties:        a.properties(result),
		})
	}

	return reports
}

func (a *ReportAdaptor) properties(report statusReport) *domain.ReportProperties {
	count := report.SMSCount
	if count == 0 {
		count = report.MessageCount
	}

	props := &domain.ReportProperties{
		BulkID:        report.BulkID,
		MessageID:     report.MessageID,
		To:            report.To,
		From:          report.From,
		SentAt:        report.SentAt.ptr(),
		DoneAt:        report.DoneAt.ptr(),
		MessageCount:  count,
		MCCMNC:        report.MCCMNC,
		CallbackData:  report.CallbackData,
		EntityID:      report.EntityID,
		ApplicationID: report.ApplicationID,
	}
	if report.Price != nil {
		props.Price = &domain.Price{
			PricePerMessage: report.Price.PricePerMessage,
			Currency:        report.Price.Currency,
		}
	}
	if s := report.Status; s != nil {
		props.Status = &domain.VendorStatus{
			GroupID:     s.GroupID,
			GroupName:   s.GroupName,
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Action:      s.Action,
		}
	}
	if e := report.Error; e != nil {
		props.Error = &domain.VendorError{
			GroupID:     e.GroupID,
			GroupName:   e.GroupName,
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Permanent:   e.Permanent,
		}
	}
	if a.extend != nil {
		a.extend(props, report)
	}
	return props
}
