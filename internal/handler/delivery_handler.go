package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"github.com/kursadbilgin/infobip-dispatch/internal/service"
)

type DeliveryService interface {
	Process(ctx context.Context, req domain.WebhookRequest) (service.ProcessResult, error)
}

type DeliveryHandler struct {
	service DeliveryService
}

func NewDeliveryHandler(service DeliveryService) (*DeliveryHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("delivery service is required")
	}
	return &DeliveryHandler{service: service}, nil
}

func RegisterDeliveryRoutes(router fiber.Router, service DeliveryService) error {
	h, err := NewDeliveryHandler(service)
	if err != nil {
		return err
	}

	router.Group("/v1").Post("/delivery-reports", h.ReceiveReports)
	return nil
}

// ReceiveReports accepts Infobip status webhooks. Pipeline identity travels in
// the query string appended to the notify URL at dispatch time.
func (h *DeliveryHandler) ReceiveReports(c *fiber.Ctx) error {
	req := domain.WebhookRequest{
		// The request body buffer is reused by fiber after the handler returns.
		Body:              append([]byte(nil), c.Body()...),
		ChannelID:         strings.TrimSpace(c.Query(domain.QueryChannelID)),
		ChannelProviderID: strings.TrimSpace(c.Query(domain.QueryChannelProviderID)),
		PipelineIntent:    strings.TrimSpace(c.Query(domain.QueryPipelineIntent)),
		PipelineID:        strings.TrimSpace(c.Query(domain.QueryPipelineID)),
		ResourceID:        strings.TrimSpace(c.Query(domain.QueryResourceID)),
	}
	if req.ChannelProviderID == "" {
		req.ChannelProviderID = domain.ProviderID
	}

	result, err := h.service.Process(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
