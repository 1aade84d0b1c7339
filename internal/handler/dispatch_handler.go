package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"github.com/kursadbilgin/infobip-dispatch/internal/queue"
	"github.com/kursadbilgin/infobip-dispatch/internal/repository"
	"github.com/kursadbilgin/infobip-dispatch/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type DispatchService interface {
	Handle(ctx context.Context, msg queue.DispatchMessage) ([]domain.DispatchResult, error)
	Enqueue(ctx context.Context, msg queue.DispatchMessage) (string, error)
	Get(ctx context.Context, resourceID string) (*service.DispatchDetails, error)
	GetBulkSummary(ctx context.Context, bulkID string) (*service.BulkSummary, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.DispatchRecord, int64, error)
}

type DispatchHandler struct {
	service DispatchService
}

func NewDispatchHandler(service DispatchService) (*DispatchHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	return &DispatchHandler{service: service}, nil
}

func RegisterDispatchRoutes(router fiber.Router, service DispatchService) error {
	h, err := NewDispatchHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/dispatch/:channel", h.Dispatch)
	v1.Get("/dispatch", h.ListDispatches)
	v1.Get("/dispatch/:resourceId", h.GetDispatch)
	v1.Get("/bulks/:bulkId", h.GetBulkSummary)

	return nil
}

type dispatchRequest struct {
	PipelineIntent string         `json:"pipelineIntent"`
	PipelineID     string         `json:"pipelineId"`
	Language       string         `json:"language"`
	Model          map[string]any `json:"model,omitempty"`
	SMS            *domain.SMS    `json:"sms,omitempty"`
	Email          *domain.Email  `json:"email,omitempty"`
	Voice          *domain.Voice  `json:"voice,omitempty"`
}

type dispatchResultResponse struct {
	ResourceID string `json:"resourceId,omitempty"`
	BulkID     string `json:"bulkId,omitempty"`
	Recipient  string `json:"recipient,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

type dispatchResponse struct {
	ID      string                   `json:"id"`
	Results []dispatchResultResponse `json:"results"`
	Warning string                   `json:"warning,omitempty"`
}

type listDispatchesResponse struct {
	Data []domain.DispatchRecord `json:"data"`
	Meta listMeta                `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

// Dispatch sends synchronously, or enqueues for the workers with ?async=true.
func (h *DispatchHandler) Dispatch(c *fiber.Ctx) error {
	channel, err := domain.ParseChannelID(c.Params("channel"))
	if err != nil {
		return err
	}

	var req dispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	msg := queue.DispatchMessage{
		ID:             requestID(c),
		Channel:        channel,
		PipelineIntent: strings.TrimSpace(req.PipelineIntent),
		PipelineID:     strings.TrimSpace(req.PipelineID),
		Language:       strings.TrimSpace(req.Language),
		Model:          req.Model,
		SMS:            req.SMS,
		Email:          req.Email,
		Voice:          req.Voice,
	}

	if c.QueryBool("async", false) {
		id, err := h.service.Enqueue(c.UserContext(), msg)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": id})
	}

	results, err := h.service.Handle(c.UserContext(), msg)
	if err != nil && len(results) == 0 {
		return err
	}

	resp := dispatchResponse{ID: msg.ID, Results: toDispatchResultResponses(results)}
	if err != nil {
		resp.Warning = err.Error()
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *DispatchHandler) GetDispatch(c *fiber.Ctx) error {
	details, err := h.service.Get(c.UserContext(), c.Params("resourceId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(details)
}

func (h *DispatchHandler) GetBulkSummary(c *fiber.Ctx) error {
	summary, err := h.service.GetBulkSummary(c.UserContext(), c.Params("bulkId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(summary)
}

func (h *DispatchHandler) ListDispatches(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return err
	}

	records, total, err := h.service.List(c.UserContext(), params)
	if err != nil {
		return err
	}
	if records == nil {
		records = []domain.DispatchRecord{}
	}

	return c.Status(fiber.StatusOK).JSON(listDispatchesResponse{
		Data: records,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseDispatchStatus(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	if rawChannel := strings.TrimSpace(c.Query("channel")); rawChannel != "" {
		channel, err := domain.ParseChannelID(rawChannel)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Channel = &channel
	}

	if pipelineID := strings.TrimSpace(c.Query("pipelineId")); pipelineID != "" {
		params.PipelineID = &pipelineID
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.ListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.ListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func requestID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	if value, ok := c.Locals("requestid").(string); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return uuid.NewString()
}

func toDispatchResultResponses(results []domain.DispatchResult) []dispatchResultResponse {
	responses := make([]dispatchResultResponse, 0, len(results))
	for _, r := range results {
		responses = append(responses, dispatchResultResponse{
			ResourceID: r.ResourceID,
			BulkID:     r.BulkID,
			Recipient:  r.Recipient,
			Status:     r.Status.String(),
			Error:      r.ErrorMessage(),
		})
	}
	return responses
}
