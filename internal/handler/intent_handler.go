package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tradepulse/push-pipeline/internal/domain"
	"github.com/tradepulse/push-pipeline/internal/repository"
	"github.com/tradepulse/push-pipeline/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
	maxDrainItems   = 100
)

type IntentService interface {
	Create(ctx context.Context, intent *domain.Intent) (*domain.Intent, error)
	GetByID(ctx context.Context, id string) (*domain.Intent, error)
	List(ctx context.Context, params repository.IntentListParams) ([]domain.Intent, int64, error)
	Requeue(ctx context.Context, id string) error
}

type PushService interface {
	SendNow(
		ctx context.Context,
		recipients []string,
		category domain.Category,
		title string,
		body string,
		payload domain.Payload,
		channel domain.Channel,
	) (service.DeliverySummary, error)
	DrainQueue(ctx context.Context, maxItems int) (service.DrainSummary, error)
}

type IntentHandler struct {
	intents IntentService
	push    PushService
}

func NewIntentHandler(intents IntentService, push PushService) (*IntentHandler, error) {
	if intents == nil {
		return nil, fmt.Errorf("intent service is required")
	}
	if push == nil {
		return nil, fmt.Errorf("push service is required")
	}
	return &IntentHandler{intents: intents, push: push}, nil
}

func RegisterIntentRoutes(router fiber.Router, intents IntentService, push PushService) error {
	h, err := NewIntentHandler(intents, push)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/intents", h.CreateIntent)
	v1.Get("/intents/:id", h.GetIntent)
	v1.Post("/intents/:id/requeue", h.RequeueIntent)
	v1.Get("/intents", h.ListIntents)
	v1.Post("/notifications/send", h.SendNow)
	v1.Post("/queue/drain", h.DrainQueue)

	return nil
}

type targetPayload struct {
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params,omitempty"`
}

type createIntentRequest struct {
	ID           string         `json:"id,omitempty"`
	Target       targetPayload  `json:"target"`
	Category     string         `json:"category"`
	Title        string         `json:"title"`
	Body         string         `json:"body"`
	Payload      domain.Payload `json:"payload,omitempty"`
	ScheduledFor *time.Time     `json:"scheduledFor,omitempty"`
}

type sendNowRequest struct {
	Recipients []string       `json:"recipients"`
	Category   string         `json:"category"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Payload    domain.Payload `json:"payload,omitempty"`
	Channel    string         `json:"channel,omitempty"`
}

type drainRequest struct {
	MaxItems int `json:"maxItems"`
}

type intentResponse struct {
	ID             string         `json:"id"`
	Target         targetPayload  `json:"target"`
	Category       string         `json:"category"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Payload        domain.Payload `json:"payload,omitempty"`
	Status         string         `json:"status"`
	ScheduledFor   time.Time      `json:"scheduledFor"`
	ProcessedCount int            `json:"processedCount"`
	FailedCount    int            `json:"failedCount"`
	ErrorMessage   *string        `json:"errorMessage,omitempty"`
	CreatedAt      time.Time      `json:"createdAt,omitempty"`
	UpdatedAt      time.Time      `json:"updatedAt,omitempty"`
}

type listIntentsResponse struct {
	Data []intentResponse `json:"data"`
	Meta listMeta         `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *IntentHandler) CreateIntent(c *fiber.Ctx) error {
	var req createIntentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	intent, err := requestToDomainIntent(req)
	if err != nil {
		return toHTTPError(err)
	}

	created, err := h.intents.Create(c.Context(), &intent)
	if err != nil {
		return toHTTPError(err)
	}

	response, err := toIntentResponse(created)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(response)
}

func (h *IntentHandler) GetIntent(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	intent, err := h.intents.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	response, err := toIntentResponse(intent)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *IntentHandler) RequeueIntent(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.intents.Requeue(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"intentId": id,
		"status":   domain.IntentPending.String(),
	})
}

func (h *IntentHandler) ListIntents(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	intents, total, err := h.intents.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]intentResponse, 0, len(intents))
	for i := range intents {
		response, err := toIntentResponse(&intents[i])
		if err != nil {
			return err
		}
		data = append(data, response)
	}

	return c.Status(fiber.StatusOK).JSON(listIntentsResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *IntentHandler) SendNow(c *fiber.Ctx) error {
	var req sendNowRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	category := domain.CategorySystem
	if strings.TrimSpace(req.Category) != "" {
		parsed, err := domain.ParseCategoryFromString(req.Category)
		if err != nil {
			return toHTTPError(err)
		}
		category = parsed
	}

	if strings.TrimSpace(req.Title) == "" {
		return toHTTPError(fmt.Errorf("%w: title is required", domain.ErrValidation))
	}
	if strings.TrimSpace(req.Body) == "" {
		return toHTTPError(fmt.Errorf("%w: body is required", domain.ErrValidation))
	}

	summary, err := h.push.SendNow(
		c.Context(),
		req.Recipients,
		category,
		strings.TrimSpace(req.Title),
		strings.TrimSpace(req.Body),
		req.Payload,
		domain.Channel(strings.TrimSpace(req.Channel)),
	)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(summary)
}

func (h *IntentHandler) DrainQueue(c *fiber.Ctx) error {
	req := drainRequest{MaxItems: service.DefaultDrainBatchSize}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	if req.MaxItems < 1 || req.MaxItems > maxDrainItems {
		return toHTTPError(fmt.Errorf("%w: maxItems must be between 1 and %d", domain.ErrValidation, maxDrainItems))
	}

	summary, err := h.push.DrainQueue(c.Context(), req.MaxItems)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(summary)
}

func parseListParams(c *fiber.Ctx) (repository.IntentListParams, error) {
	params := repository.IntentListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.IntentListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.IntentListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseIntentStatusFromString(rawStatus)
		if err != nil {
			return repository.IntentListParams{}, err
		}
		params.Status = &status
	}

	if rawCategory := strings.TrimSpace(c.Query("category")); rawCategory != "" {
		category, err := domain.ParseCategoryFromString(rawCategory)
		if err != nil {
			return repository.IntentListParams{}, err
		}
		params.Category = &category
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.IntentListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.IntentListParams{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return repository.IntentListParams{}, fmt.Errorf("%w: to must not precede from", domain.ErrValidation)
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

func requestToDomainIntent(req createIntentRequest) (domain.Intent, error) {
	if strings.TrimSpace(req.Target.Kind) == "" {
		return domain.Intent{}, fmt.Errorf("%w: target.kind is required", domain.ErrValidation)
	}

	target, err := domain.ParseTarget(req.Target.Kind, req.Target.Params)
	if err != nil {
		return domain.Intent{}, err
	}
	if _, unknown := target.(domain.UnknownTarget); unknown {
		return domain.Intent{}, fmt.Errorf("%w: unsupported target kind %q", domain.ErrValidation, req.Target.Kind)
	}

	category, err := domain.ParseCategoryFromString(req.Category)
	if err != nil {
		return domain.Intent{}, err
	}

	intent := domain.Intent{
		ID:       strings.TrimSpace(req.ID),
		Target:   target,
		Category: category,
		Title:    strings.TrimSpace(req.Title),
		Body:     strings.TrimSpace(req.Body),
		Payload:  req.Payload,
	}
	if req.ScheduledFor != nil {
		intent.ScheduledFor = req.ScheduledFor.UTC()
	}

	return intent, nil
}

func toIntentResponse(intent *domain.Intent) (intentResponse, error) {
	if intent == nil {
		return intentResponse{}, nil
	}

	kind, params, err := domain.EncodeTarget(intent.Target)
	if err != nil {
		return intentResponse{}, err
	}

	return intentResponse{
		ID:             intent.ID,
		Target:         targetPayload{Kind: kind, Params: params},
		Category:       intent.Category.String(),
		Title:          intent.Title,
		Body:           intent.Body,
		Payload:        intent.Payload,
		Status:         intent.Status.String(),
		ScheduledFor:   intent.ScheduledFor,
		ProcessedCount: intent.ProcessedCount,
		FailedCount:    intent.FailedCount,
		ErrorMessage:   intent.ErrorMessage,
		CreatedAt:      intent.CreatedAt,
		UpdatedAt:      intent.UpdatedAt,
	}, nil
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
