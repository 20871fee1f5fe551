package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tradepulse/push-pipeline/internal/domain"
)

type InboxService interface {
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	MarkRead(ctx context.Context, recipientID string, recordIDs []string) (int64, error)
}

type InboxHandler struct {
	inbox InboxService
}

func NewInboxHandler(inbox InboxService) (*InboxHandler, error) {
	if inbox == nil {
		return nil, fmt.Errorf("inbox service is required")
	}
	return &InboxHandler{inbox: inbox}, nil
}

func RegisterInboxRoutes(router fiber.Router, inbox InboxService) error {
	h, err := NewInboxHandler(inbox)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/recipients/:id/unread", h.GetUnreadCount)
	v1.Post("/recipients/:id/read", h.MarkRead)

	return nil
}

type markReadRequest struct {
	RecordIDs []string `json:"recordIds"`
}

func (h *InboxHandler) GetUnreadCount(c *fiber.Ctx) error {
	recipientID := strings.TrimSpace(c.Params("id"))
	count, err := h.inbox.UnreadCount(c.Context(), recipientID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"recipientId": recipientID,
		"unread":      count,
	})
}

func (h *InboxHandler) MarkRead(c *fiber.Ctx) error {
	recipientID := strings.TrimSpace(c.Params("id"))

	var req markReadRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.RecordIDs) == 0 {
		return toHTTPError(fmt.Errorf("%w: recordIds is required", domain.ErrValidation))
	}

	marked, err := h.inbox.MarkRead(c.Context(), recipientID, req.RecordIDs)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"recipientId": recipientID,
		"marked":      marked,
	})
}
