package handlers

import (
	"context"

	"github.com/anjiri1684/mentorship/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type NotificationReader interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id uint64, userID uuid.UUID) error
}

type NotificationHandler struct {
	store NotificationReader
}

func NewNotificationHandler(store NotificationReader) *NotificationHandler {
	return &NotificationHandler{store: store}
}

func (h *NotificationHandler) GetMine(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	limit, offset := pageParams(c)

	items, err := h.store.ListNotifications(c.UserContext(), userID, c.QueryBool("unread"), limit, offset)
	if err != nil {
		return errorJSON(c, err)
	}
	if items == nil {
		items = []models.Notification{}
	}
	return c.JSON(fiber.Map{"notifications": items, "limit": limit, "offset": offset})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.store.MarkNotificationRead(c.UserContext(), id, userID); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "read": true})
}
