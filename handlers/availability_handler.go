package handlers

import (
	"context"

	"github.com/anjiri1684/mentorship/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AvailabilityStore interface {
	CreateSlot(ctx context.Context, slot *models.AvailabilitySlot) error
	DeleteSlot(ctx context.Context, slotID, mentorID uuid.UUID) error
	SlotsForMentor(ctx context.Context, mentorID uuid.UUID) ([]models.AvailabilitySlot, error)
}

type AvailabilityHandler struct {
	store AvailabilityStore
}

func NewAvailabilityHandler(store AvailabilityStore) *AvailabilityHandler {
	return &AvailabilityHandler{store: store}
}

type CreateAvailabilityRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
}

func (h *AvailabilityHandler) CreateSlot(c *fiber.Ctx) error {
	mentorID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	var req CreateAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	// zero-padded HH:MM compares correctly as a string
	if req.StartTime >= req.EndTime {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Start time must be before end time"})
	}

	existing, err := h.store.SlotsForMentor(c.UserContext(), mentorID)
	if err != nil {
		return errorJSON(c, err)
	}
	for _, s := range existing {
		if s.DayOfWeek == req.DayOfWeek && s.StartTime < req.EndTime && s.EndTime > req.StartTime {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Slot overlaps an existing availability window"})
		}
	}

	slot := models.AvailabilitySlot{
		MentorID:  mentorID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := h.store.CreateSlot(c.UserContext(), &slot); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create availability slot"})
	}
	return c.Status(fiber.StatusCreated).JSON(slot)
}

func (h *AvailabilityHandler) GetMine(c *fiber.Ctx) error {
	mentorID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	return h.list(c, mentorID)
}

func (h *AvailabilityHandler) GetForMentor(c *fiber.Ctx) error {
	mentorID, err := uuid.Parse(c.Params("mentorId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid mentor ID"})
	}
	return h.list(c, mentorID)
}

func (h *AvailabilityHandler) list(c *fiber.Ctx, mentorID uuid.UUID) error {
	slots, err := h.store.SlotsForMentor(c.UserContext(), mentorID)
	if err != nil {
		return errorJSON(c, err)
	}
	if slots == nil {
		slots = []models.AvailabilitySlot{}
	}
	return c.JSON(slots)
}

func (h *AvailabilityHandler) DeleteSlot(c *fiber.Ctx) error {
	mentorID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	slotID, err := uuid.Parse(c.Params("slotId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot ID"})
	}

	if err := h.store.DeleteSlot(c.UserContext(), slotID, mentorID); err != nil {
		return errorJSON(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
