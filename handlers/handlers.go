package handlers

import (
	"errors"
	"strconv"

	"github.com/anjiri1684/mentorship/booking"
	"github.com/anjiri1684/mentorship/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var validate = validator.New()

// errorStatus maps engine errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, booking.ErrSlotUnavailable), errors.Is(err, booking.ErrProviderBusy):
		return fiber.StatusConflict
	case errors.Is(err, booking.ErrInvalidTransition):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, booking.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, booking.ErrGateway):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func errorJSON(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "Internal server error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func currentUser(c *fiber.Ctx) (uuid.UUID, string, error) {
	id, role, err := middleware.CurrentUser(c)
	if err != nil {
		return uuid.Nil, "", fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	return id, role, nil
}

func pageParams(c *fiber.Ctx) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit", "20"))
	offset, _ = strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func idParam(c *fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}
