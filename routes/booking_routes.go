package routes

import (
	"github.com/anjiri1684/mentorship/handlers"
	"github.com/anjiri1684/mentorship/middleware"
	"github.com/anjiri1684/mentorship/models"
	"github.com/gofiber/fiber/v2"
)

func BookingRoutes(api fiber.Router, h *handlers.BookingHandler, jwtSecret string) {
	appointments := api.Group("/appointments", middleware.Protected(jwtSecret))
	appointments.Get("/me", h.GetMine)
	appointments.Get("/:id", h.Get)
	appointments.Post("", middleware.RoleRequired(models.RoleMentee), h.CreateBooking)
	appointments.Patch("/:id/status", middleware.RoleRequired(models.RoleMentor, models.RoleMentee), h.SetStatus)
	appointments.Post("/:id/cancel", middleware.RoleRequired(models.RoleMentee), h.Cancel)
}
