package routes

import (
	"github.com/anjiri1684/mentorship/handlers"
	"github.com/anjiri1684/mentorship/middleware"
	"github.com/anjiri1684/mentorship/models"
	"github.com/gofiber/fiber/v2"
)

func MentorRoutes(api fiber.Router, h *handlers.AvailabilityHandler, jwtSecret string) {
	api.Get("/mentors/:mentorId/availability", h.GetForMentor)

	availability := api.Group("/mentor/availability", middleware.Protected(jwtSecret), middleware.RoleRequired(models.RoleMentor))
	availability.Post("", h.CreateSlot)
	availability.Get("/me", h.GetMine)
	availability.Delete("/:slotId", h.DeleteSlot)
}
