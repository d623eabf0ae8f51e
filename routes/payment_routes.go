package routes

import (
	"github.com/anjiri1684/mentorship/handlers"
	"github.com/anjiri1684/mentorship/middleware"
	"github.com/anjiri1684/mentorship/models"
	"github.com/gofiber/fiber/v2"
)

func PaymentRoutes(api fiber.Router, h *handlers.PaymentHandler, jwtSecret string) {
	mentee := []fiber.Handler{middleware.Protected(jwtSecret), middleware.RoleRequired(models.RoleMentee)}

	api.Post("/appointments/:id/payments/paypal", append(mentee, h.CreatePayPalOrder)...)
	api.Post("/payments/paypal/capture", append(mentee, h.CapturePayPalOrder)...)
}
