package routes

import (
	"github.com/anjiri1684/mentorship/handlers"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Bookings      *handlers.BookingHandler
	Availability  *handlers.AvailabilityHandler
	Payments      *handlers.PaymentHandler
	Notifications *handlers.NotificationHandler
	WS            *handlers.WSHandler
}

func Setup(app *fiber.App, h Handlers, jwtSecret string) {
	api := app.Group("/api/v1")

	MentorRoutes(api, h.Availability, jwtSecret)
	BookingRoutes(api, h.Bookings, jwtSecret)
	PaymentRoutes(api, h.Payments, jwtSecret)
	NotificationRoutes(api, h.Notifications, h.WS, jwtSecret)
}
