package routes

import (
	"github.com/anjiri1684/mentorship/handlers"
	"github.com/anjiri1684/mentorship/middleware"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func NotificationRoutes(api fiber.Router, h *handlers.NotificationHandler, ws *handlers.WSHandler, jwtSecret string) {
	notifications := api.Group("/notifications", middleware.Protected(jwtSecret))
	notifications.Get("/me", h.GetMine)
	notifications.Patch("/:id/read", h.MarkRead)

	api.Use("/ws", ws.Upgrade)
	api.Get("/ws", websocketcontrib.New(ws.Serve))
}
