package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anjiri1684/mentorship/middleware"
	"github.com/anjiri1684/mentorship/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
)

const wsAuthTimeout = 10 * time.Second

type WSHandler struct {
	hub    *websocket.Hub
	secret []byte
	log    zerolog.Logger
}

func NewWSHandler(hub *websocket.Hub, secret string, log zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, secret: []byte(secret), log: log}
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// Upgrade rejects plain HTTP requests on the websocket route.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocketcontrib.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// Serve expects {"type":"auth","token":"<jwt>"} as the first frame, then keeps
// the connection registered until the client goes away. Inbound frames after
// auth are ignored.
func (h *WSHandler) Serve(c *websocketcontrib.Conn) {
	_ = c.SetReadDeadline(time.Now().Add(wsAuthTimeout))

	var auth wsAuthMessage
	if err := c.ReadJSON(&auth); err != nil || auth.Type != "auth" {
		h.log.Debug().Err(err).Msg("websocket auth failed: invalid or missing auth message")
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	claims, err := h.parseToken(auth.Token)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket auth failed: invalid token")
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		c.Close()
		return
	}
	userID, _, err := middleware.ClaimsUser(claims)
	if err != nil {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid user ID"})
		c.Close()
		return
	}
	_ = c.SetReadDeadline(time.Time{})

	if err := c.WriteJSON(fiber.Map{"type": "ready"}); err != nil {
		c.Close()
		return
	}

	client := &websocket.Client{UserID: userID, Conn: c}
	regCtx, cancel := context.WithTimeout(context.Background(), wsAuthTimeout)
	registered := h.hub.Register(regCtx, client)
	cancel()
	if !registered {
		h.log.Debug().Str("user_id", userID.String()).Msg("websocket hub unavailable, closing connection")
		c.Close()
		return
	}
	defer func() {
		h.hub.Unregister(client)
		c.Close()
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if !websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("user_id", userID.String()).Msg("websocket read error")
			}
			return
		}
	}
}

func (h *WSHandler) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
