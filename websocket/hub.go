package websocket

import (
	"context"
	"time"

	"github.com/anjiri1684/mentorship/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	UserID uuid.UUID
	Conn   Conn
}

type Event struct {
	Type         string              `json:"type"`
	Notification models.Notification `json:"notification"`
}

type delivery struct {
	userID uuid.UUID
	event  Event
}

// Hub fans notifications out to connected clients. One user may hold several
// connections; all connection state is owned by Run.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	outbound   chan delivery
	done       chan struct{}
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan delivery, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	clients := make(map[uuid.UUID]map[Conn]struct{})
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			conns, ok := clients[client.UserID]
			if !ok {
				conns = make(map[Conn]struct{})
				clients[client.UserID] = conns
			}
			conns[client.Conn] = struct{}{}
			h.log.Debug().Str("user_id", client.UserID.String()).Int("connections", len(conns)).Msg("client registered")

		case client := <-h.unregister:
			h.drop(clients, client.UserID, client.Conn)
			h.log.Debug().Str("user_id", client.UserID.String()).Msg("client unregistered")

		case d := <-h.outbound:
			for conn := range clients[d.userID] {
				if err := conn.WriteJSON(d.event); err != nil {
					h.log.Warn().Err(err).Str("user_id", d.userID.String()).Msg("push failed, dropping connection")
					conn.Close()
					h.drop(clients, d.userID, conn)
				}
			}

		case <-ctx.Done():
			for _, conns := range clients {
				for conn := range conns {
					conn.Close()
				}
			}
			return
		}
	}
}

func (h *Hub) drop(clients map[uuid.UUID]map[Conn]struct{}, userID uuid.UUID, conn Conn) {
	conns, ok := clients[userID]
	if !ok {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(clients, userID)
	}
}

// Register blocks until the hub accepts the client, ctx ends or the hub stops.
func (h *Hub) Register(ctx context.Context, c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-ctx.Done():
		return false
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	case <-time.After(time.Second):
	}
}

// Push never blocks; when the outbound buffer is full the event is dropped, the
// notification row is still there for the next poll.
func (h *Hub) Push(userID uuid.UUID, n models.Notification) {
	select {
	case h.outbound <- delivery{userID: userID, event: Event{Type: "notification", Notification: n}}:
	default:
		h.log.Warn().Str("user_id", userID.String()).Uint64("notification_id", n.ID).Msg("push buffer full, event dropped")
	}
}
