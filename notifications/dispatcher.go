package notifications

import (
	"context"
	"fmt"

	"github.com/anjiri1684/mentorship/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// EmailQueue is satisfied by EmailBatcher.
type EmailQueue interface {
	Enqueue(userID uuid.UUID, title, body string)
}

// Pusher delivers a notification to a connected client. Implementations must not block.
type Pusher interface {
	Push(userID uuid.UUID, n models.Notification)
}

type Dispatcher struct {
	store  NotificationStore
	emails EmailQueue
	push   Pusher
	log    zerolog.Logger
}

func NewDispatcher(store NotificationStore, emails EmailQueue, push Pusher, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{store: store, emails: emails, push: push, log: log}
}

// Notify persists the notification, queues its email and pushes it to any live
// connection. Only the persistence step can fail the call.
func (d *Dispatcher) Notify(ctx context.Context, userID uuid.UUID, category, title, body string, metadata map[string]string) (*models.Notification, error) {
	n := &models.Notification{
		UserID:   userID,
		Category: category,
		Title:    title,
		Body:     body,
		Metadata: metadata,
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	d.emails.Enqueue(userID, title, body)

	if d.push != nil {
		d.push.Push(userID, *n)
	}

	d.log.Debug().
		Str("user_id", userID.String()).
		Str("category", category).
		Uint64("notification_id", n.ID).
		Msg("notification dispatched")
	return n, nil
}
