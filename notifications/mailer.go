package notifications

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

var ErrMailTransport = errors.New("mail transport failure")

// Email carries the notification text verbatim in Text and its rendered form in HTML.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers one email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// LogMailer stands in when no mail provider is configured.
type LogMailer struct {
	Log zerolog.Logger
}

func (m LogMailer) Send(_ context.Context, email Email) error {
	m.Log.Info().Str("to", email.To).Str("subject", email.Subject).Msg("mail provider not configured, email not sent")
	return nil
}
