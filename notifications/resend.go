package notifications

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey, senderEmail, senderName string) *ResendMailer {
	from := senderEmail
	if senderName != "" {
		from = fmt.Sprintf("%s <%s>", senderName, senderEmail)
	}
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (s *ResendMailer) Send(ctx context.Context, email Email) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("%w: resend: %v", ErrMailTransport, err)
	}
	return nil
}
