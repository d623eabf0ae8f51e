package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const brevoSendURL = "https://api.brevo.com/v3/smtp/email"

type BrevoMailer struct {
	APIKey      string
	SenderEmail string
	SenderName  string

	endpoint   string
	httpClient *http.Client
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
	TextContent string              `json:"textContent,omitempty"`
}

func NewBrevoMailer(apiKey, senderEmail, senderName string) *BrevoMailer {
	return &BrevoMailer{
		APIKey:      apiKey,
		SenderEmail: senderEmail,
		SenderName:  senderName,
		endpoint:    brevoSendURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *BrevoMailer) Send(ctx context.Context, email Email) error {
	toEmail := email.To
	if toEmail == "" || !strings.Contains(toEmail, "@") {
		return fmt.Errorf("%w: invalid recipient email %q", ErrMailTransport, toEmail)
	}

	payload := brevoPayload{
		Sender:      map[string]string{"name": s.SenderName, "email": s.SenderEmail},
		To:          []map[string]string{{"email": toEmail, "name": toEmail[:strings.Index(toEmail, "@")]}},
		Subject:     email.Subject,
		HTMLContent: email.HTML,
		TextContent: email.Text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal brevo payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("create brevo request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", s.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: brevo request: %v", ErrMailTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: brevo status %d: %s", ErrMailTransport, resp.StatusCode, string(respBody))
	}
	return nil
}
