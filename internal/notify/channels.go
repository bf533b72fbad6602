package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"

	"github.com/slack-go/slack"
)

func formatMessage(event Event, payload Payload) string {
	switch event {
	case EventBlock:
		return fmt.Sprintf("[%s] protocol blocked: %s", payload.Phase, payload.Query)
	case EventComplete:
		return fmt.Sprintf("[%s] protocol complete", payload.Phase)
	case EventError:
		return fmt.Sprintf("[%s] protocol error: %s", payload.Phase, payload.Error)
	case EventPhaseChange:
		return fmt.Sprintf("protocol advanced to phase %s", payload.Phase)
	default:
		return fmt.Sprintf("protocol event %s", event)
	}
}

// WebhookChannel posts a JSON payload to an arbitrary HTTP endpoint.
type WebhookChannel struct {
	URL    string
	Client *http.Client
}

// NewWebhookChannel returns a WebhookChannel posting to url with a default
// HTTP client.
func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{URL: url, Client: http.DefaultClient}
}

func (w *WebhookChannel) Notify(ctx context.Context, event Event, payload Payload) error {
	body, err := json.Marshal(map[string]any{
		"event":   event,
		"phase":   payload.Phase,
		"query":   payload.Query,
		"error":   payload.Error,
		"details": payload.Details,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// SlackChannel posts formatted event text to a Slack incoming webhook.
type SlackChannel struct {
	WebhookURL string
}

// NewSlackChannel returns a SlackChannel posting to webhookURL.
func NewSlackChannel(webhookURL string) *SlackChannel {
	return &SlackChannel{WebhookURL: webhookURL}
}

func (s *SlackChannel) Notify(ctx context.Context, event Event, payload Payload) error {
	msg := &slack.WebhookMessage{Text: formatMessage(event, payload)}
	return slack.PostWebhookContext(ctx, s.WebhookURL, msg)
}

// EmailChannel sends a plain-text notification over SMTP. No pack library
// wraps email delivery, so this is a minimal net/smtp adapter.
type EmailChannel struct {
	SMTPAddr string
	From     string
	To       []string
	Auth     smtp.Auth
}

// NewEmailChannel returns an EmailChannel for the given SMTP host:port.
func NewEmailChannel(smtpAddr, from string, to []string, auth smtp.Auth) *EmailChannel {
	return &EmailChannel{SMTPAddr: smtpAddr, From: from, To: to, Auth: auth}
}

func (e *EmailChannel) Notify(_ context.Context, event Event, payload Payload) error {
	subject := fmt.Sprintf("criticality: %s", event)
	body := formatMessage(event, payload)
	msg := []byte(fmt.Sprintf("Subject: %s\r\n\r\n%s\r\n", subject, body))
	return smtp.SendMail(e.SMTPAddr, e.Auth, e.From, e.To, msg)
}
