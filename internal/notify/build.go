package notify

import (
	"github.com/fyrsmithlabs/criticality/internal/config"
)

// FromConfig builds the Service for the configured notification channel.
// An empty channel yields nil: the orchestrator treats a nil notifier as
// "no notifications", which is always safe.
func FromConfig(cfg config.NotificationsConfig) Service {
	switch cfg.Channel {
	case "webhook":
		return NewWebhookChannel(cfg.WebhookURL)
	case "slack":
		return NewSlackChannel(cfg.SlackWebhookURL)
	case "email":
		return NewEmailChannel(cfg.SMTPAddr, cfg.EmailFrom, cfg.EmailTo, nil)
	default:
		return nil
	}
}
