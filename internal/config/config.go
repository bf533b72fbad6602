// Package config loads the kernel's configuration surface: models, paths,
// thresholds, notifications, and mass-defect targets. The kernel never
// parses files itself; it consumes the typed result built here —
// koanf-backed, environment-override-first, path- and
// permission-validated.
package config

import (
	"fmt"
)

// Config is the kernel's full configuration surface: five closed sections,
// each independently defaulted when absent.
type Config struct {
	Models        ModelsConfig        `koanf:"models"`
	Paths         PathsConfig         `koanf:"paths"`
	Thresholds    ThresholdsConfig    `koanf:"thresholds"`
	Notifications NotificationsConfig `koanf:"notifications"`
	MassDefect    MassDefectConfig    `koanf:"mass_defect"`
}

// ModelsConfig names the model to use for each phase's model call, with a
// fallback default for any phase not named explicitly.
type ModelsConfig struct {
	Default  string            `koanf:"default"`
	PerPhase map[string]string `koanf:"per_phase"`
}

// ModelFor returns the model configured for phase p, falling back to the
// section default.
func (m ModelsConfig) ModelFor(p string) string {
	if model, ok := m.PerPhase[p]; ok && model != "" {
		return model
	}
	return m.Default
}

// PathsConfig names the filesystem locations the kernel and its wiring
// layer read and write.
type PathsConfig struct {
	ProjectRoot string `koanf:"project_root"`
	StateFile   string `koanf:"state_file"`
	LedgerFile  string `koanf:"ledger_file"`
}

// ThresholdsConfig carries the kernel's numeric limits: the run loop's
// tick budget, the checkpoint's default staleness window, and the default
// blocking-query timeout applied when a query doesn't name its own.
type ThresholdsConfig struct {
	MaxTicks          int   `koanf:"max_ticks"`
	StalenessMaxAgeMs int64 `koanf:"staleness_max_age_ms"`
	BlockingTimeoutMs int64 `koanf:"blocking_timeout_ms"`
}

// NotificationsConfig configures the single active notification channel.
// Channel is a closed enum; the fields relevant to the chosen
// channel are validated, the rest are ignored.
type NotificationsConfig struct {
	Channel         string   `koanf:"channel"` // "", "slack", "email", or "webhook"
	WebhookURL      string   `koanf:"webhook_url"`
	SlackWebhookURL string   `koanf:"slack_webhook_url"`
	SMTPAddr        string   `koanf:"smtp_addr"`
	EmailFrom       string   `koanf:"email_from"`
	EmailTo         []string `koanf:"email_to"`
}

// MassDefectConfig names the verification targets the MassDefect phase's
// model call and test runner apply to.
type MassDefectConfig struct {
	Targets []string `koanf:"targets"`
}

var validChannels = map[string]bool{
	"":        true,
	"slack":   true,
	"email":   true,
	"webhook": true,
}

// Validate checks the closed enums and the cross-field requirements each
// notification channel implies. Every failure names the offending field
// path, matching the boundary convention of "<short code>: <context>".
func (c *Config) Validate() error {
	if !validChannels[c.Notifications.Channel] {
		return fmt.Errorf("notifications.channel: %q is not one of slack, email, webhook", c.Notifications.Channel)
	}

	switch c.Notifications.Channel {
	case "webhook":
		if c.Notifications.WebhookURL == "" {
			return fmt.Errorf("notifications.webhook_url: required when notifications.channel is \"webhook\"")
		}
	case "slack":
		if c.Notifications.SlackWebhookURL == "" {
			return fmt.Errorf("notifications.slack_webhook_url: required when notifications.channel is \"slack\"")
		}
	case "email":
		if c.Notifications.SMTPAddr == "" {
			return fmt.Errorf("notifications.smtp_addr: required when notifications.channel is \"email\"")
		}
		if c.Notifications.EmailFrom == "" {
			return fmt.Errorf("notifications.email_from: required when notifications.channel is \"email\"")
		}
		if len(c.Notifications.EmailTo) == 0 {
			return fmt.Errorf("notifications.email_to: required when notifications.channel is \"email\"")
		}
	}

	if c.Thresholds.MaxTicks < 0 {
		return fmt.Errorf("thresholds.max_ticks: must not be negative, got %d", c.Thresholds.MaxTicks)
	}
	if c.Thresholds.StalenessMaxAgeMs < 0 {
		return fmt.Errorf("thresholds.staleness_max_age_ms: must not be negative, got %d", c.Thresholds.StalenessMaxAgeMs)
	}
	if c.Thresholds.BlockingTimeoutMs < 0 {
		return fmt.Errorf("thresholds.blocking_timeout_ms: must not be negative, got %d", c.Thresholds.BlockingTimeoutMs)
	}

	return nil
}
