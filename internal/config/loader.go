// Package config provides configuration loading for the kernel.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	appDirName = "criticality"
)

// LoadWithFile loads configuration from a YAML file, then overrides with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (MODELS_DEFAULT, THRESHOLDS_MAX_TICKS, etc.)
//  2. YAML config file (~/.config/criticality/config.yaml by default)
//  3. Hardcoded defaults
//
// File Permissions: the config file MUST have 0600 or 0400 permissions.
// Path Validation: only files under ~/.config/criticality/ or
// /etc/criticality/ may be loaded, to prevent path traversal.
// File Size Limit: files over 1MB are rejected.
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", appDirName, "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := loadEnvInto(k); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadEnvInto layers environment-variable overrides onto k: MODELS_DEFAULT
// -> models.default, THRESHOLDS_MAX_TICKS -> thresholds.max_ticks, and so
// on.
func loadEnvInto(k *koanf.Koanf) error {
	if err := k.Load(env.Provider("", ".", func(s string) string {
		lower := strings.ToLower(s)
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

// applyEnvOverrides layers environment-variable overrides onto an
// already-populated cfg (e.g. one just decoded from a TOML file), using the
// same key convention as LoadWithFile's koanf-based env step, without
// clobbering fields the environment doesn't mention.
func applyEnvOverrides(cfg *Config) error {
	k := koanf.New(".")
	if err := loadEnvInto(k); err != nil {
		return err
	}

	var envCfg Config
	if err := k.Unmarshal("", &envCfg); err != nil {
		return fmt.Errorf("failed to unmarshal environment overrides: %w", err)
	}

	if k.Exists("models.default") {
		cfg.Models.Default = envCfg.Models.Default
	}
	if k.Exists("paths.project_root") {
		cfg.Paths.ProjectRoot = envCfg.Paths.ProjectRoot
	}
	if k.Exists("paths.state_file") {
		cfg.Paths.StateFile = envCfg.Paths.StateFile
	}
	if k.Exists("paths.ledger_file") {
		cfg.Paths.LedgerFile = envCfg.Paths.LedgerFile
	}
	if k.Exists("thresholds.max_ticks") {
		cfg.Thresholds.MaxTicks = envCfg.Thresholds.MaxTicks
	}
	if k.Exists("thresholds.staleness_max_age_ms") {
		cfg.Thresholds.StalenessMaxAgeMs = envCfg.Thresholds.StalenessMaxAgeMs
	}
	if k.Exists("thresholds.blocking_timeout_ms") {
		cfg.Thresholds.BlockingTimeoutMs = envCfg.Thresholds.BlockingTimeoutMs
	}
	if k.Exists("notifications.channel") {
		cfg.Notifications.Channel = envCfg.Notifications.Channel
	}
	if k.Exists("notifications.webhook_url") {
		cfg.Notifications.WebhookURL = envCfg.Notifications.WebhookURL
	}
	if k.Exists("notifications.slack_webhook_url") {
		cfg.Notifications.SlackWebhookURL = envCfg.Notifications.SlackWebhookURL
	}
	if k.Exists("notifications.smtp_addr") {
		cfg.Notifications.SMTPAddr = envCfg.Notifications.SMTPAddr
	}
	if k.Exists("notifications.email_from") {
		cfg.Notifications.EmailFrom = envCfg.Notifications.EmailFrom
	}
	return nil
}

// EnsureConfigDir creates the kernel's config directory if it doesn't
// exist, with 0700 permissions.
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	configDir := filepath.Join(home, ".config", appDirName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	return nil
}

// validateConfigPath checks that path resolves into an allowed directory,
// even if the file doesn't exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	allowedDirs := []string{
		filepath.Join(home, ".config", appDirName),
		"/etc/" + appDirName,
	}

	for _, dir := range allowedDirs {
		if resolvedPath == dir || strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/%s/ or /etc/%s/", appDirName, appDirName)
}

// validateConfigFileProperties checks permissions and size of an
// already-opened file, avoiding a TOCTOU race against a second stat call.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// applyDefaults fills in defaults for any field left unset by
// file or environment configuration.
func applyDefaults(cfg *Config) {
	if cfg.Paths.StateFile == "" {
		cfg.Paths.StateFile = ".criticality-state.json"
	}
	if cfg.Paths.LedgerFile == "" {
		cfg.Paths.LedgerFile = ".criticality-ledger.json"
	}
	if cfg.Paths.ProjectRoot == "" {
		cfg.Paths.ProjectRoot = "."
	}
	if cfg.Thresholds.MaxTicks == 0 {
		cfg.Thresholds.MaxTicks = 1000
	}
	if cfg.Thresholds.StalenessMaxAgeMs == 0 {
		cfg.Thresholds.StalenessMaxAgeMs = 24 * 60 * 60 * 1000
	}
	if cfg.Thresholds.BlockingTimeoutMs == 0 {
		cfg.Thresholds.BlockingTimeoutMs = 24 * 60 * 60 * 1000
	}
}
