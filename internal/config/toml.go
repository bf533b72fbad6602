package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// LoadWithTOMLFile is LoadWithFile's TOML-format sibling, for operators
// who keep their config as TOML rather than YAML. Precedence and
// validation (path allowlist, permission bits, size cap, environment
// override, defaults) are identical to LoadWithFile; only the file parser
// differs.
func LoadWithTOMLFile(configPath string) (*Config, error) {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = home + "/.config/" + appDirName + "/config.toml"
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	var cfg Config

	if f, statErr := os.Open(configPath); statErr == nil {
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
		if err := toml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config file %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
