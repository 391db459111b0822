package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/patchwatch/patchwatch/internal/domain"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	LogLevel    string       `toml:"log_level"`
	ConfigWatch *bool        `toml:"config_watch"`
	Targets     []FileTarget `toml:"targets"`
}

// FileTarget is one [[targets]] table in the config file.
type FileTarget struct {
	Name         string `toml:"name"`
	ManifestURL  string `toml:"manifest_url"`
	ControlURL   string `toml:"control_url"`
	APIKey       string `toml:"api_key"`
	WebhookURL   string `toml:"webhook_url"`
	Color        string `toml:"color"`
	PollInterval string `toml:"poll_interval"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.patchwatch/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".patchwatch", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// Global settings respect flags that have been explicitly set (changed map);
// targets come only from the file.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setBool("config-watch", fc.ConfigWatch, &cfg.ConfigWatch)

	for _, ft := range fc.Targets {
		t := domain.TargetConfig{
			Name:        ft.Name,
			ManifestURL: ft.ManifestURL,
			ControlURL:  ft.ControlURL,
			APIKey:      ft.APIKey,
			WebhookURL:  ft.WebhookURL,
			Color:       ft.Color,
		}
		if ft.PollInterval != "" {
			d, err := time.ParseDuration(ft.PollInterval)
			if err != nil {
				return fmt.Errorf("parse poll_interval for target %q: %w", ft.Name, err)
			}
			t.PollInterval = d
		}
		cfg.Targets = append(cfg.Targets, t)
	}

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
