package cliconfig

import (
	"errors"
	"testing"
	"time"

	"github.com/patchwatch/patchwatch/internal/domain"
)

func validTarget(name string) domain.TargetConfig {
	return domain.TargetConfig{
		Name:        name,
		ManifestURL: "https://builds.example.com/" + name + ".json",
		ControlURL:  "https://" + name + ".example.com",
		APIKey:      "key-" + name,
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Targets = []domain.TargetConfig{validTarget("alpha"), validTarget("beta")}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	for _, tgt := range cfg.Targets {
		if tgt.PollInterval != DefaultPollInterval {
			t.Errorf("target %s poll interval = %v, want default %v", tgt.Name, tgt.PollInterval, DefaultPollInterval)
		}
	}
}

func TestValidateKeepsExplicitInterval(t *testing.T) {
	cfg := DefaultConfig()
	tgt := validTarget("alpha")
	tgt.PollInterval = 5 * time.Minute
	cfg.Targets = []domain.TargetConfig{tgt}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if cfg.Targets[0].PollInterval != 5*time.Minute {
		t.Errorf("poll interval = %v, want 5m", cfg.Targets[0].PollInterval)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no targets", func(c *Config) { c.Targets = nil }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"duplicate target", func(c *Config) {
			c.Targets = append(c.Targets, validTarget("alpha"))
		}},
		{"invalid target", func(c *Config) {
			c.Targets[0].ControlURL = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Targets = []domain.TargetConfig{validTarget("alpha")}
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestApplyEnvConfig(t *testing.T) {
	t.Setenv("PATCHWATCH_LOG_LEVEL", "debug")
	t.Setenv("PATCHWATCH_CONFIG_WATCH", "false")

	cfg := DefaultConfig()
	ApplyEnvConfig(&cfg, map[string]bool{})

	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel)
	}
	if cfg.ConfigWatch {
		t.Error("config watch should be disabled by env")
	}
}

func TestApplyEnvConfigRespectsFlags(t *testing.T) {
	t.Setenv("PATCHWATCH_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	ApplyEnvConfig(&cfg, map[string]bool{"log-level": true})

	if cfg.LogLevel != "info" {
		t.Errorf("explicit flag overridden by env: log level = %q", cfg.LogLevel)
	}
}

func TestApplyEnvConfigAPIKeyFill(t *testing.T) {
	t.Setenv("PATCHWATCH_API_KEY", "shared-key")

	cfg := DefaultConfig()
	withKey := validTarget("alpha")
	withoutKey := validTarget("beta")
	withoutKey.APIKey = ""
	cfg.Targets = []domain.TargetConfig{withKey, withoutKey}

	ApplyEnvConfig(&cfg, map[string]bool{})

	if cfg.Targets[0].APIKey != "key-alpha" {
		t.Errorf("existing key overwritten: %q", cfg.Targets[0].APIKey)
	}
	if cfg.Targets[1].APIKey != "shared-key" {
		t.Errorf("missing key not filled: %q", cfg.Targets[1].APIKey)
	}
}
