package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileConfig(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"
config_watch = false

[[targets]]
name = "alpha"
manifest_url = "https://builds.example.com/alpha.json"
control_url = "https://alpha.example.com"
api_key = "key-a"
webhook_url = "https://hooks.example.com/alpha"
color = "#FF8800"
poll_interval = "30s"

[[targets]]
name = "beta"
manifest_url = "https://builds.example.com/beta.json"
control_url = "https://beta.example.com"
api_key = "key-b"
`)

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig returned error: %v", err)
	}
	if fc.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", fc.LogLevel)
	}
	if fc.ConfigWatch == nil || *fc.ConfigWatch {
		t.Error("config_watch should parse as false")
	}
	if len(fc.Targets) != 2 {
		t.Fatalf("targets = %d, want 2", len(fc.Targets))
	}
	if fc.Targets[0].Color != "#FF8800" {
		t.Errorf("color = %q", fc.Targets[0].Color)
	}
}

func TestApplyFileConfig(t *testing.T) {
	path := writeConfig(t, `
log_level = "warn"

[[targets]]
name = "alpha"
manifest_url = "https://builds.example.com/alpha.json"
control_url = "https://alpha.example.com"
api_key = "key-a"
poll_interval = "45s"
`)

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig returned error: %v", err)
	}

	cfg := DefaultConfig()
	if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err != nil {
		t.Fatalf("ApplyFileConfig returned error: %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("log level = %q, want warn", cfg.LogLevel)
	}
	if len(cfg.Targets) != 1 {
		t.Fatalf("targets = %d, want 1", len(cfg.Targets))
	}
	if cfg.Targets[0].PollInterval != 45*time.Second {
		t.Errorf("poll interval = %v, want 45s", cfg.Targets[0].PollInterval)
	}
}

func TestApplyFileConfigRespectsFlags(t *testing.T) {
	fc := FileConfig{LogLevel: "warn"}

	cfg := DefaultConfig()
	if err := ApplyFileConfig(&cfg, fc, map[string]bool{"log-level": true}); err != nil {
		t.Fatalf("ApplyFileConfig returned error: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("explicit flag overridden by file: log level = %q", cfg.LogLevel)
	}
}

func TestApplyFileConfigBadDuration(t *testing.T) {
	fc := FileConfig{
		Targets: []FileTarget{{Name: "alpha", PollInterval: "soon"}},
	}

	cfg := DefaultConfig()
	if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestLoadFileConfigMissingFile(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
