// Package cliconfig loads and validates the patchwatch configuration from
// file, environment, and flags, in ascending precedence.
package cliconfig

import (
	"fmt"
	"time"

	"github.com/patchwatch/patchwatch/internal/domain"
)

// DefaultPollInterval applies to targets that do not set their own.
const DefaultPollInterval = 60 * time.Second

// Config is the process configuration: global settings plus one entry per
// supervised target.
type Config struct {
	LogLevel    string
	ConfigWatch bool

	Targets []domain.TargetConfig
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		LogLevel:    "info",
		ConfigWatch: true,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
// Target-level validation is repeated by each orchestrator at startup; here
// it rejects a configuration that could never supervise anything.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level %q", domain.ErrInvalidConfig, c.LogLevel)
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("%w: no targets configured", domain.ErrInvalidConfig)
	}

	seen := map[string]bool{}
	for i := range c.Targets {
		t := &c.Targets[i]
		if t.PollInterval == 0 {
			t.PollInterval = DefaultPollInterval
		}
		if err := t.Validate(); err != nil {
			return err
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate target name %q", domain.ErrInvalidConfig, t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}
