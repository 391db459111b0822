package cliconfig

import (
	"os"
	"strconv"
)

// ApplyEnvConfig applies configuration from environment variables
// (PATCHWATCH_*). It respects flags that have been explicitly set (changed
// map). PATCHWATCH_API_KEY fills in the key for any target that does not set
// its own, so a fleet sharing one management key can keep it out of the file.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) {
	s := newConfigSetter(changed)

	s.setString("log-level", os.Getenv("PATCHWATCH_LOG_LEVEL"), &cfg.LogLevel)
	s.setBoolFromString("config-watch", os.Getenv("PATCHWATCH_CONFIG_WATCH"), &cfg.ConfigWatch)

	if key := os.Getenv("PATCHWATCH_API_KEY"); key != "" {
		for i := range cfg.Targets {
			if cfg.Targets[i].APIKey == "" {
				cfg.Targets[i].APIKey = key
			}
		}
	}
}

// setBoolFromString parses a bool env value and sets the destination if valid.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	if b, err := strconv.ParseBool(value); err == nil {
		*dst = b
	}
}
