package domain

import (
	"fmt"
	"time"
)

// TargetConfig is the immutable configuration for one supervised server
// instance. It is loaded once at startup and owned exclusively by the
// target's orchestrator; nothing mutates it afterwards.
type TargetConfig struct {
	// Name identifies the target in logs and notifications.
	Name string

	// ManifestURL is the version-source endpoint listing published builds.
	ManifestURL string

	// ControlURL is the base URL of the target's management API.
	ControlURL string

	// APIKey authenticates requests against the management API.
	APIKey string

	// WebhookURL is the optional notification endpoint. Empty disables
	// notifications for this target.
	WebhookURL string

	// Color is an optional display color ("#RRGGBB") used in notifications.
	Color string

	// PollInterval is the delay between version checks.
	PollInterval time.Duration
}

// Validate checks the configuration for completeness. A target with an
// invalid configuration never enters its polling loop.
func (t TargetConfig) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: target name is required", ErrInvalidConfig)
	}
	if t.ManifestURL == "" {
		return fmt.Errorf("%w: target %q: manifest_url is required", ErrInvalidConfig, t.Name)
	}
	if t.ControlURL == "" {
		return fmt.Errorf("%w: target %q: control_url is required", ErrInvalidConfig, t.Name)
	}
	if t.APIKey == "" {
		return fmt.Errorf("%w: target %q: api_key is required", ErrInvalidConfig, t.Name)
	}
	if t.PollInterval <= 0 {
		return fmt.Errorf("%w: target %q: poll_interval must be positive", ErrInvalidConfig, t.Name)
	}
	return nil
}
