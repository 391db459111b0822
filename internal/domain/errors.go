package domain

import "errors"

// Domain errors represent error conditions in the patchwatch domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running supervisor.
	ErrAlreadyRunning = errors.New("patchwatch: already running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("patchwatch: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("patchwatch: invalid configuration")

	// ErrNoBuilds is returned when the published-build collection is empty.
	ErrNoBuilds = errors.New("patchwatch: no published builds")

	// ErrSessionClosed is returned when sending on a closed event-stream session.
	ErrSessionClosed = errors.New("patchwatch: event session closed")
)
