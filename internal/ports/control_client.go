package ports

import "context"

// SignalKind identifies a remote lifecycle signal.
type SignalKind string

// Lifecycle signals understood by the management API.
const (
	SignalKill  SignalKind = "kill"
	SignalStart SignalKind = "start"
)

// StreamInfo carries the connection parameters for a target's event stream.
type StreamInfo struct {
	// URL is the websocket endpoint of the management console.
	URL string

	// Token is the short-lived credential used to authenticate the stream.
	Token string
}

// ControlClient performs privileged request/response operations against one
// target's management API.
type ControlClient interface {
	// IssueCredential obtains a short-lived token authorizing privileged
	// actions. Returns an error when the token is unavailable or empty.
	IssueCredential(ctx context.Context) (string, error)

	// BeginUpdate tells the target to start its update procedure.
	BeginUpdate(ctx context.Context, token string) error

	// EventStreamInfo returns the connection info for the target's event
	// stream.
	EventStreamInfo(ctx context.Context) (StreamInfo, error)

	// LifecycleSignal sends a process lifecycle signal to the target.
	LifecycleSignal(ctx context.Context, kind SignalKind) error

	// Reinstall tells the target to reinstall its server software.
	Reinstall(ctx context.Context) error
}
