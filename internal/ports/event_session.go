package ports

import (
	"context"

	"github.com/patchwatch/patchwatch/internal/domain"
)

// EventSession is a live connection to a target's event stream.
//
// The session owns reconnection: when the underlying connection drops it
// redials transparently. After every successful connect or reconnect it
// emits a synthetic domain.EventConnected before delivering any remote
// events, so the consumer can re-authenticate ahead of further traffic.
type EventSession interface {
	// Send transmits a raw message on the current connection.
	// Returns domain.ErrSessionClosed after Close.
	Send(ctx context.Context, payload []byte) error

	// Events returns the inbound event sequence. The channel is closed
	// when the session closes; it is not restartable.
	Events() <-chan domain.StatusEvent

	// Close releases the connection and all session resources.
	// Closing more than once is a no-op.
	Close() error
}

// SessionDialer opens event-stream sessions.
type SessionDialer interface {
	// Dial connects to the given event-stream URL. The returned session
	// reconnects on its own until ctx is canceled or Close is called.
	Dial(ctx context.Context, url string) (EventSession, error)
}
