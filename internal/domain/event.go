package domain

// Event names delivered over a target's event stream.
const (
	// EventConnected is synthetic: the session emits it after every
	// successful connect or reconnect, before any remote events. The
	// handler re-authenticates when it sees one.
	EventConnected = "connected"

	EventAuthSuccess   = "auth-success"
	EventStatus        = "status"
	EventTokenExpiring = "token-expiring"
	EventTokenExpired  = "token-expired"
	EventError         = "error"
	EventDaemonError   = "daemon-error"
)

// StatusStarting is the status argument announcing that the remote daemon
// has begun restarting.
const StatusStarting = "starting"

// StatusEvent is one named event with string arguments, as delivered by an
// event-stream session. Events are ephemeral; they are never persisted.
type StatusEvent struct {
	Name string
	Args []string
}

// Arg returns the i-th argument, or "" when absent.
func (e StatusEvent) Arg(i int) string {
	if i < 0 || i >= len(e.Args) {
		return ""
	}
	return e.Args[i]
}
