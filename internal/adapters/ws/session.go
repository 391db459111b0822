// Package ws implements the event-stream session port over a websocket
// connection. Reconnection and its backoff live here, below the port
// boundary; the application core only sees the synthetic "connected" event
// emitted after every successful dial.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/patchwatch/patchwatch/internal/domain"
	"github.com/patchwatch/patchwatch/internal/ports"
)

// Dialer opens websocket event-stream sessions.
type Dialer struct {
	// HandshakeTimeout bounds the websocket handshake. Zero means the
	// gorilla default.
	HandshakeTimeout time.Duration

	// BackoffInitial and BackoffMax tune the reconnect backoff.
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	logger ports.Logger
}

// NewDialer creates a dialer with default reconnect backoff.
func NewDialer(logger ports.Logger) *Dialer {
	return &Dialer{
		HandshakeTimeout: 10 * time.Second,
		BackoffInitial:   DefaultBackoffInitial,
		BackoffMax:       DefaultBackoffMax,
		logger:           logger,
	}
}

// Dial connects to the event-stream endpoint. The initial connection failure
// is returned to the caller; once established, the session redials on its
// own until it is closed or ctx is canceled.
func (d *Dialer) Dial(ctx context.Context, url string) (ports.EventSession, error) {
	wsd := &websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}

	conn, resp, err := wsd.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial event stream: %w", err)
	}

	s := &Session{
		url:    url,
		dialer: wsd,
		logger: d.logger,
		events: make(chan domain.StatusEvent),
		out:    make(chan []byte),
		done:   make(chan struct{}),
		bo:     newBackoff(d.BackoffInitial, d.BackoffMax),
	}
	go s.run(ctx, conn)
	return s, nil
}

// Session is one live event-stream connection. It implements
// ports.EventSession.
type Session struct {
	url    string
	dialer *websocket.Dialer
	logger ports.Logger

	events chan domain.StatusEvent
	out    chan []byte
	done   chan struct{}
	bo     *backoff

	closeOnce sync.Once
}

// Events returns the inbound event sequence. Closed when the session closes.
func (s *Session) Events() <-chan domain.StatusEvent {
	return s.events
}

// Send queues a message for transmission on the current connection.
func (s *Session) Send(ctx context.Context, payload []byte) error {
	select {
	case s.out <- payload:
		return nil
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the connection and closes the event channel. Idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}

// run owns the connection: it announces each (re)connect, pumps messages
// until the connection drops, and redials with backoff until the session is
// closed or ctx is canceled.
func (s *Session) run(ctx context.Context, conn *websocket.Conn) {
	defer close(s.events)

	for {
		if !s.emit(domain.StatusEvent{Name: domain.EventConnected}) {
			conn.Close()
			return
		}

		err := s.pump(ctx, conn)
		conn.Close()

		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		default:
		}
		s.logger.Warn("event stream dropped, reconnecting", ports.Err(err))

		next, ok := s.redial(ctx)
		if !ok {
			return
		}
		conn = next
	}
}

// redial attempts to reconnect until success, session close, or ctx cancel.
func (s *Session) redial(ctx context.Context) (*websocket.Conn, bool) {
	for {
		if err := s.bo.Sleep(ctx); err != nil {
			return nil, false
		}
		select {
		case <-s.done:
			return nil, false
		default:
		}

		conn, resp, err := s.dialer.DialContext(ctx, s.url, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err == nil {
			s.bo.Reset()
			return conn, true
		}
		s.logger.Warn("event stream reconnect failed", ports.Err(err))
	}
}

// pump runs a write pump and the read loop for one connection. Returns the
// read error that ended the connection.
func (s *Session) pump(ctx context.Context, conn *websocket.Conn) error {
	readerDone := make(chan struct{})
	defer close(readerDone)

	go func() {
		for {
			select {
			case <-readerDone:
				return
			case <-s.done:
				// Unblocks the reader.
				conn.Close()
				return
			case <-ctx.Done():
				conn.Close()
				return
			case payload := <-s.out:
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ev, err := parseEvent(data)
		if err != nil {
			s.logger.Warn("malformed event payload", ports.Err(err))
			continue
		}
		if !s.emit(ev) {
			return domain.ErrSessionClosed
		}
	}
}

// emit delivers an event to the consumer. Returns false once the session is
// closed.
func (s *Session) emit(ev domain.StatusEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// wireEvent is the on-the-wire form of a status event.
type wireEvent struct {
	Event string   `json:"event"`
	Args  []string `json:"args"`
}

func parseEvent(data []byte) (domain.StatusEvent, error) {
	var we wireEvent
	if err := json.Unmarshal(data, &we); err != nil {
		return domain.StatusEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if we.Event == "" {
		return domain.StatusEvent{}, fmt.Errorf("decode event: missing event name")
	}
	return domain.StatusEvent{Name: we.Event, Args: we.Args}, nil
}
