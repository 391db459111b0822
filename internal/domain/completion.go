package domain

import "sync"

// Completion is a one-shot result cell for an update cycle. Multiple
// concurrent paths (the event-stream handler, the post-update sequence, the
// driver's timeout wait) may all attempt to resolve the same cycle; the
// first writer wins and every later attempt is a no-op.
type Completion struct {
	once sync.Once
	done chan struct{}
	ok   bool
}

// NewCompletion returns an unresolved completion.
func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Resolve sets the result. Returns true if this call won the race, false if
// the completion was already resolved.
func (c *Completion) Resolve(ok bool) bool {
	won := false
	c.once.Do(func() {
		c.ok = ok
		won = true
		close(c.done)
	})
	return won
}

// Done returns a channel closed once the completion is resolved.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Value returns the resolved result. Only meaningful after Done is closed;
// returns false for an unresolved completion.
func (c *Completion) Value() bool {
	select {
	case <-c.done:
		return c.ok
	default:
		return false
	}
}
