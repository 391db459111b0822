package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/patchwatch/patchwatch/internal/domain"
	"github.com/patchwatch/patchwatch/internal/ports"
)

// updateCycle is one end-to-end attempt to apply an update. At most one
// exists per target at any time; it is created when a mismatch is confirmed
// and discarded when it resolves.
type updateCycle struct {
	build  domain.Build
	result *domain.Completion

	mu      sync.Mutex
	token   string
	session ports.EventSession

	// startedPost guards the post-update sequence: the "starting" status
	// triggers it exactly once per cycle.
	startedPost sync.Once

	// refreshing keeps at most one token refresh in flight.
	refreshing atomic.Bool
}

func newUpdateCycle(build domain.Build) *updateCycle {
	return &updateCycle{
		build:  build,
		result: domain.NewCompletion(),
	}
}

func (c *updateCycle) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *updateCycle) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *updateCycle) setSession(s ports.EventSession) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *updateCycle) currentSession() ports.EventSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// fail resolves the cycle as failed and closes its session, if any.
func (c *updateCycle) fail() {
	c.result.Resolve(false)
	if s := c.currentSession(); s != nil {
		s.Close()
	}
}

// runCycle drives one update cycle to resolution. The returned value is the
// cycle outcome (true for success or no-update-needed) and is only consumed
// by tests; operational reporting happens through the logger.
//
// Cleanup always runs: the session is closed, the busy flag cleared, and the
// cycle discarded on every exit path.
func (o *Orchestrator) runCycle(ctx context.Context) bool {
	latest, err := o.versions.LatestBuild(ctx)
	if err != nil {
		o.logger.Error("update failed: resolving latest build", ports.Err(err))
		o.updating.Store(false)
		return false
	}

	cycle := newUpdateCycle(latest)
	defer func() {
		cycle.fail()
		o.updating.Store(false)
	}()

	running, err := o.versions.RunningBuild(ctx)
	if err != nil {
		o.logger.Error("update failed: resolving running build", ports.Err(err))
		return false
	}
	if latest.Matches(running) {
		o.logger.Debug("target already on latest build", ports.String("build", running))
		cycle.result.Resolve(true)
		return true
	}

	token, err := o.control.IssueCredential(ctx)
	if err != nil {
		o.logger.Error("update failed: issuing credential", ports.Err(err))
		return false
	}
	cycle.setToken(token)

	if err := o.control.BeginUpdate(ctx, token); err != nil {
		o.logger.Error("update failed: begin-update rejected", ports.Err(err))
		return false
	}
	o.logger.Info("update started", ports.String("build", latest.ID))

	info, err := o.control.EventStreamInfo(ctx)
	if err != nil {
		o.logger.Error("update failed: requesting stream info", ports.Err(err))
		return false
	}
	cycle.setToken(info.Token)

	session, err := o.dialer.Dial(ctx, info.URL)
	if err != nil {
		o.logger.Error("update failed: connecting event stream", ports.Err(err))
		return false
	}
	cycle.setSession(session)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.consumeEvents(ctx, cycle)
	}()

	return o.awaitResolution(ctx, cycle)
}

// awaitResolution blocks until the cycle's completion signal is set, the
// ceiling timeout elapses, or ctx is canceled.
func (o *Orchestrator) awaitResolution(ctx context.Context, cycle *updateCycle) bool {
	timeout, cancel := context.WithTimeout(ctx, o.updateTimeout)
	defer cancel()

	select {
	case <-cycle.result.Done():
		if cycle.result.Value() {
			o.logger.Info("update complete", ports.String("build", cycle.build.ID))
			return true
		}
		o.logger.Error("update failed", ports.String("build", cycle.build.ID))
		return false
	case <-timeout.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			o.logger.Info("update abandoned: shutting down")
			return false
		}
		o.logger.Error("update failed: no completion within ceiling",
			ports.Duration("timeout", o.updateTimeout),
		)
		return false
	}
}
