package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/patchwatch/patchwatch/internal/domain"
	"github.com/patchwatch/patchwatch/internal/ports"
)

// ShutdownTimeout is the maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// State represents the lifecycle state of the supervisor.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// Supervisor runs one orchestrator per target. Targets are fully isolated:
// one target failing validation or crashing never affects the others.
type Supervisor struct {
	mu            sync.RWMutex
	state         State
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	logger        ports.Logger
	orchestrators []*Orchestrator
}

// NewSupervisor creates a supervisor over the given orchestrators.
func NewSupervisor(logger ports.Logger, orchestrators []*Orchestrator) *Supervisor {
	return &Supervisor{
		state:         StateStopped,
		logger:        logger,
		orchestrators: orchestrators,
	}
}

// State returns the current supervisor state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Start launches every target's polling loop. Returns ErrAlreadyRunning if
// the supervisor is not stopped.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateStopped {
		s.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	s.state = StateStarting

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, o := range s.orchestrators {
		o := o
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := o.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("orchestrator exited",
					ports.String("target", o.Target().Name),
					ports.Err(err),
				)
			}
		}()
	}

	s.state = StateRunning
	s.mu.Unlock()

	s.logger.Info("supervisor started", ports.Int("targets", len(s.orchestrators)))
	return nil
}

// Stop triggers graceful shutdown and waits briefly for in-flight work.
// Calling Stop multiple times, or after the loops have already exited, is a
// no-op.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopping
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, o := range s.orchestrators {
		o.Stop()
	}

	err := s.waitWithTimeout(ShutdownTimeout)

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	s.logger.Info("supervisor stopped")
	return err
}

// waitWithTimeout waits for all orchestrators to finish with a timeout.
// Returns ErrShutdownTimeout if the timeout expires.
func (s *Supervisor) waitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		s.logger.Warn("shutdown timeout, forcing exit",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
