package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patchwatch/patchwatch/internal/domain"
	"github.com/patchwatch/patchwatch/internal/ports"
)

// Default timing for the orchestrator loop and cycle driver.
const (
	// DefaultBusyRecheck is how long the polling loop waits before
	// re-checking while an update cycle is in flight.
	DefaultBusyRecheck = 30 * time.Second

	// DefaultUpdateTimeout is the ceiling for one update cycle. A cycle
	// that has not resolved by then is abandoned as failed.
	DefaultUpdateTimeout = 15 * time.Minute
)

// Default settle delays for the post-update sequence.
const (
	DefaultKillDelay      = 10 * time.Second
	DefaultReinstallDelay = 10 * time.Second
	DefaultStartDelay     = 60 * time.Second
)

// Orchestrator supervises one target: it polls for a version mismatch and,
// when one appears, drives a full update cycle to resolution. Each target's
// orchestrator is fully independent; no state is shared across targets.
type Orchestrator struct {
	target   domain.TargetConfig
	versions ports.VersionSource
	control  ports.ControlClient
	dialer   ports.SessionDialer
	notifier ports.Notifier
	logger   ports.Logger

	// updating is the busy flag. It is set only by the polling loop before
	// a cycle starts and cleared only by the cycle's cleanup; the event
	// handlers never touch it.
	updating atomic.Bool

	busyRecheck   time.Duration
	updateTimeout time.Duration

	killDelay      time.Duration
	reinstallDelay time.Duration
	startDelay     time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewOrchestrator creates an orchestrator for one target.
func NewOrchestrator(
	target domain.TargetConfig,
	versions ports.VersionSource,
	control ports.ControlClient,
	dialer ports.SessionDialer,
	notifier ports.Notifier,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		target:         target,
		versions:       versions,
		control:        control,
		dialer:         dialer,
		notifier:       notifier,
		logger:         logger,
		busyRecheck:    DefaultBusyRecheck,
		updateTimeout:  DefaultUpdateTimeout,
		killDelay:      DefaultKillDelay,
		reinstallDelay: DefaultReinstallDelay,
		startDelay:     DefaultStartDelay,
		stopCh:         make(chan struct{}),
	}
}

// Target returns the target configuration this orchestrator owns.
func (o *Orchestrator) Target() domain.TargetConfig {
	return o.target
}

// Updating reports whether an update cycle is currently in flight.
func (o *Orchestrator) Updating() bool {
	return o.updating.Load()
}

// Run executes the polling loop until ctx is canceled or Stop is called.
// An invalid target configuration is fatal for this target only: Run logs
// it and returns without entering the loop.
//
// Within the loop, every failure is logged and retried on the next interval;
// only cancellation exits.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.target.Validate(); err != nil {
		o.logger.Error("invalid target configuration", ports.Err(err))
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-o.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Any in-flight cycle is abandoned on exit; its blocking operations all
	// take ctx, so cleanup is prompt once the context is canceled.
	defer o.wg.Wait()

	o.logger.Info("watching target",
		ports.String("target", o.target.Name),
		ports.Duration("interval", o.target.PollInterval),
	)

	for {
		if o.updating.Load() {
			if err := sleep(ctx, o.busyRecheck); err != nil {
				return err
			}
			continue
		}

		if err := o.checkOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			o.logger.Error("version check failed", ports.Err(err))
		}

		if err := sleep(ctx, o.target.PollInterval); err != nil {
			return err
		}
	}
}

// Stop triggers graceful cleanup. It is safe to call multiple times and
// after Run has already exited.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopCh)
	})
}

// checkOnce performs one poll iteration: compare versions and, on mismatch,
// start an update cycle in the background.
func (o *Orchestrator) checkOnce(ctx context.Context) error {
	latest, err := o.versions.LatestBuild(ctx)
	if err != nil {
		return err
	}
	running, err := o.versions.RunningBuild(ctx)
	if err != nil {
		return err
	}

	if latest.Matches(running) {
		o.logger.Debug("target is up to date", ports.String("build", running))
		return nil
	}

	o.logger.Info("update available",
		ports.String("running", running),
		ports.String("latest", latest.ID),
	)

	o.updating.Store(true)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runCycle(ctx)
	}()
	return nil
}

// sleep waits for d or until ctx is canceled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
