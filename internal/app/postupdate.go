package app

import (
	"context"
	"fmt"

	"github.com/patchwatch/patchwatch/internal/ports"
)

// runPostUpdate drives the second command sequence once the remote restart
// has been observed: settle, kill, settle, reinstall, settle longer, start,
// notify. A failed kill or reinstall aborts the remaining signals but the
// notification still fires and the cycle still resolves. A failed start is
// logged and does not abort notification.
//
// Triggered exactly once per cycle, by the "starting" status event.
func (o *Orchestrator) runPostUpdate(ctx context.Context, cycle *updateCycle) {
	defer func() {
		if s := cycle.currentSession(); s != nil {
			s.Close()
		}
	}()

	o.logger.Info("target restart observed, finalizing update")

	aborted := false

	if err := sleep(ctx, o.killDelay); err != nil {
		cycle.result.Resolve(false)
		return
	}
	if err := o.control.LifecycleSignal(ctx, ports.SignalKill); err != nil {
		o.logger.Error("kill signal failed", ports.Err(err))
		aborted = true
	}

	if !aborted {
		if err := sleep(ctx, o.reinstallDelay); err != nil {
			cycle.result.Resolve(false)
			return
		}
		if err := o.control.Reinstall(ctx); err != nil {
			o.logger.Error("reinstall failed", ports.Err(err))
			aborted = true
		}
	}

	if !aborted {
		if err := sleep(ctx, o.startDelay); err != nil {
			cycle.result.Resolve(false)
			return
		}
		if err := o.control.LifecycleSignal(ctx, ports.SignalStart); err != nil {
			o.logger.Error("start signal failed", ports.Err(err))
		}
	}

	o.notifier.Notify(ctx, o.completionMessage(cycle, aborted))
	cycle.result.Resolve(!aborted)
}

func (o *Orchestrator) completionMessage(cycle *updateCycle, aborted bool) string {
	if aborted {
		return fmt.Sprintf("%s: update to build %s did not finish cleanly, manual check required",
			o.target.Name, cycle.build.ID)
	}
	return fmt.Sprintf("%s updated to build %s", o.target.Name, cycle.build.ID)
}
