package app

import (
	"context"
	"encoding/json"

	"github.com/patchwatch/patchwatch/internal/domain"
	"github.com/patchwatch/patchwatch/internal/ports"
)

// authMessage is the payload authenticating an event-stream session.
type authMessage struct {
	Action string `json:"action"`
	Token  string `json:"token"`
}

func authPayload(token string) []byte {
	b, _ := json.Marshal(authMessage{Action: "authenticate", Token: token})
	return b
}

// consumeEvents handles the inbound event stream for one cycle. It runs
// concurrently with the driver's resolution wait; the two communicate only
// through the cycle's completion signal. Events are handled in order, so an
// authentication sent for a "connected" event always precedes the handling
// of later events from the same connection.
func (o *Orchestrator) consumeEvents(ctx context.Context, cycle *updateCycle) {
	for ev := range cycle.currentSession().Events() {
		o.handleEvent(ctx, cycle, ev)
	}
}

func (o *Orchestrator) handleEvent(ctx context.Context, cycle *updateCycle, ev domain.StatusEvent) {
	switch ev.Name {
	case domain.EventConnected:
		o.authenticate(ctx, cycle)

	case domain.EventAuthSuccess:
		o.logger.Info("event stream authenticated")

	case domain.EventStatus:
		status := ev.Arg(0)
		if status == domain.StatusStarting && o.updating.Load() {
			cycle.startedPost.Do(func() {
				o.wg.Add(1)
				go func() {
					defer o.wg.Done()
					o.runPostUpdate(ctx, cycle)
				}()
			})
			return
		}
		o.logger.Info("target status", ports.String("status", status))

	case domain.EventTokenExpiring:
		o.refreshToken(ctx, cycle)

	case domain.EventTokenExpired:
		o.logger.Error("session token expired before refresh")
		cycle.fail()

	case domain.EventError, domain.EventDaemonError:
		o.logger.Error("target reported error",
			ports.String("event", ev.Name),
			ports.String("detail", ev.Arg(0)),
		)

	default:
		o.logger.Debug("unhandled event", ports.String("event", ev.Name))
	}
}

// authenticate sends the auth message with the cycle's current token. Runs
// after every connect and reconnect, and again after each token refresh.
func (o *Orchestrator) authenticate(ctx context.Context, cycle *updateCycle) {
	session := cycle.currentSession()
	if session == nil {
		return
	}
	if err := session.Send(ctx, authPayload(cycle.currentToken())); err != nil {
		o.logger.Error("event stream auth send failed", ports.Err(err))
		cycle.fail()
	}
}

// refreshToken asynchronously obtains a fresh credential and re-sends the
// auth message. At most one refresh is in flight; a superseding
// token-expiring event while one is pending is dropped. On failure the cycle
// resolves as failed and the session closes.
func (o *Orchestrator) refreshToken(ctx context.Context, cycle *updateCycle) {
	if !cycle.refreshing.CompareAndSwap(false, true) {
		return
	}
	o.logger.Info("session token expiring, refreshing")

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cycle.refreshing.Store(false)

		token, err := o.control.IssueCredential(ctx)
		if err != nil {
			o.logger.Error("token refresh failed", ports.Err(err))
			cycle.fail()
			return
		}

		// Update then send under the single-flight guard, so the token
		// read at send time is always the latest issued one.
		cycle.setToken(token)
		o.authenticate(ctx, cycle)
	}()
}
