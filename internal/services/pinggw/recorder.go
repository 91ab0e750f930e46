package pinggw

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soladkov/beatkeeper/internal/domain/check"
	"github.com/soladkov/beatkeeper/internal/domain/event"
	"github.com/soladkov/beatkeeper/internal/domain/notification"
	"github.com/soladkov/beatkeeper/internal/domain/ping"
	"github.com/soladkov/beatkeeper/internal/repository/postgres"
)

// PingEvent is one inbound heartbeat as seen at the HTTP edge.
type PingEvent struct {
	RemoteAddr string
	Scheme     string
	Method     string
	UserAgent  string
	Body       string
	Fail       bool
}

// Recorder applies ping events to checks. The check mutation and the Ping
// insert share one transaction; the counter increments server-side so
// concurrent pings to the same check never lose updates, and the Ping row
// carries the post-increment value re-read from that same update.
type Recorder struct {
	Checks check.Repo
	Pings  ping.Repo
	Tx     postgres.Transactor
	Events event.FlipPublisher
	Clock  notification.Clock
	Log    *zap.Logger
}

// Record processes one ping. The returned check reflects the state after
// the ping was applied.
//
// A first ping always lifts a new/paused check into "up" without alerting.
// When a ping revives a down check (or a failure ping kills a healthy one),
// the new status is persisted and a flip event is published; publish
// failures are logged, never surfaced, so the pinging client still gets its
// acknowledgement.
func (r *Recorder) Record(ctx context.Context, code uuid.UUID, ev PingEvent) (*check.Check, error) {
	chk, err := r.Checks.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := r.Clock.Now().UTC()

	// Alert-due is computed against the ping being recorded, before the row
	// changes, so schedule errors surface without a half-applied update.
	probe := *chk
	probe.LastPing = &now
	probe.LastPingWasFail = ev.Fail
	alertAfter, err := probe.NextAlertAfter()
	if err != nil {
		return nil, fmt.Errorf("compute alert-due: %w", err)
	}

	var updated *check.Check
	if err := r.Tx.WithTx(ctx, func(txCtx context.Context) error {
		updated, err = r.Checks.ApplyPing(txCtx, chk.ID, check.PingUpdate{
			At:           now,
			Fail:         ev.Fail,
			Confirmation: strings.Contains(strings.ToLower(ev.Body), "confirm"),
			AlertAfter:   alertAfter,
		})
		if err != nil {
			return fmt.Errorf("apply ping: %w", err)
		}

		return r.Pings.Insert(txCtx, &ping.Ping{
			CheckID:    updated.ID,
			N:          updated.NPings,
			Fail:       ev.Fail,
			Scheme:     ev.Scheme,
			Method:     ev.Method,
			RemoteAddr: ev.RemoteAddr,
			UA:         ping.Truncate(ev.UserAgent, ping.MaxUALen),
			Body:       ping.Truncate(ev.Body, ping.MaxBodyLen),
		})
	}); err != nil {
		return nil, err
	}

	r.flipIfNeeded(ctx, chk.Status, updated, now)
	return updated, nil
}

// flipIfNeeded handles the transitions a ping itself can cause: a failure
// ping taking a healthy check down, or a good ping reviving a down one.
// new/paused checks were already lifted to "up" inside ApplyPing and never
// alert on their first ping.
func (r *Recorder) flipIfNeeded(ctx context.Context, prev check.Status, chk *check.Check, now time.Time) {
	if prev != check.StatusUp && prev != check.StatusGrace && prev != check.StatusDown {
		return
	}

	derived, err := chk.CurrentStatus(now)
	if err != nil {
		r.Log.Warn("status after ping", zap.Int64("check_id", chk.ID), zap.Error(err))
		return
	}
	if derived == chk.Status || !derived.Alertable() {
		return
	}

	ok, err := r.Checks.UpdateStatus(ctx, chk.ID, chk.Status, derived)
	if err != nil {
		r.Log.Error("update status after ping", zap.Int64("check_id", chk.ID), zap.Error(err))
		return
	}
	if !ok {
		// Lost the race to the sweeper or another ping; whoever won
		// published the flip.
		return
	}

	flip := event.Flip{CheckID: chk.ID, OldStatus: chk.Status, NewStatus: derived, At: now}
	if err := r.Events.PublishFlip(ctx, flip); err != nil {
		r.Log.Error("publish flip", zap.Int64("check_id", chk.ID), zap.Error(err))
		return
	}
	chk.Status = derived
}
