package sweeper

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/soladkov/beatkeeper/internal/domain/check"
	"github.com/soladkov/beatkeeper/internal/domain/event"
	"github.com/soladkov/beatkeeper/internal/domain/notification"
)

type Usecase struct {
	Checks check.Repo
	Events event.FlipPublisher
	Clock  notification.Clock
	Log    *zap.Logger
}

func NewUC(checks check.Repo, events event.FlipPublisher, clock notification.Clock, log *zap.Logger) *Usecase {
	return &Usecase{Checks: checks, Events: events, Clock: clock, Log: log}
}

// Tick fetches checks whose alert_after has passed and moves their stored
// status toward the derived one. A broken schedule on one check never stops
// the batch; the compare-and-set makes concurrent sweepers (and a racing
// ping) converge on exactly one published flip per transition.
func (u *Usecase) Tick(ctx context.Context, limit int) (int, int, int, error) {
	if limit <= 0 {
		limit = 100
	}

	tr := otel.Tracer("sweeper.uc")
	ctxTick, span := tr.Start(ctx, "sweeper.tick",
		trace.WithAttributes(attribute.Int("batch.limit", limit)),
	)
	defer span.End()

	now := u.Clock.Now().UTC()

	due, err := u.Checks.FetchDue(ctxTick, now, limit)
	if err != nil {
		span.RecordError(err)
		return 0, 0, 1, fmt.Errorf("fetch due: %w", err)
	}
	if len(due) == 0 {
		span.SetAttributes(attribute.Int("batch.fetched", 0))
		return 0, 0, 0, nil
	}

	span.SetAttributes(attribute.Int("batch.fetched", len(due)))

	flipped, errs := 0, 0
	for _, c := range due {
		_, sp := tr.Start(ctxTick, "sweeper.transition",
			trace.WithAttributes(attribute.Int64("check.id", c.ID)),
		)

		derived, derr := c.CurrentStatus(now)
		if derr != nil {
			errs++
			sp.RecordError(derr)
			sp.End()
			u.Log.Warn("derive status", zap.Int64("check_id", c.ID), zap.Error(derr))
			continue
		}
		if derived == c.Status {
			sp.SetAttributes(attribute.String("transition.status", "unchanged"))
			sp.End()
			continue
		}

		won, uerr := u.Checks.UpdateStatus(ctxTick, c.ID, c.Status, derived)
		if uerr != nil {
			errs++
			sp.RecordError(uerr)
			sp.End()
			u.Log.Warn("update status", zap.Int64("check_id", c.ID), zap.Error(uerr))
			continue
		}
		if !won {
			sp.SetAttributes(attribute.String("transition.status", "lost_race"))
			sp.End()
			continue
		}

		if derived.Alertable() {
			flip := event.Flip{CheckID: c.ID, OldStatus: c.Status, NewStatus: derived, At: now}
			if perr := u.Events.PublishFlip(ctxTick, flip); perr != nil {
				errs++
				sp.RecordError(perr)
				sp.End()
				u.Log.Error("publish flip", zap.Int64("check_id", c.ID), zap.Error(perr))
				continue
			}
		}

		flipped++
		sp.SetAttributes(
			attribute.String("transition.status", "ok"),
			attribute.String("status.old", string(c.Status)),
			attribute.String("status.new", string(derived)),
		)
		sp.End()
	}

	span.SetAttributes(
		attribute.Int("batch.flipped", flipped),
		attribute.Int("batch.errors", errs),
	)
	return len(due), flipped, errs, nil
}
