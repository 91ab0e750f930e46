package alertd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/soladkov/beatkeeper/internal/alerts"
	"github.com/soladkov/beatkeeper/internal/domain/check"
	"github.com/soladkov/beatkeeper/internal/domain/event"
	kafkax "github.com/soladkov/beatkeeper/internal/repository/kafka"
)

type Runner struct {
	log    *zap.Logger
	cons   *kafkax.Consumer
	checks check.Repo
	disp   *alerts.Dispatcher

	mConsumed prometheus.Counter
	mAlerted  prometheus.Counter
	mChanErr  prometheus.Counter
	mErrors   prometheus.Counter
}

func NewRunner(log *zap.Logger, cons *kafkax.Consumer, checks check.Repo, disp *alerts.Dispatcher) *Runner {
	return &Runner{
		log:    log,
		cons:   cons,
		checks: checks,
		disp:   disp,
		mConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alertd_flips_consumed_total",
			Help: "Flip events consumed",
		}),
		mAlerted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alertd_alerts_sent_total",
			Help: "Flips fanned out to channels",
		}),
		mChanErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alertd_channel_errors_total",
			Help: "Per-channel delivery failures",
		}),
		mErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alertd_errors_total",
			Help: "Errors",
		}),
	}
}

func (r *Runner) Run(ctx context.Context) error {
	handler := kafkax.JSONHandler(func(ctx context.Context, _ []byte, ev *event.Flip) error {
		r.mConsumed.Inc()
		if ev.CheckID <= 0 {
			r.log.Warn("invalid flip: bad check_id", zap.Int64("check_id", ev.CheckID))
			return nil
		}
		return r.handleFlip(ctx, ev)
	})

	if err := r.cons.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		r.mErrors.Inc()
		r.log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return ctx.Err()
}

func (r *Runner) handleFlip(ctx context.Context, ev *event.Flip) error {
	chk, err := r.checks.GetByID(ctx, ev.CheckID)
	if err != nil {
		r.mErrors.Inc()
		return fmt.Errorf("get check: %w", err)
	}

	// The event may be stale: another transition can land between publish
	// and consume. Alert on the check's current state, and only when that
	// state still warrants it.
	if chk.Status != ev.NewStatus {
		r.log.Info("flip superseded, skipping",
			zap.Int64("check_id", chk.ID),
			zap.String("event_status", string(ev.NewStatus)),
			zap.String("current_status", string(chk.Status)))
		return nil
	}
	if !chk.Status.Alertable() {
		return nil
	}

	chanErrs, err := r.disp.SendAlert(ctx, chk)
	if err != nil {
		r.mErrors.Inc()
		return fmt.Errorf("send alert: %w", err)
	}
	for _, ce := range chanErrs {
		r.mChanErr.Inc()
		r.log.Warn("channel delivery failed",
			zap.Int64("check_id", chk.ID),
			zap.String("channel_kind", string(ce.Channel.Kind)),
			zap.Stringer("channel_code", ce.Channel.Code),
			zap.String("error", ce.Message))
	}
	r.mAlerted.Inc()

	return nil
}
