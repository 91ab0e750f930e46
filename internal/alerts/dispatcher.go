package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/soladkov/beatkeeper/internal/domain/channel"
	"github.com/soladkov/beatkeeper/internal/domain/check"
	"github.com/soladkov/beatkeeper/internal/domain/notification"
)

// ErrUnexpectedStatus marks a dispatch attempt on a check that is not in an
// alertable state. That is a logic defect in the caller, so it fails fast
// instead of being folded into per-channel errors.
var ErrUnexpectedStatus = errors.New("unexpected check status for alert dispatch")

type ChannelError struct {
	Channel *channel.Channel
	Message string
}

// Dispatcher fans one status transition out to every channel attached to the
// check. Channels fail independently: a timeout, a bad config or even a
// panicking transport never blocks the remaining channels.
type Dispatcher struct {
	registry  *Registry
	deps      *Deps
	channels  channel.Repo
	notifs    notification.Repo
	perNotify time.Duration
	log       *zap.Logger
}

func NewDispatcher(
	registry *Registry,
	deps *Deps,
	channels channel.Repo,
	notifs notification.Repo,
	perNotify time.Duration,
	log *zap.Logger,
) *Dispatcher {
	if perNotify <= 0 {
		perNotify = 10 * time.Second
	}
	return &Dispatcher{
		registry:  registry,
		deps:      deps,
		channels:  channels,
		notifs:    notifs,
		perNotify: perNotify,
		log:       log.With(zap.String("component", "alerts.dispatcher")),
	}
}

// SendAlert notifies every channel attached to the check and returns the
// channels whose delivery failed, paired with the failure text. No-op
// channels leave no Notification record and count as neither success nor
// failure.
func (d *Dispatcher) SendAlert(ctx context.Context, chk *check.Check) ([]ChannelError, error) {
	if !chk.Status.Alertable() {
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedStatus, chk.Status)
	}

	chans, err := d.channels.ListByCheck(ctx, chk.ID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	var failed []ChannelError
	for _, ch := range chans {
		tr, err := d.registry.Resolve(ch, d.deps)
		if errors.Is(err, ErrUnsupportedKind) {
			return failed, err
		}

		if err != nil {
			// Malformed configuration: record the attempt with the parse
			// error so the owner can see why nothing was delivered.
			msg := err.Error()
			d.record(ctx, chk, ch, msg)
			failed = append(failed, ChannelError{Channel: ch, Message: msg})
			continue
		}

		if tr.IsNoop(chk) {
			continue
		}

		n := &notification.Notification{
			CheckID:     chk.ID,
			ChannelID:   ch.ID,
			CheckStatus: chk.Status,
		}
		if err := d.notifs.Create(ctx, n); err != nil {
			d.log.Error("create notification", zap.Int64("channel_id", ch.ID), zap.Error(err))
			failed = append(failed, ChannelError{Channel: ch, Message: "could not record notification"})
			continue
		}

		msg := d.notify(ctx, tr, chk, n)
		if err := d.notifs.Finalize(ctx, n.ID, msg); err != nil {
			d.log.Error("finalize notification", zap.Int64("notification_id", n.ID), zap.Error(err))
		}
		if msg != "" {
			failed = append(failed, ChannelError{Channel: ch, Message: msg})
		}
	}
	return failed, nil
}

// notify runs the transport under a bounded timeout and converts panics into
// delivery errors so one misbehaving transport cannot take out the fan-out.
func (d *Dispatcher) notify(ctx context.Context, tr Transport, chk *check.Check, n *notification.Notification) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("transport panic", zap.Int64("notification_id", n.ID), zap.Any("panic", r))
			msg = fmt.Sprintf("internal error: %v", r)
		}
	}()

	nctx, cancel := context.WithTimeout(ctx, d.perNotify)
	defer cancel()

	if err := tr.Notify(nctx, chk, n); err != nil {
		return err.Error()
	}
	return ""
}

// record writes an already-failed attempt in one go: created with the
// sentinel, finalized with the error.
func (d *Dispatcher) record(ctx context.Context, chk *check.Check, ch *channel.Channel, msg string) {
	n := &notification.Notification{
		CheckID:     chk.ID,
		ChannelID:   ch.ID,
		CheckStatus: chk.Status,
	}
	if err := d.notifs.Create(ctx, n); err != nil {
		d.log.Error("create notification", zap.Int64("channel_id", ch.ID), zap.Error(err))
		return
	}
	if err := d.notifs.Finalize(ctx, n.ID, msg); err != nil {
		d.log.Error("finalize notification", zap.Int64("notification_id", n.ID), zap.Error(err))
	}
}
