package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/soladkov/beatkeeper/internal/domain/channel"
	"github.com/soladkov/beatkeeper/internal/domain/check"
	"github.com/soladkov/beatkeeper/internal/domain/notification"
)

// ErrUnsupportedKind is returned for a channel kind with no registered
// factory. That is a wiring defect, not a delivery failure, and callers
// should treat it as fatal.
var ErrUnsupportedKind = errors.New("unsupported channel kind")

// Transport delivers one alert over one channel kind.
//
// IsNoop lets a transport decline the current transition (no Notification is
// recorded for declined sends). Notify returns an error only describing the
// delivery outcome; ordinary provider failures must come back as errors, not
// panics.
type Transport interface {
	IsNoop(chk *check.Check) bool
	Notify(ctx context.Context, chk *check.Check, n *notification.Notification) error
}

// Factory builds a transport bound to one configured channel, parsing the
// channel's payload into its typed configuration. A parse failure is a
// recoverable per-channel error.
type Factory func(ch *channel.Channel, d *Deps) (Transport, error)

// Registry maps channel kinds to transport factories. New provider kinds
// register here instead of growing a central switch.
type Registry struct {
	factories map[channel.Kind]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[channel.Kind]Factory)}
}

func (r *Registry) Register(kind channel.Kind, f Factory) {
	r.factories[kind] = f
}

func (r *Registry) Resolve(ch *channel.Channel, d *Deps) (Transport, error) {
	f, ok := r.factories[ch.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, ch.Kind)
	}
	return f(ch, d)
}

// DefaultRegistry wires every built-in transport kind.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(channel.KindEmail, NewEmail)
	r.Register(channel.KindWebhook, NewWebhook)
	r.Register(channel.KindSlack, NewSlack)
	r.Register(channel.KindDiscord, NewDiscord)
	r.Register(channel.KindTelegram, NewTelegram)
	r.Register(channel.KindHipChat, NewHipChat)
	r.Register(channel.KindPagerDuty, NewPagerDuty)
	r.Register(channel.KindOpsGenie, NewOpsGenie)
	r.Register(channel.KindVictorOps, NewVictorOps)
	r.Register(channel.KindPushover, NewPushover)
	r.Register(channel.KindPushbullet, NewPushbullet)
	r.Register(channel.KindSMS, NewSMS)
	return r
}

// alertText is the one-line summary shared by the chat-style transports.
func alertText(chk *check.Check) string {
	return fmt.Sprintf("%s is %s", chk.NameThenCode(), strings.ToUpper(string(chk.Status)))
}
