package alerts

import (
	"context"
	"net/http"
	"strings"

	"github.com/soladkov/beatkeeper/internal/domain/channel"
	"github.com/soladkov/beatkeeper/internal/domain/check"
	"github.com/soladkov/beatkeeper/internal/domain/notification"
)

// Webhook hits a user-supplied URL pair: one for "down" transitions, one for
// "up". A missing URL for the current transition makes the send a no-op.
type Webhook struct {
	cfg  *channel.WebhookConfig
	deps *Deps
}

func NewWebhook(ch *channel.Channel, d *Deps) (Transport, error) {
	cfg, err := ch.WebhookConfig()
	if err != nil {
		return nil, err
	}
	return &Webhook{cfg: cfg, deps: d}, nil
}

func (w *Webhook) url(chk *check.Check) string {
	if chk.Status == check.StatusDown {
		return w.cfg.URLDown
	}
	return w.cfg.URLUp
}

func (w *Webhook) IsNoop(chk *check.Check) bool {
	return w.url(chk) == ""
}

func (w *Webhook) Notify(ctx context.Context, chk *check.Check, _ *notification.Notification) error {
	headers := map[string]string{"User-Agent": "beatkeeper/1.0"}
	for k, v := range w.cfg.Headers {
		headers[k] = v
	}

	if w.cfg.PostData != "" {
		return doRequest(ctx, w.deps.HTTP, http.MethodPost, w.url(chk), headers, strings.NewReader(w.cfg.PostData))
	}
	return doRequest(ctx, w.deps.HTTP, http.MethodGet, w.url(chk), headers, nil)
}
