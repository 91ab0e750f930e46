package alerts

import (
	"context"
	"fmt"

	"github.com/soladkov/beatkeeper/internal/domain/channel"
	"github.com/soladkov/beatkeeper/internal/domain/check"
	"github.com/soladkov/beatkeeper/internal/domain/notification"
)

// Slack posts to an incoming-webhook URL, colored by transition direction.
type Slack struct {
	cfg  *channel.SlackConfig
	deps *Deps
}

func NewSlack(ch *channel.Channel, d *Deps) (Transport, error) {
	cfg, err := ch.SlackConfig()
	if err != nil {
		return nil, err
	}
	return &Slack{cfg: cfg, deps: d}, nil
}

func (s *Slack) IsNoop(_ *check.Check) bool { return false }

func (s *Slack) Notify(ctx context.Context, chk *check.Check, _ *notification.Notification) error {
	color := "good"
	if chk.Status == check.StatusDown {
		color = "danger"
	}
	payload := map[string]any{
		"text": alertText(chk),
		"attachments": []map[string]any{{
			"color":  color,
			"fields": checkFields(chk, s.deps.App),
		}},
	}
	return postJSON(ctx, s.deps.HTTP, s.cfg.WebhookURL, nil, payload)
}

// Discord reuses Slack-style webhooks via the /slack compatibility endpoint.
type Discord struct {
	cfg  *channel.DiscordConfig
	deps *Deps
}

func NewDiscord(ch *channel.Channel, d *Deps) (Transport, error) {
	cfg, err := ch.DiscordConfig()
	if err != nil {
		return nil, err
	}
	return &Discord{cfg: cfg, deps: d}, nil
}

func (dc *Discord) IsNoop(_ *check.Check) bool { return false }

func (dc *Discord) Notify(ctx context.Context, chk *check.Check, _ *notification.Notification) error {
	return postJSON(ctx, dc.deps.HTTP, dc.cfg.WebhookURL+"/slack", nil, map[string]any{
		"text": alertText(chk),
	})
}

// Telegram sends through the bot API; the bot token is injected app config,
// only the chat id comes from the channel.
type Telegram struct {
	cfg  *channel.TelegramConfig
	deps *Deps
}

func NewTelegram(ch *channel.Channel, d *Deps) (Transport, error) {
	cfg, err := ch.TelegramConfig()
	if err != nil {
		return nil, err
	}
	return &Telegram{cfg: cfg, deps: d}, nil
}

func (t *Telegram) IsNoop(_ *check.Check) bool { return false }

func (t *Telegram) Notify(ctx context.Context, chk *check.Check, _ *notification.Notification) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.deps.App.TelegramBotToken)
	return postJSON(ctx, t.deps.HTTP, url, nil, map[string]any{
		"chat_id": t.cfg.ChatID,
		"text":    alertText(chk),
	})
}

func checkFields(chk *check.Check, app AppConfig) []map[string]any {
	fields := []map[string]any{
		{"title": "Status", "value": string(chk.Status), "short": true},
	}
	if chk.LastPing != nil {
		fields = append(fields, map[string]any{
			"title": "Last ping", "value": chk.LastPing.UTC().Format("2006-01-02 15:04:05 MST"), "short": true,
		})
	}
	fields = append(fields, map[string]any{
		"title": "Ping URL", "value": chk.PingURL(app.PingEndpoint), "short": false,
	})
	return fields
}
