package alerts

import (
	"context"
	"net/url"
	"strconv"

	"github.com/soladkov/beatkeeper/internal/domain/channel"
	"github.com/soladkov/beatkeeper/internal/domain/check"
	"github.com/soladkov/beatkeeper/internal/domain/notification"
)

// Pushover sends form-encoded messages with the channel's stored priority.
type Pushover struct {
	cfg  *channel.PushoverConfig
	deps *Deps
}

func NewPushover(ch *channel.Channel, d *Deps) (Transport, error) {
	cfg, err := ch.PushoverConfig()
	if err != nil {
		return nil, err
	}
	return &Pushover{cfg: cfg, deps: d}, nil
}

func (p *Pushover) IsNoop(_ *check.Check) bool { return false }

func (p *Pushover) Notify(ctx context.Context, chk *check.Check, _ *notification.Notification) error {
	form := url.Values{
		"token":    {p.deps.App.PushoverAPIToken},
		"user":     {p.cfg.UserKey},
		"priority": {strconv.Itoa(p.cfg.Priority)},
		"title":    {alertText(chk)},
		"message":  {alertText(chk) + "\n" + chk.PingURL(p.deps.App.PingEndpoint)},
	}
	// Emergency priority requires retry/expire parameters.
	if p.cfg.Priority == 2 {
		form.Set("retry", "300")
		form.Set("expire", "86400")
	}
	return postForm(ctx, p.deps.HTTP, "https://api.pushover.net/1/messages.json", nil, form)
}

// Pushbullet pushes a plain note to all of the user's devices.
type Pushbullet struct {
	cfg  *channel.PushbulletConfig
	deps *Deps
}

func NewPushbullet(ch *channel.Channel, d *Deps) (Transport, error) {
	cfg, err := ch.PushbulletConfig()
	if err != nil {
		return nil, err
	}
	return &Pushbullet{cfg: cfg, deps: d}, nil
}

func (p *Pushbullet) IsNoop(_ *check.Check) bool { return false }

func (p *Pushbullet) Notify(ctx context.Context, chk *check.Check, _ *notification.Notification) error {
	headers := map[string]string{"Access-Token": p.cfg.AccessToken}
	return postJSON(ctx, p.deps.HTTP, "https://api.pushbullet.com/v2/pushes", headers, map[string]any{
		"type":  "note",
		"title": "beatkeeper",
		"body":  alertText(chk),
	})
}

// SMS delivers through Twilio and only for "down" transitions; recoveries
// are not worth a text message.
type SMS struct {
	cfg  *channel.SMSConfig
	deps *Deps
}

func NewSMS(ch *channel.Channel, d *Deps) (Transport, error) {
	cfg, err := ch.SMSConfig()
	if err != nil {
		return nil, err
	}
	return &SMS{cfg: cfg, deps: d}, nil
}

func (s *SMS) IsNoop(chk *check.Check) bool {
	return chk.Status != check.StatusDown
}

func (s *SMS) Notify(ctx context.Context, chk *check.Check, _ *notification.Notification) error {
	app := s.deps.App
	endpoint := "https://api.twilio.com/2010-04-01/Accounts/" + app.TwilioAccountSID + "/Messages.json"
	form := url.Values{
		"From": {app.TwilioFrom},
		"To":   {s.cfg.Number},
		"Body": {alertText(chk)},
	}
	headers := map[string]string{
		"Authorization": "Basic " + basicAuth(app.TwilioAccountSID, app.TwilioAuthToken),
	}
	return postForm(ctx, s.deps.HTTP, endpoint, headers, form)
}
