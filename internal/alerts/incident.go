package alerts

import (
	"context"

	"github.com/soladkov/beatkeeper/internal/domain/channel"
	"github.com/soladkov/beatkeeper/internal/domain/check"
	"github.com/soladkov/beatkeeper/internal/domain/notification"
)

// PagerDuty triggers an incident on "down" and resolves it on "up", keyed by
// the check code so both ends of a flap land on the same incident.
type PagerDuty struct {
	cfg  *channel.PagerDutyConfig
	deps *Deps
}

func NewPagerDuty(ch *channel.Channel, d *Deps) (Transport, error) {
	cfg, err := ch.PagerDutyConfig()
	if err != nil {
		return nil, err
	}
	return &PagerDuty{cfg: cfg, deps: d}, nil
}

func (p *PagerDuty) IsNoop(_ *check.Check) bool { return false }

func (p *PagerDuty) Notify(ctx context.Context, chk *check.Check, _ *notification.Notification) error {
	eventType := "trigger"
	if chk.Status == check.StatusUp {
		eventType = "resolve"
	}
	return postJSON(ctx, p.deps.HTTP, "https://events.pagerduty.com/generic/2010-04-15/create_event.json", nil, map[string]any{
		"service_key":  p.cfg.ServiceKey,
		"incident_key": chk.Code.String(),
		"event_type":   eventType,
		"description":  alertText(chk),
	})
}

// OpsGenie opens an alert on "down" and closes it on "up".
type OpsGenie struct {
	cfg  *channel.OpsGenieConfig
	deps *Deps
}

func NewOpsGenie(ch *channel.Channel, d *Deps) (Transport, error) {
	cfg, err := ch.OpsGenieConfig()
	if err != nil {
		return nil, err
	}
	return &OpsGenie{cfg: cfg, deps: d}, nil
}

func (o *OpsGenie) IsNoop(_ *check.Check) bool { return false }

func (o *OpsGenie) Notify(ctx context.Context, chk *check.Check, _ *notification.Notification) error {
	headers := map[string]string{"Authorization": "GenieKey " + o.cfg.APIKey}

	if chk.Status == check.StatusUp {
		url := "https://api.opsgenie.com/v2/alerts/" + chk.Code.String() + "/close?identifierType=alias"
		return postJSON(ctx, o.deps.HTTP, url, headers, map[string]any{})
	}
	return postJSON(ctx, o.deps.HTTP, "https://api.opsgenie.com/v2/alerts", headers, map[string]any{
		"message": alertText(chk),
		"alias":   chk.Code.String(),
	})
}

// VictorOps posts to the user-configured REST endpoint URL.
type VictorOps struct {
	cfg  *channel.VictorOpsConfig
	deps *Deps
}

func NewVictorOps(ch *channel.Channel, d *Deps) (Transport, error) {
	cfg, err := ch.VictorOpsConfig()
	if err != nil {
		return nil, err
	}
	return &VictorOps{cfg: cfg, deps: d}, nil
}

func (v *VictorOps) IsNoop(_ *check.Check) bool { return false }

func (v *VictorOps) Notify(ctx context.Context, chk *check.Check, _ *notification.Notification) error {
	messageType := "CRITICAL"
	if chk.Status == check.StatusUp {
		messageType = "RECOVERY"
	}
	return postJSON(ctx, v.deps.HTTP, v.cfg.PostURL, nil, map[string]any{
		"entity_id":           chk.Code.String(),
		"message_type":        messageType,
		"entity_display_name": alertText(chk),
		"monitoring_tool":     "beatkeeper",
	})
}
