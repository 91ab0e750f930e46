package channel

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrBadConfig marks a channel value that does not parse into the typed
// configuration for its kind. Parsing happens at this boundary so malformed
// payloads are rejected before any delivery logic runs.
var ErrBadConfig = errors.New("malformed channel configuration")

type EmailConfig struct {
	To string
}

type WebhookConfig struct {
	URLDown  string            `json:"url_down"`
	URLUp    string            `json:"url_up"`
	PostData string            `json:"post_data"`
	Headers  map[string]string `json:"headers"`
}

type SlackConfig struct {
	WebhookURL string
	Team       string
	Channel    string
}

type DiscordConfig struct {
	WebhookURL string
}

type TelegramConfig struct {
	ChatID int64  `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

// HipChatConfig is stored as the JSON document the HipChat install flow
// produces. The access token HipChat issues is short-lived, so the document
// also carries the refreshed token and its expiry; Encode writes the updated
// document back into the channel value after a refresh.
type HipChatConfig struct {
	WebhookURL  string `json:"-"`
	OAuthID     string `json:"oauthId"`
	OAuthSecret string `json:"oauthSecret"`
	RoomID      int64  `json:"roomId"`
	APIRoot     string `json:"api_root,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
}

type PagerDutyConfig struct {
	ServiceKey string `json:"service_key"`
	Account    string `json:"account"`
}

type OpsGenieConfig struct {
	APIKey string
}

type VictorOpsConfig struct {
	PostURL string
}

type PushoverConfig struct {
	UserKey  string
	Priority int
}

type PushbulletConfig struct {
	AccessToken string
}

type SMSConfig struct {
	Number string `json:"value"`
	Label  string `json:"label"`
}

func (ch *Channel) EmailConfig() (*EmailConfig, error) {
	to := strings.TrimSpace(ch.Value)
	if to == "" || !strings.Contains(to, "@") {
		return nil, fmt.Errorf("%w: email address %q", ErrBadConfig, ch.Value)
	}
	return &EmailConfig{To: to}, nil
}

// WebhookConfig accepts both the JSON document form and the legacy
// newline-separated "url_down\nurl_up\npost_data" form.
func (ch *Channel) WebhookConfig() (*WebhookConfig, error) {
	if strings.HasPrefix(ch.Value, "{") {
		var cfg WebhookConfig
		if err := json.Unmarshal([]byte(ch.Value), &cfg); err != nil {
			return nil, fmt.Errorf("%w: webhook: %v", ErrBadConfig, err)
		}
		return &cfg, nil
	}

	parts := strings.Split(ch.Value, "\n")
	cfg := WebhookConfig{URLDown: parts[0]}
	if len(parts) > 1 {
		cfg.URLUp = parts[1]
	}
	if len(parts) > 2 {
		cfg.PostData = parts[2]
	}
	if cfg.URLDown == "" && cfg.URLUp == "" {
		return nil, fmt.Errorf("%w: webhook has no URLs", ErrBadConfig)
	}
	return &cfg, nil
}

func (ch *Channel) SlackConfig() (*SlackConfig, error) {
	if !strings.HasPrefix(ch.Value, "{") {
		if ch.Value == "" {
			return nil, fmt.Errorf("%w: empty slack webhook URL", ErrBadConfig)
		}
		return &SlackConfig{WebhookURL: ch.Value}, nil
	}

	var doc struct {
		TeamName        string `json:"team_name"`
		IncomingWebhook struct {
			URL     string `json:"url"`
			Channel string `json:"channel"`
		} `json:"incoming_webhook"`
	}
	if err := json.Unmarshal([]byte(ch.Value), &doc); err != nil {
		return nil, fmt.Errorf("%w: slack: %v", ErrBadConfig, err)
	}
	if doc.IncomingWebhook.URL == "" {
		return nil, fmt.Errorf("%w: slack doc has no webhook URL", ErrBadConfig)
	}
	return &SlackConfig{
		WebhookURL: doc.IncomingWebhook.URL,
		Team:       doc.TeamName,
		Channel:    doc.IncomingWebhook.Channel,
	}, nil
}

func (ch *Channel) DiscordConfig() (*DiscordConfig, error) {
	var doc struct {
		Webhook struct {
			URL string `json:"url"`
		} `json:"webhook"`
	}
	if err := json.Unmarshal([]byte(ch.Value), &doc); err != nil {
		return nil, fmt.Errorf("%w: discord: %v", ErrBadConfig, err)
	}
	if doc.Webhook.URL == "" {
		return nil, fmt.Errorf("%w: discord doc has no webhook URL", ErrBadConfig)
	}
	return &DiscordConfig{WebhookURL: doc.Webhook.URL}, nil
}

func (ch *Channel) TelegramConfig() (*TelegramConfig, error) {
	var cfg TelegramConfig
	if err := json.Unmarshal([]byte(ch.Value), &cfg); err != nil {
		return nil, fmt.Errorf("%w: telegram: %v", ErrBadConfig, err)
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("%w: telegram doc has no chat id", ErrBadConfig)
	}
	return &cfg, nil
}

// HipChatConfig accepts both the JSON install document and the legacy plain
// webhook URL form. Legacy URLs have no OAuth credentials and never refresh.
func (ch *Channel) HipChatConfig() (*HipChatConfig, error) {
	if !strings.HasPrefix(ch.Value, "{") {
		if ch.Value == "" {
			return nil, fmt.Errorf("%w: empty hipchat value", ErrBadConfig)
		}
		return &HipChatConfig{WebhookURL: ch.Value}, nil
	}
	var cfg HipChatConfig
	if err := json.Unmarshal([]byte(ch.Value), &cfg); err != nil {
		return nil, fmt.Errorf("%w: hipchat: %v", ErrBadConfig, err)
	}
	if cfg.RoomID == 0 || cfg.OAuthID == "" || cfg.OAuthSecret == "" {
		return nil, fmt.Errorf("%w: hipchat doc is missing room or OAuth credentials", ErrBadConfig)
	}
	return &cfg, nil
}

// TokenValid reports whether the stored access token can still be used at
// the given instant.
func (c *HipChatConfig) TokenValid(now time.Time) bool {
	return c.AccessToken != "" && now.Unix() < c.ExpiresAt
}

// Encode serializes the configuration back into the channel value form.
func (c *HipChatConfig) Encode() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (ch *Channel) PagerDutyConfig() (*PagerDutyConfig, error) {
	if !strings.HasPrefix(ch.Value, "{") {
		if ch.Value == "" {
			return nil, fmt.Errorf("%w: empty pagerduty service key", ErrBadConfig)
		}
		return &PagerDutyConfig{ServiceKey: ch.Value}, nil
	}
	var cfg PagerDutyConfig
	if err := json.Unmarshal([]byte(ch.Value), &cfg); err != nil {
		return nil, fmt.Errorf("%w: pagerduty: %v", ErrBadConfig, err)
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("%w: pagerduty doc has no service key", ErrBadConfig)
	}
	return &cfg, nil
}

func (ch *Channel) OpsGenieConfig() (*OpsGenieConfig, error) {
	if ch.Value == "" {
		return nil, fmt.Errorf("%w: empty opsgenie API key", ErrBadConfig)
	}
	return &OpsGenieConfig{APIKey: ch.Value}, nil
}

func (ch *Channel) VictorOpsConfig() (*VictorOpsConfig, error) {
	if ch.Value == "" {
		return nil, fmt.Errorf("%w: empty victorops post URL", ErrBadConfig)
	}
	return &VictorOpsConfig{PostURL: ch.Value}, nil
}

// PushoverConfig parses the stored "user_key|priority" pair.
func (ch *Channel) PushoverConfig() (*PushoverConfig, error) {
	key, prio, ok := strings.Cut(ch.Value, "|")
	if !ok || key == "" {
		return nil, fmt.Errorf("%w: pushover value %q", ErrBadConfig, ch.Value)
	}
	p, err := strconv.Atoi(prio)
	if err != nil || p < -2 || p > 2 {
		return nil, fmt.Errorf("%w: pushover priority %q", ErrBadConfig, prio)
	}
	return &PushoverConfig{UserKey: key, Priority: p}, nil
}

func (ch *Channel) PushbulletConfig() (*PushbulletConfig, error) {
	if ch.Value == "" {
		return nil, fmt.Errorf("%w: empty pushbullet token", ErrBadConfig)
	}
	return &PushbulletConfig{AccessToken: ch.Value}, nil
}

func (ch *Channel) SMSConfig() (*SMSConfig, error) {
	if !strings.HasPrefix(ch.Value, "{") {
		if ch.Value == "" {
			return nil, fmt.Errorf("%w: empty sms number", ErrBadConfig)
		}
		return &SMSConfig{Number: ch.Value}, nil
	}
	var cfg SMSConfig
	if err := json.Unmarshal([]byte(ch.Value), &cfg); err != nil {
		return nil, fmt.Errorf("%w: sms: %v", ErrBadConfig, err)
	}
	if cfg.Number == "" {
		return nil, fmt.Errorf("%w: sms doc has no number", ErrBadConfig)
	}
	return &cfg, nil
}
