package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soladkov/beatkeeper/internal/domain/channel"
	"github.com/soladkov/beatkeeper/internal/domain/check"
	"github.com/soladkov/beatkeeper/internal/domain/notification"
)

const hipChatAPIRoot = "https://api.hipchat.com"

// tokenSkew is subtracted from the reported token lifetime so a token is
// refreshed before HipChat actually rejects it.
const tokenSkew = 300

// HipChat posts room notifications. The install-flow form holds OAuth
// client credentials instead of a long-lived token, so each delivery first
// makes sure the stored access token is still valid, refreshing it against
// the OAuth endpoint and persisting the new token through the channel repo
// when it is not.
type HipChat struct {
	channelID int64
	cfg       *channel.HipChatConfig
	deps      *Deps
	now       func() time.Time
}

func NewHipChat(ch *channel.Channel, d *Deps) (Transport, error) {
	cfg, err := ch.HipChatConfig()
	if err != nil {
		return nil, err
	}
	return &HipChat{channelID: ch.ID, cfg: cfg, deps: d, now: time.Now}, nil
}

func (h *HipChat) IsNoop(_ *check.Check) bool { return false }

func (h *HipChat) Notify(ctx context.Context, chk *check.Check, _ *notification.Notification) error {
	color := "green"
	if chk.Status == check.StatusDown {
		color = "red"
	}
	payload := map[string]any{"message": alertText(chk), "color": color}

	if h.cfg.WebhookURL != "" {
		return postJSON(ctx, h.deps.HTTP, h.cfg.WebhookURL, nil, payload)
	}

	if err := h.ensureToken(ctx); err != nil {
		return err
	}
	notifyURL := fmt.Sprintf("%s/v2/room/%d/notification", h.apiRoot(), h.cfg.RoomID)
	headers := map[string]string{"Authorization": "Bearer " + h.cfg.AccessToken}
	return postJSON(ctx, h.deps.HTTP, notifyURL, headers, payload)
}

func (h *HipChat) apiRoot() string {
	if h.cfg.APIRoot != "" {
		return h.cfg.APIRoot
	}
	return hipChatAPIRoot
}

// ensureToken refreshes an expired access token with the client-credentials
// grant and writes the updated document back to the channel. A persist
// failure only costs us a redundant refresh next time, so it is logged and
// the delivery proceeds.
func (h *HipChat) ensureToken(ctx context.Context) error {
	if h.cfg.TokenValid(h.now()) {
		return nil
	}

	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {"send_notification"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.apiRoot()+"/v2/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("invalid request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+basicAuth(h.cfg.OAuthID, h.cfg.OAuthSecret))

	resp, err := h.deps.HTTP.Do(req)
	if err != nil {
		return errors.New("token refresh failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token refresh received status code %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&tok); err != nil || tok.AccessToken == "" {
		return errors.New("token refresh returned malformed response")
	}

	h.cfg.AccessToken = tok.AccessToken
	h.cfg.ExpiresAt = h.now().Unix() + tok.ExpiresIn - tokenSkew

	val, err := h.cfg.Encode()
	if err != nil {
		return fmt.Errorf("invalid payload: %v", err)
	}
	if h.deps.Channels != nil {
		if err := h.deps.Channels.UpdateValue(ctx, h.channelID, val); err != nil {
			h.deps.Log.Warn("hipchat token persist failed",
				zap.Int64("channel_id", h.channelID), zap.Error(err))
		}
	}
	return nil
}
