package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/soladkov/beatkeeper/internal/domain/channel"
	"github.com/soladkov/beatkeeper/internal/domain/check"
)

type captureChannelRepo struct {
	channel.Repo
	updatedID    int64
	updatedValue string
	updates      int
}

func (c *captureChannelRepo) UpdateValue(ctx context.Context, id int64, value string) error {
	c.updatedID, c.updatedValue = id, value
	c.updates++
	return nil
}

// hipChatServer serves both the OAuth token endpoint and the room
// notification endpoint, recording what each receives.
func hipChatServer(t *testing.T) (*httptest.Server, *captureChannelRepo, *Deps, func() (tokenReqs int, auth, bearer, message string)) {
	t.Helper()

	var tokenReqs int
	var gotAuth, gotBearer, gotMessage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/oauth/token":
			tokenReqs++
			gotAuth = r.Header.Get("Authorization")
			b, _ := io.ReadAll(r.Body)
			require.Contains(t, string(b), "grant_type=client_credentials")
			fmt.Fprint(w, `{"access_token":"fresh-token","expires_in":3600}`)
		case "/v2/room/42/notification":
			gotBearer = r.Header.Get("Authorization")
			var doc struct {
				Message string `json:"message"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
			gotMessage = doc.Message
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)

	repo := &captureChannelRepo{}
	deps := &Deps{
		HTTP:     &http.Client{Timeout: 2 * time.Second},
		Channels: repo,
		Log:      zap.NewNop(),
	}
	return srv, repo, deps, func() (int, string, string, string) {
		return tokenReqs, gotAuth, gotBearer, gotMessage
	}
}

func hipChatChannel(apiRoot string, expiresAt int64) *channel.Channel {
	v := fmt.Sprintf(
		`{"oauthId":"cid","oauthSecret":"cs","roomId":42,"api_root":%q,"access_token":"stale-token","expires_at":%d}`,
		apiRoot, expiresAt,
	)
	return &channel.Channel{ID: 9, Kind: channel.KindHipChat, Value: v}
}

func TestHipChat_RefreshesExpiredTokenAndPersists(t *testing.T) {
	srv, repo, deps, got := hipChatServer(t)

	ch := hipChatChannel(srv.URL, time.Now().Add(-time.Minute).Unix())
	tr, err := NewHipChat(ch, deps)
	require.NoError(t, err)

	chk := &check.Check{ID: 7, Name: "backups", Status: check.StatusDown}
	require.NoError(t, tr.Notify(context.Background(), chk, nil))

	tokenReqs, auth, bearer, message := got()
	require.Equal(t, 1, tokenReqs)
	require.Equal(t, "Basic "+basicAuth("cid", "cs"), auth)
	require.Equal(t, "Bearer fresh-token", bearer)
	require.Contains(t, message, "backups is DOWN")

	require.Equal(t, 1, repo.updates, "refreshed token must be written back")
	require.Equal(t, int64(9), repo.updatedID)
	var persisted channel.HipChatConfig
	require.NoError(t, json.Unmarshal([]byte(repo.updatedValue), &persisted))
	require.Equal(t, "fresh-token", persisted.AccessToken)
	require.Greater(t, persisted.ExpiresAt, time.Now().Unix())
}

func TestHipChat_ValidTokenSkipsRefresh(t *testing.T) {
	srv, repo, deps, got := hipChatServer(t)

	ch := hipChatChannel(srv.URL, time.Now().Add(time.Hour).Unix())
	tr, err := NewHipChat(ch, deps)
	require.NoError(t, err)

	chk := &check.Check{ID: 7, Name: "backups", Status: check.StatusUp}
	require.NoError(t, tr.Notify(context.Background(), chk, nil))

	tokenReqs, _, bearer, _ := got()
	require.Zero(t, tokenReqs, "a live token must not be refreshed")
	require.Equal(t, "Bearer stale-token", bearer)
	require.Zero(t, repo.updates)
}

func TestHipChat_RefreshFailureBlocksDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	deps := &Deps{HTTP: &http.Client{Timeout: 2 * time.Second}, Log: zap.NewNop()}
	ch := hipChatChannel(srv.URL, 0)
	tr, err := NewHipChat(ch, deps)
	require.NoError(t, err)

	err = tr.Notify(context.Background(), &check.Check{Status: check.StatusDown}, nil)
	require.EqualError(t, err, "token refresh received status code 401")
}

func TestHipChat_LegacyURLPostsDirectly(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	deps := &Deps{HTTP: &http.Client{Timeout: 2 * time.Second}, Log: zap.NewNop()}
	ch := &channel.Channel{Kind: channel.KindHipChat, Value: srv.URL}
	tr, err := NewHipChat(ch, deps)
	require.NoError(t, err)

	require.NoError(t, tr.Notify(context.Background(), &check.Check{Name: "backups", Status: check.StatusDown}, nil))
	require.Contains(t, gotBody, `"color":"red"`)
	require.True(t, strings.Contains(gotBody, "backups is DOWN"))
}

func TestHipChat_RejectsIncompleteDoc(t *testing.T) {
	ch := &channel.Channel{Kind: channel.KindHipChat, Value: `{"roomId":42}`}
	_, err := NewHipChat(ch, &Deps{Log: zap.NewNop()})
	require.ErrorIs(t, err, channel.ErrBadConfig)
}
