package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/soladkov/beatkeeper/internal/domain/check"
)

// StatusSending is the reserved in-flight sentinel. The error field holds it
// from creation until the transport call returns, then is finalized exactly
// once: empty for success, a human-readable reason otherwise.
const StatusSending = "Sending"

// Notification records one alert-delivery attempt against one channel.
type Notification struct {
	ID          int64        `json:"id"`
	Code        uuid.UUID    `json:"code"`
	CheckID     int64        `json:"check_id"`
	ChannelID   int64        `json:"channel_id"`
	CheckStatus check.Status `json:"check_status"`
	Error       string       `json:"error"`
	CreatedAt   time.Time    `json:"created_at"`
}

// BounceURL builds the address bounce handlers report to for this attempt.
func (n *Notification) BounceURL(siteRoot string) string {
	return siteRoot + "/api/v1/notifications/" + n.Code.String() + "/bounce"
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used outside tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
