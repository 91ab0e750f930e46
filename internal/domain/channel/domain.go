package channel

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindEmail      Kind = "email"
	KindWebhook    Kind = "webhook"
	KindSlack      Kind = "slack"
	KindDiscord    Kind = "discord"
	KindTelegram   Kind = "telegram"
	KindHipChat    Kind = "hipchat"
	KindPagerDuty  Kind = "pd"
	KindOpsGenie   Kind = "opsgenie"
	KindVictorOps  Kind = "victorops"
	KindPushover   Kind = "po"
	KindPushbullet Kind = "pushbullet"
	KindSMS        Kind = "sms"
)

// Channel is one configured notification destination. Value holds the
// kind-specific configuration payload; parse it with the typed parsers in
// config.go before acting on it.
type Channel struct {
	ID            int64     `json:"id"`
	Code          uuid.UUID `json:"code"`
	UserID        int64     `json:"user_id"`
	Kind          Kind      `json:"kind"`
	Value         string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}
