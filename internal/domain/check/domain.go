package check

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSimple Kind = "simple"
	KindCron   Kind = "cron"
)

type Status string

const (
	StatusNew    Status = "new"
	StatusPaused Status = "paused"
	StatusUp     Status = "up"
	StatusGrace  Status = "grace"
	StatusDown   Status = "down"
)

const (
	DefaultTimeout = 24 * time.Hour
	DefaultGrace   = time.Hour
)

// Check is one monitored job. Its code is the public handle used in ping
// URLs; every other identifier stays internal.
type Check struct {
	ID     int64     `json:"id"`
	Code   uuid.UUID `json:"code"`
	UserID *int64    `json:"user_id"`
	Name   string    `json:"name"`
	Tags   string    `json:"tags"`
	Desc   string    `json:"desc"`

	Kind     Kind          `json:"kind"`
	Timeout  time.Duration `json:"timeout"`
	Grace    time.Duration `json:"grace"`
	Schedule string        `json:"schedule"`
	TZ       string        `json:"tz"`

	NPings              int        `json:"n_pings"`
	LastPing            *time.Time `json:"last_ping"`
	LastPingWasFail     bool       `json:"last_ping_was_fail"`
	HasConfirmationLink bool       `json:"has_confirmation_link"`
	AlertAfter          *time.Time `json:"alert_after"`
	Status              Status     `json:"status"`

	CreatedAt time.Time `json:"created_at"`
}

func (c *Check) NameThenCode() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Code.String()
}

// PingURL builds the public heartbeat URL for this check.
func (c *Check) PingURL(pingEndpoint string) string {
	return pingEndpoint + c.Code.String()
}

// Alertable reports whether a status transition into s fans out alerts.
// Grace entries persist silently.
func (s Status) Alertable() bool {
	return s == StatusUp || s == StatusDown
}
