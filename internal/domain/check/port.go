package check

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PingUpdate is the per-ping mutation applied to a check inside one
// transaction. The counter increment happens server-side; the repo returns
// the row as it looks after the update.
type PingUpdate struct {
	At           time.Time
	Fail         bool
	Confirmation bool
	AlertAfter   time.Time
}

type Repo interface {
	Create(ctx context.Context, c *Check) error
	GetByID(ctx context.Context, id int64) (*Check, error)
	GetByCode(ctx context.Context, code uuid.UUID) (*Check, error)
	ListByUser(ctx context.Context, userID int64) ([]*Check, error)
	Delete(ctx context.Context, id int64) error

	// ApplyPing atomically increments n_pings, records the ping state and
	// flips new/paused to up, returning the updated row.
	ApplyPing(ctx context.Context, id int64, u PingUpdate) (*Check, error)

	// UpdateStatus is a compare-and-set on the stored status. It reports
	// whether this caller won the transition.
	UpdateStatus(ctx context.Context, id int64, from, to Status) (bool, error)

	// FetchDue returns checks whose alert_after has passed and whose stored
	// status may still need to catch up with the derived one.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*Check, error)
}
