package event

import (
	"context"
	"time"

	"github.com/soladkov/beatkeeper/internal/domain/check"
)

// Flip is published whenever a check's persisted status changes to an
// alertable value. alertd consumes these and fans out notifications.
type Flip struct {
	CheckID   int64        `json:"check_id"`
	OldStatus check.Status `json:"old_status"`
	NewStatus check.Status `json:"new_status"`
	At        time.Time    `json:"at"`
}

type FlipPublisher interface {
	PublishFlip(ctx context.Context, f Flip) error
}
