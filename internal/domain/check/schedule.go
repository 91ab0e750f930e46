package check

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule marks a malformed cron expression or an unknown IANA
// zone on a cron check. Callers must surface it, not swallow it.
var ErrInvalidSchedule = errors.New("invalid schedule")

var errNeverPinged = errors.New("check has never been pinged")

// GraceStart returns when the grace period starts: the moment the next ping
// was expected after the last one.
//
// For simple checks that is last_ping + timeout. For cron checks the
// expression is evaluated on the wall clock of the configured zone, strictly
// after the last ping; daylight-saving shifts resolve the way the time
// package resolves them for that zone.
func (c *Check) GraceStart() (time.Time, error) {
	if c.LastPing == nil {
		return time.Time{}, errNeverPinged
	}

	if c.Kind == KindSimple {
		return c.LastPing.Add(c.Timeout), nil
	}

	sched, err := cron.ParseStandard(c.Schedule)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: parse %q: %v", ErrInvalidSchedule, c.Schedule, err)
	}
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: zone %q: %v", ErrInvalidSchedule, c.TZ, err)
	}

	next := sched.Next(c.LastPing.In(loc))
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q has no next occurrence", ErrInvalidSchedule, c.Schedule)
	}
	return next, nil
}
