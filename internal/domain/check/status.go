package check

import "time"

// CurrentStatus derives the liveness status of the check at the given time.
//
// Stored "new" and "paused" pass through untouched: ping history is
// irrelevant until the first ping arrives or the check is resumed. A failure
// ping bypasses grace entirely.
func (c *Check) CurrentStatus(now time.Time) (Status, error) {
	if c.Status == StatusNew || c.Status == StatusPaused {
		return c.Status, nil
	}

	if c.LastPingWasFail {
		return StatusDown, nil
	}

	graceStart, err := c.GraceStart()
	if err != nil {
		return "", err
	}
	graceEnd := graceStart.Add(c.Grace)

	switch {
	case !now.Before(graceEnd):
		return StatusDown, nil
	case !now.Before(graceStart):
		return StatusGrace, nil
	default:
		return StatusUp, nil
	}
}

// NextAlertAfter returns the moment the check becomes due for sweep
// attention. Failure pings alert immediately, without waiting out grace.
func (c *Check) NextAlertAfter() (time.Time, error) {
	if c.LastPing != nil && c.LastPingWasFail {
		return *c.LastPing, nil
	}

	graceStart, err := c.GraceStart()
	if err != nil {
		return time.Time{}, err
	}
	return graceStart.Add(c.Grace), nil
}
