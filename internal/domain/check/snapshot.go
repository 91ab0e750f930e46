package check

import (
	"sort"
	"strings"
	"time"
)

// Snapshot is the public projection of a check served by the read API.
// Timeout is present only for simple checks; Schedule and TZ only for cron
// ones. Timestamps are second-precision ISO 8601, null when never pinged.
type Snapshot struct {
	Name     string  `json:"name"`
	PingURL  string  `json:"ping_url"`
	Tags     string  `json:"tags"`
	Grace    int64   `json:"grace"`
	NPings   int     `json:"n_pings"`
	Status   Status  `json:"status"`
	Channels string  `json:"channels"`
	Timeout  *int64  `json:"timeout,omitempty"`
	Schedule string  `json:"schedule,omitempty"`
	TZ       string  `json:"tz,omitempty"`
	LastPing *string `json:"last_ping"`
	NextPing *string `json:"next_ping"`
}

func (c *Check) Snapshot(now time.Time, pingEndpoint string, channelCodes []string) (*Snapshot, error) {
	status, err := c.CurrentStatus(now)
	if err != nil {
		return nil, err
	}

	codes := append([]string(nil), channelCodes...)
	sort.Strings(codes)

	s := &Snapshot{
		Name:     c.Name,
		PingURL:  c.PingURL(pingEndpoint),
		Tags:     c.Tags,
		Grace:    int64(c.Grace / time.Second),
		NPings:   c.NPings,
		Status:   status,
		Channels: strings.Join(codes, ","),
	}

	switch c.Kind {
	case KindSimple:
		sec := int64(c.Timeout / time.Second)
		s.Timeout = &sec
	case KindCron:
		s.Schedule = c.Schedule
		s.TZ = c.TZ
	}

	if c.LastPing != nil {
		next, err := c.GraceStart()
		if err != nil {
			return nil, err
		}
		s.LastPing = isoString(*c.LastPing)
		s.NextPing = isoString(next)
	}
	return s, nil
}

func (c *Check) TagsList() []string {
	var out []string
	for _, t := range strings.Fields(c.Tags) {
		out = append(out, t)
	}
	return out
}

func isoString(t time.Time) *string {
	s := t.Truncate(time.Second).Format(time.RFC3339)
	return &s
}
