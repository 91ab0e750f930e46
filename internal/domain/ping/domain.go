package ping

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxUALen   = 200
	MaxBodyLen = 10000
)

// Ping is the immutable record of one received heartbeat. N mirrors the
// owning check's counter at receipt time; per check it is strictly
// increasing and never reused.
type Ping struct {
	ID         int64     `json:"id"`
	CheckID    int64     `json:"check_id"`
	N          int       `json:"n"`
	Fail       bool      `json:"fail"`
	Scheme     string    `json:"scheme"`
	Method     string    `json:"method"`
	RemoteAddr string    `json:"remote_addr"`
	UA         string    `json:"ua"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// Truncate bounds s to max bytes while keeping it valid UTF-8: invalid
// sequences (binary ping bodies) are dropped and the cut never splits a
// rune. The columns these land in are Postgres TEXT, which rejects anything
// that is not well-formed UTF-8.
func Truncate(s string, max int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
