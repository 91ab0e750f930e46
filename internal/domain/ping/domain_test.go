package ping

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestTruncate_PlainASCII(t *testing.T) {
	require.Equal(t, "abc", Truncate("abc", 10))
	require.Equal(t, strings.Repeat("a", MaxBodyLen), Truncate(strings.Repeat("a", MaxBodyLen+50), MaxBodyLen))
	require.Len(t, Truncate(strings.Repeat("u", 500), MaxUALen), MaxUALen)
}

func TestTruncate_NeverSplitsRune(t *testing.T) {
	// "é" is two bytes; placing it across the limit must back the cut off
	// to the previous rune boundary instead of emitting half a rune.
	body := strings.Repeat("a", MaxBodyLen-1) + "é" + strings.Repeat("b", 50)
	got := Truncate(body, MaxBodyLen)

	require.True(t, utf8.ValidString(got), "truncated body must stay valid UTF-8")
	require.LessOrEqual(t, len(got), MaxBodyLen)
	require.Equal(t, strings.Repeat("a", MaxBodyLen-1), got)

	// Same with a four-byte rune straddling the boundary.
	body = strings.Repeat("a", MaxBodyLen-2) + "\U0001F600"
	got = Truncate(body, MaxBodyLen)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, strings.Repeat("a", MaxBodyLen-2), got)
}

func TestTruncate_DropsBinaryInput(t *testing.T) {
	got := Truncate("gzip\x1f\x8b\xff\xfepayload", MaxBodyLen)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, "gzip\x1fpayload", got, "stray continuation and invalid bytes stripped")

	// Pure binary collapses to empty rather than failing the insert.
	require.Equal(t, "", Truncate("\xff\xfe\xfd", MaxBodyLen))
}
