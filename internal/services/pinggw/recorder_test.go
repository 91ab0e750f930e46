package pinggw

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/soladkov/beatkeeper/internal/domain/check"
	"github.com/soladkov/beatkeeper/internal/domain/event"
	"github.com/soladkov/beatkeeper/internal/domain/ping"
	"github.com/soladkov/beatkeeper/internal/repository/postgres"
)

// fakeCheckRepo mimics the row-level atomicity of the real ApplyPing with a
// mutex so concurrent Record calls exercise the same counter guarantees.
type fakeCheckRepo struct {
	check.Repo
	mu     sync.Mutex
	chk    check.Check
	casLog []string
}

func (f *fakeCheckRepo) GetByCode(ctx context.Context, code uuid.UUID) (*check.Check, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if code != f.chk.Code {
		return nil, postgres.ErrNotFound
	}
	cp := f.chk
	return &cp, nil
}

func (f *fakeCheckRepo) ApplyPing(ctx context.Context, id int64, u check.PingUpdate) (*check.Check, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chk.NPings++
	at := u.At
	f.chk.LastPing = &at
	f.chk.LastPingWasFail = u.Fail
	f.chk.HasConfirmationLink = u.Confirmation
	aa := u.AlertAfter
	f.chk.AlertAfter = &aa
	if f.chk.Status == check.StatusNew || f.chk.Status == check.StatusPaused {
		f.chk.Status = check.StatusUp
	}
	cp := f.chk
	return &cp, nil
}

func (f *fakeCheckRepo) UpdateStatus(ctx context.Context, id int64, from, to check.Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chk.Status != from {
		return false, nil
	}
	f.chk.Status = to
	f.casLog = append(f.casLog, string(from)+"->"+string(to))
	return true, nil
}

type fakePingRepo struct {
	ping.Repo
	mu   sync.Mutex
	rows []ping.Ping
}

func (f *fakePingRepo) Insert(ctx context.Context, p *ping.Ping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *p)
	return nil
}

type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type fakePublisher struct {
	mu    sync.Mutex
	flips []event.Flip
}

func (f *fakePublisher) PublishFlip(ctx context.Context, fl event.Flip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flips = append(f.flips, fl)
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestRecorder(chk check.Check, now time.Time) (*Recorder, *fakeCheckRepo, *fakePingRepo, *fakePublisher) {
	checks := &fakeCheckRepo{chk: chk}
	pings := &fakePingRepo{}
	pub := &fakePublisher{}
	rec := &Recorder{
		Checks: checks,
		Pings:  pings,
		Tx:     passTx{},
		Events: pub,
		Clock:  fixedClock{t: now},
		Log:    zap.NewNop(),
	}
	return rec, checks, pings, pub
}

func baseCheck(st check.Status) check.Check {
	return check.Check{
		ID:      1,
		Code:    uuid.New(),
		Kind:    check.KindSimple,
		Timeout: check.DefaultTimeout,
		Grace:   check.DefaultGrace,
		Status:  st,
	}
}

func TestRecord_FirstPingLiftsNewToUpSilently(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec, checks, pings, pub := newTestRecorder(baseCheck(check.StatusNew), now)

	got, err := rec.Record(context.Background(), checks.chk.Code, PingEvent{Method: "GET"})
	require.NoError(t, err)

	require.Equal(t, check.StatusUp, got.Status)
	require.Equal(t, 1, got.NPings)
	require.NotNil(t, got.LastPing)
	require.True(t, got.LastPing.Equal(now))
	require.NotNil(t, got.AlertAfter)
	require.True(t, got.AlertAfter.Equal(now.Add(check.DefaultTimeout+check.DefaultGrace)))

	require.Len(t, pings.rows, 1)
	require.Equal(t, 1, pings.rows[0].N)
	require.Empty(t, pub.flips, "first ping never alerts")
}

func TestRecord_UnknownCode(t *testing.T) {
	rec, _, _, _ := newTestRecorder(baseCheck(check.StatusNew), time.Now())
	_, err := rec.Record(context.Background(), uuid.New(), PingEvent{})
	require.ErrorIs(t, err, postgres.ErrNotFound)
}

func TestRecord_TruncatesUAAndBody(t *testing.T) {
	rec, checks, pings, _ := newTestRecorder(baseCheck(check.StatusUp), time.Now())

	_, err := rec.Record(context.Background(), checks.chk.Code, PingEvent{
		UserAgent: strings.Repeat("u", 500),
		Body:      strings.Repeat("b", 20000),
	})
	require.NoError(t, err)

	require.Len(t, pings.rows[0].UA, ping.MaxUALen)
	require.Len(t, pings.rows[0].Body, ping.MaxBodyLen)
}

func TestRecord_HostileBodiesStillAcknowledged(t *testing.T) {
	rec, checks, pings, _ := newTestRecorder(baseCheck(check.StatusUp), time.Now())

	// A multi-byte rune straddling the body limit and a binary user agent
	// must both come out as bounded, valid UTF-8: these land in TEXT
	// columns, and a ping is acknowledged no matter what the client sends.
	_, err := rec.Record(context.Background(), checks.chk.Code, PingEvent{
		UserAgent: "curl/8.0 \xff\xfe\x8b",
		Body:      strings.Repeat("a", ping.MaxBodyLen-1) + "é tail",
	})
	require.NoError(t, err)

	row := pings.rows[0]
	require.True(t, utf8.ValidString(row.UA))
	require.True(t, utf8.ValidString(row.Body))
	require.LessOrEqual(t, len(row.Body), ping.MaxBodyLen)
	require.Equal(t, "curl/8.0 ", row.UA)
}

func TestRecord_DetectsConfirmationLink(t *testing.T) {
	rec, checks, _, _ := newTestRecorder(baseCheck(check.StatusUp), time.Now())

	got, err := rec.Record(context.Background(), checks.chk.Code, PingEvent{
		Body: "Click here to CONFIRM your subscription",
	})
	require.NoError(t, err)
	require.True(t, got.HasConfirmationLink)

	got, err = rec.Record(context.Background(), checks.chk.Code, PingEvent{Body: "all good"})
	require.NoError(t, err)
	require.False(t, got.HasConfirmationLink)
}

func TestRecord_FailPingFlipsDown(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec, checks, _, pub := newTestRecorder(baseCheck(check.StatusUp), now)

	got, err := rec.Record(context.Background(), checks.chk.Code, PingEvent{Fail: true})
	require.NoError(t, err)

	require.Equal(t, check.StatusDown, got.Status)
	require.NotNil(t, got.AlertAfter)
	require.True(t, got.AlertAfter.Equal(now), "failure pings are due immediately")

	require.Len(t, pub.flips, 1)
	require.Equal(t, check.StatusUp, pub.flips[0].OldStatus)
	require.Equal(t, check.StatusDown, pub.flips[0].NewStatus)
}

func TestRecord_GoodPingRevivesDownCheck(t *testing.T) {
	rec, checks, _, pub := newTestRecorder(baseCheck(check.StatusDown), time.Now())

	got, err := rec.Record(context.Background(), checks.chk.Code, PingEvent{})
	require.NoError(t, err)

	require.Equal(t, check.StatusUp, got.Status)
	require.Len(t, pub.flips, 1)
	require.Equal(t, check.StatusDown, pub.flips[0].OldStatus)
	require.Equal(t, check.StatusUp, pub.flips[0].NewStatus)
}

func TestRecord_ConcurrentPingsKeepAllCounts(t *testing.T) {
	rec, checks, pings, _ := newTestRecorder(baseCheck(check.StatusUp), time.Now())

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rec.Record(context.Background(), checks.chk.Code, PingEvent{})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, n, checks.chk.NPings)
	require.Len(t, pings.rows, n)

	seen := map[int]bool{}
	for _, p := range pings.rows {
		require.False(t, seen[p.N], "ping number %d reused", p.N)
		seen[p.N] = true
	}
}

func TestRecord_BadCronScheduleSurfaces(t *testing.T) {
	chk := baseCheck(check.StatusUp)
	chk.Kind = check.KindCron
	chk.Schedule = "nope"
	chk.TZ = "UTC"

	rec, checks, pings, _ := newTestRecorder(chk, time.Now())

	_, err := rec.Record(context.Background(), checks.chk.Code, PingEvent{})
	require.ErrorIs(t, err, check.ErrInvalidSchedule)
	require.Empty(t, pings.rows, "nothing recorded when the schedule cannot be evaluated")
	require.Equal(t, 0, checks.chk.NPings)
}
