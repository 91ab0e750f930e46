package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/soladkov/beatkeeper/internal/domain/check"
	"github.com/soladkov/beatkeeper/internal/domain/event"
)

type fakeCheckRepo struct {
	check.Repo
	mu       sync.Mutex
	due      []*check.Check
	statuses map[int64]check.Status
	casErr   error
}

func (f *fakeCheckRepo) FetchDue(ctx context.Context, now time.Time, limit int) ([]*check.Check, error) {
	return f.due, nil
}

func (f *fakeCheckRepo) UpdateStatus(ctx context.Context, id int64, from, to check.Status) (bool, error) {
	if f.casErr != nil {
		return false, f.casErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses == nil {
		f.statuses = map[int64]check.Status{}
	}
	if cur, ok := f.statuses[id]; ok && cur != from {
		return false, nil
	}
	f.statuses[id] = to
	return true, nil
}

type capturePublisher struct {
	flips []event.Flip
	err   error
}

func (c *capturePublisher) PublishFlip(ctx context.Context, f event.Flip) error {
	if c.err != nil {
		return c.err
	}
	c.flips = append(c.flips, f)
	return nil
}

type tickClock struct{ t time.Time }

func (c tickClock) Now() time.Time { return c.t }

func overdueCheck(id int64, lastPing time.Time, st check.Status) *check.Check {
	return &check.Check{
		ID:       id,
		Kind:     check.KindSimple,
		Timeout:  time.Hour,
		Grace:    30 * time.Minute,
		Status:   st,
		LastPing: &lastPing,
	}
}

func TestTick_FlipsOverdueToDownAndPublishes(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	// Grace window is 13:00..13:30 relative to the last ping; two hours
	// later the check is well past it.
	repo := &fakeCheckRepo{due: []*check.Check{overdueCheck(1, now.Add(-2*time.Hour), check.StatusGrace)}}
	pub := &capturePublisher{}

	uc := NewUC(repo, pub, tickClock{t: now}, zap.NewNop())
	fetched, flipped, errs, err := uc.Tick(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, fetched)
	require.Equal(t, 1, flipped)
	require.Zero(t, errs)

	require.Equal(t, check.StatusDown, repo.statuses[1])
	require.Len(t, pub.flips, 1)
	require.Equal(t, check.StatusGrace, pub.flips[0].OldStatus)
	require.Equal(t, check.StatusDown, pub.flips[0].NewStatus)
	require.True(t, pub.flips[0].At.Equal(now))
}

func TestTick_GraceEntryIsSilent(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	// 70 minutes since last ping: past the 1h timeout, inside the 30m grace.
	repo := &fakeCheckRepo{due: []*check.Check{overdueCheck(1, now.Add(-70*time.Minute), check.StatusUp)}}
	pub := &capturePublisher{}

	uc := NewUC(repo, pub, tickClock{t: now}, zap.NewNop())
	_, flipped, errs, err := uc.Tick(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, flipped)
	require.Zero(t, errs)

	require.Equal(t, check.StatusGrace, repo.statuses[1], "status persisted")
	require.Empty(t, pub.flips, "entering grace never alerts")
}

func TestTick_UnchangedStatusSkipsWrite(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeCheckRepo{due: []*check.Check{overdueCheck(1, now.Add(-70*time.Minute), check.StatusGrace)}}
	pub := &capturePublisher{}

	uc := NewUC(repo, pub, tickClock{t: now}, zap.NewNop())
	_, flipped, _, err := uc.Tick(context.Background(), 10)
	require.NoError(t, err)
	require.Zero(t, flipped)
	require.Empty(t, repo.statuses)
}

func TestTick_BrokenScheduleDoesNotStopBatch(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lastPing := now.Add(-2 * time.Hour)
	broken := &check.Check{
		ID: 1, Kind: check.KindCron, Schedule: "bad", TZ: "UTC",
		Grace: 30 * time.Minute, Status: check.StatusUp, LastPing: &lastPing,
	}
	repo := &fakeCheckRepo{due: []*check.Check{broken, overdueCheck(2, lastPing, check.StatusGrace)}}
	pub := &capturePublisher{}

	uc := NewUC(repo, pub, tickClock{t: now}, zap.NewNop())
	fetched, flipped, errs, err := uc.Tick(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 2, fetched)
	require.Equal(t, 1, flipped)
	require.Equal(t, 1, errs)
	require.Equal(t, check.StatusDown, repo.statuses[2])
}

func TestTick_LostCASDoesNotPublish(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeCheckRepo{
		due:      []*check.Check{overdueCheck(1, now.Add(-2*time.Hour), check.StatusGrace)},
		statuses: map[int64]check.Status{1: check.StatusUp}, // raced ahead
	}
	pub := &capturePublisher{}

	uc := NewUC(repo, pub, tickClock{t: now}, zap.NewNop())
	_, flipped, errs, err := uc.Tick(context.Background(), 10)
	require.NoError(t, err)
	require.Zero(t, flipped)
	require.Zero(t, errs)
	require.Empty(t, pub.flips)
}

func TestTick_PublishErrorCounted(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeCheckRepo{due: []*check.Check{overdueCheck(1, now.Add(-2*time.Hour), check.StatusGrace)}}
	pub := &capturePublisher{err: errors.New("broker gone")}

	uc := NewUC(repo, pub, tickClock{t: now}, zap.NewNop())
	_, flipped, errs, err := uc.Tick(context.Background(), 10)
	require.NoError(t, err)
	require.Zero(t, flipped)
	require.Equal(t, 1, errs)
}
