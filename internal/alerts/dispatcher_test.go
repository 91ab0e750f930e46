package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/soladkov/beatkeeper/internal/domain/channel"
	"github.com/soladkov/beatkeeper/internal/domain/check"
	"github.com/soladkov/beatkeeper/internal/domain/notification"
)

type fakeChannelRepo struct {
	channel.Repo
	byCheck []*channel.Channel
}

func (f *fakeChannelRepo) ListByCheck(ctx context.Context, checkID int64) ([]*channel.Channel, error) {
	return f.byCheck, nil
}

type fakeNotifRepo struct {
	notification.Repo
	created   []*notification.Notification
	finalized map[int64]string
	nextID    int64
}

func (f *fakeNotifRepo) Create(ctx context.Context, n *notification.Notification) error {
	f.nextID++
	n.ID = f.nextID
	n.Code = uuid.New()
	n.Error = notification.StatusSending
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotifRepo) Finalize(ctx context.Context, id int64, errMsg string) error {
	if f.finalized == nil {
		f.finalized = map[int64]string{}
	}
	f.finalized[id] = errMsg
	return nil
}

type stubTransport struct {
	noop bool
	err  error
	sent int
}

func (s *stubTransport) IsNoop(*check.Check) bool { return s.noop }

func (s *stubTransport) Notify(context.Context, *check.Check, *notification.Notification) error {
	s.sent++
	return s.err
}

func stubFactory(tr Transport) Factory {
	return func(*channel.Channel, *Deps) (Transport, error) { return tr, nil }
}

func newTestDispatcher(reg *Registry, chans []*channel.Channel, notifs *fakeNotifRepo) *Dispatcher {
	return NewDispatcher(reg, &Deps{Log: zap.NewNop()}, &fakeChannelRepo{byCheck: chans}, notifs, time.Second, zap.NewNop())
}

func downCheck() *check.Check {
	return &check.Check{ID: 7, Code: uuid.New(), Name: "backups", Status: check.StatusDown}
}

func TestSendAlert_RejectsNonAlertableStatus(t *testing.T) {
	d := newTestDispatcher(NewRegistry(), nil, &fakeNotifRepo{})
	for _, st := range []check.Status{check.StatusNew, check.StatusPaused, check.StatusGrace} {
		chk := downCheck()
		chk.Status = st
		_, err := d.SendAlert(context.Background(), chk)
		require.ErrorIs(t, err, ErrUnexpectedStatus, "status %q", st)
	}
}

func TestSendAlert_UnknownKindIsFatal(t *testing.T) {
	chans := []*channel.Channel{{ID: 1, Kind: channel.Kind("carrier-pigeon")}}
	notifs := &fakeNotifRepo{}
	d := newTestDispatcher(NewRegistry(), chans, notifs)

	_, err := d.SendAlert(context.Background(), downCheck())
	require.ErrorIs(t, err, ErrUnsupportedKind)
	require.Empty(t, notifs.created)
}

func TestSendAlert_NoopLeavesNoRecord(t *testing.T) {
	reg := NewRegistry()
	tr := &stubTransport{noop: true}
	reg.Register(channel.KindEmail, stubFactory(tr))

	notifs := &fakeNotifRepo{}
	d := newTestDispatcher(reg, []*channel.Channel{{ID: 1, Kind: channel.KindEmail}}, notifs)

	failed, err := d.SendAlert(context.Background(), downCheck())
	require.NoError(t, err)
	require.Empty(t, failed)
	require.Empty(t, notifs.created, "no-op channels must not leave notification rows")
	require.Zero(t, tr.sent)
}

func TestSendAlert_FailureIsolation(t *testing.T) {
	// Three channels: one delivers, one fails, one panics. The failing ones
	// come back in the error list, the healthy one still goes out.
	reg := NewRegistry()
	ok := &stubTransport{}
	bad := &stubTransport{err: errors.New("received status code 503")}
	reg.Register(channel.KindSlack, stubFactory(ok))
	reg.Register(channel.KindWebhook, stubFactory(bad))
	reg.Register(channel.KindPagerDuty, stubFactory(panicTransport{}))

	chans := []*channel.Channel{
		{ID: 1, Kind: channel.KindSlack},
		{ID: 2, Kind: channel.KindWebhook},
		{ID: 3, Kind: channel.KindPagerDuty},
	}
	notifs := &fakeNotifRepo{}
	d := newTestDispatcher(reg, chans, notifs)

	failed, err := d.SendAlert(context.Background(), downCheck())
	require.NoError(t, err)
	require.Len(t, failed, 2)
	require.Equal(t, int64(2), failed[0].Channel.ID)
	require.Equal(t, "received status code 503", failed[0].Message)
	require.Equal(t, int64(3), failed[1].Channel.ID)

	require.Equal(t, 1, ok.sent)
	require.Len(t, notifs.created, 3, "every attempted channel leaves a record")
	require.Equal(t, "", notifs.finalized[1])
	require.Equal(t, "received status code 503", notifs.finalized[2])
	require.NotEmpty(t, notifs.finalized[3])
}

func TestSendAlert_BadConfigRecorded(t *testing.T) {
	reg := NewRegistry()
	reg.Register(channel.KindTelegram, func(ch *channel.Channel, _ *Deps) (Transport, error) {
		_, err := ch.TelegramConfig()
		return nil, err
	})

	chans := []*channel.Channel{{ID: 5, Kind: channel.KindTelegram, Value: "not json"}}
	notifs := &fakeNotifRepo{}
	d := newTestDispatcher(reg, chans, notifs)

	failed, err := d.SendAlert(context.Background(), downCheck())
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.Contains(t, failed[0].Message, "malformed channel configuration")
}

type panicTransport struct{}

func (panicTransport) IsNoop(*check.Check) bool { return false }

func (panicTransport) Notify(context.Context, *check.Check, *notification.Notification) error {
	panic("transport bug")
}
