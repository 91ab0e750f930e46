package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/soladkov/beatkeeper/internal/domain/notification"
)

var _ notification.Repo = (*NotificationRepoImpl)(nil)

type NotificationRepoImpl struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepoImpl { return &NotificationRepoImpl{db: db} }

const (
	qNotifInsert = `
INSERT INTO notifications (code, check_id, channel_id, check_status, error)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at;
`

	// Guarded on the sentinel so the terminal value is written at most once.
	qNotifFinalize = `
UPDATE notifications
SET error = $2
WHERE id = $1 AND error = $3;
`

	qNotifLatest = `
SELECT id, code, check_id, channel_id, check_status, error, created_at
FROM notifications
WHERE channel_id = $1
ORDER BY created_at DESC
LIMIT 1;
`
)

func (r *NotificationRepoImpl) Create(ctx context.Context, n *notification.Notification) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if n.Code == uuid.Nil {
		n.Code = uuid.New()
	}
	if n.Error == "" {
		n.Error = notification.StatusSending
	}

	eq := r.db.execQueryer(ctx)
	if err := eq.QueryRow(ctx, qNotifInsert,
		n.Code, n.CheckID, n.ChannelID, n.CheckStatus, n.Error,
	).Scan(&n.ID, &n.CreatedAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepoImpl) Finalize(ctx context.Context, id int64, errMsg string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	cmd, err := eq.Exec(ctx, qNotifFinalize, id, errMsg, notification.StatusSending)
	if err != nil {
		return fmt.Errorf("finalize notification: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *NotificationRepoImpl) LatestForChannel(ctx context.Context, channelID int64) (*notification.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n notification.Notification
	if err := r.db.Pool.QueryRow(ctx, qNotifLatest, channelID).Scan(
		&n.ID, &n.Code, &n.CheckID, &n.ChannelID, &n.CheckStatus, &n.Error, &n.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest notification: %w", err)
	}
	return &n, nil
}
