package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/soladkov/beatkeeper/internal/domain/channel"
)

var _ channel.Repo = (*ChannelRepoImpl)(nil)

type ChannelRepoImpl struct{ db *DB }

func NewChannelRepo(db *DB) *ChannelRepoImpl { return &ChannelRepoImpl{db: db} }

const channelCols = `id, code, user_id, kind, value, email_verified, created_at`

const (
	qChannelInsert = `
INSERT INTO channels (code, user_id, kind, value)
VALUES ($1, $2, $3, $4)
RETURNING ` + channelCols + `;
`

	qChannelByCode = `
SELECT ` + channelCols + `
FROM channels
WHERE code = $1;
`

	qChannelsByUser = `
SELECT ` + channelCols + `
FROM channels
WHERE user_id = $1
ORDER BY id;
`

	qChannelsByCheck = `
SELECT c.id, c.code, c.user_id, c.kind, c.value, c.email_verified, c.created_at
FROM channels c
JOIN channel_checks cc ON cc.channel_id = c.id
WHERE cc.check_id = $1
ORDER BY c.id;
`

	qChannelUpdateValue = `UPDATE channels SET value = $2 WHERE id = $1;`
	qChannelVerifyEmail = `UPDATE channels SET email_verified = TRUE WHERE id = $1;`
	qChannelAttach      = `INSERT INTO channel_checks (channel_id, check_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;`
	qChannelDetach      = `DELETE FROM channel_checks WHERE channel_id = $1 AND check_id = $2;`
	qChannelDelete      = `DELETE FROM channels WHERE id = $1;`
)

func scanChannel(row pgx.Row, ch *channel.Channel) error {
	if err := row.Scan(
		&ch.ID, &ch.Code, &ch.UserID, &ch.Kind, &ch.Value, &ch.EmailVerified, &ch.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan channel: %w", err)
	}
	return nil
}

func (r *ChannelRepoImpl) Create(ctx context.Context, ch *channel.Channel) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if ch.Code == uuid.Nil {
		ch.Code = uuid.New()
	}
	row := r.db.Pool.QueryRow(ctx, qChannelInsert, ch.Code, ch.UserID, ch.Kind, ch.Value)
	return scanChannel(row, ch)
}

func (r *ChannelRepoImpl) GetByCode(ctx context.Context, code uuid.UUID) (*channel.Channel, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var ch channel.Channel
	if err := scanChannel(r.db.Pool.QueryRow(ctx, qChannelByCode, code), &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *ChannelRepoImpl) ListByUser(ctx context.Context, userID int64) ([]*channel.Channel, error) {
	return r.list(ctx, qChannelsByUser, userID)
}

func (r *ChannelRepoImpl) ListByCheck(ctx context.Context, checkID int64) ([]*channel.Channel, error) {
	return r.list(ctx, qChannelsByCheck, checkID)
}

func (r *ChannelRepoImpl) list(ctx context.Context, q string, arg any) ([]*channel.Channel, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var out []*channel.Channel
	for rows.Next() {
		var ch channel.Channel
		if err := scanChannel(rows, &ch); err != nil {
			return nil, err
		}
		out = append(out, &ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *ChannelRepoImpl) UpdateValue(ctx context.Context, id int64, value string) error {
	return r.exec(ctx, qChannelUpdateValue, id, value)
}

func (r *ChannelRepoImpl) SetEmailVerified(ctx context.Context, id int64) error {
	return r.exec(ctx, qChannelVerifyEmail, id)
}

func (r *ChannelRepoImpl) Attach(ctx context.Context, channelID, checkID int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	if _, err := r.db.Pool.Exec(ctx, qChannelAttach, channelID, checkID); err != nil {
		return fmt.Errorf("attach channel: %w", err)
	}
	return nil
}

func (r *ChannelRepoImpl) Detach(ctx context.Context, channelID, checkID int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	if _, err := r.db.Pool.Exec(ctx, qChannelDetach, channelID, checkID); err != nil {
		return fmt.Errorf("detach channel: %w", err)
	}
	return nil
}

func (r *ChannelRepoImpl) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, qChannelDelete, id)
}

func (r *ChannelRepoImpl) exec(ctx context.Context, q string, args ...any) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("exec channel: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
