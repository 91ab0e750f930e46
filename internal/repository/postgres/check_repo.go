package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/soladkov/beatkeeper/internal/domain/check"
)

var _ check.Repo = (*CheckRepoImpl)(nil)

type CheckRepoImpl struct {
	db *DB
}

func NewCheckRepo(db *DB) *CheckRepoImpl { return &CheckRepoImpl{db: db} }

const checkCols = `id, code, user_id, name, tags, descr, kind, timeout_sec, grace_sec,
schedule, tz, n_pings, last_ping, last_ping_was_fail, has_confirmation_link,
alert_after, status, created_at`

const (
	qCheckInsert = `
INSERT INTO checks (code, user_id, name, tags, descr, kind, timeout_sec, grace_sec, schedule, tz, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'new')
RETURNING ` + checkCols + `;
`

	qCheckByID = `
SELECT ` + checkCols + `
FROM checks
WHERE id = $1;
`

	qCheckByCode = `
SELECT ` + checkCols + `
FROM checks
WHERE code = $1;
`

	qChecksByUser = `
SELECT ` + checkCols + `
FROM checks
WHERE user_id = $1
ORDER BY id DESC;
`

	qCheckDelete = `DELETE FROM checks WHERE id = $1;`

	// Single-statement atomic ping application: server-side counter
	// increment, new/paused flip to up. Concurrent pings to the same check
	// serialize on the row without losing counts.
	qCheckApplyPing = `
UPDATE checks
SET n_pings               = n_pings + 1,
    last_ping             = $2,
    last_ping_was_fail    = $3,
    has_confirmation_link = $4,
    alert_after           = $5,
    status                = CASE WHEN status IN ('new', 'paused') THEN 'up' ELSE status END
WHERE id = $1
RETURNING ` + checkCols + `;
`

	qCheckCASStatus = `
UPDATE checks
SET status = $3
WHERE id = $1 AND status = $2;
`

	// Down checks stay down until a ping revives them, so the sweep only
	// looks at up/grace rows whose alert-due moment has passed.
	qChecksFetchDue = `
SELECT ` + checkCols + `
FROM checks
WHERE status IN ('up', 'grace') AND alert_after IS NOT NULL AND alert_after <= $1
ORDER BY alert_after
LIMIT $2;
`
)

func scanCheck(row pgx.Row, c *check.Check) error {
	var timeoutSec, graceSec int64
	if err := row.Scan(
		&c.ID,
		&c.Code,
		&c.UserID,
		&c.Name,
		&c.Tags,
		&c.Desc,
		&c.Kind,
		&timeoutSec,
		&graceSec,
		&c.Schedule,
		&c.TZ,
		&c.NPings,
		&c.LastPing,
		&c.LastPingWasFail,
		&c.HasConfirmationLink,
		&c.AlertAfter,
		&c.Status,
		&c.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan check: %w", err)
	}
	c.Timeout = time.Duration(timeoutSec) * time.Second
	c.Grace = time.Duration(graceSec) * time.Second
	return nil
}

func (r *CheckRepoImpl) Create(ctx context.Context, c *check.Check) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if c.Code == uuid.Nil {
		c.Code = uuid.New()
	}
	if c.Timeout <= 0 {
		c.Timeout = check.DefaultTimeout
	}
	if c.Grace <= 0 {
		c.Grace = check.DefaultGrace
	}

	row := r.db.Pool.QueryRow(ctx, qCheckInsert,
		c.Code, c.UserID, c.Name, c.Tags, c.Desc, c.Kind,
		int64(c.Timeout/time.Second), int64(c.Grace/time.Second), c.Schedule, c.TZ,
	)
	return scanCheck(row, c)
}

func (r *CheckRepoImpl) GetByID(ctx context.Context, id int64) (*check.Check, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var c check.Check
	if err := scanCheck(r.db.Pool.QueryRow(ctx, qCheckByID, id), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CheckRepoImpl) GetByCode(ctx context.Context, code uuid.UUID) (*check.Check, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var c check.Check
	if err := scanCheck(r.db.Pool.QueryRow(ctx, qCheckByCode, code), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CheckRepoImpl) ListByUser(ctx context.Context, userID int64) ([]*check.Check, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qChecksByUser, userID)
	if err != nil {
		return nil, fmt.Errorf("query checks: %w", err)
	}
	defer rows.Close()

	var out []*check.Check
	for rows.Next() {
		var c check.Check
		if err := scanCheck(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *CheckRepoImpl) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qCheckDelete, id)
	if err != nil {
		return fmt.Errorf("delete check: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CheckRepoImpl) ApplyPing(ctx context.Context, id int64, u check.PingUpdate) (*check.Check, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	var c check.Check
	if err := scanCheck(eq.QueryRow(ctx, qCheckApplyPing,
		id, u.At, u.Fail, u.Confirmation, u.AlertAfter,
	), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CheckRepoImpl) UpdateStatus(ctx context.Context, id int64, from, to check.Status) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	cmd, err := eq.Exec(ctx, qCheckCASStatus, id, from, to)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *CheckRepoImpl) FetchDue(ctx context.Context, now time.Time, limit int) ([]*check.Check, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qChecksFetchDue, now, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due: %w", err)
	}
	defer rows.Close()

	var out []*check.Check
	for rows.Next() {
		var c check.Check
		if err := scanCheck(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
