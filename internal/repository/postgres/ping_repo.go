package postgres

import (
	"context"
	"fmt"

	"github.com/soladkov/beatkeeper/internal/domain/ping"
)

var _ ping.Repo = (*PingRepoImpl)(nil)

type PingRepoImpl struct{ db *DB }

func NewPingRepo(db *DB) *PingRepoImpl { return &PingRepoImpl{db: db} }

const (
	qPingInsert = `
INSERT INTO pings (check_id, n, fail, scheme, method, remote_addr, ua, body)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at;
`
	qPingsByCheck = `
SELECT id, check_id, n, fail, scheme, method, remote_addr, ua, body, created_at
FROM pings
WHERE check_id = $1
ORDER BY n DESC
LIMIT $2;
`
)

func (r *PingRepoImpl) Insert(ctx context.Context, p *ping.Ping) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	if err := eq.QueryRow(ctx, qPingInsert,
		p.CheckID, p.N, p.Fail, p.Scheme, p.Method, p.RemoteAddr, p.UA, p.Body,
	).Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("insert ping: %w", err)
	}
	return nil
}

func (r *PingRepoImpl) ListByCheck(ctx context.Context, checkID int64, limit int) ([]*ping.Ping, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qPingsByCheck, checkID, limit)
	if err != nil {
		return nil, fmt.Errorf("query pings: %w", err)
	}
	defer rows.Close()

	out := make([]*ping.Ping, 0, limit)
	for rows.Next() {
		var p ping.Ping
		if err := rows.Scan(&p.ID, &p.CheckID, &p.N, &p.Fail, &p.Scheme, &p.Method,
			&p.RemoteAddr, &p.UA, &p.Body, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ping: %w", err)
		}
		pc := p
		out = append(out, &pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
