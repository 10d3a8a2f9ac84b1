// Package auditpg persists gate audit events to Postgres.
package auditpg

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/swimbuddz/membership-gateway/audit"
)

// Store writes and queries the gate audit table.
type Store struct {
	pg     *pgxpool.Pool
	schema string
}

// NewStore builds a store over the given pool. Empty schema defaults to
// "gateway".
func NewStore(pg *pgxpool.Pool, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "gateway"
	}
	return &Store{pg: pg, schema: s}
}

func (s *Store) table() string { return s.schema + ".audit_events" }

// InsertEvent writes one event.
func (s *Store) InsertEvent(ctx context.Context, ev audit.Event) error {
	if s.pg == nil {
		return nil
	}
	_, err := s.pg.Exec(ctx,
		`INSERT INTO `+s.table()+` (id, user_id, email, path, allowed, reason, redirect, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.UserID, ev.Email, ev.Path, ev.Allowed, ev.Reason, ev.Redirect, ev.At)
	return err
}

// Recent returns the newest events, capped at limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	if s.pg == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pg.Query(ctx,
		`SELECT id, user_id, email, path, allowed, reason, redirect, at
		 FROM `+s.table()+` ORDER BY at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []audit.Event
	for rows.Next() {
		var ev audit.Event
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Email, &ev.Path, &ev.Allowed, &ev.Reason, &ev.Redirect, &ev.At); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// DeleteOlderThan prunes events recorded before cutoff and returns the
// number removed.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.pg == nil {
		return 0, nil
	}
	tag, err := s.pg.Exec(ctx, `DELETE FROM `+s.table()+` WHERE at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RecordWorker drains queued audit events into the store.
type RecordWorker struct {
	river.WorkerDefaults[audit.RecordArgs]
	Store *Store
}

func (w *RecordWorker) Work(ctx context.Context, job *river.Job[audit.RecordArgs]) error {
	return w.Store.InsertEvent(ctx, job.Args.Event)
}
