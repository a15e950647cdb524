package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRecorder mirrors audit events into a Postgres event_logs table.
type PgRecorder struct {
	pool *pgxpool.Pool
}

func NewPgRecorder(pool *pgxpool.Pool) *PgRecorder {
	return &PgRecorder{pool: pool}
}

func (r *PgRecorder) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS event_logs (
			id         BIGSERIAL PRIMARY KEY,
			event_type TEXT NOT NULL,
			entity_id  TEXT NOT NULL,
			actor_id   TEXT,
			payload    JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("create event_logs: %w", err)
	}
	return nil
}

func (r *PgRecorder) InsertEvent(ctx context.Context, ev Event) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, entity_id, actor_id, payload, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, COALESCE($5, now()))
	`, ev.EventType, ev.EntityID, ev.ActorID, nullablePayload(ev.Payload), nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func (r *PgRecorder) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullablePayload(p []byte) *string {
	if len(p) == 0 {
		return nil
	}
	s := string(p)
	return &s
}
