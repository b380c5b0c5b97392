package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// OutboxEvent is a side effect queued inside the transaction that caused it.
type OutboxEvent struct {
	ID            string
	Kind          string
	Payload       []byte
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	ProcessedAt   *time.Time
	Dead          bool
	CreatedAt     time.Time
}

// InsertOutboxEvent queues an event that becomes due immediately.
func InsertOutboxEvent(ctx context.Context, q Querier, id, kind string, payload []byte, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO outbox (id, kind, payload, next_attempt_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, kind, string(payload), now, now,
	)
	if err != nil {
		return fmt.Errorf("inserting outbox event: %w", err)
	}
	return nil
}

const outboxColumns = `id, kind, payload, attempts, last_error, next_attempt_at, processed_at, dead, created_at`

func scanOutboxEvent(row interface{ Scan(...any) error }) (*OutboxEvent, error) {
	e := &OutboxEvent{}
	var payload string
	var lastError sql.NullString
	if err := row.Scan(&e.ID, &e.Kind, &payload, &e.Attempts, &lastError, &e.NextAttemptAt,
		&e.ProcessedAt, &e.Dead, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Payload = []byte(payload)
	e.LastError = lastError.String
	return e, nil
}

// ListDueOutboxEvents returns up to limit unprocessed, live events whose
// next attempt is at or before now, oldest first.
func ListDueOutboxEvents(ctx context.Context, q Querier, now time.Time, limit int) ([]OutboxEvent, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+outboxColumns+` FROM outbox
		 WHERE processed_at IS NULL AND dead = 0 AND next_attempt_at <= ?
		 ORDER BY created_at, id
		 LIMIT ?`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing due outbox events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		e, err := scanOutboxEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning outbox event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// GetOutboxEvent returns an event by ID, or nil if it does not exist.
func GetOutboxEvent(ctx context.Context, q Querier, id string) (*OutboxEvent, error) {
	e, err := scanOutboxEvent(q.QueryRowContext(ctx,
		`SELECT `+outboxColumns+` FROM outbox WHERE id = ?`, id,
	))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting outbox event: %w", err)
	}
	return e, nil
}

// MarkOutboxProcessed records that an event's effect was applied. It reports
// false if the event had already been processed.
func MarkOutboxProcessed(ctx context.Context, q Querier, id string, now time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE outbox SET processed_at = ?, attempts = attempts + 1 WHERE id = ? AND processed_at IS NULL`,
		now, id,
	)
	if err != nil {
		return false, fmt.Errorf("marking outbox event processed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking outbox update: %w", err)
	}
	return n == 1, nil
}

// MarkOutboxFailed records a failed attempt and schedules the next one. A
// dead event is never retried.
func MarkOutboxFailed(ctx context.Context, q Querier, id string, attempts int, lastError string, next time.Time, dead bool) error {
	_, err := q.ExecContext(ctx,
		`UPDATE outbox SET attempts = ?, last_error = ?, next_attempt_at = ?, dead = ?
		 WHERE id = ? AND processed_at IS NULL`,
		attempts, lastError, next, dead, id,
	)
	if err != nil {
		return fmt.Errorf("marking outbox event failed: %w", err)
	}
	return nil
}

// OutboxStats counts events by delivery state.
type OutboxStats struct {
	Pending   int `json:"pending"`
	Processed int `json:"processed"`
	Dead      int `json:"dead"`
}

// CountOutbox returns the number of pending, processed and dead events.
func CountOutbox(ctx context.Context, q Querier) (OutboxStats, error) {
	var s OutboxStats
	err := q.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN processed_at IS NULL AND dead = 0 THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN processed_at IS NOT NULL THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN dead = 1 THEN 1 ELSE 0 END), 0)
		 FROM outbox`,
	).Scan(&s.Pending, &s.Processed, &s.Dead)
	if err != nil {
		return s, fmt.Errorf("counting outbox events: %w", err)
	}
	return s, nil
}
