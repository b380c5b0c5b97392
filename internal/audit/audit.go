// Package audit records moderator decisions in the append-only audit log.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/apperr"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// Recorder appends audit entries. There is no update or delete.
type Recorder struct {
	Now func() time.Time
}

// NewRecorder returns a Recorder stamping entries with the current UTC time.
func NewRecorder() *Recorder {
	return &Recorder{Now: func() time.Time { return time.Now().UTC() }}
}

// Record appends e and returns its ID.
func (r *Recorder) Record(ctx context.Context, q store.Querier, e model.AuditLogEntry) (int64, error) {
	if e.ModeratorID <= 0 {
		return 0, fmt.Errorf("audit entry needs a moderator")
	}
	if e.Action == "" || e.TargetType == "" || e.TargetID == "" {
		return 0, fmt.Errorf("audit entry needs an action and a target")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.Now()
	}
	return store.InsertAuditEntry(ctx, q, &e)
}

// Handle applies a queued audit event.
func (r *Recorder) Handle(ctx context.Context, tx *sql.Tx, oe store.OutboxEvent) error {
	var e model.AuditLogEntry
	if err := json.Unmarshal(oe.Payload, &e); err != nil {
		return fmt.Errorf("decoding audit event: %w", err)
	}
	_, err := r.Record(ctx, tx, e)
	return err
}

// List returns audit entries matching f, newest first.
func List(ctx context.Context, q store.Querier, f model.AuditFilter) ([]model.AuditLogEntry, error) {
	entries, err := store.ListAuditEntries(ctx, q, f)
	if err != nil {
		return nil, apperr.Storage(err, "failed to list audit entries")
	}
	if entries == nil {
		entries = []model.AuditLogEntry{}
	}
	return entries, nil
}
