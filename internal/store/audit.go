package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

// InsertAuditEntry appends an entry to the audit log. The table rejects
// updates and deletes through triggers.
func InsertAuditEntry(ctx context.Context, q Querier, e *model.AuditLogEntry) (int64, error) {
	metadata := string(e.Metadata)
	if metadata == "" {
		metadata = "{}"
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO audit_log (moderator_id, action, target_type, target_id, details, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ModeratorID, e.Action, e.TargetType, e.TargetID, nullString(e.Details), metadata, e.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting audit entry id: %w", err)
	}
	return id, nil
}

// ListAuditEntries returns audit entries matching f, newest first.
func ListAuditEntries(ctx context.Context, q Querier, f model.AuditFilter) ([]model.AuditLogEntry, error) {
	query := `SELECT a.id, a.moderator_id, a.action, a.target_type, a.target_id, a.details, a.metadata, a.created_at,
	                 u.username
	          FROM audit_log a
	          JOIN users u ON u.id = a.moderator_id
	          WHERE 1=1`
	var args []any

	if f.ModeratorID > 0 {
		query += ` AND a.moderator_id = ?`
		args = append(args, f.ModeratorID)
	}
	if f.Action != "" {
		query += ` AND a.action = ?`
		args = append(args, f.Action)
	}
	if f.TargetType != "" {
		query += ` AND a.target_type = ?`
		args = append(args, f.TargetType)
	}
	if f.TargetID != "" {
		query += ` AND a.target_id = ?`
		args = append(args, f.TargetID)
	}
	query += ` ORDER BY a.created_at DESC, a.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditLogEntry
	for rows.Next() {
		var e model.AuditLogEntry
		var details sql.NullString
		var metadata string
		if err := rows.Scan(&e.ID, &e.ModeratorID, &e.Action, &e.TargetType, &e.TargetID,
			&details, &metadata, &e.CreatedAt, &e.ModeratorName); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Details = details.String
		e.Metadata = json.RawMessage(metadata)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
