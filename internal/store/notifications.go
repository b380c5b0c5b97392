package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

// InsertNotification stores one notification for one recipient.
func InsertNotification(ctx context.Context, q Querier, n *model.Notification) (int64, error) {
	var itemKind sql.NullString
	var itemID sql.NullInt64
	if n.Item != nil {
		itemKind = sql.NullString{String: string(n.Item.Kind), Valid: true}
		itemID = sql.NullInt64{Int64: n.Item.ID, Valid: true}
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO notifications (user_id, type, title, message, item_kind, item_id, claim_id, event_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.UserID, n.Type, n.Title, n.Message, itemKind, itemID, n.ClaimID, nullString(n.EventID), n.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting notification id: %w", err)
	}
	return id, nil
}

// ListNotifications returns a user's notifications, newest first.
func ListNotifications(ctx context.Context, q Querier, userID int64, unreadOnly bool) ([]model.Notification, error) {
	query := `SELECT id, user_id, type, title, message, item_kind, item_id, claim_id, event_id, is_read, read_at, created_at
	          FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var itemKind, eventID sql.NullString
		var itemID sql.NullInt64
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &itemKind, &itemID,
			&n.ClaimID, &eventID, &n.IsRead, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		if itemKind.Valid && itemID.Valid {
			n.Item = &model.ItemRef{Kind: model.ItemKind(itemKind.String), ID: itemID.Int64}
		}
		n.EventID = eventID.String
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead marks one of userID's notifications read. It reports
// false if the notification does not exist or belongs to someone else.
func MarkNotificationRead(ctx context.Context, q Querier, userID, id int64, now time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1, read_at = COALESCE(read_at, ?) WHERE id = ? AND user_id = ?`,
		now, id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking notification update: %w", err)
	}
	return n == 1, nil
}

// MarkAllNotificationsRead marks every unread notification of userID read
// and returns how many changed.
func MarkAllNotificationsRead(ctx context.Context, q Querier, userID int64, now time.Time) (int64, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1, read_at = ? WHERE user_id = ? AND is_read = 0`,
		now, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	return result.RowsAffected()
}

// CountUnreadNotifications returns the number of unread notifications for userID.
func CountUnreadNotifications(ctx context.Context, q Querier, userID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}
