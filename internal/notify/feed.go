package notify

import (
	"context"
	"database/sql"
	"time"

	"github.com/erazemk/najdeno/internal/apperr"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// Feed serves a user's own notifications.
type Feed struct {
	DB  *sql.DB
	Now func() time.Time
}

// List returns the user's notifications, newest first.
func (f *Feed) List(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	list, err := store.ListNotifications(ctx, f.DB, userID, unreadOnly)
	if err != nil {
		return nil, apperr.Storage(err, "failed to list notifications")
	}
	if list == nil {
		list = []model.Notification{}
	}
	return list, nil
}

// MarkRead marks one notification read.
func (f *Feed) MarkRead(ctx context.Context, userID, id int64) error {
	ok, err := store.MarkNotificationRead(ctx, f.DB, userID, id, f.Now())
	if err != nil {
		return apperr.Storage(err, "failed to update notification")
	}
	if !ok {
		return apperr.NotFound("notification not found")
	}
	return nil
}

// MarkAllRead marks every unread notification read and returns how many
// changed.
func (f *Feed) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	n, err := store.MarkAllNotificationsRead(ctx, f.DB, userID, f.Now())
	if err != nil {
		return 0, apperr.Storage(err, "failed to update notifications")
	}
	return n, nil
}

// UnreadCount returns the number of unread notifications.
func (f *Feed) UnreadCount(ctx context.Context, userID int64) (int, error) {
	n, err := store.CountUnreadNotifications(ctx, f.DB, userID)
	if err != nil {
		return 0, apperr.Storage(err, "failed to count notifications")
	}
	return n, nil
}
