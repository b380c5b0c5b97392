package model

import "time"

// NotificationType tags what a notification is about.
type NotificationType string

// Notification types.
const (
	NotifyNewClaimRequest NotificationType = "new_claim_request"
	NotifyClaimApproved   NotificationType = "claim_approved"
	NotifyClaimRejected   NotificationType = "claim_rejected"
	NotifyItemClaimed     NotificationType = "item_claimed"
)

// Notification is one in-app message to one recipient.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Item      *ItemRef         `json:"item,omitempty"`
	ClaimID   *int64           `json:"claim_id,omitempty"`
	EventID   string           `json:"event_id,omitempty"`
	IsRead    bool             `json:"is_read"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
