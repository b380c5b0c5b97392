package model

import (
	"encoding/json"
	"time"
)

// AuditAction tags a moderation decision.
type AuditAction string

// Audit actions. The claim lifecycle only emits the first two and
// item_deleted.
const (
	AuditClaimApproved AuditAction = "claim_approved"
	AuditClaimRejected AuditAction = "claim_rejected"
	AuditItemVerified  AuditAction = "item_verified"
	AuditItemDeleted   AuditAction = "item_deleted"
	AuditUserBanned    AuditAction = "user_banned"
)

// Audit target types.
const (
	TargetClaim = "claim"
	TargetItem  = "item"
)

// AuditLogEntry is an immutable record of a moderator action.
type AuditLogEntry struct {
	ID          int64           `json:"id"`
	ModeratorID int64           `json:"moderator_id"`
	Action      AuditAction     `json:"action"`
	TargetType  string          `json:"target_type"`
	TargetID    string          `json:"target_id"`
	Details     string          `json:"details,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`

	// Joined fields (not always populated).
	ModeratorName string `json:"moderator_name,omitempty"`
}

// AuditFilter narrows audit listings. Zero fields are ignored.
type AuditFilter struct {
	ModeratorID int64
	Action      AuditAction
	TargetType  string
	TargetID    string
}
