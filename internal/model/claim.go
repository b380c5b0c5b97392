package model

import "time"

// ClaimStatus is the review status of a claim.
type ClaimStatus string

// Claim statuses.
const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusApproved ClaimStatus = "approved"
	ClaimStatusRejected ClaimStatus = "rejected"
)

// Valid reports whether s is a known claim status.
func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimStatusPending, ClaimStatusApproved, ClaimStatusRejected:
		return true
	}
	return false
}

// ClaimRequest is a user's assertion of ownership over an item.
type ClaimRequest struct {
	ID          int64       `json:"id"`
	ItemKind    ItemKind    `json:"item_kind"`
	ItemID      int64       `json:"item_id"`
	ClaimantID  int64       `json:"claimant_id"`
	Proof       string      `json:"proof"`
	EvidenceID  string      `json:"evidence_id,omitempty"`
	Status      ClaimStatus `json:"status"`
	ReviewerID  *int64      `json:"reviewer_id,omitempty"`
	ReviewNotes string      `json:"review_notes,omitempty"`
	ReviewedAt  *time.Time  `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// Joined fields (not always populated).
	ClaimantName string `json:"claimant_name,omitempty"`
	ReviewerName string `json:"reviewer_name,omitempty"`
	Item         *Item  `json:"item,omitempty"`
}

// ItemRef returns the reference of the claimed item.
func (c *ClaimRequest) ItemRef() ItemRef {
	return ItemRef{Kind: c.ItemKind, ID: c.ItemID}
}

// ClaimFilter narrows claim listings. Zero fields are ignored.
type ClaimFilter struct {
	Status      ClaimStatus
	ClaimantID  int64
	Item        *ItemRef
	CreatedFrom time.Time
	CreatedTo   time.Time
}
