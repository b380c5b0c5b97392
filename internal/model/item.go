package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ItemKind selects which of the two parallel item stores backs an item.
type ItemKind string

// Item kinds.
const (
	KindLost  ItemKind = "lost"
	KindFound ItemKind = "found"
)

// Valid reports whether k is a known item kind.
func (k ItemKind) Valid() bool {
	return k == KindLost || k == KindFound
}

// ItemStatus is the public status of a reported item.
type ItemStatus string

// Item statuses.
const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusPending  ItemStatus = "pending"
	ItemStatusClaimed  ItemStatus = "claimed"
	ItemStatusReturned ItemStatus = "returned"
	ItemStatusArchived ItemStatus = "archived"
	ItemStatusDeleted  ItemStatus = "deleted"
)

// ItemRef addresses one item across both stores.
type ItemRef struct {
	Kind ItemKind `json:"kind"`
	ID   int64    `json:"id"`
}

// String returns the textual form of the reference, e.g. "lost:12".
func (r ItemRef) String() string {
	return string(r.Kind) + ":" + strconv.FormatInt(r.ID, 10)
}

// ParseItemRef parses the "kind:id" form produced by ItemRef.String.
func ParseItemRef(s string) (ItemRef, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return ItemRef{}, fmt.Errorf("item reference %q must have the form kind:id", s)
	}
	ref := ItemRef{Kind: ItemKind(kind)}
	if !ref.Kind.Valid() {
		return ItemRef{}, fmt.Errorf("unknown item kind %q", kind)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return ItemRef{}, fmt.Errorf("invalid item id %q", id)
	}
	ref.ID = n
	return ref, nil
}

// Item is a lost or found report. Both kinds share this shape.
type Item struct {
	Kind        ItemKind   `json:"kind"`
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	Location    string     `json:"location,omitempty"`
	Status      ItemStatus `json:"status"`
	WasReturned bool       `json:"was_returned"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Ref returns the item's reference.
func (i *Item) Ref() ItemRef {
	return ItemRef{Kind: i.Kind, ID: i.ID}
}

// Claimable reports whether new claims may be filed against the item.
func (i *Item) Claimable() bool {
	return i.Status == ItemStatusActive || i.Status == ItemStatusPending
}

// transitions lists every allowed item status change.
var transitions = map[ItemStatus][]ItemStatus{
	ItemStatusActive:   {ItemStatusPending, ItemStatusArchived, ItemStatusDeleted},
	ItemStatusPending:  {ItemStatusActive, ItemStatusClaimed, ItemStatusDeleted},
	ItemStatusClaimed:  {ItemStatusReturned, ItemStatusArchived, ItemStatusDeleted},
	ItemStatusReturned: {ItemStatusArchived, ItemStatusDeleted},
	ItemStatusArchived: {ItemStatusActive, ItemStatusDeleted},
}

// CanTransition reports whether an item of the given kind may move from one
// status to another. Returned exists for lost items only.
func CanTransition(kind ItemKind, from, to ItemStatus) bool {
	if to == ItemStatusReturned && kind != KindLost {
		return false
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Default item category.
const DefaultCategory = "other"
