// Package notify turns events into per-recipient notification records and
// serves the recipient's own feed.
package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// Audience names a group of recipients resolved at delivery time.
type Audience string

// AudienceModerators addresses every active moderator and admin.
const AudienceModerators Audience = "moderators"

// Event is one logical notification, possibly for several recipients.
type Event struct {
	Audience   Audience               `json:"audience,omitempty"`
	Recipients []int64                `json:"recipients,omitempty"`
	Type       model.NotificationType `json:"type"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	Item       *model.ItemRef         `json:"item,omitempty"`
	ClaimID    *int64                 `json:"claim_id,omitempty"`
	EventID    string                 `json:"event_id,omitempty"`
}

// RecipientFunc resolves the users an event is delivered to.
type RecipientFunc func(ctx context.Context, q store.Querier, ev Event) ([]int64, error)

// DefaultRecipients returns the explicit recipients of ev plus every member
// of its audience, each user at most once.
func DefaultRecipients(ctx context.Context, q store.Querier, ev Event) ([]int64, error) {
	ids := append([]int64(nil), ev.Recipients...)

	switch ev.Audience {
	case "":
	case AudienceModerators:
		mods, err := store.ListUserIDsByRole(ctx, q, model.RoleAdmin, model.RoleModerator)
		if err != nil {
			return nil, err
		}
		ids = append(ids, mods...)
	default:
		return nil, fmt.Errorf("unknown audience %q", ev.Audience)
	}

	seen := make(map[int64]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// Dispatcher writes one notification per recipient of an event. It does not
// deduplicate events; callers dispatch each logical event once.
type Dispatcher struct {
	Recipients RecipientFunc
	Now        func() time.Time
}

// NewDispatcher returns a Dispatcher using DefaultRecipients.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		Recipients: DefaultRecipients,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch stores ev for each of its recipients and returns how many
// records were written.
func (d *Dispatcher) Dispatch(ctx context.Context, q store.Querier, ev Event) (int, error) {
	resolve := d.Recipients
	if resolve == nil {
		resolve = DefaultRecipients
	}
	recipients, err := resolve(ctx, q, ev)
	if err != nil {
		return 0, fmt.Errorf("resolving recipients: %w", err)
	}

	now := d.Now()
	for _, userID := range recipients {
		_, err := store.InsertNotification(ctx, q, &model.Notification{
			UserID:    userID,
			Type:      ev.Type,
			Title:     ev.Title,
			Message:   ev.Message,
			Item:      ev.Item,
			ClaimID:   ev.ClaimID,
			EventID:   ev.EventID,
			CreatedAt: now,
		})
		if err != nil {
			return 0, err
		}
	}
	return len(recipients), nil
}

// Handle applies a queued notification event.
func (d *Dispatcher) Handle(ctx context.Context, tx *sql.Tx, oe store.OutboxEvent) error {
	var ev Event
	if err := json.Unmarshal(oe.Payload, &ev); err != nil {
		return fmt.Errorf("decoding notification event: %w", err)
	}
	ev.EventID = oe.ID
	_, err := d.Dispatch(ctx, tx, ev)
	return err
}
