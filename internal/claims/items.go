package claims

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/erazemk/najdeno/internal/apperr"
	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/notify"
	"github.com/erazemk/najdeno/internal/store"
)

// PostItem reports a new lost or found item owned by actor.
func (s *Service) PostItem(ctx context.Context, actor model.Actor, n store.NewItem) (*model.Item, error) {
	n.OwnerID = actor.ID
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		return nil, apperr.Validation("title is required")
	}
	item, err := s.Directory.Create(ctx, s.DB, n)
	if err != nil {
		return nil, err
	}
	s.log().Info("item posted", "item", item.Ref().String(), "owner_id", actor.ID)
	return item, nil
}

// ResolveRef parses "kind:id". A bare numeric id is resolved by probing
// the lost store, then the found store.
func (s *Service) ResolveRef(ctx context.Context, raw string) (model.ItemRef, error) {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		item, err := s.Directory.Lookup(ctx, s.DB, id)
		if err != nil {
			return model.ItemRef{}, err
		}
		return item.Ref(), nil
	}
	ref, err := model.ParseItemRef(raw)
	if err != nil {
		return model.ItemRef{}, apperr.Validation("%v", err)
	}
	return ref, nil
}

// Item returns a visible item. Deleted items are reported as not found.
func (s *Service) Item(ctx context.Context, ref model.ItemRef) (*model.Item, error) {
	item, err := s.Directory.Find(ctx, s.DB, ref)
	if err != nil {
		return nil, err
	}
	if item.Status == model.ItemStatusDeleted {
		return nil, apperr.NotFound("item %s not found", ref)
	}
	return item, nil
}

// Items lists items of one kind.
func (s *Service) Items(ctx context.Context, kind model.ItemKind, f store.ItemFilter) ([]model.Item, error) {
	if f.Status == model.ItemStatusDeleted {
		return nil, apperr.Validation("deleted items are not listed")
	}
	items, err := s.Directory.List(ctx, s.DB, kind, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

type ownerAction func(ctx context.Context, q store.Querier, ref model.ItemRef, actor model.Actor) (*model.Item, error)

func (s *Service) ownerAction(ctx context.Context, ref model.ItemRef, actor model.Actor, name string, action ownerAction) (*model.Item, error) {
	var item *model.Item
	err := s.mutate(ctx, ref, func(tx *sql.Tx, fx *effects) error {
		var err error
		item, err = action(ctx, tx, ref, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("item "+name, "item", ref.String(), "actor_id", actor.ID, "status", item.Status)
	return item, nil
}

// Archive hides an item from active listings.
func (s *Service) Archive(ctx context.Context, ref model.ItemRef, actor model.Actor) (*model.Item, error) {
	return s.ownerAction(ctx, ref, actor, "archived", s.Coordinator.Archive)
}

// Restore reactivates an archived item.
func (s *Service) Restore(ctx context.Context, ref model.ItemRef, actor model.Actor) (*model.Item, error) {
	return s.ownerAction(ctx, ref, actor, "restored", s.Coordinator.Restore)
}

// MarkReturned confirms a claimed lost item was handed back.
func (s *Service) MarkReturned(ctx context.Context, ref model.ItemRef, actor model.Actor) (*model.Item, error) {
	return s.ownerAction(ctx, ref, actor, "returned", s.Coordinator.MarkReturned)
}

// DeleteItem soft-deletes an item. Its pending claims are rejected and their
// claimants notified. A moderator's delete is audited once per rejected
// claim and once for the item.
func (s *Service) DeleteItem(ctx context.Context, ref model.ItemRef, actor model.Actor) error {
	var rejected []model.ClaimRequest
	err := s.mutate(ctx, ref, func(tx *sql.Tx, fx *effects) error {
		item, claims, err := s.Coordinator.SoftDelete(ctx, tx, ref, actor)
		if err != nil {
			return err
		}
		rejected = claims

		for i := range claims {
			claimID := claims[i].ID
			err := fx.notify(ctx, notify.Event{
				Recipients: []int64{claims[i].ClaimantID},
				Type:       model.NotifyClaimRejected,
				Title:      "Claim rejected",
				Message:    fmt.Sprintf("Your claim for %q was rejected because the item was removed.", item.Title),
				Item:       &ref,
				ClaimID:    &claimID,
			})
			if err != nil {
				return err
			}
			if actor.IsModerator() {
				err := auditDecision(ctx, fx, &claims[i], ref, model.AuditClaimRejected, actor.ID, lifecycle.DeleteReviewNote, true)
				if err != nil {
					return err
				}
			}
		}

		if !actor.IsModerator() {
			return nil
		}
		ids := make([]int64, len(claims))
		for i := range claims {
			ids[i] = claims[i].ID
		}
		metadata, err := json.Marshal(map[string]any{
			"owner_id":        item.OwnerID,
			"rejected_claims": ids,
		})
		if err != nil {
			return err
		}
		return fx.audit(ctx, model.AuditLogEntry{
			ModeratorID: actor.ID,
			Action:      model.AuditItemDeleted,
			TargetType:  model.TargetItem,
			TargetID:    ref.String(),
			Details:     item.Title,
			Metadata:    metadata,
		})
	})
	if err != nil {
		return err
	}

	s.log().Info("item deleted", "item", ref.String(), "actor_id", actor.ID, "rejected_claims", len(rejected))
	return nil
}
