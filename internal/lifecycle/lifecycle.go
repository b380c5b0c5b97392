// Package lifecycle owns the item status state machine. Every method runs
// inside the caller's transaction and persists through the directory.
package lifecycle

import (
	"context"
	"time"

	"github.com/erazemk/najdeno/internal/apperr"
	"github.com/erazemk/najdeno/internal/directory"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// Coordinator moves items between statuses in response to claim events and
// owner actions.
type Coordinator struct {
	Directory *directory.Directory
	Now       func() time.Time
}

// New returns a Coordinator backed by dir.
func New(dir *directory.Directory) *Coordinator {
	return &Coordinator{Directory: dir, Now: dir.Now}
}

func (c *Coordinator) move(ctx context.Context, q store.Querier, item *model.Item, to model.ItemStatus, wasReturned bool) (*model.Item, error) {
	return c.Directory.SetStatus(ctx, q, directory.Transition{
		Ref:         item.Ref(),
		From:        item.Status,
		To:          to,
		Version:     item.Version,
		WasReturned: wasReturned,
	})
}

// ClaimFiled marks item pending after a claim was filed against it. An item
// that is already pending is left alone.
func (c *Coordinator) ClaimFiled(ctx context.Context, q store.Querier, item *model.Item) (*model.Item, error) {
	switch item.Status {
	case model.ItemStatusPending:
		return item, nil
	case model.ItemStatusActive:
		return c.move(ctx, q, item, model.ItemStatusPending, item.WasReturned)
	default:
		return nil, apperr.Conflict("item is %s and cannot be claimed", item.Status)
	}
}

// ClaimReleased re-evaluates item status after a pending claim was rejected
// or withdrawn. A pending item with no pending claims left returns to active.
func (c *Coordinator) ClaimReleased(ctx context.Context, q store.Querier, ref model.ItemRef) (*model.Item, error) {
	item, err := c.Directory.Find(ctx, q, ref)
	if err != nil {
		return nil, err
	}
	if item.Status != model.ItemStatusPending {
		return item, nil
	}

	remaining, err := store.CountPendingClaims(ctx, q, ref)
	if err != nil {
		return nil, apperr.Storage(err, "failed to count pending claims")
	}
	if remaining > 0 {
		return item, nil
	}
	return c.move(ctx, q, item, model.ItemStatusActive, item.WasReturned)
}

// ClaimApproved marks item claimed. An item can be claimed only once, which
// the stored claims must agree with as well as the item status.
func (c *Coordinator) ClaimApproved(ctx context.Context, q store.Querier, item *model.Item) (*model.Item, error) {
	if item.Status == model.ItemStatusClaimed {
		return nil, apperr.Conflict("item has already been claimed")
	}
	approved, err := store.CountApprovedClaims(ctx, q, item.Ref())
	if err != nil {
		return nil, apperr.Storage(err, "failed to count approved claims")
	}
	if approved > 0 {
		return nil, apperr.Conflict("item %s already has an approved claim", item.Ref())
	}
	return c.move(ctx, q, item, model.ItemStatusClaimed, item.WasReturned)
}

func (c *Coordinator) ownerOnly(ctx context.Context, q store.Querier, ref model.ItemRef, actor model.Actor) (*model.Item, error) {
	item, err := c.Directory.Find(ctx, q, ref)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != actor.ID {
		return nil, apperr.Forbidden("only the owner can change this item")
	}
	return item, nil
}

// MarkReturned confirms the physical handoff of a claimed lost item. The
// returned marker survives later archiving.
func (c *Coordinator) MarkReturned(ctx context.Context, q store.Querier, ref model.ItemRef, actor model.Actor) (*model.Item, error) {
	item, err := c.ownerOnly(ctx, q, ref, actor)
	if err != nil {
		return nil, err
	}
	return c.move(ctx, q, item, model.ItemStatusReturned, true)
}

// Archive hides an active, claimed or returned item. A claimed item whose
// sibling claims are still pending cannot be archived until they are
// rejected or withdrawn, so a restore never revives it with pending claims.
func (c *Coordinator) Archive(ctx context.Context, q store.Querier, ref model.ItemRef, actor model.Actor) (*model.Item, error) {
	item, err := c.ownerOnly(ctx, q, ref, actor)
	if err != nil {
		return nil, err
	}
	if err := c.noPendingClaims(ctx, q, item, model.ItemStatusArchived, "archived"); err != nil {
		return nil, err
	}
	return c.move(ctx, q, item, model.ItemStatusArchived, item.WasReturned)
}

// Restore brings an archived item back to active.
func (c *Coordinator) Restore(ctx context.Context, q store.Querier, ref model.ItemRef, actor model.Actor) (*model.Item, error) {
	item, err := c.ownerOnly(ctx, q, ref, actor)
	if err != nil {
		return nil, err
	}
	if err := c.noPendingClaims(ctx, q, item, model.ItemStatusActive, "restored"); err != nil {
		return nil, err
	}
	return c.move(ctx, q, item, model.ItemStatusActive, item.WasReturned)
}

// noPendingClaims refuses an otherwise allowed move while claims against
// item are still pending. Disallowed moves are left for SetStatus to report.
func (c *Coordinator) noPendingClaims(ctx context.Context, q store.Querier, item *model.Item, to model.ItemStatus, verb string) error {
	if !model.CanTransition(item.Kind, item.Status, to) {
		return nil
	}
	pending, err := store.CountPendingClaims(ctx, q, item.Ref())
	if err != nil {
		return apperr.Storage(err, "failed to count pending claims")
	}
	if pending > 0 {
		return apperr.Conflict("item has %d pending claims and cannot be %s", pending, verb)
	}
	return nil
}

// DeleteReviewNote is stored on claims rejected because their item was deleted.
const DeleteReviewNote = "item was deleted"

// SoftDelete marks an item deleted. Pending claims against it are rejected
// in the same transaction; the rejected claims are returned so the caller
// can notify their claimants. Only a moderator is recorded as the reviewer
// of those rejections; an owner's delete leaves the reviewer empty.
func (c *Coordinator) SoftDelete(ctx context.Context, q store.Querier, ref model.ItemRef, actor model.Actor) (*model.Item, []model.ClaimRequest, error) {
	item, err := c.Directory.Find(ctx, q, ref)
	if err != nil {
		return nil, nil, err
	}
	if item.OwnerID != actor.ID && !actor.IsModerator() {
		return nil, nil, apperr.Forbidden("only the owner or a moderator can delete this item")
	}
	if item.Status == model.ItemStatusDeleted {
		return nil, nil, apperr.InvalidTransition("item is already deleted")
	}

	pending, err := store.ListClaims(ctx, q, model.ClaimFilter{Status: model.ClaimStatusPending, Item: &ref})
	if err != nil {
		return nil, nil, apperr.Storage(err, "failed to list pending claims")
	}
	var reviewerID int64
	if actor.IsModerator() {
		reviewerID = actor.ID
	}
	for i := range pending {
		ok, err := store.ResolveClaim(ctx, q, pending[i].ID, model.ClaimStatusRejected, reviewerID, DeleteReviewNote, c.Now())
		if err != nil {
			return nil, nil, apperr.Storage(err, "failed to reject claim")
		}
		if !ok {
			return nil, nil, apperr.Conflict("claim %d was reviewed concurrently", pending[i].ID)
		}
		pending[i].Status = model.ClaimStatusRejected
		if reviewerID > 0 {
			pending[i].ReviewerID = &reviewerID
		}
	}

	deleted, err := c.move(ctx, q, item, model.ItemStatusDeleted, item.WasReturned)
	if err != nil {
		return nil, nil, err
	}
	return deleted, pending, nil
}
