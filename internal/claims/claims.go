package claims

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/erazemk/najdeno/internal/apperr"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/notify"
	"github.com/erazemk/najdeno/internal/store"
)

// FileRequest is a new ownership claim.
type FileRequest struct {
	Item       model.ItemRef
	ClaimantID int64
	Proof      string
	EvidenceID string
}

// File records a pending claim, marks the item pending and tells the owner,
// unless the owner filed it.
func (s *Service) File(ctx context.Context, req FileRequest) (*model.ClaimRequest, error) {
	req.Proof = strings.TrimSpace(req.Proof)
	if req.Proof == "" {
		return nil, apperr.Validation("proof is required")
	}
	if !req.Item.Kind.Valid() {
		return nil, apperr.Validation("kind must be lost or found")
	}

	var claimID int64
	err := s.mutate(ctx, req.Item, func(tx *sql.Tx, fx *effects) error {
		item, err := s.Directory.Find(ctx, tx, req.Item)
		if err != nil {
			return err
		}
		if !item.Claimable() {
			return apperr.Conflict("item is %s and is not open for claims", item.Status)
		}

		if req.EvidenceID != "" {
			ev, err := store.GetEvidence(ctx, tx, req.EvidenceID)
			if err != nil {
				return err
			}
			if ev == nil || ev.UploaderID != req.ClaimantID {
				return apperr.Validation("evidence not found")
			}
		}

		dup, err := store.HasPendingClaim(ctx, tx, req.Item, req.ClaimantID)
		if err != nil {
			return err
		}
		if dup {
			return apperr.Conflict("you already have a pending claim on this item")
		}

		claimID, err = store.InsertClaim(ctx, tx, req.Item, req.ClaimantID, req.Proof, req.EvidenceID, fx.now)
		if store.IsUniqueViolation(err) {
			return apperr.Conflict("you already have a pending claim on this item")
		}
		if err != nil {
			return err
		}

		if _, err := s.Coordinator.ClaimFiled(ctx, tx, item); err != nil {
			return err
		}

		if item.OwnerID != req.ClaimantID {
			ref := item.Ref()
			return fx.notify(ctx, notify.Event{
				Recipients: []int64{item.OwnerID},
				Type:       model.NotifyNewClaimRequest,
				Title:      "New claim request",
				Message:    fmt.Sprintf("Someone has claimed your item %q.", item.Title),
				Item:       &ref,
				ClaimID:    &claimID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log().Info("claim filed", "claim_id", claimID, "item", req.Item.String(), "claimant_id", req.ClaimantID)
	return s.Get(ctx, claimID)
}

// List returns claims matching f with their current item attached.
func (s *Service) List(ctx context.Context, f model.ClaimFilter) ([]model.ClaimRequest, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("unknown claim status %q", f.Status)
	}
	list, err := store.ListClaims(ctx, s.DB, f)
	if err != nil {
		return nil, apperr.Storage(err, "failed to list claims")
	}
	if list == nil {
		list = []model.ClaimRequest{}
	}
	if err := s.attachItems(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Get returns one claim with its current item attached.
func (s *Service) Get(ctx context.Context, id int64) (*model.ClaimRequest, error) {
	c, err := store.GetClaim(ctx, s.DB, id)
	if err != nil {
		return nil, apperr.Storage(err, "failed to load claim")
	}
	if c == nil {
		return nil, apperr.NotFound("claim not found")
	}
	one := []model.ClaimRequest{*c}
	if err := s.attachItems(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// ResolveRequest is a moderator's decision on a claim.
type ResolveRequest struct {
	ClaimID  int64
	Decision model.ClaimStatus
	Reviewer model.Actor
	Notes    string
}

// Resolve approves or rejects a pending claim. The claimant is notified and
// the decision is audited; approval also notifies the owner.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (*model.ClaimRequest, error) {
	if req.Decision != model.ClaimStatusApproved && req.Decision != model.ClaimStatusRejected {
		return nil, apperr.Validation("decision must be approved or rejected")
	}
	if !req.Reviewer.IsModerator() {
		return nil, apperr.Forbidden("only moderators can review claims")
	}

	existing, err := store.GetClaim(ctx, s.DB, req.ClaimID)
	if err != nil {
		return nil, apperr.Storage(err, "failed to load claim")
	}
	if existing == nil {
		return nil, apperr.NotFound("claim not found")
	}
	ref := existing.ItemRef()

	var autoRejected int
	err = s.mutate(ctx, ref, func(tx *sql.Tx, fx *effects) error {
		claim, err := store.GetClaim(ctx, tx, req.ClaimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return apperr.NotFound("claim not found")
		}
		if claim.Status != model.ClaimStatusPending {
			return apperr.Conflict("claim has already been reviewed")
		}

		item, err := s.Directory.Find(ctx, tx, ref)
		if err != nil {
			return err
		}

		if req.Decision == model.ClaimStatusApproved {
			if _, err := s.Coordinator.ClaimApproved(ctx, tx, item); err != nil {
				return err
			}
		}

		ok, err := store.ResolveClaim(ctx, tx, claim.ID, req.Decision, req.Reviewer.ID, req.Notes, fx.now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("claim has already been reviewed")
		}

		if req.Decision == model.ClaimStatusRejected {
			if _, err := s.Coordinator.ClaimReleased(ctx, tx, ref); err != nil {
				return err
			}
		}

		if err := s.decided(ctx, fx, claim, item, req.Decision, req.Reviewer.ID, req.Notes, false); err != nil {
			return err
		}

		if req.Decision == model.ClaimStatusApproved && s.Policy == SiblingsReject {
			autoRejected, err = s.rejectSiblings(ctx, tx, fx, item, req.Reviewer.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log().Info("claim resolved", "claim_id", req.ClaimID, "decision", req.Decision,
		"reviewer_id", req.Reviewer.ID, "item", ref.String(), "auto_rejected", autoRejected)
	return s.Get(ctx, req.ClaimID)
}

// rejectSiblings rejects every other pending claim on a just-claimed item.
func (s *Service) rejectSiblings(ctx context.Context, tx *sql.Tx, fx *effects, item *model.Item, reviewerID int64) (int, error) {
	ref := item.Ref()
	siblings, err := store.ListClaims(ctx, tx, model.ClaimFilter{Status: model.ClaimStatusPending, Item: &ref})
	if err != nil {
		return 0, err
	}
	for i := range siblings {
		sib := &siblings[i]
		ok, err := store.ResolveClaim(ctx, tx, sib.ID, model.ClaimStatusRejected, reviewerID, SiblingRejectNote, fx.now)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, apperr.Conflict("claim %d was reviewed concurrently", sib.ID)
		}
		if err := s.decided(ctx, fx, sib, item, model.ClaimStatusRejected, reviewerID, SiblingRejectNote, true); err != nil {
			return 0, err
		}
	}
	return len(siblings), nil
}

// decided queues the claimant notification, the owner notification on
// approval and the audit entry for one resolved claim.
func (s *Service) decided(ctx context.Context, fx *effects, claim *model.ClaimRequest, item *model.Item, decision model.ClaimStatus, reviewerID int64, notes string, auto bool) error {
	ref := item.Ref()
	claimID := claim.ID

	ev := notify.Event{
		Recipients: []int64{claim.ClaimantID},
		Item:       &ref,
		ClaimID:    &claimID,
	}
	action := model.AuditClaimRejected
	if decision == model.ClaimStatusApproved {
		action = model.AuditClaimApproved
		ev.Type = model.NotifyClaimApproved
		ev.Title = "Claim approved"
		ev.Message = fmt.Sprintf("Your claim for %q was approved.", item.Title)
	} else {
		ev.Type = model.NotifyClaimRejected
		ev.Title = "Claim rejected"
		ev.Message = fmt.Sprintf("Your claim for %q was rejected.", item.Title)
	}
	if notes != "" {
		ev.Message += " Note: " + notes
	}
	if err := fx.notify(ctx, ev); err != nil {
		return err
	}

	if decision == model.ClaimStatusApproved && item.OwnerID != claim.ClaimantID {
		err := fx.notify(ctx, notify.Event{
			Recipients: []int64{item.OwnerID},
			Type:       model.NotifyItemClaimed,
			Title:      "Item claimed",
			Message:    fmt.Sprintf("A claim for your item %q was approved.", item.Title),
			Item:       &ref,
			ClaimID:    &claimID,
		})
		if err != nil {
			return err
		}
	}

	return auditDecision(ctx, fx, claim, ref, action, reviewerID, notes, auto)
}

// auditDecision queues the one audit entry a moderator's resolution of claim
// produces. Auto marks rejections that followed from another action.
func auditDecision(ctx context.Context, fx *effects, claim *model.ClaimRequest, ref model.ItemRef, action model.AuditAction, reviewerID int64, notes string, auto bool) error {
	metadata, err := json.Marshal(map[string]any{
		"item":        ref.String(),
		"claimant_id": claim.ClaimantID,
		"auto":        auto,
	})
	if err != nil {
		return err
	}
	return fx.audit(ctx, model.AuditLogEntry{
		ModeratorID: reviewerID,
		Action:      action,
		TargetType:  model.TargetClaim,
		TargetID:    strconv.FormatInt(claim.ID, 10),
		Details:     notes,
		Metadata:    metadata,
	})
}

// Withdraw deletes a pending claim on behalf of its claimant or a moderator.
// The item returns to active once no pending claims remain. Nobody is
// notified.
func (s *Service) Withdraw(ctx context.Context, claimID int64, actor model.Actor) error {
	existing, err := store.GetClaim(ctx, s.DB, claimID)
	if err != nil {
		return apperr.Storage(err, "failed to load claim")
	}
	if existing == nil {
		return apperr.NotFound("claim not found")
	}
	if existing.ClaimantID != actor.ID && !actor.IsModerator() {
		return apperr.Forbidden("only the claimant or a moderator can withdraw this claim")
	}
	ref := existing.ItemRef()

	err = s.mutate(ctx, ref, func(tx *sql.Tx, fx *effects) error {
		ok, err := store.DeletePendingClaim(ctx, tx, claimID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("only pending claims can be withdrawn")
		}
		_, err = s.Coordinator.ClaimReleased(ctx, tx, ref)
		return err
	})
	if err != nil {
		return err
	}

	s.log().Info("claim withdrawn", "claim_id", claimID, "item", ref.String(), "actor_id", actor.ID)
	return nil
}
