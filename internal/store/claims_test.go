package store

import (
	"context"
	"testing"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
)

func TestInsertAndGetClaim(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner", model.RoleUser)
	claimant := mustUser(t, database, "claimant", model.RoleUser)
	item := mustItem(t, database, model.KindFound, owner.ID, "Keys")

	id := mustClaim(t, database, item.Ref(), claimant.ID)

	c, err := GetClaim(ctx, database, id)
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if c.Status != model.ClaimStatusPending {
		t.Errorf("expected pending, got %q", c.Status)
	}
	if c.ClaimantName != "claimant" {
		t.Errorf("expected claimant name, got %q", c.ClaimantName)
	}
	if c.ReviewerID != nil || c.ReviewedAt != nil {
		t.Error("expected no reviewer on a pending claim")
	}
	if c.ItemRef() != item.Ref() {
		t.Errorf("expected item ref %s, got %s", item.Ref(), c.ItemRef())
	}

	missing, _ := GetClaim(ctx, database, id+100)
	if missing != nil {
		t.Error("expected nil for missing claim")
	}
}

func TestOnePendingClaimPerClaimant(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner", model.RoleUser)
	claimant := mustUser(t, database, "claimant", model.RoleUser)
	item := mustItem(t, database, model.KindFound, owner.ID, "Keys")

	first := mustClaim(t, database, item.Ref(), claimant.ID)

	_, err := InsertClaim(ctx, database, item.Ref(), claimant.ID, "again", "", testNow)
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	// Once the first claim is resolved a new one may be filed.
	if ok, err := ResolveClaim(ctx, database, first, model.ClaimStatusRejected, owner.ID, "", testNow); err != nil || !ok {
		t.Fatalf("ResolveClaim: ok=%v err=%v", ok, err)
	}
	mustClaim(t, database, item.Ref(), claimant.ID)
}

func TestResolveClaimOnlyOnce(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner", model.RoleUser)
	mod := mustUser(t, database, "mod", model.RoleModerator)
	claimant := mustUser(t, database, "claimant", model.RoleUser)
	item := mustItem(t, database, model.KindLost, owner.ID, "Ring")
	id := mustClaim(t, database, item.Ref(), claimant.ID)

	ok, err := ResolveClaim(ctx, database, id, model.ClaimStatusApproved, mod.ID, "matches", testNow)
	if err != nil || !ok {
		t.Fatalf("ResolveClaim: ok=%v err=%v", ok, err)
	}

	ok, err = ResolveClaim(ctx, database, id, model.ClaimStatusRejected, mod.ID, "", testNow)
	if err != nil {
		t.Fatalf("second ResolveClaim: %v", err)
	}
	if ok {
		t.Error("expected resolved claim to stay resolved")
	}

	c, _ := GetClaim(ctx, database, id)
	if c.Status != model.ClaimStatusApproved {
		t.Errorf("expected approved, got %q", c.Status)
	}
	if c.ReviewerName != "mod" || c.ReviewNotes != "matches" {
		t.Errorf("unexpected review fields: %q %q", c.ReviewerName, c.ReviewNotes)
	}
	if c.ReviewedAt == nil || !c.ReviewedAt.Equal(testNow) {
		t.Errorf("expected reviewed_at %v, got %v", testNow, c.ReviewedAt)
	}
}

func TestListClaimsAndCounts(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner", model.RoleUser)
	a := mustUser(t, database, "a", model.RoleUser)
	b := mustUser(t, database, "b", model.RoleUser)
	item := mustItem(t, database, model.KindFound, owner.ID, "Bag")
	other := mustItem(t, database, model.KindLost, owner.ID, "Hat")

	ca := mustClaim(t, database, item.Ref(), a.ID)
	mustClaim(t, database, item.Ref(), b.ID)
	mustClaim(t, database, other.Ref(), a.ID)
	ResolveClaim(ctx, database, ca, model.ClaimStatusApproved, owner.ID, "", testNow)

	ref := item.Ref()
	onItem, _ := ListClaims(ctx, database, model.ClaimFilter{Item: &ref})
	if len(onItem) != 2 {
		t.Errorf("expected 2 claims on item, got %d", len(onItem))
	}
	byA, _ := ListClaims(ctx, database, model.ClaimFilter{ClaimantID: a.ID})
	if len(byA) != 2 {
		t.Errorf("expected 2 claims by a, got %d", len(byA))
	}
	pending, _ := ListClaims(ctx, database, model.ClaimFilter{Status: model.ClaimStatusPending})
	if len(pending) != 2 {
		t.Errorf("expected 2 pending claims, got %d", len(pending))
	}

	if n, _ := CountPendingClaims(ctx, database, ref); n != 1 {
		t.Errorf("expected 1 pending on item, got %d", n)
	}
	if n, _ := CountApprovedClaims(ctx, database, ref); n != 1 {
		t.Errorf("expected 1 approved on item, got %d", n)
	}
	if has, _ := HasPendingClaim(ctx, database, ref, b.ID); !has {
		t.Error("expected b to have a pending claim")
	}
	if has, _ := HasPendingClaim(ctx, database, ref, a.ID); has {
		t.Error("expected a to have no pending claim")
	}
}

func TestDeletePendingClaim(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner", model.RoleUser)
	claimant := mustUser(t, database, "claimant", model.RoleUser)
	item := mustItem(t, database, model.KindFound, owner.ID, "Keys")
	id := mustClaim(t, database, item.Ref(), claimant.ID)

	ok, err := DeletePendingClaim(ctx, database, id)
	if err != nil || !ok {
		t.Fatalf("DeletePendingClaim: ok=%v err=%v", ok, err)
	}
	ok, _ = DeletePendingClaim(ctx, database, id)
	if ok {
		t.Error("expected second delete to report false")
	}
}

func TestResolveClaimWithoutReviewer(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner", model.RoleUser)
	claimant := mustUser(t, database, "claimant", model.RoleUser)
	item := mustItem(t, database, model.KindFound, owner.ID, "Gloves")
	id := mustClaim(t, database, item.Ref(), claimant.ID)

	if ok, err := ResolveClaim(ctx, database, id, model.ClaimStatusRejected, 0, "item was deleted", testNow); err != nil || !ok {
		t.Fatalf("ResolveClaim: ok=%v err=%v", ok, err)
	}

	c, _ := GetClaim(ctx, database, id)
	if c.ReviewerID != nil || c.ReviewerName != "" || c.ReviewedAt == nil {
		t.Errorf("expected a reviewed claim without reviewer, got %+v", c)
	}
}
