package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func mustUser(t *testing.T, q Querier, username, role string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), q, username, "hash", role)
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return u
}

func mustItem(t *testing.T, q Querier, kind model.ItemKind, ownerID int64, title string) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), q, NewItem{
		Kind: kind, OwnerID: ownerID, Title: title, Category: "electronics",
	}, testNow)
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", title, err)
	}
	return item
}

func mustClaim(t *testing.T, q Querier, ref model.ItemRef, claimantID int64) int64 {
	t.Helper()
	id, err := InsertClaim(context.Background(), q, ref, claimantID, "it has my initials", "", testNow)
	if err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}
	return id
}

var _ Querier = (*sql.DB)(nil)
var _ Querier = (*sql.Tx)(nil)
