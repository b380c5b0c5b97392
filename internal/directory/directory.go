// Package directory resolves item references across the lost and found
// stores and persists status changes with an optimistic version check.
package directory

import (
	"context"
	"time"

	"github.com/erazemk/najdeno/internal/apperr"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// Directory is the single entry point for item reads and status writes.
type Directory struct {
	Now func() time.Time
}

// New returns a Directory that stamps writes with the current UTC time.
func New() *Directory {
	return &Directory{Now: func() time.Time { return time.Now().UTC() }}
}

// Find returns the item addressed by ref.
func (d *Directory) Find(ctx context.Context, q store.Querier, ref model.ItemRef) (*model.Item, error) {
	if !ref.Kind.Valid() {
		return nil, apperr.Validation("unknown item kind %q", ref.Kind)
	}
	item, err := store.GetItem(ctx, q, ref)
	if err != nil {
		return nil, apperr.Storage(err, "failed to load item")
	}
	if item == nil {
		return nil, apperr.NotFound("item %s not found", ref)
	}
	return item, nil
}

// Lookup resolves a bare id by probing the lost store, then the found store.
// It exists for callers that only carry a numeric id.
func (d *Directory) Lookup(ctx context.Context, q store.Querier, id int64) (*model.Item, error) {
	for _, kind := range []model.ItemKind{model.KindLost, model.KindFound} {
		item, err := store.GetItem(ctx, q, model.ItemRef{Kind: kind, ID: id})
		if err != nil {
			return nil, apperr.Storage(err, "failed to load item")
		}
		if item != nil {
			return item, nil
		}
	}
	return nil, apperr.NotFound("item %d not found", id)
}

// Transition describes one status change of one item. Version is the
// version the caller read; the write fails if it has moved on.
type Transition struct {
	Ref         model.ItemRef
	From        model.ItemStatus
	To          model.ItemStatus
	Version     int64
	WasReturned bool
}

// SetStatus persists t and returns the updated item. It refuses transitions
// the state machine does not list and reports a concurrent modification as
// a conflict.
func (d *Directory) SetStatus(ctx context.Context, q store.Querier, t Transition) (*model.Item, error) {
	if !model.CanTransition(t.Ref.Kind, t.From, t.To) {
		return nil, apperr.InvalidTransition("%s item cannot move from %s to %s", t.Ref.Kind, t.From, t.To)
	}

	ok, err := store.SetItemStatus(ctx, q, t.Ref, t.Version, t.To, t.WasReturned, d.Now())
	if err != nil {
		return nil, apperr.Storage(err, "failed to update item status")
	}
	if !ok {
		return nil, apperr.Conflict("item %s was modified concurrently", t.Ref)
	}
	return d.Find(ctx, q, t.Ref)
}

// Create posts a new active item.
func (d *Directory) Create(ctx context.Context, q store.Querier, n store.NewItem) (*model.Item, error) {
	if !n.Kind.Valid() {
		return nil, apperr.Validation("kind must be lost or found")
	}
	item, err := store.CreateItem(ctx, q, n, d.Now())
	if err != nil {
		return nil, apperr.Storage(err, "failed to create item")
	}
	return item, nil
}

// List returns the items of one kind matching f.
func (d *Directory) List(ctx context.Context, q store.Querier, kind model.ItemKind, f store.ItemFilter) ([]model.Item, error) {
	if !kind.Valid() {
		return nil, apperr.Validation("kind must be lost or found")
	}
	items, err := store.ListItems(ctx, q, kind, f)
	if err != nil {
		return nil, apperr.Storage(err, "failed to list items")
	}
	return items, nil
}
