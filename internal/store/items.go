package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

// itemTables maps each kind to its table. Table names never come from input.
var itemTables = map[model.ItemKind]string{
	model.KindLost:  "lost_items",
	model.KindFound: "found_items",
}

func itemTable(kind model.ItemKind) (string, error) {
	table, ok := itemTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown item kind %q", kind)
	}
	return table, nil
}

const itemColumns = `id, owner_id, title, description, category, location, status, was_returned, version, created_at, updated_at`

func scanItem(kind model.ItemKind, row interface{ Scan(...any) error }) (*model.Item, error) {
	item := &model.Item{Kind: kind}
	var description, location sql.NullString
	if err := row.Scan(&item.ID, &item.OwnerID, &item.Title, &description, &item.Category, &location,
		&item.Status, &item.WasReturned, &item.Version, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.Description = description.String
	item.Location = location.String
	return item, nil
}

// NewItem holds the fields supplied when an item is posted.
type NewItem struct {
	Kind        model.ItemKind
	OwnerID     int64
	Title       string
	Description string
	Category    string
	Location    string
}

// CreateItem inserts a new active item into the table for its kind.
func CreateItem(ctx context.Context, q Querier, n NewItem, now time.Time) (*model.Item, error) {
	table, err := itemTable(n.Kind)
	if err != nil {
		return nil, err
	}
	if n.Category == "" {
		n.Category = model.DefaultCategory
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO `+table+` (owner_id, title, description, category, location, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.OwnerID, n.Title, nullString(n.Description), n.Category, nullString(n.Location), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s item: %w", n.Kind, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, q, model.ItemRef{Kind: n.Kind, ID: id})
}

// GetItem returns an item by reference, or nil if it does not exist.
func GetItem(ctx context.Context, q Querier, ref model.ItemRef) (*model.Item, error) {
	table, err := itemTable(ref.Kind)
	if err != nil {
		return nil, err
	}

	item, err := scanItem(ref.Kind, q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM `+table+` WHERE id = ?`, ref.ID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", ref, err)
	}
	return item, nil
}

// ItemFilter narrows item listings. Zero fields are ignored.
type ItemFilter struct {
	Status   model.ItemStatus
	OwnerID  int64
	Category string
}

// ListItems returns the items of one kind, newest first. Deleted items are
// excluded unless the filter asks for them explicitly.
func ListItems(ctx context.Context, q Querier, kind model.ItemKind, f ItemFilter) ([]model.Item, error) {
	table, err := itemTable(kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + itemColumns + ` FROM ` + table + ` WHERE 1=1`
	var args []any

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	} else {
		query += ` AND status <> ?`
		args = append(args, model.ItemStatusDeleted)
	}
	if f.OwnerID > 0 {
		query += ` AND owner_id = ?`
		args = append(args, f.OwnerID)
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s items: %w", kind, err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(kind, rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// SetItemStatus writes a new status if the stored version still equals
// version. It reports whether a row was updated; false means the item was
// changed by someone else since it was read.
func SetItemStatus(ctx context.Context, q Querier, ref model.ItemRef, version int64, status model.ItemStatus, wasReturned bool, now time.Time) (bool, error) {
	table, err := itemTable(ref.Kind)
	if err != nil {
		return false, err
	}

	result, err := q.ExecContext(ctx,
		`UPDATE `+table+` SET status = ?, was_returned = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		status, wasReturned, now, ref.ID, version,
	)
	if err != nil {
		return false, fmt.Errorf("setting item %s status: %w", ref, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking item %s update: %w", ref, err)
	}
	return n == 1, nil
}

// CategoriesFor returns the category of each referenced item that exists.
func CategoriesFor(ctx context.Context, q Querier, refs []model.ItemRef) (map[model.ItemRef]string, error) {
	out := make(map[model.ItemRef]string, len(refs))
	for _, ref := range refs {
		if _, seen := out[ref]; seen {
			continue
		}
		table, err := itemTable(ref.Kind)
		if err != nil {
			return nil, err
		}
		var category string
		err = q.QueryRowContext(ctx, `SELECT category FROM `+table+` WHERE id = ?`, ref.ID).Scan(&category)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("getting item %s category: %w", ref, err)
		}
		out[ref] = category
	}
	return out, nil
}
