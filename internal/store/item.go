package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/shopsync/internal/model"
)

// ItemStore persists shopping-list items. Every query is scoped by group id
// so an item is only ever reachable through the group that owns it.
type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var item model.Item
	var quantity sql.NullInt64
	var checked int

	err := scanner.Scan(
		&item.ID, &item.GroupID, &item.Name, &quantity, &checked,
		&item.AddedByID, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Checked = checked != 0
	if quantity.Valid {
		q := int(quantity.Int64)
		item.Quantity = &q
	}
	return &item, nil
}

func scanItemView(scanner interface{ Scan(...any) error }) (*model.ItemView, error) {
	var v model.ItemView
	var quantity sql.NullInt64
	var checked int

	err := scanner.Scan(
		&v.ID, &v.Name, &quantity, &checked,
		&v.AddedByID, &v.AddedByName, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.Checked = checked != 0
	if quantity.Valid {
		q := int(quantity.Int64)
		v.Quantity = &q
	}
	return &v, nil
}

const itemCols = `id, group_id, name, quantity, checked, added_by_id, created_at, updated_at`

const itemViewSelect = `SELECT i.id, i.name, i.quantity, i.checked, i.added_by_id, u.name, i.created_at, i.updated_at
	FROM items i
	JOIN users u ON u.id = i.added_by_id`

func nullableInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *ItemStore) Create(ctx context.Context, groupID, name string, quantity *int, addedByID string) (*model.Item, error) {
	now := time.Now().UTC()
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (id, group_id, name, quantity, checked, added_by_id, created_at, updated_at) VALUES (?, ?, ?, ?, 0, ?, ?, ?)`,
		id, groupID, name, nullableInt(quantity), addedByID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return s.Get(ctx, groupID, id)
}

// Get returns the item, or nil if it does not exist in the group.
func (s *ItemStore) Get(ctx context.Context, groupID, id string) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemCols+` FROM items WHERE id = ? AND group_id = ?`, id, groupID)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// GetView returns the enriched item view, or nil if it does not exist in the group.
func (s *ItemStore) GetView(ctx context.Context, groupID, id string) (*model.ItemView, error) {
	row := s.db.QueryRowContext(ctx, itemViewSelect+` WHERE i.id = ? AND i.group_id = ?`, id, groupID)
	v, err := scanItemView(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item view: %w", err)
	}
	return v, nil
}

// ListViews returns a group's items in creation order. Items created within
// the same clock tick keep insertion order.
func (s *ItemStore) ListViews(ctx context.Context, groupID string) ([]model.ItemView, error) {
	rows, err := s.db.QueryContext(ctx,
		itemViewSelect+` WHERE i.group_id = ? ORDER BY i.created_at ASC, i.rowid ASC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.ItemView
	for rows.Next() {
		v, err := scanItemView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *v)
	}
	return items, rows.Err()
}

// Update applies the fields set in patch and bumps updated_at. It reports
// whether a row matched; a concurrent delete yields false, not an error.
func (s *ItemStore) Update(ctx context.Context, groupID, id string, patch model.ItemPatch) (bool, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Quantity.Set {
		sets = append(sets, "quantity = ?")
		args = append(args, nullableInt(patch.Quantity.Value))
	}
	if patch.Checked != nil {
		sets = append(sets, "checked = ?")
		args = append(args, boolInt(*patch.Checked))
	}
	args = append(args, id, groupID)

	result, err := s.db.ExecContext(ctx,
		`UPDATE items SET `+strings.Join(sets, ", ")+` WHERE id = ? AND group_id = ?`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("update item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Delete removes the item and reports whether a row was deleted.
func (s *ItemStore) Delete(ctx context.Context, groupID, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ? AND group_id = ?`, id, groupID)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Counts returns the total and checked item counts for a group.
func (s *ItemStore) Counts(ctx context.Context, groupID string) (total, checked int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(checked), 0) FROM items WHERE group_id = ?`,
		groupID,
	).Scan(&total, &checked)
	if err != nil {
		return 0, 0, fmt.Errorf("count items: %w", err)
	}
	return total, checked, nil
}
