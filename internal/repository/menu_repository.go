package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/cafe-ordering/internal/model"
)

// MenuRepo is the read side of the menu catalog.  Catalog maintenance lives
// in the back-office tooling; the ordering core only needs to resolve
// items to their current price and availability.
type MenuRepo struct{ db *sql.DB }

func NewMenuRepo(db *sql.DB) *MenuRepo { return &MenuRepo{db: db} }

// ResolveItems returns the catalog entries for ids.  Ids that do not exist
// are simply absent from the result; callers decide what that means.
// Duplicate ids are queried once.
func (r *MenuRepo) ResolveItems(ctx context.Context, ids []uint64) ([]model.CatalogItem, error) {
	const op = "repository.MenuRepo.ResolveItems"

	items := make([]model.CatalogItem, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}
	seen := make(map[uint64]struct{}, len(ids))
	args := make([]interface{}, 0, len(ids))
	placeholders := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		args = append(args, id)
		placeholders = append(placeholders, "?")
	}
	q := `SELECT id, name, price, is_available FROM menu_items WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	for rows.Next() {
		var it model.CatalogItem
		if err := rows.Scan(&it.ID, &it.Name, &it.UnitPrice, &it.Available); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}
