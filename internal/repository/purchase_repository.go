package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
)

type purchaseRepository struct {
	db *sql.DB
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(db *sql.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

// CategoryMembership builds the category membership index from the raw
// purchase history: category -> set of customer ids that ever bought it.
// Built once at load time and cached by the population store.
func (r *purchaseRepository) CategoryMembership(ctx context.Context) (map[string]map[string]struct{}, error) {
	query := `SELECT DISTINCT category, customer_id FROM purchases`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load category membership: %w", err)
	}
	defer rows.Close()

	index := make(map[string]map[string]struct{})
	for rows.Next() {
		var category, customerID string
		if err := rows.Scan(&category, &customerID); err != nil {
			return nil, fmt.Errorf("failed to scan purchase row: %w", err)
		}
		members, ok := index[category]
		if !ok {
			members = make(map[string]struct{})
			index[category] = members
		}
		members[customerID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchases: %w", err)
	}

	return index, nil
}

// CreateBatch inserts purchases in one multi-row statement
func (r *purchaseRepository) CreateBatch(ctx context.Context, purchases []models.Purchase) error {
	if len(purchases) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(purchases))
	args := make([]interface{}, 0, len(purchases)*6)

	for i, p := range purchases {
		base := i * 6
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
		))
		args = append(args, p.ID, p.CustomerID, p.PurchasedAt, p.Category, p.Product, p.Amount)
	}

	query := fmt.Sprintf(`
		INSERT INTO purchases (id, customer_id, purchased_at, category, product, amount)
		VALUES %s`, strings.Join(placeholders, ", "))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert purchases: %w", err)
	}

	return nil
}

// Count returns the purchase history size
func (r *purchaseRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchases`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count purchases: %w", err)
	}
	return count, nil
}

// DeleteAll clears the purchase table (seeder use only)
func (r *purchaseRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM purchases`); err != nil {
		return fmt.Errorf("failed to clear purchases: %w", err)
	}
	return nil
}
