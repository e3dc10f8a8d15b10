package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
)

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

// LoadAll streams the full customer table into memory. This is the one-time
// blocking population load; it runs before the engine accepts queries.
func (r *customerRepository) LoadAll(ctx context.Context) ([]models.Customer, error) {
	query := `
		SELECT id, name, gender, birth_year, region, skin_type, grade, joined_at, last_order_at
		FROM customers
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		var c models.Customer
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Gender,
			&c.BirthYear,
			&c.Region,
			&c.SkinType,
			&c.Grade,
			&c.JoinedAt,
			&c.LastOrderAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}

	return customers, nil
}

// CreateBatch inserts customers in one multi-row statement
func (r *customerRepository) CreateBatch(ctx context.Context, customers []models.Customer) error {
	if len(customers) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(customers))
	args := make([]interface{}, 0, len(customers)*9)

	for i, c := range customers {
		base := i * 9
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args, c.ID, c.Name, c.Gender, c.BirthYear, c.Region,
			c.SkinType, c.Grade, c.JoinedAt, c.LastOrderAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO customers (id, name, gender, birth_year, region, skin_type, grade, joined_at, last_order_at)
		VALUES %s`, strings.Join(placeholders, ", "))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert customers: %w", err)
	}

	return nil
}

// Count returns the customer population size
func (r *customerRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return count, nil
}

// DeleteAll clears the customer table (seeder use only)
func (r *customerRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM customers`); err != nil {
		return fmt.Errorf("failed to clear customers: %w", err)
	}
	return nil
}
