package models

import "time"

// Customer is one row of the load-time-immutable population table
type Customer struct {
	ID          string     `json:"customer_id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Gender      Gender     `json:"gender" db:"gender"`
	BirthYear   int        `json:"birth_year" db:"birth_year"`
	Region      string     `json:"region" db:"region"`
	SkinType    string     `json:"skin_type" db:"skin_type"`
	Grade       string     `json:"grade" db:"grade"`
	JoinedAt    time.Time  `json:"joined_at" db:"joined_at"`
	LastOrderAt *time.Time `json:"last_order_at,omitempty" db:"last_order_at"`
}

// Age returns the customer's age computed against the given calendar year.
// Age boundaries shift every year on purpose: targeting is age-as-of-now.
func (c *Customer) Age(currentYear int) int {
	return currentYear - c.BirthYear
}

// Purchase is one row of the raw purchase history, used to build the
// category membership index and by the seeder
type Purchase struct {
	ID          string    `json:"purchase_id" db:"id"`
	CustomerID  string    `json:"customer_id" db:"customer_id"`
	PurchasedAt time.Time `json:"purchased_at" db:"purchased_at"`
	Category    string    `json:"category" db:"category"`
	Product     string    `json:"product" db:"product"`
	Amount      int       `json:"amount" db:"amount"`
}
