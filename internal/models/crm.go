package models

import "time"

// Customer is the slice of the CRM customer record the pipeline needs:
// identity for the vendor call and fields for template rendering.
type Customer struct {
	ID               string    `json:"id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Location         string    `json:"location"`
	PreferredProduct string    `json:"preferred_product"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Order struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Product    string    `json:"product"`
	AmountCent int64     `json:"amount_cent"`
	PlacedAt   time.Time `json:"placed_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
