package models

import "time"

// Customer is a tenant of the service. Every network belongs to exactly one
// customer, and every request is authenticated with the customer's API key.
type Customer struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	APIKey    string    `json:"api_key" db:"api_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
