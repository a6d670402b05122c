package models

import "time"

// Network is a customer-owned named graph container. The topology itself
// lives in versioned node and edge rows, not on the network row.
type Network struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CustomerID  int64     `json:"customer_id" db:"customer_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// NetworkVersion is an immutable snapshot marker. Version numbers are a
// strictly increasing per-network sequence starting at 1, with no gaps,
// enforced by the unique (network_id, version_number) constraint.
type NetworkVersion struct {
	ID            int64     `json:"id" db:"id"`
	NetworkID     int64     `json:"network_id" db:"network_id"`
	VersionNumber int       `json:"version_number" db:"version_number"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// NetworkWithVersion extends Network with the version and row counts produced
// by a topology write, for create/update responses.
type NetworkWithVersion struct {
	Network
	Version   int `json:"version"`
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}
