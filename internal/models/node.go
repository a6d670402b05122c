package models

import "time"

// Node is a point entity scoped to one network and one version.
// (network_id, external_id, version_id) is unique: the same external id may
// recur across versions but not twice within one version.
type Node struct {
	ID         int64       `json:"id" db:"id"`
	NetworkID  int64       `json:"network_id" db:"network_id"`
	VersionID  int64       `json:"version_id" db:"version_id"`
	ExternalID string      `json:"external_id" db:"external_id"`
	Lng        float64     `json:"lng" db:"lng"`
	Lat        float64     `json:"lat" db:"lat"`
	Properties PropertyBag `json:"properties" db:"properties"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}
