package models

import "time"

// Edge is a directed line entity scoped to one network and one version. The
// validity interval [valid_from, valid_to) is closed exactly once, when a
// later ReplaceTopology supersedes the edge. While current, valid_to is NULL.
type Edge struct {
	ID           int64       `json:"id" db:"id"`
	NetworkID    int64       `json:"network_id" db:"network_id"`
	VersionID    int64       `json:"version_id" db:"version_id"`
	ExternalID   string      `json:"external_id" db:"external_id"`
	SourceNodeID int64       `json:"source_node_id" db:"source_node_id"`
	TargetNodeID int64       `json:"target_node_id" db:"target_node_id"`
	Geometry     string      `json:"geometry" db:"geometry"` // JSON LineString coordinate array
	Properties   PropertyBag `json:"properties" db:"properties"`
	IsCurrent    bool        `json:"is_current" db:"is_current"`
	ValidFrom    time.Time   `json:"valid_from" db:"valid_from"`
	ValidTo      *time.Time  `json:"valid_to" db:"valid_to"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// EdgeCollection is the FeatureCollection-shaped read response for a
// version, point-in-time, or current edge query.
type EdgeCollection struct {
	Type      string    `json:"type"`
	NetworkID int64     `json:"network_id"`
	Version   *int      `json:"version"`
	Timestamp *string   `json:"timestamp"`
	Features  []Feature `json:"features"`
}

// PaginatedEdges is a single page of a version's edge set.
type PaginatedEdges struct {
	Type       string    `json:"type"`
	NetworkID  int64     `json:"network_id"`
	Version    int       `json:"version"`
	Features   []Feature `json:"features"`
	NextCursor *string   `json:"next_cursor"`
	TotalCount int       `json:"total_count"`
}
