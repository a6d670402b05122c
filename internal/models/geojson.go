package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// GeoJSON type tags accepted on topology input.
const (
	TypeFeatureCollection = "FeatureCollection"
	TypeFeature           = "Feature"
	GeometryPoint         = "Point"
	GeometryLineString    = "LineString"
)

// Position is a single coordinate tuple. GeoJSON allows extra dimensions
// beyond lon/lat, so the length is not fixed at 2.
type Position []float64

// Geometry is a GeoJSON geometry. Coordinates are kept raw because their
// shape depends on Type (Position for Point, []Position for LineString).
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Point decodes the coordinates of a Point geometry.
func (g *Geometry) Point() (Position, error) {
	var pos Position
	if err := json.Unmarshal(g.Coordinates, &pos); err != nil {
		return nil, fmt.Errorf("invalid point coordinates: %w", err)
	}
	if len(pos) < 2 {
		return nil, fmt.Errorf("point requires at least 2 coordinate values, got %d", len(pos))
	}
	return pos, nil
}

// Line decodes the coordinates of a LineString geometry.
func (g *Geometry) Line() ([]Position, error) {
	var line []Position
	if err := json.Unmarshal(g.Coordinates, &line); err != nil {
		return nil, fmt.Errorf("invalid linestring coordinates: %w", err)
	}
	for i, pos := range line {
		if len(pos) < 2 {
			return nil, fmt.Errorf("linestring coordinate %d requires at least 2 values", i)
		}
	}
	return line, nil
}

// Feature is a GeoJSON feature: one geometry plus an open property bag.
type Feature struct {
	Type       string      `json:"type"`
	Geometry   *Geometry   `json:"geometry"`
	Properties PropertyBag `json:"properties"`
}

// FeatureCollection is the only accepted input shape for topology updates.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewPointFeature builds a Point feature at the given position.
func NewPointFeature(pos Position, props PropertyBag) Feature {
	coords, _ := json.Marshal(pos)
	return Feature{
		Type:       TypeFeature,
		Geometry:   &Geometry{Type: GeometryPoint, Coordinates: coords},
		Properties: props,
	}
}

// PropertyBag is a string-keyed, JSON-valued property map stored as a JSON
// column (JSONB on Postgres, TEXT on SQLite).
type PropertyBag map[string]interface{}

// Value implements driver.Valuer.
func (p PropertyBag) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	// Stored as a string so both TEXT and JSONB columns accept it.
	return string(data), nil
}

// Scan implements sql.Scanner.
func (p *PropertyBag) Scan(src interface{}) error {
	if src == nil {
		*p = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into PropertyBag", src)
	}
	return json.Unmarshal(data, p)
}

// StringProperty returns the named property if it is a non-empty string.
func (p PropertyBag) StringProperty(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
