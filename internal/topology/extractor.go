// Package topology derives a deduplicated node/edge graph from raw GeoJSON
// input. Extraction is pure: no storage access, no shared state.
package topology

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/roadgraph/roadgraph-backend/internal/models"
)

// ErrInvalidInput is returned when the input is not a well-formed
// FeatureCollection. It is the extractor's only failure mode; malformed
// individual features are skipped best-effort instead.
var ErrInvalidInput = errors.New("invalid topology data: expected a FeatureCollection")

// EdgeRef is an extracted edge with its endpoints resolved to node ids.
type EdgeRef struct {
	Feature models.Feature
	Source  string
	Target  string
}

// Graph is the extraction result: node id -> point feature and
// edge id -> resolved edge. Map iteration order carries no meaning.
type Graph struct {
	Nodes map[string]models.Feature
	Edges map[string]EdgeRef
}

// Extract turns a feature collection into a deduplicated graph.
//
// Every Point feature becomes a node, keyed by its properties.id when present
// or a generated uuid otherwise. Every LineString feature with at least two
// coordinates becomes an edge; shorter polylines are silently skipped. Edge
// endpoints are matched against node coordinates by exact equality — no
// tolerance or snapping — and unmatched endpoints synthesize a new node
// tagged auto_generated, indexed so later edges sharing that endpoint reuse it.
func Extract(fc *models.FeatureCollection) (*Graph, error) {
	if fc == nil || fc.Type != models.TypeFeatureCollection {
		return nil, ErrInvalidInput
	}

	g := &Graph{
		Nodes: make(map[string]models.Feature),
		Edges: make(map[string]EdgeRef),
	}
	byCoord := make(map[string]string) // exact coordinate key -> node id

	for _, f := range fc.Features {
		if f.Geometry == nil || f.Geometry.Type != models.GeometryPoint {
			continue
		}
		pos, err := f.Geometry.Point()
		if err != nil {
			continue
		}
		id := featureID(f)
		g.Nodes[id] = f
		byCoord[coordKey(pos)] = id
	}

	for _, f := range fc.Features {
		if f.Geometry == nil || f.Geometry.Type != models.GeometryLineString {
			continue
		}
		line, err := f.Geometry.Line()
		if err != nil || len(line) < 2 {
			continue
		}
		source := g.resolveEndpoint(byCoord, line[0])
		target := g.resolveEndpoint(byCoord, line[len(line)-1])
		g.Edges[featureID(f)] = EdgeRef{Feature: f, Source: source, Target: target}
	}

	return g, nil
}

// resolveEndpoint returns the node id at pos, synthesizing an auto-generated
// node when no exact coordinate match exists.
func (g *Graph) resolveEndpoint(byCoord map[string]string, pos models.Position) string {
	key := coordKey(pos)
	if id, ok := byCoord[key]; ok {
		return id
	}
	id := uuid.New().String()
	g.Nodes[id] = models.NewPointFeature(pos, models.PropertyBag{
		"id":   id,
		"type": "auto_generated",
	})
	byCoord[key] = id
	return id
}

func featureID(f models.Feature) string {
	if id, ok := f.Properties.StringProperty("id"); ok {
		return id
	}
	return uuid.New().String()
}

// coordKey builds an exact-equality index key for a coordinate tuple. The
// shortest round-trip float format identifies each float64 uniquely, so two
// positions collide only when they are bit-identical value for value.
func coordKey(pos models.Position) string {
	parts := make([]string, len(pos))
	for i, v := range pos {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
