package topology

import (
	"encoding/json"
	"testing"

	"github.com/roadgraph/roadgraph-backend/internal/models"
)

func collection(t *testing.T, raw string) *models.FeatureCollection {
	t.Helper()
	var fc models.FeatureCollection
	if err := json.Unmarshal([]byte(raw), &fc); err != nil {
		t.Fatalf("Failed to parse test collection: %v", err)
	}
	return &fc
}

func TestExtract_RejectsNonFeatureCollection(t *testing.T) {
	if _, err := Extract(nil); err != ErrInvalidInput {
		t.Errorf("Expected ErrInvalidInput for nil input, got %v", err)
	}
	if _, err := Extract(&models.FeatureCollection{Type: "Feature"}); err != ErrInvalidInput {
		t.Errorf("Expected ErrInvalidInput for wrong type tag, got %v", err)
	}
}

func TestExtract_SingleLineString(t *testing.T) {
	fc := collection(t, `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature",
			 "geometry": {"type": "LineString", "coordinates": [[10.0,47.0],[10.1,47.1],[10.2,47.2]]},
			 "properties": {"name": "A1"}}
		]
	}`)

	g, err := Extract(fc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("Expected 2 endpoint nodes, got %d", len(g.Nodes))
	}
	if len(g.Edges) != 1 {
		t.Fatalf("Expected 1 edge, got %d", len(g.Edges))
	}
	for _, edge := range g.Edges {
		if _, ok := g.Nodes[edge.Source]; !ok {
			t.Errorf("Edge source %q does not resolve to a node", edge.Source)
		}
		if _, ok := g.Nodes[edge.Target]; !ok {
			t.Errorf("Edge target %q does not resolve to a node", edge.Target)
		}
		if edge.Source == edge.Target {
			t.Error("Source and target should be distinct endpoints")
		}
	}
	for id, node := range g.Nodes {
		typ, _ := node.Properties.StringProperty("type")
		if typ != "auto_generated" {
			t.Errorf("Node %s should be tagged auto_generated, got %q", id, typ)
		}
	}
}

func TestExtract_ReusesPointNodeAtSharedCoordinate(t *testing.T) {
	fc := collection(t, `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature",
			 "geometry": {"type": "Point", "coordinates": [10.0, 47.0]},
			 "properties": {"id": "junction-1"}},
			{"type": "Feature",
			 "geometry": {"type": "LineString", "coordinates": [[10.0,47.0],[10.5,47.5]]},
			 "properties": {"id": "road-1"}},
			{"type": "Feature",
			 "geometry": {"type": "LineString", "coordinates": [[10.5,47.5],[11.0,48.0]]},
			 "properties": {"id": "road-2"}}
		]
	}`)

	g, err := Extract(fc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	// junction-1 plus the two synthesized endpoints at (10.5,47.5) and (11,48);
	// the shared midpoint must be synthesized once and reused.
	if len(g.Nodes) != 3 {
		t.Fatalf("Expected 3 nodes, got %d", len(g.Nodes))
	}
	road1 := g.Edges["road-1"]
	road2 := g.Edges["road-2"]
	if road1.Source != "junction-1" {
		t.Errorf("road-1 should start at the declared junction, got %q", road1.Source)
	}
	if road1.Target != road2.Source {
		t.Errorf("Shared endpoint should resolve to one node: %q vs %q", road1.Target, road2.Source)
	}
}

func TestExtract_SkipsShortPolylines(t *testing.T) {
	fc := collection(t, `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature",
			 "geometry": {"type": "LineString", "coordinates": [[10.0,47.0]]},
			 "properties": {"id": "degenerate"}}
		]
	}`)

	g, err := Extract(fc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(g.Edges) != 0 || len(g.Nodes) != 0 {
		t.Errorf("Single-coordinate polyline should produce nothing, got %d nodes, %d edges",
			len(g.Nodes), len(g.Edges))
	}
}

func TestExtract_ToleratesMalformedFeatures(t *testing.T) {
	fc := collection(t, `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": null, "properties": {}},
			{"type": "Feature",
			 "geometry": {"type": "Point", "coordinates": "garbage"},
			 "properties": {}},
			{"type": "Feature",
			 "geometry": {"type": "Point", "coordinates": [1.0, 2.0]},
			 "properties": {"id": "n1"}}
		]
	}`)

	g, err := Extract(fc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(g.Nodes) != 1 {
		t.Errorf("Only the well-formed point should survive, got %d nodes", len(g.Nodes))
	}
}

func TestExtract_ExactCoordinateMatchingNoSnapping(t *testing.T) {
	// Endpoints differing by floating-point noise stay disconnected.
	fc := collection(t, `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature",
			 "geometry": {"type": "LineString", "coordinates": [[10.0,47.0],[10.5,47.5]]},
			 "properties": {"id": "e1"}},
			{"type": "Feature",
			 "geometry": {"type": "LineString", "coordinates": [[10.500000000000001,47.5],[11.0,48.0]]},
			 "properties": {"id": "e2"}}
		]
	}`)

	g, err := Extract(fc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(g.Nodes) != 4 {
		t.Errorf("Near-identical endpoints must not merge, expected 4 nodes, got %d", len(g.Nodes))
	}
}

func TestExtract_IdempotentTopologyShape(t *testing.T) {
	raw := `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature",
			 "geometry": {"type": "Point", "coordinates": [10.0, 47.0]},
			 "properties": {"id": "a"}},
			{"type": "Feature",
			 "geometry": {"type": "Point", "coordinates": [11.0, 48.0]},
			 "properties": {"id": "b"}},
			{"type": "Feature",
			 "geometry": {"type": "LineString", "coordinates": [[10.0,47.0],[11.0,48.0]]},
			 "properties": {"id": "ab"}}
		]
	}`

	first, err := Extract(collection(t, raw))
	if err != nil {
		t.Fatalf("First extract failed: %v", err)
	}
	second, err := Extract(collection(t, raw))
	if err != nil {
		t.Fatalf("Second extract failed: %v", err)
	}

	if len(first.Nodes) != len(second.Nodes) || len(first.Edges) != len(second.Edges) {
		t.Fatal("Repeated extraction changed the graph shape")
	}
	// All ids are caller-supplied here, so endpoint resolution must match exactly.
	for id, e1 := range first.Edges {
		e2, ok := second.Edges[id]
		if !ok {
			t.Fatalf("Edge %s missing on second extraction", id)
		}
		if e1.Source != e2.Source || e1.Target != e2.Target {
			t.Errorf("Edge %s endpoints differ across runs: (%s,%s) vs (%s,%s)",
				id, e1.Source, e1.Target, e2.Source, e2.Target)
		}
	}
}
