package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/roadgraph/roadgraph-backend/internal/models"
	"github.com/roadgraph/roadgraph-backend/internal/pkg/metrics"
	"github.com/roadgraph/roadgraph-backend/internal/pkg/tracing"
	"github.com/roadgraph/roadgraph-backend/internal/repository"
	"github.com/roadgraph/roadgraph-backend/internal/topology"
)

// NetworkService owns the topology write protocol and the temporal and
// paginated read paths over the version store.
type NetworkService struct {
	repo repository.NetworkRepository
}

// NewNetworkService creates a new network service.
func NewNetworkService(repo repository.NetworkRepository) *NetworkService {
	return &NetworkService{repo: repo}
}

// CreateNetworkInput is the payload for creating a network with its initial
// topology.
type CreateNetworkInput struct {
	Name        string
	Description string
	Data        *models.FeatureCollection
}

// UpdateNetworkInput updates network metadata and optionally replaces the
// topology. A nil Data leaves the topology untouched.
type UpdateNetworkInput struct {
	Name        *string
	Description *string
	Data        *models.FeatureCollection
}

// Create extracts the graph from the input topology and persists the network
// together with version 1 and its node/edge rows as one atomic unit.
func (s *NetworkService) Create(ctx context.Context, customerID int64, in CreateNetworkInput) (*models.NetworkWithVersion, error) {
	ctx, span := tracing.StartSpan(ctx, "network.create",
		attribute.Int64("customer.id", customerID))
	defer span.End()

	g, err := s.extract(in.Data)
	if err != nil {
		return nil, err
	}

	n := &models.Network{Name: in.Name, Description: in.Description, CustomerID: customerID}
	version, nodeCount, edgeCount, err := s.repo.CreateNetworkWithTopology(ctx, n, g)
	if err != nil {
		return nil, err
	}

	return &models.NetworkWithVersion{
		Network:   *n,
		Version:   version.VersionNumber,
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
	}, nil
}

// Get returns a network by id.
func (s *NetworkService) Get(ctx context.Context, id int64) (*models.Network, error) {
	return s.repo.GetNetwork(ctx, id)
}

// List returns a customer's networks.
func (s *NetworkService) List(ctx context.Context, customerID int64, skip, limit int) ([]*models.Network, error) {
	return s.repo.ListNetworksByCustomer(ctx, customerID, skip, limit)
}

// Update changes network metadata and, when topology data is supplied,
// replaces the network's topology under a freshly allocated version. Without
// data it reports the counts of the latest version unchanged.
func (s *NetworkService) Update(ctx context.Context, networkID int64, in UpdateNetworkInput) (*models.NetworkWithVersion, error) {
	n, err := s.repo.GetNetwork(ctx, networkID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil || in.Description != nil {
		if in.Name != nil {
			n.Name = *in.Name
		}
		if in.Description != nil {
			n.Description = *in.Description
		}
		if err := s.repo.UpdateNetwork(ctx, n); err != nil {
			return nil, err
		}
	}

	if in.Data == nil {
		version, err := s.repo.GetLatestVersion(ctx, networkID)
		if err != nil {
			return nil, err
		}
		if version == nil {
			return nil, fmt.Errorf("network %d has no versions: %w", networkID, repository.ErrNotFound)
		}
		nodes, err := s.repo.GetNodesByVersion(ctx, networkID, version.ID)
		if err != nil {
			return nil, err
		}
		edgeCount, err := s.repo.CountEdgesByVersion(ctx, networkID, version.ID)
		if err != nil {
			return nil, err
		}
		return &models.NetworkWithVersion{
			Network:   *n,
			Version:   version.VersionNumber,
			NodeCount: len(nodes),
			EdgeCount: edgeCount,
		}, nil
	}

	ctx, span := tracing.StartSpan(ctx, "network.replace_topology",
		attribute.Int64("network.id", networkID))
	defer span.End()

	g, err := s.extract(in.Data)
	if err != nil {
		return nil, err
	}
	version, nodeCount, edgeCount, err := s.repo.ReplaceTopology(ctx, networkID, g, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &models.NetworkWithVersion{
		Network:   *n,
		Version:   version.VersionNumber,
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
	}, nil
}

// Versions returns a network's version history in ascending order.
func (s *NetworkService) Versions(ctx context.Context, networkID int64) ([]*models.NetworkVersion, error) {
	return s.repo.ListVersions(ctx, networkID)
}

// EdgesByVersion resolves a read selector — version number, timestamp, or
// "current" when both are nil — to a FeatureCollection-shaped edge set.
//
// A version number reports the version's creation time as the effective
// timestamp. A timestamp leaves the version unresolved, since the instant may
// span rows from several versions. An empty edge set is a not-found outcome,
// not an empty success.
func (s *NetworkService) EdgesByVersion(ctx context.Context, networkID int64, versionNumber *int, ts *time.Time) (*models.EdgeCollection, error) {
	var (
		edges      []*models.Edge
		effVersion *int
		effTime    *time.Time
		err        error
	)

	switch {
	case versionNumber != nil:
		version, verr := s.repo.GetVersionByNumber(ctx, networkID, *versionNumber)
		if verr != nil {
			return nil, verr
		}
		edges, err = s.repo.GetEdgesByVersion(ctx, networkID, version.ID)
		effVersion = versionNumber
		created := version.CreatedAt
		effTime = &created
	case ts != nil:
		edges, err = s.repo.GetEdgesAsOf(ctx, networkID, *ts)
		effTime = ts
	default:
		edges, err = s.repo.GetCurrentEdges(ctx, networkID)
		if err == nil {
			latest, lerr := s.repo.GetLatestVersion(ctx, networkID)
			if lerr != nil {
				return nil, lerr
			}
			if latest != nil {
				effVersion = &latest.VersionNumber
			}
			now := time.Now().UTC()
			effTime = &now
		}
	}
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, fmt.Errorf("no edges for network %d: %w", networkID, repository.ErrNotFound)
	}

	features := make([]models.Feature, 0, len(edges))
	for _, e := range edges {
		features = append(features, edgeFeature(e))
	}

	var timestamp *string
	if effTime != nil {
		iso := effTime.UTC().Format(time.RFC3339)
		timestamp = &iso
	}
	return &models.EdgeCollection{
		Type:      models.TypeFeatureCollection,
		NetworkID: networkID,
		Version:   effVersion,
		Timestamp: timestamp,
		Features:  features,
	}, nil
}

// PageEdges returns one page of a version's edge set, ordered by ascending
// edge id. When versionNumber is nil the latest version is paged. The probe
// fetches limit+1 rows; a full probe means there is a next page and the last
// kept row becomes the new cursor. total_count is a separate full count,
// independent of the pagination window.
func (s *NetworkService) PageEdges(ctx context.Context, networkID int64, versionNumber *int, cursor string, limit int) (*models.PaginatedEdges, error) {
	var version *models.NetworkVersion
	if versionNumber != nil {
		v, err := s.repo.GetVersionByNumber(ctx, networkID, *versionNumber)
		if err != nil {
			return nil, err
		}
		version = v
	} else {
		v, err := s.repo.GetLatestVersion(ctx, networkID)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, fmt.Errorf("network %d has no versions: %w", networkID, repository.ErrNotFound)
		}
		version = v
	}

	afterID := decodeCursor(cursor)
	rows, err := s.repo.GetEdgesPage(ctx, networkID, version.ID, afterID, limit+1)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountEdgesByVersion(ctx, networkID, version.ID)
	if err != nil {
		return nil, err
	}

	var nextCursor *string
	if len(rows) > limit {
		rows = rows[:limit]
		c := encodeCursor(rows[len(rows)-1].ID)
		nextCursor = &c
	}

	features := make([]models.Feature, 0, len(rows))
	for _, e := range rows {
		features = append(features, edgeFeature(e))
	}
	return &models.PaginatedEdges{
		Type:       models.TypeFeatureCollection,
		NetworkID:  networkID,
		Version:    version.VersionNumber,
		Features:   features,
		NextCursor: nextCursor,
		TotalCount: total,
	}, nil
}

func (s *NetworkService) extract(fc *models.FeatureCollection) (*topology.Graph, error) {
	start := time.Now()
	g, err := topology.Extract(fc)
	metrics.ExtractionDurationSeconds.Observe(time.Since(start).Seconds())
	return g, err
}

// edgeFeature re-expresses a stored edge row as a GeoJSON feature. Derived
// fields overwrite same-named keys from the stored property bag.
func edgeFeature(e *models.Edge) models.Feature {
	props := make(models.PropertyBag, len(e.Properties)+7)
	for k, v := range e.Properties {
		props[k] = v
	}
	props["id"] = e.ID
	props["external_id"] = e.ExternalID
	props["source_node_id"] = e.SourceNodeID
	props["target_node_id"] = e.TargetNodeID
	props["is_current"] = e.IsCurrent
	props["valid_from"] = e.ValidFrom.UTC().Format(time.RFC3339)
	if e.ValidTo != nil {
		props["valid_to"] = e.ValidTo.UTC().Format(time.RFC3339)
	} else {
		props["valid_to"] = nil
	}

	return models.Feature{
		Type: models.TypeFeature,
		Geometry: &models.Geometry{
			Type:        models.GeometryLineString,
			Coordinates: json.RawMessage(e.Geometry),
		},
		Properties: props,
	}
}
