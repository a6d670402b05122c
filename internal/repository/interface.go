package repository

import (
	"context"
	"time"

	"github.com/roadgraph/roadgraph-backend/internal/models"
	"github.com/roadgraph/roadgraph-backend/internal/topology"
)

// CustomerRepository defines customer data access methods.
type CustomerRepository interface {
	CreateCustomer(ctx context.Context, c *models.Customer) error
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	GetCustomerByAPIKey(ctx context.Context, apiKey string) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, c *models.Customer) error
}

// NetworkRepository is the version store: it owns the per-network sequence of
// immutable version records and the node/edge rows scoped to them. All writes
// that span a version are atomic; a reader never observes a partial version.
type NetworkRepository interface {
	CreateNetworkWithTopology(ctx context.Context, n *models.Network, g *topology.Graph) (*models.NetworkVersion, int, int, error)
	GetNetwork(ctx context.Context, id int64) (*models.Network, error)
	ListNetworksByCustomer(ctx context.Context, customerID int64, skip, limit int) ([]*models.Network, error)
	UpdateNetwork(ctx context.Context, n *models.Network) error

	GetLatestVersion(ctx context.Context, networkID int64) (*models.NetworkVersion, error)
	GetVersionByNumber(ctx context.Context, networkID int64, number int) (*models.NetworkVersion, error)
	ListVersions(ctx context.Context, networkID int64) ([]*models.NetworkVersion, error)
	CreateNewVersion(ctx context.Context, networkID int64) (*models.NetworkVersion, error)
	ReplaceTopology(ctx context.Context, networkID int64, g *topology.Graph, now time.Time) (*models.NetworkVersion, int, int, error)

	GetNodesByVersion(ctx context.Context, networkID, versionID int64) ([]*models.Node, error)
	GetEdgesByVersion(ctx context.Context, networkID, versionID int64) ([]*models.Edge, error)
	GetCurrentEdges(ctx context.Context, networkID int64) ([]*models.Edge, error)
	GetEdgesAsOf(ctx context.Context, networkID int64, ts time.Time) ([]*models.Edge, error)
	GetEdgesPage(ctx context.Context, networkID, versionID, afterID int64, limit int) ([]*models.Edge, error)
	CountEdgesByVersion(ctx context.Context, networkID, versionID int64) (int, error)
}

// Repository aggregates all repositories.
type Repository interface {
	CustomerRepository
	NetworkRepository
	RunMigrations(migrationSQL string) error
	Close() error
}
