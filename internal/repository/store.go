package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/roadgraph/roadgraph-backend/internal/models"
	"github.com/roadgraph/roadgraph-backend/internal/pkg/metrics"
	"github.com/roadgraph/roadgraph-backend/internal/topology"
)

// versionInsertRetries bounds retry-on-conflict for concurrent version
// allocation against the same network.
const versionInsertRetries = 3

// SQLRepository implements Repository on any sqlx-supported database. Queries
// are written with ? placeholders and rebound per driver; the few genuine
// driver differences (id return, unique-violation detection) live in
// sqlite.go and postgres.go.
type SQLRepository struct {
	db *sqlx.DB
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// RunMigrations applies a migration script.
func (r *SQLRepository) RunMigrations(migrationSQL string) error {
	_, err := r.db.Exec(migrationSQL)
	return err
}

func (r *SQLRepository) postgres() bool {
	return r.db.DriverName() == "postgres"
}

// insertID runs an INSERT and returns the generated row id. lib/pq does not
// support LastInsertId, so Postgres goes through RETURNING instead.
func (r *SQLRepository) insertID(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (int64, error) {
	if r.postgres() {
		var id int64
		err := tx.QueryRowContext(ctx, r.db.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := tx.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CustomerRepository implementation

func (r *SQLRepository) CreateCustomer(ctx context.Context, c *models.Customer) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		c.CreatedAt = time.Now().UTC()
		id, err := r.insertID(ctx, tx,
			`INSERT INTO customers (name, api_key, created_at) VALUES (?, ?, ?)`,
			c.Name, c.APIKey, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("create customer: %w", err)
		}
		c.ID = id
		return nil
	})
}

func (r *SQLRepository) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var c models.Customer
	err := r.db.GetContext(ctx, &c, r.db.Rebind(`SELECT * FROM customers WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("customer %d: %w", id, ErrNotFound)
	}
	return &c, err
}

func (r *SQLRepository) GetCustomerByAPIKey(ctx context.Context, apiKey string) (*models.Customer, error) {
	var c models.Customer
	err := r.db.GetContext(ctx, &c, r.db.Rebind(`SELECT * FROM customers WHERE api_key = ?`), apiKey)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("customer by api key: %w", ErrNotFound)
	}
	return &c, err
}

func (r *SQLRepository) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE customers SET name = ?, api_key = ? WHERE id = ?`),
		c.Name, c.APIKey, c.ID)
	return err
}

// NetworkRepository implementation

func (r *SQLRepository) CreateNetworkWithTopology(ctx context.Context, n *models.Network, g *topology.Graph) (*models.NetworkVersion, int, int, error) {
	var (
		version              *models.NetworkVersion
		nodeCount, edgeCount int
	)
	err := instrumentQuery("create_network", func() error {
		return r.inTx(ctx, func(tx *sqlx.Tx) error {
			now := time.Now().UTC()
			n.CreatedAt = now
			n.UpdatedAt = now
			networkID, err := r.insertID(ctx, tx,
				`INSERT INTO networks (name, description, customer_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
				n.Name, n.Description, n.CustomerID, n.CreatedAt, n.UpdatedAt)
			if err != nil {
				return fmt.Errorf("create network: %w", err)
			}
			n.ID = networkID

			version = &models.NetworkVersion{NetworkID: networkID, VersionNumber: 1, CreatedAt: now}
			version.ID, err = r.insertID(ctx, tx,
				`INSERT INTO network_versions (network_id, version_number, created_at) VALUES (?, ?, ?)`,
				version.NetworkID, version.VersionNumber, version.CreatedAt)
			if err != nil {
				return fmt.Errorf("create initial version: %w", err)
			}

			nodeCount, edgeCount, err = r.insertGraph(ctx, tx, networkID, version.ID, g, now)
			return err
		})
	})
	if err != nil {
		return nil, 0, 0, err
	}
	recordRowsWritten(nodeCount, edgeCount)
	return version, nodeCount, edgeCount, nil
}

func (r *SQLRepository) GetNetwork(ctx context.Context, id int64) (*models.Network, error) {
	var n models.Network
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT * FROM networks WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("network %d: %w", id, ErrNotFound)
	}
	return &n, err
}

func (r *SQLRepository) ListNetworksByCustomer(ctx context.Context, customerID int64, skip, limit int) ([]*models.Network, error) {
	var networks []*models.Network
	err := r.db.SelectContext(ctx, &networks,
		r.db.Rebind(`SELECT * FROM networks WHERE customer_id = ? ORDER BY id LIMIT ? OFFSET ?`),
		customerID, limit, skip)
	return networks, err
}

func (r *SQLRepository) UpdateNetwork(ctx context.Context, n *models.Network) error {
	n.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE networks SET name = ?, description = ?, updated_at = ? WHERE id = ?`),
		n.Name, n.Description, n.UpdatedAt, n.ID)
	return err
}

// GetLatestVersion returns the highest-numbered version for a network, or
// nil when the network has no versions yet.
func (r *SQLRepository) GetLatestVersion(ctx context.Context, networkID int64) (*models.NetworkVersion, error) {
	var v models.NetworkVersion
	err := r.db.GetContext(ctx, &v, r.db.Rebind(`
		SELECT * FROM network_versions
		WHERE network_id = ?
		ORDER BY version_number DESC
		LIMIT 1
	`), networkID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &v, err
}

// ListVersions returns a network's versions in ascending number order.
func (r *SQLRepository) ListVersions(ctx context.Context, networkID int64) ([]*models.NetworkVersion, error) {
	var versions []*models.NetworkVersion
	err := r.db.SelectContext(ctx, &versions,
		r.db.Rebind(`SELECT * FROM network_versions WHERE network_id = ? ORDER BY version_number`),
		networkID)
	return versions, err
}

func (r *SQLRepository) GetVersionByNumber(ctx context.Context, networkID int64, number int) (*models.NetworkVersion, error) {
	var v models.NetworkVersion
	err := r.db.GetContext(ctx, &v,
		r.db.Rebind(`SELECT * FROM network_versions WHERE network_id = ? AND version_number = ?`),
		networkID, number)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("network %d version %d: %w", networkID, number, ErrNotFound)
	}
	return &v, err
}

// CreateNewVersion allocates latest+1 for the network. Two concurrent
// allocators can compute the same next number; the unique
// (network_id, version_number) constraint catches the loser, which retries.
func (r *SQLRepository) CreateNewVersion(ctx context.Context, networkID int64) (*models.NetworkVersion, error) {
	for attempt := 0; attempt < versionInsertRetries; attempt++ {
		latest, err := r.GetLatestVersion(ctx, networkID)
		if err != nil {
			return nil, err
		}
		next := 1
		if latest != nil {
			next = latest.VersionNumber + 1
		}
		v := &models.NetworkVersion{NetworkID: networkID, VersionNumber: next, CreatedAt: time.Now().UTC()}
		err = r.inTx(ctx, func(tx *sqlx.Tx) error {
			id, insertErr := r.insertID(ctx, tx,
				`INSERT INTO network_versions (network_id, version_number, created_at) VALUES (?, ?, ?)`,
				v.NetworkID, v.VersionNumber, v.CreatedAt)
			if insertErr != nil {
				return insertErr
			}
			v.ID = id
			return nil
		})
		if err == nil {
			return v, nil
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("create version: %w", err)
		}
		metrics.VersionConflictsTotal.Inc()
	}
	return nil, fmt.Errorf("allocating version for network %d: %w", networkID, ErrConflict)
}

// ReplaceTopology is the update protocol: allocate the next version, close the
// validity interval of every current edge at now, and insert the freshly
// extracted rows under the new version, all in one transaction. The topology
// is fully re-materialized; nothing is diffed against the previous version.
func (r *SQLRepository) ReplaceTopology(ctx context.Context, networkID int64, g *topology.Graph, now time.Time) (*models.NetworkVersion, int, int, error) {
	now = now.UTC()
	for attempt := 0; attempt < versionInsertRetries; attempt++ {
		var (
			version              *models.NetworkVersion
			nodeCount, edgeCount int
		)
		err := instrumentQuery("replace_topology", func() error {
			var onceErr error
			version, nodeCount, edgeCount, onceErr = r.replaceTopologyOnce(ctx, networkID, g, now)
			return onceErr
		})
		if err == nil {
			recordRowsWritten(nodeCount, edgeCount)
			return version, nodeCount, edgeCount, nil
		}
		if !isUniqueViolation(err) {
			return nil, 0, 0, err
		}
		metrics.VersionConflictsTotal.Inc()
	}
	return nil, 0, 0, fmt.Errorf("replacing topology of network %d: %w", networkID, ErrConflict)
}

func (r *SQLRepository) replaceTopologyOnce(ctx context.Context, networkID int64, g *topology.Graph, now time.Time) (*models.NetworkVersion, int, int, error) {
	var (
		version              *models.NetworkVersion
		nodeCount, edgeCount int
	)
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		var latest struct {
			Number sql.NullInt64 `db:"number"`
		}
		err := tx.GetContext(ctx, &latest,
			r.db.Rebind(`SELECT MAX(version_number) AS number FROM network_versions WHERE network_id = ?`),
			networkID)
		if err != nil {
			return fmt.Errorf("latest version: %w", err)
		}

		version = &models.NetworkVersion{
			NetworkID:     networkID,
			VersionNumber: int(latest.Number.Int64) + 1,
			CreatedAt:     now,
		}
		version.ID, err = r.insertID(ctx, tx,
			`INSERT INTO network_versions (network_id, version_number, created_at) VALUES (?, ?, ?)`,
			version.NetworkID, version.VersionNumber, version.CreatedAt)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			r.db.Rebind(`UPDATE edges SET is_current = ?, valid_to = ? WHERE network_id = ? AND is_current = ?`),
			false, now, networkID, true)
		if err != nil {
			return fmt.Errorf("outdate current edges: %w", err)
		}

		nodeCount, edgeCount, err = r.insertGraph(ctx, tx, networkID, version.ID, g, now)
		return err
	})
	if err != nil {
		return nil, 0, 0, err
	}
	return version, nodeCount, edgeCount, nil
}

// insertGraph persists an extracted graph under a version. Nodes first, so
// edge rows can reference their database ids.
func (r *SQLRepository) insertGraph(ctx context.Context, tx *sqlx.Tx, networkID, versionID int64, g *topology.Graph, validFrom time.Time) (int, int, error) {
	nodeIDs := make(map[string]int64, len(g.Nodes))
	for externalID, feature := range g.Nodes {
		pos, err := feature.Geometry.Point()
		if err != nil {
			return 0, 0, fmt.Errorf("node %s: %w", externalID, err)
		}
		id, err := r.insertID(ctx, tx, `
			INSERT INTO nodes (network_id, version_id, external_id, lng, lat, properties, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, networkID, versionID, externalID, pos[0], pos[1], feature.Properties, validFrom)
		if err != nil {
			return 0, 0, fmt.Errorf("insert node %s: %w", externalID, err)
		}
		nodeIDs[externalID] = id
	}

	edgeCount := 0
	for externalID, edge := range g.Edges {
		sourceID, okSource := nodeIDs[edge.Source]
		targetID, okTarget := nodeIDs[edge.Target]
		if !okSource || !okTarget {
			continue
		}
		_, err := r.insertID(ctx, tx, `
			INSERT INTO edges (network_id, version_id, external_id, source_node_id, target_node_id,
				geometry, properties, is_current, valid_from, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, networkID, versionID, externalID, sourceID, targetID,
			string(edge.Feature.Geometry.Coordinates), edge.Feature.Properties,
			true, validFrom, validFrom)
		if err != nil {
			return 0, 0, fmt.Errorf("insert edge %s: %w", externalID, err)
		}
		edgeCount++
	}
	return len(nodeIDs), edgeCount, nil
}

// recordRowsWritten records committed node/edge row counts.
func recordRowsWritten(nodeCount, edgeCount int) {
	metrics.TopologyRowsWrittenTotal.WithLabelValues("node").Add(float64(nodeCount))
	metrics.TopologyRowsWrittenTotal.WithLabelValues("edge").Add(float64(edgeCount))
}

func (r *SQLRepository) GetNodesByVersion(ctx context.Context, networkID, versionID int64) ([]*models.Node, error) {
	var nodes []*models.Node
	err := r.db.SelectContext(ctx, &nodes,
		r.db.Rebind(`SELECT * FROM nodes WHERE network_id = ? AND version_id = ? ORDER BY id`),
		networkID, versionID)
	return nodes, err
}

func (r *SQLRepository) GetEdgesByVersion(ctx context.Context, networkID, versionID int64) ([]*models.Edge, error) {
	var edges []*models.Edge
	err := r.db.SelectContext(ctx, &edges,
		r.db.Rebind(`SELECT * FROM edges WHERE network_id = ? AND version_id = ? ORDER BY id`),
		networkID, versionID)
	return edges, err
}

func (r *SQLRepository) GetCurrentEdges(ctx context.Context, networkID int64) ([]*models.Edge, error) {
	var edges []*models.Edge
	err := r.db.SelectContext(ctx, &edges,
		r.db.Rebind(`SELECT * FROM edges WHERE network_id = ? AND is_current = ? ORDER BY id`),
		networkID, true)
	return edges, err
}

// GetEdgesAsOf returns edges whose validity interval [valid_from, valid_to)
// contains ts.
func (r *SQLRepository) GetEdgesAsOf(ctx context.Context, networkID int64, ts time.Time) ([]*models.Edge, error) {
	var edges []*models.Edge
	err := r.db.SelectContext(ctx, &edges, r.db.Rebind(`
		SELECT * FROM edges
		WHERE network_id = ? AND valid_from <= ? AND (valid_to > ? OR valid_to IS NULL)
		ORDER BY id
	`), networkID, ts.UTC(), ts.UTC())
	return edges, err
}

// GetEdgesPage returns up to limit edges of a version with id > afterID, in
// ascending id order. Callers probe with limit+1 to detect a next page.
func (r *SQLRepository) GetEdgesPage(ctx context.Context, networkID, versionID, afterID int64, limit int) ([]*models.Edge, error) {
	var edges []*models.Edge
	err := r.db.SelectContext(ctx, &edges, r.db.Rebind(`
		SELECT * FROM edges
		WHERE network_id = ? AND version_id = ? AND id > ?
		ORDER BY id
		LIMIT ?
	`), networkID, versionID, afterID, limit)
	return edges, err
}

func (r *SQLRepository) CountEdgesByVersion(ctx context.Context, networkID, versionID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		r.db.Rebind(`SELECT COUNT(*) FROM edges WHERE network_id = ? AND version_id = ?`),
		networkID, versionID)
	return count, err
}

// inTx runs fn inside a transaction, rolling back on error or panic.
func (r *SQLRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}
