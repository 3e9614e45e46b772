package connectors

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// PanelDBConnector reads the upstream panel's SQL store. Both PostgreSQL
// and MySQL panels are supported; the schema is identical, only the
// placeholder syntax differs.
type PanelDBConnector struct {
	driver string // "postgres" or "mysql"
	db     *sql.DB
}

func NewPanelDBConnector(driver string) Connector {
	return &PanelDBConnector{driver: driver}
}

func (c *PanelDBConnector) Connect(ctx context.Context, dsn string) error {
	db, err := sql.Open(c.driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open panel database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping panel database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	c.db = db
	return nil
}

func (c *PanelDBConnector) Disconnect(ctx context.Context) error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *PanelDBConnector) TestConnection(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("panel database connection not established")
	}
	return c.db.PingContext(ctx)
}

func (c *PanelDBConnector) Driver() string {
	return c.driver
}

func (c *PanelDBConnector) FetchSnapshot(ctx context.Context) (*PanelSnapshot, error) {
	if c.db == nil {
		return nil, fmt.Errorf("panel database connection not established")
	}

	resources, err := c.fetchResources(ctx)
	if err != nil {
		return nil, err
	}

	connections, err := c.fetchConnections(ctx)
	if err != nil {
		return nil, err
	}

	return &PanelSnapshot{
		Resources:   resources,
		Connections: connections,
		FetchedAt:   time.Now(),
	}, nil
}

func (c *PanelDBConnector) fetchResources(ctx context.Context) ([]PanelResource, error) {
	query := `
		SELECT resource_id, kind, name, owner_id
		FROM panel_resources
		WHERE deleted_at IS NULL
		ORDER BY resource_id
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch panel resources: %w", err)
	}
	defer rows.Close()

	var resources []PanelResource
	for rows.Next() {
		var r PanelResource
		if err := rows.Scan(&r.ResourceID, &r.Kind, &r.Name, &r.OwnerID); err != nil {
			return nil, fmt.Errorf("failed to scan panel resource: %w", err)
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

func (c *PanelDBConnector) fetchConnections(ctx context.Context) ([]PanelConnection, error) {
	query := `
		SELECT phone_number_id, agent_id
		FROM panel_connections
		WHERE deleted_at IS NULL
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch panel connections: %w", err)
	}
	defer rows.Close()

	var connections []PanelConnection
	for rows.Next() {
		var conn PanelConnection
		if err := rows.Scan(&conn.PhoneNumberID, &conn.AgentID); err != nil {
			return nil, fmt.Errorf("failed to scan panel connection: %w", err)
		}
		connections = append(connections, conn)
	}
	return connections, rows.Err()
}
