package connectors

import (
	"context"
	"time"
)

// PanelResource is one row from the upstream panel's resource tables.
type PanelResource struct {
	ResourceID string
	Kind       string // "agent", "phone_number", "voice"
	Name       string
	OwnerID    string
}

// PanelConnection links a phone number to the agent answering it, as the
// panel sees it.
type PanelConnection struct {
	PhoneNumberID string
	AgentID       string
}

// PanelSnapshot is the panel's view of the tenant estate at fetch time.
type PanelSnapshot struct {
	Resources   []PanelResource
	Connections []PanelConnection
	FetchedAt   time.Time
}

// Connector pulls tenant resources out of an upstream panel store.
type Connector interface {
	// Connect establishes the connection using a driver-specific DSN.
	Connect(ctx context.Context, dsn string) error

	// Disconnect closes the connection.
	Disconnect(ctx context.Context) error

	// TestConnection checks the connection is usable.
	TestConnection(ctx context.Context) error

	// FetchSnapshot reads every resource and connection the panel knows.
	FetchSnapshot(ctx context.Context) (*PanelSnapshot, error)

	// Driver returns the underlying driver name.
	Driver() string
}
