package credential

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type HealthStatus string

const (
	HealthHealthy     HealthStatus = "healthy"
	HealthDegraded    HealthStatus = "degraded"
	HealthUnreachable HealthStatus = "unreachable"
	HealthUnknown     HealthStatus = "unknown"
)

// Credential is one external API identity in the pool. The secret never
// leaves this subsystem; it is excluded from JSON.
type Credential struct {
	ID                   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CredentialID         string             `json:"credential_id" bson:"credential_id"`
	Secret               string             `json:"-" bson:"secret"`
	Label                string             `json:"label,omitempty" bson:"label,omitempty"`
	IsActive             bool               `json:"is_active" bson:"is_active"`
	HealthStatus         HealthStatus       `json:"health_status" bson:"health_status"`
	MaxResourceThreshold int                `json:"max_resource_threshold" bson:"max_resource_threshold"`
	AssignedAgentCount   int                `json:"assigned_agent_count" bson:"assigned_agent_count"`
	AssignedUserCount    int                `json:"assigned_user_count" bson:"assigned_user_count"`
	// OverCapacity marks a credential pushed past its threshold by a forced
	// admin migration. It stays out of allocator selection until reconciled.
	OverCapacity      bool       `json:"over_capacity" bson:"over_capacity"`
	LastHealthCheckAt *time.Time `json:"last_health_check_at,omitempty" bson:"last_health_check_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" bson:"updated_at"`
}

// HasCapacity reports whether the credential can take one more agent.
func (c *Credential) HasCapacity() bool {
	return c.AssignedAgentCount < c.MaxResourceThreshold
}

// Selectable reports whether the allocator may hand this credential out
// for a new assignment.
func (c *Credential) Selectable() bool {
	if !c.IsActive || c.OverCapacity {
		return false
	}
	if c.HealthStatus != HealthHealthy && c.HealthStatus != HealthUnknown {
		return false
	}
	return c.HasCapacity()
}
