package resource

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ResourceKind string

const (
	KindAgent       ResourceKind = "agent"
	KindPhoneNumber ResourceKind = "phone_number"
	KindVoice       ResourceKind = "voice"
)

// Resource is a tenant-owned entity registered against exactly one
// credential at a time. RemoteID is only meaningful together with
// AssignedCredentialID: the pair is the sole valid remote address.
type Resource struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ResourceID string             `json:"resource_id" bson:"resource_id"`
	Kind       ResourceKind       `json:"kind" bson:"kind"`
	Name       string             `json:"name" bson:"name"`
	OwnerID    string             `json:"owner_id" bson:"owner_id"`
	RemoteID   string             `json:"remote_id,omitempty" bson:"remote_id,omitempty"`
	// AssignedCredentialID empty means unassigned, needs allocation.
	AssignedCredentialID string    `json:"assigned_credential_id,omitempty" bson:"assigned_credential_id,omitempty"`
	CreatedAt            time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" bson:"updated_at"`
}

// Connection routes a phone number to an agent. The consistency goal is
// that both ends share one credential; a mismatch is drift.
type Connection struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PhoneNumberID string             `json:"phone_number_id" bson:"phone_number_id"`
	AgentID       string             `json:"agent_id" bson:"agent_id"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}
