package migration

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AttemptStatus string

const (
	// StatusPending: created, executing or awaiting replay.
	StatusPending AttemptStatus = "pending"
	StatusSucceeded AttemptStatus = "succeeded"
	// StatusFailed is terminal once AttemptCount reaches the retry budget;
	// below the budget the attempt stays replayable in the retry queue.
	StatusFailed AttemptStatus = "failed"
	// StatusSuperseded marks older attempts for a resource once a newer
	// attempt for the same resource succeeds.
	StatusSuperseded AttemptStatus = "superseded"
)

// MigrationAttempt records one request to move a resource between
// credentials. Failed attempts below the retry budget form the retry queue.
type MigrationAttempt struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ResourceID         string             `json:"resource_id" bson:"resource_id"`
	SourceCredentialID string             `json:"source_credential_id,omitempty" bson:"source_credential_id,omitempty"`
	DestCredentialID   string             `json:"dest_credential_id" bson:"dest_credential_id"`
	Status             AttemptStatus      `json:"status" bson:"status"`
	AttemptCount       int                `json:"attempt_count" bson:"attempt_count"`
	LastError          string             `json:"last_error,omitempty" bson:"last_error,omitempty"`
	CreatedAt          time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" bson:"updated_at"`
}

// MigrateOptions tunes a single migration call.
type MigrateOptions struct {
	// DryRun reports the plan without touching the remote platform or the
	// ledger.
	DryRun bool `json:"dry_run"`
	// Force lets an admin push a destination past its threshold; the
	// credential is flagged over-capacity and left out of future selection.
	Force bool `json:"force"`
}

// MigrationResult is the outcome of one MigrateResource call.
type MigrationResult struct {
	ResourceID         string `json:"resource_id"`
	SourceCredentialID string `json:"source_credential_id,omitempty"`
	DestCredentialID   string `json:"dest_credential_id"`
	DryRun             bool   `json:"dry_run,omitempty"`
	NoOp               bool   `json:"no_op,omitempty"`
	Migrated           bool   `json:"migrated"`
	Error              string `json:"error,omitempty"`
}
