package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

const (
	TenantIDKey ContextKey = "tenant_id"
)

type AuditAction string

const (
	AuditActionCreate      AuditAction = "CREATE"
	AuditActionUpdate      AuditAction = "UPDATE"
	AuditActionDelete      AuditAction = "DELETE"
	AuditActionDeactivate  AuditAction = "DEACTIVATE"
	AuditActionMigration   AuditAction = "MIGRATION"
	AuditActionReconcile   AuditAction = "RECONCILE"
	AuditActionHealthCheck AuditAction = "HEALTH_CHECK"
	AuditActionRetryQueue  AuditAction = "RETRY_QUEUE"
	AuditActionSettings    AuditAction = "SETTINGS"
	AuditActionSync        AuditAction = "SYNC"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action    AuditAction        `bson:"action" json:"action"`
	Module    string             `bson:"module" json:"module"`
	RecordID  string             `bson:"record_id" json:"record_id"`
	ActorID   string             `bson:"actor_id" json:"actor_id"`
	Changes   map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// Log is the persisted shape of an application log line (async zap tee).
type Log struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AppId        string             `bson:"app_id" json:"app_id"`
	Message      string             `bson:"message" json:"message"`
	Caller       string             `bson:"caller,omitempty" json:"caller,omitempty"`
	LogLevelId   int                `bson:"log_level_id" json:"log_level_id"`
	CreatedOnUtc time.Time          `bson:"created_on_utc" json:"created_on_utc"`
}

// ItemError is one resource's failure inside a batch operation.
type ItemError struct {
	ResourceID string `bson:"resource_id" json:"resource_id"`
	Reason     string `bson:"reason" json:"reason"`
}

// BatchSummary is the structured result of every multi-resource action.
// Multi-resource operations never report a bare boolean.
type BatchSummary struct {
	BatchID   string      `bson:"batch_id" json:"batch_id"`
	Total     int         `bson:"total" json:"total"`
	Succeeded int         `bson:"succeeded" json:"succeeded"`
	Failed    int         `bson:"failed" json:"failed"`
	Errors    []ItemError `bson:"errors,omitempty" json:"errors,omitempty"`
}
