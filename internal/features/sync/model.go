package sync

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SyncRun is one panel import, persisted so operators can see what the
// last sweep pulled in.
type SyncRun struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RunID              string             `json:"run_id" bson:"run_id"`
	Driver             string             `json:"driver" bson:"driver"`
	ResourcesSeen      int                `json:"resources_seen" bson:"resources_seen"`
	ResourcesImported  int                `json:"resources_imported" bson:"resources_imported"`
	ConnectionsSeen    int                `json:"connections_seen" bson:"connections_seen"`
	ConnectionsCreated int                `json:"connections_created" bson:"connections_created"`
	Skipped            int                `json:"skipped" bson:"skipped"`
	StartedAt          time.Time          `json:"started_at" bson:"started_at"`
	FinishedAt         time.Time          `json:"finished_at" bson:"finished_at"`
}
