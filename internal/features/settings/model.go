package settings

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Settings is the subsystem's singleton configuration document.
type Settings struct {
	ID primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	// SelectionScript is an optional operator-defined script evaluated per
	// candidate credential during allocation. It sees `credential` (a map)
	// and must set `eligible` to a boolean. Empty disables the hook.
	SelectionScript string `json:"selection_script,omitempty" bson:"selection_script,omitempty"`
	// DriftSweepEnabled turns the scheduled migrate-all-mismatched pass on.
	DriftSweepEnabled bool `json:"drift_sweep_enabled" bson:"drift_sweep_enabled"`
	// MaxAttemptsOverride, when > 0, replaces the configured retry budget.
	MaxAttemptsOverride int       `json:"max_attempts_override,omitempty" bson:"max_attempts_override,omitempty"`
	UpdatedAt           time.Time `json:"updated_at" bson:"updated_at"`
}
