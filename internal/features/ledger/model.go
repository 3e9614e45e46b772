package ledger

import "time"

// DriftEntry is one connection's consistency check. A phone number should
// share its connected agent's credential; anything else is drift.
type DriftEntry struct {
	PhoneNumberID     string `json:"phone_number_id" bson:"phone_number_id"`
	AgentID           string `json:"agent_id,omitempty" bson:"agent_id,omitempty"`
	Connected         bool   `json:"connected" bson:"connected"`
	NeedsMigration    bool   `json:"needs_migration" bson:"needs_migration"`
	PhoneCredentialID string `json:"phone_credential_id,omitempty" bson:"phone_credential_id,omitempty"`
	AgentCredentialID string `json:"agent_credential_id,omitempty" bson:"agent_credential_id,omitempty"`
}

// DriftReport covers every connection plus unconnected phone numbers.
// Unconnected phones are listed but never flagged for migration.
type DriftReport struct {
	GeneratedAt time.Time    `json:"generated_at" bson:"generated_at"`
	Entries     []DriftEntry `json:"entries" bson:"entries"`
	DriftCount  int          `json:"drift_count" bson:"drift_count"`
}
