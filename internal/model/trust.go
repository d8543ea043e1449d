package model

import "time"

// TrustScore is the per-vessel composite confidence score and the five
// component scores it was computed from. Recomputed whenever an input
// changes, never on a schedule.
type TrustScore struct {
	VesselID         string    `json:"vessel_id"`
	Score            float64   `json:"score"`
	IdentifierScore  float64   `json:"identifier_score"`
	SourceScore      float64   `json:"source_score"`
	DataScore        float64   `json:"data_score"`
	ConsistencyScore float64   `json:"consistency_score"`
	ReputationScore  float64   `json:"reputation_score"`
	BlacklistPenalty float64   `json:"blacklist_penalty"`
	ComputedAt       time.Time `json:"computed_at"`
}

// AIReady reports whether the vessel clears the thresholds for automated
// downstream consumption.
func (t TrustScore) AIReady(minTrust, minCompleteness float64) bool {
	return t.Score >= minTrust && t.DataScore >= minCompleteness
}

// Confirmation tracks cross-source agreement on one (vessel, field, value)
// tuple. Confidence rises monotonically with distinct confirming sources
// and is independent of per-source trust.
type Confirmation struct {
	VesselID       string    `json:"vessel_id"`
	Field          string    `json:"field"`
	Value          string    `json:"value"`
	Sources        []string  `json:"sources"`
	SourceCount    int       `json:"source_count"`
	Confidence     float64   `json:"confidence"`
	FirstConfirmed time.Time `json:"first_confirmed"`
	LastConfirmed  time.Time `json:"last_confirmed"`
}

// ConflictRecord is the audit trail of one contradiction between an
// incoming report and a vessel's active value. Conflicts are logged and
// kept forever, never silently resolved.
type ConflictRecord struct {
	ID        int64     `json:"id,omitempty"`
	VesselID  string    `json:"vessel_id"`
	Source    string    `json:"source"`
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is an immutable point-in-time serialization of a vessel's
// resolved state plus its trust score, keyed by (vessel, source, date).
type Snapshot struct {
	ID        string     `json:"id"`
	VesselID  string     `json:"vessel_id"`
	Source    string     `json:"source"`
	AsOfDate  time.Time  `json:"as_of_date"`
	State     []byte     `json:"state"`
	Trust     TrustScore `json:"trust"`
	CreatedAt time.Time  `json:"created_at"`
}
