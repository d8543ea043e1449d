package model

import "time"

// IdentifierType names a hard identifier class used for matching.
type IdentifierType string

const (
	IdentifierIMO  IdentifierType = "imo"
	IdentifierIRCS IdentifierType = "ircs"
	IdentifierMMSI IdentifierType = "mmsi"
)

// Vessel is the canonical, deduplicated record for one physical vessel.
// Vessels are never physically deleted, only deactivated.
type Vessel struct {
	ID               string     `json:"id"`
	Name             string     `json:"name,omitempty"`
	FlagAlpha3       string     `json:"flag_alpha3,omitempty"`
	IMO              string     `json:"imo,omitempty"`
	IRCS             string     `json:"ircs,omitempty"`
	MMSI             string     `json:"mmsi,omitempty"`
	NationalRegistry string     `json:"national_registry,omitempty"`
	VesselTypeCode   string     `json:"vessel_type_code,omitempty"`
	GearTypeCode     string     `json:"gear_type_code,omitempty"`
	Port             string     `json:"port,omitempty"`
	BuildYear        string     `json:"build_year,omitempty"`
	LengthM          string     `json:"length_m,omitempty"`
	TonnageGT        string     `json:"tonnage_gt,omitempty"`
	EnginePowerKW    string     `json:"engine_power_kw,omitempty"`
	Active           bool       `json:"active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// VesselRef is a lightweight handle to a resolved vessel plus how it was
// matched, returned by the identity resolver.
type VesselRef struct {
	VesselID  string `json:"vessel_id"`
	MatchType string `json:"match_type"` // imo | ircs | mmsi | name_flag | created
	Created   bool   `json:"created"`
}

// SourcePresence records that a source currently (or historically) reports
// a vessel. Unique per (vessel, source); re-imports refresh, never duplicate.
type SourcePresence struct {
	VesselID  string    `json:"vessel_id"`
	Source    string    `json:"source"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Active    bool      `json:"active"`
}

// ExternalIdentifier is a source's own reference number for a vessel.
// Superseded values are deactivated, never overwritten; the full history
// of a source's identifiers for a vessel stays queryable.
type ExternalIdentifier struct {
	VesselID  string     `json:"vessel_id"`
	Source    string     `json:"source"`
	Type      string     `json:"type"`
	Value     string     `json:"value"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ReportedHistoryEvent is one observed change to a vessel attribute,
// attributed to the reporting source. Append-only.
type ReportedHistoryEvent struct {
	ID         int64      `json:"id,omitempty"`
	VesselID   string     `json:"vessel_id"`
	Source     string     `json:"source"`
	Field      string     `json:"field"`
	Value      string     `json:"value"`
	SourceDate *time.Time `json:"source_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ReputationEvent is a negative event (e.g. IUU listing, sanction) against
// a vessel. Blacklist events additionally drive the flat trust penalty.
type ReputationEvent struct {
	ID         int64      `json:"id,omitempty"`
	VesselID   string     `json:"vessel_id"`
	Source     string     `json:"source"`
	Kind       string     `json:"kind"` // blacklist | detention | violation
	Severity   float64    `json:"severity"`
	OccurredAt time.Time  `json:"occurred_at"`
	LiftedAt   *time.Time `json:"lifted_at,omitempty"`
}

// ActiveAt reports whether the event was in force at t.
func (e ReputationEvent) ActiveAt(t time.Time) bool {
	if e.OccurredAt.After(t) {
		return false
	}
	return e.LiftedAt == nil || e.LiftedAt.After(t)
}
