// Package model defines the canonical vessel-registry data model shared by
// the resolution engine, repository, and reporting layers.
package model

import "time"

// CanonicalRecord is one normalized vessel report from a source registry.
// Per-source extraction produces these; the engine never sees raw source
// columns. All identifier fields are optional; Attributes carries anything
// source-specific the core does not interpret.
type CanonicalRecord struct {
	SourceName       string     `json:"source_name"`
	SourceDate       *time.Time `json:"source_date,omitempty"`
	VesselName       string     `json:"vessel_name,omitempty"`
	IMO              string     `json:"imo,omitempty"`
	IRCS             string     `json:"ircs,omitempty"`
	MMSI             string     `json:"mmsi,omitempty"`
	NationalRegistry string     `json:"national_registry,omitempty"`
	FlagAlpha3       string     `json:"flag_alpha3,omitempty"`
	ExternalID       string     `json:"external_id,omitempty"`
	VesselTypeCode   string     `json:"vessel_type_code,omitempty"`
	GearTypeCode     string     `json:"gear_type_code,omitempty"`
	Port             string     `json:"port,omitempty"`
	BuildYear        string     `json:"build_year,omitempty"`
	LengthM          string     `json:"length_m,omitempty"`
	TonnageGT        string     `json:"tonnage_gt,omitempty"`
	EnginePowerKW    string     `json:"engine_power_kw,omitempty"`

	// Attributes holds source-specific extras, stored for provenance and
	// never interpreted by the core.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// HasMetric reports whether at least one physical metric is populated.
func (r *CanonicalRecord) HasMetric() bool {
	return r.LengthM != "" || r.TonnageGT != "" || r.EnginePowerKW != ""
}

// Completeness returns the populated fraction of the core attribute
// checklist: name, flag, one hard identifier, vessel type, build year,
// port, and at least one metric.
func (r *CanonicalRecord) Completeness() float64 {
	checks := []bool{
		r.VesselName != "",
		r.FlagAlpha3 != "",
		r.IMO != "" || r.IRCS != "" || r.MMSI != "",
		r.VesselTypeCode != "",
		r.BuildYear != "",
		r.Port != "",
		r.HasMetric(),
	}
	populated := 0
	for _, ok := range checks {
		if ok {
			populated++
		}
	}
	return float64(populated) / float64(len(checks))
}

// RejectedRecord captures a record the engine refused to resolve, with the
// reason it was rejected. Rejects are reported at batch end, never dropped.
type RejectedRecord struct {
	BatchID   string          `json:"batch_id"`
	Source    string          `json:"source"`
	Reason    string          `json:"reason"`
	Record    CanonicalRecord `json:"record"`
	CreatedAt time.Time       `json:"created_at"`
}
