// Package reporting assembles read-only views over the registry: batch
// import reports, trust distribution, and per-vessel detail.
package reporting

import (
	"context"
	"errors"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/pelagic-data/vessel-mdm/internal/config"
	"github.com/pelagic-data/vessel-mdm/internal/dlq"
	"github.com/pelagic-data/vessel-mdm/internal/lineage"
	"github.com/pelagic-data/vessel-mdm/internal/model"
	"github.com/pelagic-data/vessel-mdm/internal/registry"
)

// Reporter builds reports from the repository and the local reject store.
type Reporter struct {
	repo    *registry.Repository
	tracker *lineage.Tracker
	rejects *dlq.Store
	trust   config.TrustConfig
}

// NewReporter creates a Reporter.
func NewReporter(repo *registry.Repository, rejects *dlq.Store, trust config.TrustConfig) *Reporter {
	return &Reporter{
		repo:    repo,
		tracker: lineage.NewTracker(repo),
		rejects: rejects,
		trust:   trust,
	}
}

// BatchReport is the full import report for one batch.
type BatchReport struct {
	Batch         model.ImportBatch  `json:"batch" yaml:"batch"`
	Summary       model.BatchSummary `json:"summary" yaml:"summary"`
	RejectReasons map[string]int     `json:"reject_reasons,omitempty" yaml:"reject_reasons,omitempty"`
}

// BatchReport assembles the report for one batch id.
func (r *Reporter) BatchReport(ctx context.Context, batchID string) (*BatchReport, error) {
	batch, err := r.repo.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	summary, err := r.tracker.Summary(ctx, batch)
	if err != nil {
		return nil, err
	}

	reasons, err := r.rejects.Count(ctx, batchID)
	if err != nil {
		return nil, err
	}

	return &BatchReport{
		Batch:         *batch,
		Summary:       *summary,
		RejectReasons: reasons,
	}, nil
}

// RegistryReport is the registry-wide health view.
type RegistryReport struct {
	Vessels           registry.VesselCounts  `json:"vessels" yaml:"vessels"`
	TrustDistribution []registry.TrustBucket `json:"trust_distribution" yaml:"trust_distribution"`
	AIReadyCount      int                    `json:"ai_ready_count" yaml:"ai_ready_count"`
	ConflictedFields  map[string]int         `json:"conflicted_fields,omitempty" yaml:"conflicted_fields,omitempty"`
}

// RegistryReport assembles the registry-wide view: vessel counts, the trust
// score distribution, export readiness, and the most conflicted fields.
func (r *Reporter) RegistryReport(ctx context.Context) (*RegistryReport, error) {
	counts, err := r.repo.CountVessels(ctx)
	if err != nil {
		return nil, err
	}

	dist, err := r.repo.TrustDistribution(ctx)
	if err != nil {
		return nil, err
	}

	ready, err := r.repo.AIReadyCount(ctx, r.trust.MinTrust, r.trust.MinCompleteness)
	if err != nil {
		return nil, err
	}

	conflicted, err := r.repo.ConflictTotals(ctx, 20)
	if err != nil {
		return nil, err
	}

	return &RegistryReport{
		Vessels:           counts,
		TrustDistribution: dist,
		AIReadyCount:      ready,
		ConflictedFields:  conflicted,
	}, nil
}

// VesselReport is the full per-vessel view: canonical state, trust, source
// presences, and open conflicts.
type VesselReport struct {
	Vessel    model.Vessel           `json:"vessel" yaml:"vessel"`
	Trust     *model.TrustScore      `json:"trust,omitempty" yaml:"trust,omitempty"`
	Presences []model.SourcePresence `json:"presences,omitempty" yaml:"presences,omitempty"`
	Conflicts []model.ConflictRecord `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
}

// VesselReport assembles the detail view for one vessel.
func (r *Reporter) VesselReport(ctx context.Context, vesselID string) (*VesselReport, error) {
	v, err := r.repo.GetVessel(ctx, vesselID)
	if err != nil {
		return nil, err
	}

	t, err := r.repo.GetTrustScore(ctx, vesselID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		t = nil // not yet scored
	}

	presences, err := r.repo.ActivePresences(ctx, vesselID)
	if err != nil {
		return nil, err
	}

	conflicts, err := r.repo.ListConflicts(ctx, vesselID)
	if err != nil {
		return nil, err
	}

	return &VesselReport{
		Vessel:    *v,
		Trust:     t,
		Presences: presences,
		Conflicts: conflicts,
	}, nil
}

// WriteYAML renders any report as YAML, for operator-facing CLI output.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "reporting: encode yaml")
	}
	return enc.Close()
}
