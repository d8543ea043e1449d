package registry

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/pelagic-data/vessel-mdm/internal/model"
)

// SaveTrustScore upserts a vessel's trust score and its components.
func (r *Repository) SaveTrustScore(ctx context.Context, t model.TrustScore) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO registry.trust_scores
		    (vessel_id, score, identifier_score, source_score, data_score,
		     consistency_score, reputation_score, blacklist_penalty, computed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (vessel_id) DO UPDATE SET
		    score = EXCLUDED.score,
		    identifier_score = EXCLUDED.identifier_score,
		    source_score = EXCLUDED.source_score,
		    data_score = EXCLUDED.data_score,
		    consistency_score = EXCLUDED.consistency_score,
		    reputation_score = EXCLUDED.reputation_score,
		    blacklist_penalty = EXCLUDED.blacklist_penalty,
		    computed_at = EXCLUDED.computed_at`,
		t.VesselID, t.Score, t.IdentifierScore, t.SourceScore, t.DataScore,
		t.ConsistencyScore, t.ReputationScore, t.BlacklistPenalty, t.ComputedAt.UTC())
	if err != nil {
		return eris.Wrapf(err, "registry: save trust score for %s", t.VesselID)
	}
	return nil
}

// GetTrustScore fetches a vessel's current trust score.
func (r *Repository) GetTrustScore(ctx context.Context, vesselID string) (*model.TrustScore, error) {
	var t model.TrustScore
	err := r.pool.QueryRow(ctx,
		`SELECT vessel_id, score, identifier_score, source_score, data_score,
		        consistency_score, reputation_score, blacklist_penalty, computed_at
		 FROM registry.trust_scores WHERE vessel_id = $1`,
		vesselID).Scan(
		&t.VesselID, &t.Score, &t.IdentifierScore, &t.SourceScore, &t.DataScore,
		&t.ConsistencyScore, &t.ReputationScore, &t.BlacklistPenalty, &t.ComputedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: get trust score for %s", vesselID)
	}
	return &t, nil
}

// ListReputationEvents returns all reputation events for a vessel, newest
// first.
func (r *Repository) ListReputationEvents(ctx context.Context, vesselID string) ([]model.ReputationEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, vessel_id, source, kind, severity, occurred_at, lifted_at
		 FROM registry.reputation_events WHERE vessel_id = $1
		 ORDER BY occurred_at DESC`,
		vesselID)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: list reputation events for %s", vesselID)
	}
	defer rows.Close()

	var out []model.ReputationEvent
	for rows.Next() {
		var e model.ReputationEvent
		if err := rows.Scan(&e.ID, &e.VesselID, &e.Source, &e.Kind, &e.Severity, &e.OccurredAt, &e.LiftedAt); err != nil {
			return nil, eris.Wrap(err, "registry: scan reputation event")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AppendReputationEvent records a negative reputation event against a vessel.
func (r *Repository) AppendReputationEvent(ctx context.Context, e model.ReputationEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO registry.reputation_events (vessel_id, source, kind, severity, occurred_at, lifted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.VesselID, e.Source, e.Kind, e.Severity, e.OccurredAt.UTC(), e.LiftedAt)
	if err != nil {
		return eris.Wrap(err, "registry: append reputation event")
	}
	return nil
}

// SaveSnapshot persists an immutable resolved-state snapshot. A snapshot
// for the same (vessel, source, date) key is a no-op, preserving the first
// write.
func (r *Repository) SaveSnapshot(ctx context.Context, s model.Snapshot) error {
	trustJSON, err := json.Marshal(s.Trust)
	if err != nil {
		return eris.Wrap(err, "registry: marshal snapshot trust")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO registry.snapshots (id, vessel_id, source, as_of_date, state, trust)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (vessel_id, source, as_of_date) DO NOTHING`,
		s.ID, s.VesselID, s.Source, s.AsOfDate.UTC(), s.State, trustJSON)
	if err != nil {
		return eris.Wrap(err, "registry: save snapshot")
	}
	return nil
}

// RecentSnapshots returns the most recent snapshots for (vessel, source),
// newest first, limited to n.
func (r *Repository) RecentSnapshots(ctx context.Context, vesselID, source string, n int) ([]model.Snapshot, error) {
	if n <= 0 {
		n = 2
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, vessel_id, source, as_of_date, state, trust, created_at
		 FROM registry.snapshots WHERE vessel_id = $1 AND source = $2
		 ORDER BY as_of_date DESC LIMIT $3`,
		vesselID, source, n)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: recent snapshots for %s/%s", vesselID, source)
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		var s model.Snapshot
		var trustJSON []byte
		if err := rows.Scan(&s.ID, &s.VesselID, &s.Source, &s.AsOfDate, &s.State, &trustJSON, &s.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "registry: scan snapshot")
		}
		if err := json.Unmarshal(trustJSON, &s.Trust); err != nil {
			return nil, eris.Wrap(err, "registry: unmarshal snapshot trust")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
