package trust

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pelagic-data/vessel-mdm/internal/config"
	"github.com/pelagic-data/vessel-mdm/internal/model"
)

// ScoreStore is the slice of the repository the scorer needs.
type ScoreStore interface {
	GetVessel(ctx context.Context, vesselID string) (*model.Vessel, error)
	ActivePresences(ctx context.Context, vesselID string) ([]model.SourcePresence, error)
	ConflictCount(ctx context.Context, vesselID string) (int, error)
	ListReputationEvents(ctx context.Context, vesselID string) ([]model.ReputationEvent, error)
	SaveTrustScore(ctx context.Context, t model.TrustScore) error
}

// Scorer recomputes composite trust scores. Recompute is the single entry
// point; it runs when an input changes (identifier, presence, conflict, or
// reputation event), never on a schedule.
type Scorer struct {
	store   ScoreStore
	cfg     config.TrustConfig
	sources config.SourcesConfig
	now     func() time.Time
}

// NewScorer creates a Scorer. The now function defaults to time.Now and
// exists so decay math is testable.
func NewScorer(store ScoreStore, cfg config.TrustConfig, sources config.SourcesConfig) *Scorer {
	return &Scorer{store: store, cfg: cfg, sources: sources, now: time.Now}
}

// WithClock overrides the scorer's clock.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Recompute calculates and persists the trust score for one vessel:
//
//	trust = 0.30*identifier + 0.25*source + 0.20*data
//	      + 0.15*consistency + 0.10*reputation - blacklist_penalty
//
// clamped to [0,1].
func (s *Scorer) Recompute(ctx context.Context, vesselID string) (*model.TrustScore, error) {
	v, err := s.store.GetVessel(ctx, vesselID)
	if err != nil {
		return nil, eris.Wrap(err, "trust: load vessel")
	}

	presences, err := s.store.ActivePresences(ctx, vesselID)
	if err != nil {
		return nil, eris.Wrap(err, "trust: load presences")
	}

	conflicts, err := s.store.ConflictCount(ctx, vesselID)
	if err != nil {
		return nil, eris.Wrap(err, "trust: count conflicts")
	}

	events, err := s.store.ListReputationEvents(ctx, vesselID)
	if err != nil {
		return nil, eris.Wrap(err, "trust: load reputation events")
	}

	now := s.now().UTC()
	t := model.TrustScore{
		VesselID:         vesselID,
		IdentifierScore:  identifierScore(v),
		SourceScore:      s.sourceScore(presences),
		DataScore:        dataScore(v),
		ConsistencyScore: consistencyScore(conflicts),
		ReputationScore:  s.reputationScore(events, now),
		BlacklistPenalty: s.blacklistPenalty(events, now),
		ComputedAt:       now,
	}

	t.Score = clamp01(s.cfg.IdentifierWeight*t.IdentifierScore +
		s.cfg.SourceWeight*t.SourceScore +
		s.cfg.DataWeight*t.DataScore +
		s.cfg.ConsistencyWeight*t.ConsistencyScore +
		s.cfg.ReputationWeight*t.ReputationScore -
		t.BlacklistPenalty)

	if err := s.store.SaveTrustScore(ctx, t); err != nil {
		return nil, eris.Wrap(err, "trust: save score")
	}

	zap.L().Debug("trust recomputed",
		zap.String("component", "trust_scorer"),
		zap.String("vessel_id", vesselID),
		zap.Float64("score", t.Score))

	return &t, nil
}

// RecomputeAll bulk-rescores the given vessels, typically the dirty set at
// batch end. Per-vessel failures abort: a partially scored batch would
// leave stale composites behind fresh inputs.
func (s *Scorer) RecomputeAll(ctx context.Context, vesselIDs []string) (int, error) {
	for i, id := range vesselIDs {
		if err := ctx.Err(); err != nil {
			return i, eris.Wrap(err, "trust: rescore cancelled")
		}
		if _, err := s.Recompute(ctx, id); err != nil {
			return i, eris.Wrapf(err, "trust: rescore vessel %s", id)
		}
	}
	return len(vesselIDs), nil
}

// identifierScore grades identifier strength: IMO anchors global identity,
// IRCS and MMSI are weaker, anything else is name-based only.
func identifierScore(v *model.Vessel) float64 {
	switch {
	case v.IMO != "":
		return 1.0
	case v.IRCS != "":
		return 0.7
	case v.MMSI != "":
		return 0.5
	default:
		return 0.3
	}
}

// sourceScore is the authority level of the best source currently
// reporting the vessel.
func (s *Scorer) sourceScore(presences []model.SourcePresence) float64 {
	best := 0.0
	for _, p := range presences {
		if a := s.sources.AuthorityFor(p.Source); a > best {
			best = a
		}
	}
	return best
}

// dataScore is the populated fraction of the core attribute checklist.
func dataScore(v *model.Vessel) float64 {
	checks := []bool{
		v.Name != "",
		v.FlagAlpha3 != "",
		v.IMO != "" || v.IRCS != "" || v.MMSI != "",
		v.VesselTypeCode != "",
		v.BuildYear != "",
		v.Port != "",
		v.LengthM != "" || v.TonnageGT != "" || v.EnginePowerKW != "",
	}
	populated := 0
	for _, ok := range checks {
		if ok {
			populated++
		}
	}
	return float64(populated) / float64(len(checks))
}

// consistencyScore decays as conflicts accumulate: 1/(1+conflicts).
func consistencyScore(conflicts int) float64 {
	return 1.0 / (1.0 + float64(conflicts))
}

// reputationScore starts at 1.0 and is reduced by the most recent negative
// event, recovering linearly to 1.0 over the decay window.
func (s *Scorer) reputationScore(events []model.ReputationEvent, now time.Time) float64 {
	var latest *model.ReputationEvent
	for i := range events {
		if latest == nil || events[i].OccurredAt.After(latest.OccurredAt) {
			latest = &events[i]
		}
	}
	if latest == nil {
		return 1.0
	}

	window := time.Duration(s.cfg.ReputationDecayDays) * 24 * time.Hour
	age := now.Sub(latest.OccurredAt)
	if age >= window {
		return 1.0
	}

	severity := clamp01(latest.Severity)
	recovered := float64(age) / float64(window)
	return clamp01(1.0 - severity*(1.0-recovered))
}

// blacklistPenalty applies the flat penalty while a blacklist event is
// active or recent. Kept separate from reputationScore so a currently
// sanctioned vessel cannot be masked by older good history.
func (s *Scorer) blacklistPenalty(events []model.ReputationEvent, now time.Time) float64 {
	window := time.Duration(s.cfg.BlacklistWindowDays) * 24 * time.Hour
	for _, e := range events {
		if e.Kind != "blacklist" {
			continue
		}
		if e.ActiveAt(now) {
			return s.cfg.BlacklistPenalty
		}
		// Lifted, but still within the recent window.
		if e.LiftedAt != nil && now.Sub(*e.LiftedAt) <= window {
			return s.cfg.BlacklistPenalty
		}
	}
	return 0
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
