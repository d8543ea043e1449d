// Package history persists point-in-time snapshots of resolved vessel
// state and watches trust-score drift between them.
package history

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pelagic-data/vessel-mdm/internal/model"
)

// SnapshotStore is the slice of the repository the manager needs.
type SnapshotStore interface {
	GetVessel(ctx context.Context, vesselID string) (*model.Vessel, error)
	GetTrustScore(ctx context.Context, vesselID string) (*model.TrustScore, error)
	SaveSnapshot(ctx context.Context, s model.Snapshot) error
	RecentSnapshots(ctx context.Context, vesselID, source string, n int) ([]model.Snapshot, error)
}

// Manager writes immutable snapshots and flags drift for manual review.
type Manager struct {
	store          SnapshotStore
	driftThreshold float64
}

// NewManager creates a snapshot manager. driftThreshold is the absolute
// trust-score movement between consecutive snapshots that triggers a
// review flag.
func NewManager(store SnapshotStore, driftThreshold float64) *Manager {
	return &Manager{store: store, driftThreshold: driftThreshold}
}

// Snapshot serializes the vessel's resolved attributes plus its current
// trust score, keyed by (vessel, source, date). Snapshots are append-only;
// an existing key is preserved, not overwritten.
func (m *Manager) Snapshot(ctx context.Context, ref *model.VesselRef, source string, asOf time.Time) (*model.Snapshot, error) {
	v, err := m.store.GetVessel(ctx, ref.VesselID)
	if err != nil {
		return nil, eris.Wrap(err, "history: load vessel")
	}

	t, err := m.store.GetTrustScore(ctx, ref.VesselID)
	if err != nil {
		return nil, eris.Wrap(err, "history: load trust score")
	}

	state, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "history: marshal vessel state")
	}

	snap := model.Snapshot{
		VesselID: ref.VesselID,
		Source:   source,
		AsOfDate: asOf.UTC().Truncate(24 * time.Hour),
		State:    state,
		Trust:    *t,
	}
	if err := m.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, eris.Wrap(err, "history: save snapshot")
	}
	return &snap, nil
}

// DriftCheck compares the two most recent snapshots for (vessel, source)
// and reports whether the trust score moved beyond the review threshold.
// A drifting score signals manual review, never automatic rollback.
func (m *Manager) DriftCheck(ctx context.Context, vesselID, source string) (drifted bool, delta float64, err error) {
	snaps, err := m.store.RecentSnapshots(ctx, vesselID, source, 2)
	if err != nil {
		return false, 0, eris.Wrap(err, "history: load recent snapshots")
	}
	if len(snaps) < 2 {
		return false, 0, nil
	}

	delta = snaps[0].Trust.Score - snaps[1].Trust.Score
	if math.Abs(delta) > m.driftThreshold {
		zap.L().Warn("trust score drift",
			zap.String("component", "history"),
			zap.String("vessel_id", vesselID),
			zap.String("source", source),
			zap.Float64("delta", delta))
		return true, delta, nil
	}
	return false, delta, nil
}
