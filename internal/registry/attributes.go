package registry

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/pelagic-data/vessel-mdm/internal/model"
)

// ActiveAttribute returns the active value a source reports for a vessel
// field. The second return is false when the source has never reported it.
func (r *Repository) ActiveAttribute(ctx context.Context, vesselID, source, field string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM registry.vessel_attributes
		 WHERE vessel_id = $1 AND source = $2 AND field = $3 AND active`,
		vesselID, source, field).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, eris.Wrapf(err, "registry: read attribute %s/%s/%s", vesselID, source, field)
	}
	return value, true, nil
}

// InsertAttribute inserts a new active attribute value for (vessel, source,
// field). The caller must have deactivated any previous active value first.
func (r *Repository) InsertAttribute(ctx context.Context, vesselID, source, field, value string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO registry.vessel_attributes (vessel_id, source, field, value, active)
		 VALUES ($1, $2, $3, $4, TRUE)`,
		vesselID, source, field, value)
	if err != nil {
		return eris.Wrapf(err, "registry: insert attribute %s/%s/%s", vesselID, source, field)
	}
	return nil
}

// DeactivateAttribute stamps the active value for (vessel, source, field)
// inactive. History is never corrected retroactively; the old row remains
// queryable.
func (r *Repository) DeactivateAttribute(ctx context.Context, vesselID, source, field string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE registry.vessel_attributes SET active = FALSE, updated_at = now()
		 WHERE vessel_id = $1 AND source = $2 AND field = $3 AND active`,
		vesselID, source, field)
	if err != nil {
		return eris.Wrapf(err, "registry: deactivate attribute %s/%s/%s", vesselID, source, field)
	}
	return nil
}

// AttributeHistory lists every value a source has ever reported for a
// vessel field, newest first, active and superseded alike.
func (r *Repository) AttributeHistory(ctx context.Context, vesselID, field string) ([]model.ReportedHistoryEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, vessel_id, source, field, value, source_date, created_at
		 FROM registry.reported_history
		 WHERE vessel_id = $1 AND field = $2
		 ORDER BY created_at DESC`,
		vesselID, field)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: attribute history %s/%s", vesselID, field)
	}
	defer rows.Close()

	var out []model.ReportedHistoryEvent
	for rows.Next() {
		var e model.ReportedHistoryEvent
		if err := rows.Scan(&e.ID, &e.VesselID, &e.Source, &e.Field, &e.Value, &e.SourceDate, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "registry: scan history event")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AppendHistory records an observed attribute change, append-only.
func (r *Repository) AppendHistory(ctx context.Context, e model.ReportedHistoryEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO registry.reported_history (vessel_id, source, field, value, source_date)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.VesselID, e.Source, e.Field, e.Value, e.SourceDate)
	if err != nil {
		return eris.Wrap(err, "registry: append history event")
	}
	return nil
}

// AppendConflict records a contradiction between an incoming report and the
// vessel's active value. Append-only audit trail.
func (r *Repository) AppendConflict(ctx context.Context, c model.ConflictRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO registry.conflicts (vessel_id, source, field, old_value, new_value)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.VesselID, c.Source, c.Field, c.OldValue, c.NewValue)
	if err != nil {
		return eris.Wrap(err, "registry: append conflict")
	}
	return nil
}

// ConflictCount returns the number of conflicts ever logged for a vessel.
func (r *Repository) ConflictCount(ctx context.Context, vesselID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM registry.conflicts WHERE vessel_id = $1`,
		vesselID).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "registry: count conflicts for %s", vesselID)
	}
	return n, nil
}

// ListConflicts returns the conflict audit trail for a vessel, newest first.
func (r *Repository) ListConflicts(ctx context.Context, vesselID string) ([]model.ConflictRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, vessel_id, source, field, old_value, new_value, created_at
		 FROM registry.conflicts WHERE vessel_id = $1 ORDER BY created_at DESC`,
		vesselID)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: list conflicts for %s", vesselID)
	}
	defer rows.Close()

	var out []model.ConflictRecord
	for rows.Next() {
		var c model.ConflictRecord
		if err := rows.Scan(&c.ID, &c.VesselID, &c.Source, &c.Field, &c.OldValue, &c.NewValue, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "registry: scan conflict")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AppendConfirmation adds a source to the confirming set for a (vessel,
// field, value) tuple and returns the updated row. Confidence is
// min(1.0, 0.2 * distinct sources) and never decreases for a tuple.
func (r *Repository) AppendConfirmation(ctx context.Context, vesselID, field, value, source string, at time.Time) (*model.Confirmation, error) {
	at = at.UTC()
	var c model.Confirmation
	err := r.pool.QueryRow(ctx,
		`INSERT INTO registry.confirmations
		    (vessel_id, field, value, sources, source_count, confidence, first_confirmed, last_confirmed)
		 VALUES ($1, $2, $3, ARRAY[$4], 1, 0.2, $5, $5)
		 ON CONFLICT (vessel_id, field, value) DO UPDATE SET
		    sources = CASE WHEN $4 = ANY(registry.confirmations.sources)
		                   THEN registry.confirmations.sources
		                   ELSE array_append(registry.confirmations.sources, $4) END,
		    source_count = CASE WHEN $4 = ANY(registry.confirmations.sources)
		                        THEN registry.confirmations.source_count
		                        ELSE registry.confirmations.source_count + 1 END,
		    confidence = LEAST(1.0, 0.2 * (CASE WHEN $4 = ANY(registry.confirmations.sources)
		                                        THEN registry.confirmations.source_count
		                                        ELSE registry.confirmations.source_count + 1 END)),
		    last_confirmed = GREATEST(registry.confirmations.last_confirmed, $5)
		 RETURNING vessel_id, field, value, sources, source_count, confidence, first_confirmed, last_confirmed`,
		vesselID, field, value, source, at).Scan(
		&c.VesselID, &c.Field, &c.Value, &c.Sources, &c.SourceCount,
		&c.Confidence, &c.FirstConfirmed, &c.LastConfirmed)
	if err != nil {
		return nil, eris.Wrap(err, "registry: append confirmation")
	}
	return &c, nil
}

// GetConfirmation fetches the confirmation row for a tuple, or nil.
func (r *Repository) GetConfirmation(ctx context.Context, vesselID, field, value string) (*model.Confirmation, error) {
	var c model.Confirmation
	err := r.pool.QueryRow(ctx,
		`SELECT vessel_id, field, value, sources, source_count, confidence, first_confirmed, last_confirmed
		 FROM registry.confirmations WHERE vessel_id = $1 AND field = $2 AND value = $3`,
		vesselID, field, value).Scan(
		&c.VesselID, &c.Field, &c.Value, &c.Sources, &c.SourceCount,
		&c.Confidence, &c.FirstConfirmed, &c.LastConfirmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "registry: get confirmation")
	}
	return &c, nil
}
