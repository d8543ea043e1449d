package resolve

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/pelagic-data/vessel-mdm/internal/model"
)

// Outcome is the result of applying one reported field value.
type Outcome string

const (
	Unchanged      Outcome = "unchanged"
	Updated        Outcome = "updated"
	ConflictLogged Outcome = "conflict_logged"
)

// AttributeStore is the slice of the repository the conflict detector needs.
type AttributeStore interface {
	ActiveAttribute(ctx context.Context, vesselID, source, field string) (string, bool, error)
	InsertAttribute(ctx context.Context, vesselID, source, field, value string) error
	DeactivateAttribute(ctx context.Context, vesselID, source, field string) error
	AppendConflict(ctx context.Context, c model.ConflictRecord) error
	AppendHistory(ctx context.Context, e model.ReportedHistoryEvent) error
}

// Conflicts applies incoming field values against a vessel's active values
// with an explicit read-compare-write, so conflict logging is visible and
// testable instead of buried in a database upsert clause.
type Conflicts struct {
	store AttributeStore
}

// NewConflicts creates a conflict detector over the given store.
func NewConflicts(store AttributeStore) *Conflicts {
	return &Conflicts{store: store}
}

// CheckAndApply reconciles one reported value with the active value for
// (vessel, source, field):
//
//	no active value  -> insert active, Updated
//	equal value      -> Unchanged
//	differing value  -> deactivate old, insert new, log conflict, ConflictLogged
//
// The old value is never corrected retroactively; both remain queryable.
func (c *Conflicts) CheckAndApply(ctx context.Context, ref *model.VesselRef, rec *model.CanonicalRecord, field, newValue string) (Outcome, error) {
	if newValue == "" {
		return Unchanged, nil
	}

	current, exists, err := c.store.ActiveAttribute(ctx, ref.VesselID, rec.SourceName, field)
	if err != nil {
		return Unchanged, eris.Wrap(err, "conflicts: read active value")
	}

	if exists && current == newValue {
		return Unchanged, nil
	}

	if exists {
		if err := c.store.DeactivateAttribute(ctx, ref.VesselID, rec.SourceName, field); err != nil {
			return Unchanged, eris.Wrap(err, "conflicts: deactivate old value")
		}
	}

	if err := c.store.InsertAttribute(ctx, ref.VesselID, rec.SourceName, field, newValue); err != nil {
		return Unchanged, eris.Wrap(err, "conflicts: insert new value")
	}

	if err := c.store.AppendHistory(ctx, model.ReportedHistoryEvent{
		VesselID:   ref.VesselID,
		Source:     rec.SourceName,
		Field:      field,
		Value:      newValue,
		SourceDate: rec.SourceDate,
	}); err != nil {
		return Unchanged, eris.Wrap(err, "conflicts: append history")
	}

	if !exists {
		return Updated, nil
	}

	if err := c.store.AppendConflict(ctx, model.ConflictRecord{
		VesselID: ref.VesselID,
		Source:   rec.SourceName,
		Field:    field,
		OldValue: current,
		NewValue: newValue,
	}); err != nil {
		return Unchanged, eris.Wrap(err, "conflicts: append conflict record")
	}

	return ConflictLogged, nil
}
