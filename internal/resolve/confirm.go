package resolve

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pelagic-data/vessel-mdm/internal/model"
)

// ConfirmationStore is the slice of the repository the aggregator needs.
type ConfirmationStore interface {
	AppendConfirmation(ctx context.Context, vesselID, field, value, source string, at time.Time) (*model.Confirmation, error)
}

// Confirmations accumulates cross-source agreement on field values.
// Agreement from distinct, independent sources is stronger evidence than
// repetition from one source, so confidence tracks the distinct-source
// count and nothing else.
type Confirmations struct {
	store ConfirmationStore
}

// NewConfirmations creates a confirmation aggregator.
func NewConfirmations(store ConfirmationStore) *Confirmations {
	return &Confirmations{store: store}
}

// Confirm records that source reports value for a vessel field and returns
// the updated confirmation. Confidence is min(1.0, 0.2 * distinct sources)
// and never decreases for a given tuple.
func (cf *Confirmations) Confirm(ctx context.Context, ref *model.VesselRef, field, value, source string, at time.Time) (*model.Confirmation, error) {
	if value == "" {
		return nil, nil
	}
	conf, err := cf.store.AppendConfirmation(ctx, ref.VesselID, field, value, source, at)
	if err != nil {
		return nil, eris.Wrap(err, "confirmations: confirm value")
	}
	return conf, nil
}

// Confidence computes the confirmation confidence for a distinct-source
// count, shared by the SQL path and reporting.
func Confidence(distinctSources int) float64 {
	c := 0.2 * float64(distinctSources)
	if c > 1.0 {
		return 1.0
	}
	return c
}
