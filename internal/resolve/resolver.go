package resolve

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pelagic-data/vessel-mdm/internal/model"
)

// VesselStore is the slice of the repository the resolver needs.
type VesselStore interface {
	FindVesselByIdentifier(ctx context.Context, idType model.IdentifierType, value string) (*model.Vessel, error)
	FindVesselByNameFlag(ctx context.Context, name, flagAlpha3 string) (*model.Vessel, error)
	CreateVessel(ctx context.Context, seed model.CanonicalRecord) (*model.Vessel, error)
	AttachIdentifier(ctx context.Context, vesselID string, idType model.IdentifierType, value string) error
	AppendConflict(ctx context.Context, c model.ConflictRecord) error
}

// Resolver matches incoming canonical records to canonical vessels.
// Matching is strictly rule-based, first hit wins: IMO, then IRCS, then
// MMSI, then the exact name+flag pair; otherwise a new vessel is created.
type Resolver struct {
	store VesselStore
}

// NewResolver creates a Resolver over the given store.
func NewResolver(store VesselStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve matches a record to exactly one vessel or creates one. Records
// with no usable identifier and no name+flag pair fail with
// ErrInsufficientIdentity; they are the caller's to report, never to drop.
func (r *Resolver) Resolve(ctx context.Context, rec *model.CanonicalRecord) (*model.VesselRef, error) {
	log := zap.L().With(zap.String("component", "resolver"), zap.String("source", rec.SourceName))

	imo := ""
	if ValidIMO(rec.IMO) {
		imo = NormalizeDigits(rec.IMO)
	}
	ircs := NormalizeIdentifier(rec.IRCS)
	mmsi := ""
	if ValidMMSI(rec.MMSI) {
		mmsi = NormalizeDigits(rec.MMSI)
	}

	if imo != "" {
		v, err := r.store.FindVesselByIdentifier(ctx, model.IdentifierIMO, imo)
		if err != nil {
			return nil, eris.Wrap(err, "resolve: match by imo")
		}
		if v != nil {
			if err := r.attachUpgrades(ctx, v, rec, ircs, mmsi); err != nil {
				return nil, err
			}
			return &model.VesselRef{VesselID: v.ID, MatchType: "imo"}, nil
		}
	}

	if ircs != "" {
		v, err := r.store.FindVesselByIdentifier(ctx, model.IdentifierIRCS, ircs)
		if err != nil {
			return nil, eris.Wrap(err, "resolve: match by ircs")
		}
		if v != nil {
			if err := r.attachUpgrades(ctx, v, rec, ircs, mmsi); err != nil {
				return nil, err
			}
			return &model.VesselRef{VesselID: v.ID, MatchType: "ircs"}, nil
		}
	}

	if mmsi != "" {
		v, err := r.store.FindVesselByIdentifier(ctx, model.IdentifierMMSI, mmsi)
		if err != nil {
			return nil, eris.Wrap(err, "resolve: match by mmsi")
		}
		if v != nil {
			if err := r.attachUpgrades(ctx, v, rec, ircs, mmsi); err != nil {
				return nil, err
			}
			return &model.VesselRef{VesselID: v.ID, MatchType: "mmsi"}, nil
		}
	}

	if rec.VesselName != "" && rec.FlagAlpha3 != "" {
		v, err := r.store.FindVesselByNameFlag(ctx, NormalizeName(rec.VesselName), rec.FlagAlpha3)
		if err != nil {
			return nil, eris.Wrap(err, "resolve: match by name+flag")
		}
		if v != nil {
			if err := r.attachUpgrades(ctx, v, rec, ircs, mmsi); err != nil {
				return nil, err
			}
			return &model.VesselRef{VesselID: v.ID, MatchType: "name_flag"}, nil
		}
	}

	if imo == "" && ircs == "" && mmsi == "" && (rec.VesselName == "" || rec.FlagAlpha3 == "") {
		return nil, eris.Wrap(model.ErrInsufficientIdentity, "resolve: record carries no identity")
	}

	seed := *rec
	seed.IMO = imo
	seed.IRCS = ircs
	seed.MMSI = mmsi
	seed.VesselName = NormalizeName(rec.VesselName)

	v, err := r.store.CreateVessel(ctx, seed)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: create vessel")
	}
	log.Debug("created vessel", zap.String("vessel_id", v.ID))
	return &model.VesselRef{VesselID: v.ID, MatchType: "created", Created: true}, nil
}

// attachUpgrades fills identifiers the matched vessel is missing. A
// differing non-null identifier is never overwritten; it is logged as a
// conflict candidate and left for manual review.
func (r *Resolver) attachUpgrades(ctx context.Context, v *model.Vessel, rec *model.CanonicalRecord, ircs, mmsi string) error {
	imo := ""
	if ValidIMO(rec.IMO) {
		imo = NormalizeDigits(rec.IMO)
	}

	upgrades := []struct {
		idType   model.IdentifierType
		incoming string
		current  string
	}{
		{model.IdentifierIMO, imo, v.IMO},
		{model.IdentifierIRCS, ircs, v.IRCS},
		{model.IdentifierMMSI, mmsi, v.MMSI},
	}

	for _, u := range upgrades {
		switch {
		case u.incoming == "" || u.incoming == u.current:
			continue
		case u.current == "":
			// The value may already be owned by another active vessel; an
			// attach would steal it. Log the cross-vessel claim instead.
			owner, err := r.store.FindVesselByIdentifier(ctx, u.idType, u.incoming)
			if err != nil {
				return eris.Wrapf(err, "resolve: check %s owner", u.idType)
			}
			if owner != nil {
				if owner.ID != v.ID {
					if err := r.store.AppendConflict(ctx, model.ConflictRecord{
						VesselID: v.ID,
						Source:   rec.SourceName,
						Field:    string(u.idType),
						OldValue: "",
						NewValue: u.incoming,
					}); err != nil {
						return eris.Wrapf(err, "resolve: log %s claim conflict", u.idType)
					}
				}
				continue
			}
			if err := r.store.AttachIdentifier(ctx, v.ID, u.idType, u.incoming); err != nil {
				return eris.Wrapf(err, "resolve: attach %s", u.idType)
			}
		default:
			// Contradicting identifier claim: audit it, keep the current value.
			if err := r.store.AppendConflict(ctx, model.ConflictRecord{
				VesselID: v.ID,
				Source:   rec.SourceName,
				Field:    string(u.idType),
				OldValue: u.current,
				NewValue: u.incoming,
			}); err != nil {
				return eris.Wrapf(err, "resolve: log %s conflict candidate", u.idType)
			}
		}
	}
	return nil
}
