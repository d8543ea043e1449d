package registry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/pelagic-data/vessel-mdm/internal/db"
	"github.com/pelagic-data/vessel-mdm/internal/model"
)

// Repository provides transactional access to the registry schema.
type Repository struct {
	pool db.Pool
}

// NewRepository creates a Repository backed by the given pool.
func NewRepository(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

const vesselColumns = `id, name, flag_alpha3, imo, ircs, mmsi, national_registry,
	vessel_type_code, gear_type_code, port, build_year, length_m, tonnage_gt,
	engine_power_kw, active, created_at, updated_at`

func scanVessel(row pgx.Row) (*model.Vessel, error) {
	var v model.Vessel
	var name, flag, imo, ircs, mmsi, natReg, vtype, gtype, port, year, length, tonnage, power *string
	err := row.Scan(&v.ID, &name, &flag, &imo, &ircs, &mmsi, &natReg,
		&vtype, &gtype, &port, &year, &length, &tonnage, &power,
		&v.Active, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	v.Name = deref(name)
	v.FlagAlpha3 = deref(flag)
	v.IMO = deref(imo)
	v.IRCS = deref(ircs)
	v.MMSI = deref(mmsi)
	v.NationalRegistry = deref(natReg)
	v.VesselTypeCode = deref(vtype)
	v.GearTypeCode = deref(gtype)
	v.Port = deref(port)
	v.BuildYear = deref(year)
	v.LengthM = deref(length)
	v.TonnageGT = deref(tonnage)
	v.EnginePowerKW = deref(power)
	return &v, nil
}

// nullable maps empty strings to NULL so partial identifiers never collide
// on the unique active-identifier indexes.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetVessel fetches one vessel by internal id.
func (r *Repository) GetVessel(ctx context.Context, vesselID string) (*model.Vessel, error) {
	v, err := scanVessel(r.pool.QueryRow(ctx,
		`SELECT `+vesselColumns+` FROM registry.vessels WHERE id = $1`, vesselID))
	if err != nil {
		return nil, eris.Wrapf(err, "registry: get vessel %s", vesselID)
	}
	return v, nil
}

// FindVesselByIdentifier returns the active vessel owning a hard identifier,
// or nil when no active vessel carries it.
func (r *Repository) FindVesselByIdentifier(ctx context.Context, idType model.IdentifierType, value string) (*model.Vessel, error) {
	var col string
	switch idType {
	case model.IdentifierIMO:
		col = "imo"
	case model.IdentifierIRCS:
		col = "ircs"
	case model.IdentifierMMSI:
		col = "mmsi"
	default:
		return nil, eris.Errorf("registry: unknown identifier type %q", idType)
	}

	v, err := scanVessel(r.pool.QueryRow(ctx,
		`SELECT `+vesselColumns+` FROM registry.vessels WHERE `+col+` = $1 AND active`, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "registry: find vessel by %s", col)
	}
	return v, nil
}

// FindVesselByNameFlag returns the active vessel with an exact normalized
// name + flag pair, or nil. Name comparison is case-insensitive.
func (r *Repository) FindVesselByNameFlag(ctx context.Context, name, flagAlpha3 string) (*model.Vessel, error) {
	v, err := scanVessel(r.pool.QueryRow(ctx,
		`SELECT `+vesselColumns+` FROM registry.vessels
		 WHERE upper(name) = $1 AND flag_alpha3 = $2 AND active
		 ORDER BY created_at LIMIT 1`,
		strings.ToUpper(name), flagAlpha3))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "registry: find vessel by name+flag")
	}
	return v, nil
}

// CreateVessel inserts a new vessel seeded from a canonical record and
// returns it. The caller is responsible for having checked identifiers
// first; the partial unique indexes are the final guard.
func (r *Repository) CreateVessel(ctx context.Context, seed model.CanonicalRecord) (*model.Vessel, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO registry.vessels
		    (id, name, flag_alpha3, imo, ircs, mmsi, national_registry,
		     vessel_type_code, gear_type_code, port, build_year,
		     length_m, tonnage_gt, engine_power_kw, active, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,TRUE,$15)`,
		id, nullable(seed.VesselName), nullable(seed.FlagAlpha3),
		nullable(seed.IMO), nullable(seed.IRCS), nullable(seed.MMSI),
		nullable(seed.NationalRegistry), nullable(seed.VesselTypeCode),
		nullable(seed.GearTypeCode), nullable(seed.Port), nullable(seed.BuildYear),
		nullable(seed.LengthM), nullable(seed.TonnageGT), nullable(seed.EnginePowerKW),
		now)
	if err != nil {
		return nil, eris.Wrap(err, "registry: create vessel")
	}

	return &model.Vessel{
		ID:               id,
		Name:             seed.VesselName,
		FlagAlpha3:       seed.FlagAlpha3,
		IMO:              seed.IMO,
		IRCS:             seed.IRCS,
		MMSI:             seed.MMSI,
		NationalRegistry: seed.NationalRegistry,
		VesselTypeCode:   seed.VesselTypeCode,
		GearTypeCode:     seed.GearTypeCode,
		Port:             seed.Port,
		BuildYear:        seed.BuildYear,
		LengthM:          seed.LengthM,
		TonnageGT:        seed.TonnageGT,
		EnginePowerKW:    seed.EnginePowerKW,
		Active:           true,
		CreatedAt:        now,
	}, nil
}

// AttachIdentifier fills a previously-null hard identifier on a vessel.
// It never overwrites: a differing non-null value is the conflict
// detector's business, not an update here.
func (r *Repository) AttachIdentifier(ctx context.Context, vesselID string, idType model.IdentifierType, value string) error {
	var col string
	switch idType {
	case model.IdentifierIMO:
		col = "imo"
	case model.IdentifierIRCS:
		col = "ircs"
	case model.IdentifierMMSI:
		col = "mmsi"
	default:
		return eris.Errorf("registry: unknown identifier type %q", idType)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE registry.vessels SET `+col+` = $1, updated_at = now()
		 WHERE id = $2 AND `+col+` IS NULL`,
		value, vesselID)
	if err != nil {
		return eris.Wrapf(err, "registry: attach %s to vessel %s", col, vesselID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("registry: vessel %s already has a %s", vesselID, col)
	}
	return nil
}

// DeactivateVessel marks a vessel inactive. Vessels are never deleted.
func (r *Repository) DeactivateVessel(ctx context.Context, vesselID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE registry.vessels SET active = FALSE, updated_at = now() WHERE id = $1`,
		vesselID)
	if err != nil {
		return eris.Wrapf(err, "registry: deactivate vessel %s", vesselID)
	}
	return nil
}

// UpsertSourcePresence records that a source reported a vessel, refreshing
// last_seen on re-import rather than duplicating the pair.
func (r *Repository) UpsertSourcePresence(ctx context.Context, vesselID, source string, seenAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO registry.source_presence (vessel_id, source, first_seen, last_seen, active)
		 VALUES ($1, $2, $3, $3, TRUE)
		 ON CONFLICT (vessel_id, source)
		 DO UPDATE SET last_seen = GREATEST(registry.source_presence.last_seen, EXCLUDED.last_seen),
		               active = TRUE`,
		vesselID, source, seenAt.UTC())
	if err != nil {
		return eris.Wrapf(err, "registry: upsert presence %s/%s", vesselID, source)
	}
	return nil
}

// ActivePresences lists the sources currently reporting a vessel.
func (r *Repository) ActivePresences(ctx context.Context, vesselID string) ([]model.SourcePresence, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT vessel_id, source, first_seen, last_seen, active
		 FROM registry.source_presence WHERE vessel_id = $1 AND active`,
		vesselID)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: list presences for %s", vesselID)
	}
	defer rows.Close()

	var out []model.SourcePresence
	for rows.Next() {
		var p model.SourcePresence
		if err := rows.Scan(&p.VesselID, &p.Source, &p.FirstSeen, &p.LastSeen, &p.Active); err != nil {
			return nil, eris.Wrap(err, "registry: scan presence")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertExternalIdentifier records a source's own reference number for a
// vessel. A changed value deactivates the old row and inserts the new one;
// superseded values keep their intelligence value.
func (r *Repository) UpsertExternalIdentifier(ctx context.Context, ext model.ExternalIdentifier) error {
	var current string
	err := r.pool.QueryRow(ctx,
		`SELECT id_value FROM registry.external_identifiers
		 WHERE vessel_id = $1 AND source = $2 AND id_type = $3 AND active`,
		ext.VesselID, ext.Source, ext.Type).Scan(&current)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// first value for this (vessel, source, type)
	case err != nil:
		return eris.Wrap(err, "registry: read active external identifier")
	case current == ext.Value:
		return nil
	default:
		if _, err := r.pool.Exec(ctx,
			`UPDATE registry.external_identifiers SET active = FALSE, updated_at = now()
			 WHERE vessel_id = $1 AND source = $2 AND id_type = $3 AND active`,
			ext.VesselID, ext.Source, ext.Type); err != nil {
			return eris.Wrap(err, "registry: deactivate external identifier")
		}
	}

	if _, err := r.pool.Exec(ctx,
		`INSERT INTO registry.external_identifiers (vessel_id, source, id_type, id_value, active)
		 VALUES ($1, $2, $3, $4, TRUE)`,
		ext.VesselID, ext.Source, ext.Type, ext.Value); err != nil {
		return eris.Wrap(err, "registry: insert external identifier")
	}
	return nil
}
