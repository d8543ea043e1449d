package registry

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/pelagic-data/vessel-mdm/internal/db"
	"github.com/pelagic-data/vessel-mdm/internal/model"
)

// legacyFlagCodes maps non-ISO flag codes that show up in older registry
// exports to their ISO alpha-3 equivalents.
var legacyFlagCodes = map[string]string{
	"UK":  "GBR",
	"ENG": "GBR",
	"SCO": "GBR",
	"GER": "DEU",
	"NED": "NLD",
	"POR": "PRT",
}

// Reference resolves country, vessel-type, and gear codes against the
// reference tables. A failed lookup returns ErrLookupUnresolved; callers
// store null and continue rather than rejecting the record.
type Reference struct {
	pool db.Pool
}

// NewReference creates a Reference lookup service.
func NewReference(pool db.Pool) *Reference {
	return &Reference{pool: pool}
}

// ResolveFlag resolves a flag code to its canonical alpha-3 form, trying
// alpha-3, then alpha-2, then the legacy mapping.
func (rf *Reference) ResolveFlag(ctx context.Context, code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", nil
	}

	var alpha3 string
	err := rf.pool.QueryRow(ctx,
		`SELECT alpha_3_code FROM registry.country_iso WHERE alpha_3_code = $1`,
		code).Scan(&alpha3)
	if err == nil {
		return alpha3, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", eris.Wrapf(err, "reference: lookup flag alpha-3 %s", code)
	}

	err = rf.pool.QueryRow(ctx,
		`SELECT alpha_3_code FROM registry.country_iso WHERE alpha_2_code = $1`,
		code).Scan(&alpha3)
	if err == nil {
		return alpha3, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", eris.Wrapf(err, "reference: lookup flag alpha-2 %s", code)
	}

	if mapped, ok := legacyFlagCodes[code]; ok {
		return rf.ResolveFlag(ctx, mapped)
	}

	return "", eris.Wrapf(model.ErrLookupUnresolved, "flag code %q", code)
}

// ResolveVesselType resolves a vessel type code against the ISSCFV table,
// trying the numeric code then the alpha code.
func (rf *Reference) ResolveVesselType(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", nil
	}

	var canonical string
	err := rf.pool.QueryRow(ctx,
		`SELECT isscfv_code FROM registry.vessel_types WHERE isscfv_code = $1`,
		code).Scan(&canonical)
	if err == nil {
		return canonical, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", eris.Wrapf(err, "reference: lookup vessel type %s", code)
	}

	err = rf.pool.QueryRow(ctx,
		`SELECT isscfv_code FROM registry.vessel_types WHERE isscfv_alpha = $1`,
		strings.ToUpper(code)).Scan(&canonical)
	if err == nil {
		return canonical, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", eris.Wrapf(err, "reference: lookup vessel type alpha %s", code)
	}

	return "", eris.Wrapf(model.ErrLookupUnresolved, "vessel type %q", code)
}

// ResolveGearType resolves a gear code against the ISSCFG table.
func (rf *Reference) ResolveGearType(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", nil
	}

	var canonical string
	err := rf.pool.QueryRow(ctx,
		`SELECT isscfg_code FROM registry.gear_types WHERE isscfg_code = $1`,
		code).Scan(&canonical)
	if err == nil {
		return canonical, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", eris.Wrapf(err, "reference: lookup gear type %s", code)
	}

	return "", eris.Wrapf(model.ErrLookupUnresolved, "gear type %q", code)
}
