// Package staging loads canonical vessel records from staged source files.
// Upstream extraction has already normalized columns; loaders here only map
// the canonical layout into records, keeping every value as text.
package staging

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pelagic-data/vessel-mdm/internal/model"
)

// canonical column names recognized by the loaders. Anything else lands in
// the record's attribute bag untouched.
const (
	colSourceName       = "source_name"
	colSourceDate       = "source_date"
	colVesselName       = "vessel_name"
	colIMO              = "imo"
	colIRCS             = "ircs"
	colMMSI             = "mmsi"
	colNationalRegistry = "national_registry"
	colFlagAlpha3       = "flag_alpha3"
	colExternalID       = "external_id"
	colVesselTypeCode   = "vessel_type_code"
	colGearTypeCode     = "gear_type_code"
	colPort             = "port"
	colBuildYear        = "build_year"
	colLengthM          = "length_m"
	colTonnageGT        = "tonnage_gt"
	colEnginePowerKW    = "engine_power_kw"
)

// LoadCSV reads canonical records from a CSV file with a header row.
func LoadCSV(path, source string) ([]*model.CanonicalRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "staging: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows, mapRow handles the rest

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "staging: read header of %s", path)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var records []*model.CanonicalRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "staging: read row %d of %s", len(records)+2, path)
		}
		records = append(records, mapRow(header, row, source))
	}
	return records, nil
}

// mapRow builds one canonical record from a header-indexed row.
func mapRow(header, row []string, source string) *model.CanonicalRecord {
	rec := &model.CanonicalRecord{SourceName: source}

	for i, col := range header {
		if i >= len(row) {
			break
		}
		val := strings.TrimSpace(row[i])
		if val == "" {
			continue
		}

		switch col {
		case colSourceName:
			if rec.SourceName == "" {
				rec.SourceName = val
			}
		case colSourceDate:
			if t, err := time.Parse("2006-01-02", val); err == nil {
				rec.SourceDate = &t
			}
		case colVesselName:
			rec.VesselName = val
		case colIMO:
			rec.IMO = val
		case colIRCS:
			rec.IRCS = val
		case colMMSI:
			rec.MMSI = val
		case colNationalRegistry:
			rec.NationalRegistry = val
		case colFlagAlpha3:
			rec.FlagAlpha3 = val
		case colExternalID:
			rec.ExternalID = val
		case colVesselTypeCode:
			rec.VesselTypeCode = val
		case colGearTypeCode:
			rec.GearTypeCode = val
		case colPort:
			rec.Port = val
		case colBuildYear:
			rec.BuildYear = val
		case colLengthM:
			rec.LengthM = val
		case colTonnageGT:
			rec.TonnageGT = val
		case colEnginePowerKW:
			rec.EnginePowerKW = val
		default:
			if rec.Attributes == nil {
				rec.Attributes = make(map[string]string)
			}
			rec.Attributes[col] = val
		}
	}
	return rec
}
