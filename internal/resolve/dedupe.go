package resolve

import (
	"github.com/rotisserie/eris"

	"github.com/pelagic-data/vessel-mdm/internal/model"
)

// PriorityKey derives the identity key a record will match on, using the
// same precedence as resolution: IMO, then IRCS, then MMSI, then the
// name+flag pair. Records with no usable key return ErrInsufficientIdentity.
func PriorityKey(rec *model.CanonicalRecord) (string, error) {
	switch {
	case ValidIMO(rec.IMO):
		return "imo:" + NormalizeDigits(rec.IMO), nil
	case ValidIRCS(rec.IRCS):
		return "ircs:" + NormalizeIdentifier(rec.IRCS), nil
	case ValidMMSI(rec.MMSI):
		return "mmsi:" + NormalizeDigits(rec.MMSI), nil
	case rec.VesselName != "" && rec.FlagAlpha3 != "":
		return "nf:" + NormalizeName(rec.VesselName) + "|" + rec.FlagAlpha3, nil
	default:
		return "", eris.Wrap(model.ErrInsufficientIdentity, "resolve: no usable identity key")
	}
}

// DedupeResult separates a batch into unique records and the rejects that
// carried no usable identity.
type DedupeResult struct {
	Unique   []*model.CanonicalRecord
	Rejected []*model.CanonicalRecord

	// DuplicateKeys maps each priority key that appeared more than once to
	// its occurrence count, for batch diagnostics.
	DuplicateKeys map[string]int
}

// Dedupe collapses in-batch duplicates sharing a priority key, keeping the
// most complete record; completeness ties go to the latest source date with
// nil dates last. Input order is preserved for the surviving records.
func Dedupe(records []*model.CanonicalRecord) DedupeResult {
	res := DedupeResult{DuplicateKeys: make(map[string]int)}

	best := make(map[string]int) // key -> index into res.Unique
	for _, rec := range records {
		key, err := PriorityKey(rec)
		if err != nil {
			res.Rejected = append(res.Rejected, rec)
			continue
		}

		idx, seen := best[key]
		if !seen {
			best[key] = len(res.Unique)
			res.Unique = append(res.Unique, rec)
			continue
		}

		res.DuplicateKeys[key]++
		if preferRecord(rec, res.Unique[idx]) {
			res.Unique[idx] = rec
		}
	}

	return res
}

// preferRecord reports whether a should replace b as the surviving
// duplicate.
func preferRecord(a, b *model.CanonicalRecord) bool {
	ca, cb := a.Completeness(), b.Completeness()
	if ca != cb {
		return ca > cb
	}
	// Ties by latest source date, nulls last.
	switch {
	case a.SourceDate == nil:
		return false
	case b.SourceDate == nil:
		return true
	default:
		return a.SourceDate.After(*b.SourceDate)
	}
}
