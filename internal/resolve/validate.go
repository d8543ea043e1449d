package resolve

import "strings"

// reservedIMOs are placeholder values some registries emit instead of null.
// They must never anchor a match.
var reservedIMOs = map[string]bool{
	"0000000": true,
	"1111111": true,
	"9999999": true,
}

// ValidIMO reports whether imo is a usable 7-digit IMO number: correct
// length, not a reserved sentinel, and a valid check digit
// (sum of digit(i) * (7-i) over the first six digits, mod 10).
func ValidIMO(imo string) bool {
	imo = NormalizeDigits(imo)
	if len(imo) != 7 || reservedIMOs[imo] {
		return false
	}
	sum := 0
	for i := 0; i < 6; i++ {
		sum += int(imo[i]-'0') * (7 - i)
	}
	return sum%10 == int(imo[6]-'0')
}

// ValidMMSI reports whether mmsi is a well-formed 9-digit MMSI.
func ValidMMSI(mmsi string) bool {
	mmsi = NormalizeDigits(mmsi)
	if len(mmsi) != 9 {
		return false
	}
	// All-zero MMSIs are another registry null placeholder.
	return strings.Trim(mmsi, "0") != ""
}

// ValidIRCS reports whether ircs is usable: any non-empty call sign after
// normalization.
func ValidIRCS(ircs string) bool {
	return NormalizeIdentifier(ircs) != ""
}
