package resolve

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// vesselPrefixes lists hull classification prefixes that registries
// inconsistently include in vessel names.
var vesselPrefixes = []string{
	"F/V ", "FV ",
	"M/V ", "MV ",
	"M/S ", "MS ",
	"S/V ", "SV ",
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeName standardizes a vessel name for deterministic matching by:
//  1. Trimming whitespace and converting to uppercase
//  2. Stripping diacritics (SÆBJØRG and SAEBJORG stay distinct; only
//     combining marks are removed)
//  3. Removing hull prefixes (F/V, M/V, ...)
//  4. Stripping punctuation
//  5. Collapsing multiple spaces into single spaces
//
// This is rule-based normalization, not fuzzy matching: two names either
// normalize to the same string or they do not match.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	name = strings.ToUpper(name)

	if stripped, _, err := transform.String(stripMarks, name); err == nil {
		name = stripped
	}

	for _, prefix := range vesselPrefixes {
		if strings.HasPrefix(name, prefix) {
			name = strings.TrimPrefix(name, prefix)
			break
		}
	}

	name = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		"\"", "",
		"-", " ",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")

	return strings.TrimSpace(name)
}

// NormalizeIdentifier strips everything but alphanumerics and uppercases,
// the common denominator across registry identifier formats.
func NormalizeIdentifier(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeDigits strips everything but digits, for numeric identifiers
// like IMO and MMSI that arrive with "IMO" prefixes or separators.
func NormalizeDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
