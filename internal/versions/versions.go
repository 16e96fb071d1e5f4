// Package versions maps user-facing Bible translation labels to canonical
// codes and to the slugs the upstream scripture API expects.
package versions

import "strings"

// Canonical translation codes.
const (
	RVR60 = "RVR60"
	NTV   = "NTV"
	NVI   = "NVI"
	DHH   = "DHH"
	LBLA  = "LBLA"
	NIV   = "NIV"
	KJV   = "KJV"
	ARC   = "ARC"
	RVR95 = "RVR95"
)

// Default is the translation used when no usable hint is given.
const Default = RVR60

// All lists the translations the UI knows about, in display order. RVR95 is
// recognized on input but not offered by any language.
var All = []string{RVR60, NTV, NVI, DHH, LBLA, NIV, KJV, ARC}

// aliases collapses historical and regional spellings. Keys are uppercased
// with whitespace removed.
var aliases = map[string]string{
	"RVR60":   RVR60,
	"RVR1960": RVR60,
	"RV1960":  RVR60,
	"RV60":    RVR60,
	"RVR95":   RVR95,
	"RV1995":  RVR95,
	"RVR1995": RVR95,
}

// apiSlugs maps canonical codes to the upstream scripture API's version slugs.
// Translations the upstream does not serve fall back to DefaultSlug.
var apiSlugs = map[string]string{
	RVR60: "rv1960",
	NVI:   "nvi",
	DHH:   "dhh",
	RVR95: "rv1995",
}

// DefaultSlug is the upstream slug used for unrecognized or unserved codes.
const DefaultSlug = "rv1960"

// Normalize collapses a user-facing translation label to its canonical code.
// Input is case-insensitive and whitespace-tolerant ("rv 1960" -> "RVR60").
// Unknown labels are returned uppercased with whitespace removed, so Normalize
// is idempotent for every input.
func Normalize(code string) string {
	up := strings.ToUpper(strings.Join(strings.Fields(code), ""))
	if canonical, ok := aliases[up]; ok {
		return canonical
	}
	return up
}

// IsKnown reports whether code is a canonical translation code.
func IsKnown(code string) bool {
	if code == RVR95 {
		return true
	}
	for _, c := range All {
		if c == code {
			return true
		}
	}
	return false
}

// Canonical normalizes code and falls back to Default when the result is not
// a known translation (including the empty string).
func Canonical(code string) string {
	c := Normalize(code)
	if !IsKnown(c) {
		return Default
	}
	return c
}

// APISlug maps a canonical code to the upstream API's version slug.
// Unrecognized codes get DefaultSlug rather than an error.
func APISlug(canonical string) string {
	if slug, ok := apiSlugs[canonical]; ok {
		return slug
	}
	return DefaultSlug
}

// ForLanguage returns the fixed ordered subset of translations valid for a UI
// language. This list governs which keys a VerseSet.Versions map must contain.
func ForLanguage(language string) []string {
	switch language {
	case "en":
		return []string{NIV, KJV}
	case "pt":
		return []string{ARC}
	default:
		return []string{RVR60, NTV, NVI, DHH, LBLA}
	}
}

// DefaultFor returns the preferred translation for a UI language.
func DefaultFor(language string) string {
	return ForLanguage(language)[0]
}
