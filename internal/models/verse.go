// Package models defines the shared data types for the lookup pipeline and
// the persistence layer.
package models

// Verse is a single verse as returned by the scripture API or the bundled
// corpus. Immutable once fetched. IsJesusWords is only ever true for curated
// corpus verses; the upstream API does not carry the flag.
type Verse struct {
	Number       int    `json:"number" yaml:"number"`
	Text         string `json:"text" yaml:"text"`
	IsJesusWords bool   `json:"is_jesus_words,omitempty" yaml:"is_jesus_words,omitempty"`
}

// VerseSet is the result of a reference lookup. Versions always contains a key
// for every translation code valid for the active UI language, even when the
// verse list is empty: callers iterate the map by key and must never hit a
// missing one.
type VerseSet struct {
	Ref      string             `json:"ref"`
	Versions map[string][]Verse `json:"versions"`
}

// KeywordResult is one hit from the bundled-corpus keyword search.
type KeywordResult struct {
	Ref          string `json:"ref"`
	Text         string `json:"text"`
	IsJesusWords bool   `json:"is_jesus_words"`
}

// DailyVerse is one entry of the curated daily rotation. Refs is keyed by UI
// language ("es", "en", "pt"); Versions holds the bundled per-translation
// texts used when the lazy network fetch is unavailable.
type DailyVerse struct {
	Refs         map[string]string `json:"refs" yaml:"refs"`
	IsJesusWords bool              `json:"is_jesus_words" yaml:"is_jesus_words"`
	Versions     map[string]string `json:"versions" yaml:"versions"`
}
