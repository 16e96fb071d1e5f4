// Package shape normalizes the scripture API's response envelopes into one
// ordered verse list. The upstream's envelope is not stable across versions
// and regions, so adaptation is an ordered list of recognizers tried in
// sequence rather than one asserted schema.
package shape

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/beroea/beroea/internal/models"
)

// recognizer is a predicate+extractor over a decoded JSON body. The first
// recognizer that matches wins.
type recognizer struct {
	name    string
	extract func(raw any) ([]models.Verse, bool)
}

var recognizers = []recognizer{
	{"array", fromArray},
	{"vers", fromPath("vers")}, // the live upstream's actual envelope
	{"verses", fromPath("verses")},
	{"data.verses", fromPath("data", "verses")},
	{"chapter.verses", fromPath("chapter", "verses")},
	{"data.chapter.verses", fromPath("data", "chapter", "verses")},
	{"results.verses", fromPath("results", "verses")},
	{"data.results.verses", fromPath("data", "results", "verses")},
	{"chapter", fromPath("chapter")},
	{"numeric-object", fromNumericObject},
}

// Adapt collapses any of the known response shapes into an ordered verse list.
// Unrecognized input (nil, strings, wrong-shaped objects) yields an empty
// slice; Adapt never panics.
func Adapt(raw any) []models.Verse {
	for _, r := range recognizers {
		if verses, ok := r.extract(raw); ok {
			return verses
		}
	}
	return []models.Verse{}
}

func fromArray(raw any) ([]models.Verse, bool) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	return adaptElements(arr), true
}

// fromPath returns a recognizer extractor that walks nested objects by key and
// adapts the array found at the end of the path.
func fromPath(path ...string) func(any) ([]models.Verse, bool) {
	return func(raw any) ([]models.Verse, bool) {
		cur := raw
		for _, key := range path {
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = obj[key]
			if !ok {
				return nil, false
			}
		}
		arr, ok := cur.([]any)
		if !ok {
			return nil, false
		}
		return adaptElements(arr), true
	}
}

// fromNumericObject handles {"1": "text", "2": "text"} bodies: every key must
// be a numeric string; verses come back sorted by key ascending.
func fromNumericObject(raw any) ([]models.Verse, bool) {
	obj, ok := raw.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil, false
	}
	type numbered struct {
		n int
		v any
	}
	entries := make([]numbered, 0, len(obj))
	for k, v := range obj {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, false
		}
		entries = append(entries, numbered{n, v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].n < entries[j].n })

	verses := make([]models.Verse, 0, len(entries))
	for _, e := range entries {
		if v, ok := adaptElement(e.v, e.n); ok {
			verses = append(verses, v)
		}
	}
	return verses, true
}

func adaptElements(arr []any) []models.Verse {
	verses := make([]models.Verse, 0, len(arr))
	for i, el := range arr {
		if v, ok := adaptElement(el, i+1); ok {
			verses = append(verses, v)
		}
	}
	return verses
}

// adaptElement normalizes one verse element. The number is resolved from
// number|num|verse (when numeric) and the text from text|content|verseText|
// verse (when string). The live upstream uses "verse" for the text and
// "number" for the index; other shapes invert that.
func adaptElement(el any, fallbackNumber int) (models.Verse, bool) {
	switch v := el.(type) {
	case string:
		return models.Verse{Number: fallbackNumber, Text: v}, true
	case map[string]any:
		verse := models.Verse{Number: fallbackNumber}
		if n, ok := intField(v, "number", "num"); ok {
			verse.Number = n
		} else if n, ok := intField(v, "verse"); ok {
			verse.Number = n
		}
		if s, ok := stringField(v, "text", "content", "verseText"); ok {
			verse.Text = s
		} else if s, ok := stringField(v, "verse"); ok {
			verse.Text = s
		}
		if verse.Text == "" {
			return models.Verse{}, false
		}
		return verse, true
	default:
		return models.Verse{}, false
	}
}

func intField(obj map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		switch n := obj[k].(type) {
		case float64:
			return int(n), true
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				return i, true
			}
		}
	}
	return 0, false
}

func stringField(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// FormatVerses flattens a verse list to the "<number>. <text>" display form
// used when a passage is embedded into prompts or copied as one string.
func FormatVerses(verses []models.Verse) string {
	out := ""
	for i, v := range verses {
		if i > 0 {
			out += "\n"
		}
		out += fmt.Sprintf("%d. %s", v.Number, v.Text)
	}
	return out
}
