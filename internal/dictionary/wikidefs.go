package dictionary

import "regexp"

// languageNames maps a language code to the key used by the wiki REST
// definition response.
var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"pt": "Portuguese",
}

// Cross-reference entries like "Alternative form of colour" are noise when a
// real definition exists, but better than nothing when it does not.
var junkDefRe = regexp.MustCompile(`(?i)^Alternative (form|spelling) of`)

var prefixedRe = regexp.MustCompile(`^.*?:\s*`)

func isJunkDefinition(text string) bool {
	return junkDefRe.MatchString(text) || junkDefRe.MatchString(prefixedRe.ReplaceAllString(text, ""))
}

// extractDefs collects one definition per part-of-speech block for a language,
// stripping markup and prefixing each with its part of speech. When allowJunk
// is false, cross-reference definitions are skipped.
func extractDefs(data wikiDefinitions, langCode string, allowJunk bool) []string {
	entries := data[languageNames[langCode]]
	var defs []string
	for _, e := range entries {
		prefix := ""
		if e.PartOfSpeech != "" {
			prefix = e.PartOfSpeech + ": "
		}
		for _, d := range e.Definitions {
			text := StripHTML(d.Definition)
			if text == "" {
				continue
			}
			if !allowJunk && isJunkDefinition(text) {
				continue
			}
			defs = append(defs, prefix+text)
			break
		}
	}
	return defs
}

// pickDefs tries languages in order, first refusing junk definitions and then
// re-admitting them, so a page holding only cross-references still yields a
// result instead of a not-found.
func pickDefs(data wikiDefinitions, langOrder []string) (string, []string) {
	for _, allowJunk := range []bool{false, true} {
		for _, lang := range langOrder {
			if defs := extractDefs(data, lang, allowJunk); len(defs) > 0 {
				return lang, defs
			}
		}
	}
	return "", nil
}
