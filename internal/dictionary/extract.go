package dictionary

import (
	"regexp"
	"strings"
)

const maxExtractDefs = 4

var sectionHeadingRe = regexp.MustCompile(`^==\s+[^=]+?\s+==$`)

// Subheadings that mark the end of useful definition text within a language
// section.
var bannedHeadings = map[string]bool{
	"=== Pronunciation ===":   true,
	"=== Etymology ===":       true,
	"=== Etymology 1 ===":     true,
	"=== Etymology 2 ===":     true,
	"=== References ===":      true,
	"=== Further reading ===": true,
}

var skipLinePrefixes = []string{"IPA", "Rhymes:", "Hyphenation:", "Syllabification:", "Audio"}

// ScopeExtract pulls definition lines for one language out of a whole-page
// plain-text extract. The page lists every language under a level-two heading
// ("== Spanish =="), so the scope runs from that heading to the next one of
// the same level, cut short at metadata subheadings. Lines that are variant
// cross-references rather than definitions are dropped, and at most four
// lines are kept. Returns nil when the page has no section for the language.
func ScopeExtract(extract, languageName string) []string {
	var lines []string
	for _, l := range strings.Split(extract, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	start := -1
	for i, l := range lines {
		if l == "== "+languageName+" ==" {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	var defs []string
	for _, line := range lines[start+1:] {
		if sectionHeadingRe.MatchString(line) {
			break
		}
		if bannedHeadings[line] {
			break
		}
		if strings.HasPrefix(line, "=") {
			continue
		}
		if hasAnyPrefix(line, skipLinePrefixes) {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "obsolete") ||
			strings.Contains(lower, "alternative") ||
			strings.Contains(lower, "variante") {
			continue
		}
		defs = append(defs, line)
		if len(defs) == maxExtractDefs {
			break
		}
	}
	return defs
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
