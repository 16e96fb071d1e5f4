// Package reference parses free-text scripture references ("Juan 3:16-18",
// "1 Corintios 13:4-7") into structured book/chapter/verse-range values and
// builds the book slugs the upstream scripture API expects.
package reference

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/beroea/beroea/pkg/utils"
)

// EndOfChapter is the sentinel verse-range end meaning "through the last verse
// of the chapter". The chapter length is unknown until fetched.
const EndOfChapter = 999

// Reference is a parsed scripture reference.
type Reference struct {
	Book       string
	Chapter    int
	VerseStart int
	VerseEnd   int
}

// node is the participle grammar for a reference: a book name (which may carry
// a leading number and internal spaces), a chapter, and an optional verse or
// verse range after a colon.
type node struct {
	Book       string `@Book`
	Chapter    int    `@Number`
	VerseStart *int   `( ":" @Number`
	VerseEnd   *int   `  ( "-" @Number )? )?`
}

var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Book names: optional leading number ("1 Corintios"), then letter words,
	// possibly several ("Cantar de los Cantares"). Unicode letters so accented
	// names parse as-is.
	{Name: "Book", Pattern: `(?:\d\s+)?\p{L}[\p{L}.]*(?:\s+\p{L}[\p{L}.]*)*`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Dash", Pattern: `-`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var refParser = participle.MustBuild[node](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// Parse turns a free-text reference into a Reference. Returns nil when the
// input does not match the grammar or violates range invariants; callers are
// expected to fall back to keyword search on nil, so parse failures are never
// errors.
func Parse(input string) *Reference {
	s := strings.TrimSpace(input)
	// En/em dashes typed on mobile keyboards become plain range dashes.
	s = strings.NewReplacer("–", "-", "—", "-").Replace(s)
	if s == "" {
		return nil
	}

	n, err := refParser.ParseString("", s)
	if err != nil {
		return nil
	}
	if n.Chapter < 1 {
		return nil
	}

	ref := &Reference{
		Book:       strings.Join(strings.Fields(n.Book), " "),
		Chapter:    n.Chapter,
		VerseStart: 1,
		VerseEnd:   EndOfChapter,
	}
	if n.VerseStart != nil {
		ref.VerseStart = *n.VerseStart
		ref.VerseEnd = *n.VerseStart
		if n.VerseEnd != nil {
			ref.VerseEnd = *n.VerseEnd
		}
		if ref.VerseStart < 1 || ref.VerseStart > ref.VerseEnd {
			return nil
		}
	}
	return ref
}

// Slug converts a book name to the upstream API's book slug: diacritics
// stripped, lowercased, dots dropped, spaces hyphenated ("1 Corintios" ->
// "1-corintios"). The Portuguese "João" maps to the API's English "john".
func Slug(book string) string {
	folded := strings.ReplaceAll(utils.Fold(book), ".", "")
	fields := strings.Fields(folded)
	if len(fields) == 0 {
		return ""
	}
	slug := strings.Join(fields, "-")
	if slug == "joao" {
		return "john"
	}
	return slug
}

// String formats the reference in the same grammar Parse accepts, so
// Parse(r.String()) round-trips.
func (r *Reference) String() string {
	switch {
	case r.VerseStart == 1 && r.VerseEnd == EndOfChapter:
		return fmt.Sprintf("%s %d", r.Book, r.Chapter)
	case r.VerseStart == r.VerseEnd:
		return fmt.Sprintf("%s %d:%d", r.Book, r.Chapter, r.VerseStart)
	default:
		return fmt.Sprintf("%s %d:%d-%d", r.Book, r.Chapter, r.VerseStart, r.VerseEnd)
	}
}
