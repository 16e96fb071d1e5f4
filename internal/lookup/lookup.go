// Package lookup orchestrates free-text scripture queries: a query that looks
// like a reference goes to the chapter fetcher, and anything that fails to
// parse or resolve falls back to keyword search over the bundled corpus. A
// generation counter makes the latest query win when lookups overlap.
package lookup

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"

	"go.uber.org/zap"

	"github.com/beroea/beroea/internal/models"
)

// ChapterFetcher resolves a reference to verses, nil when it cannot.
type ChapterFetcher interface {
	FetchChapter(ctx context.Context, rawRef, versionHint, language string) *models.VerseSet
}

// KeywordSearcher scans the bundled corpus.
type KeywordSearcher interface {
	SearchByKeyword(ctx context.Context, term string) ([]models.KeywordResult, error)
}

// Result is the outcome of one query: verses when the query resolved as a
// reference, keyword matches otherwise. Both may be empty.
type Result struct {
	Verses  *models.VerseSet       `json:"verses,omitempty"`
	Matches []models.KeywordResult `json:"matches"`
}

// Service runs the reference-or-keyword pipeline.
type Service struct {
	fetcher  ChapterFetcher
	searcher KeywordSearcher
	logger   *zap.Logger
	gen      atomic.Int64
}

func NewService(fetcher ChapterFetcher, searcher KeywordSearcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{fetcher: fetcher, searcher: searcher, logger: logger}
}

// Search resolves a free-text query. A query containing a digit is treated as
// a reference first; on parse or fetch failure it degrades to keyword search.
// When a newer Search starts before this one finishes, the stale one returns
// context.Canceled instead of a result.
func (s *Service) Search(ctx context.Context, query, versionHint, language string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &Result{Matches: []models.KeywordResult{}}, nil
	}
	myGen := s.gen.Add(1)

	if ShouldLookupReference(query) {
		vs := s.fetcher.FetchChapter(ctx, query, versionHint, language)
		if err := s.checkStale(ctx, myGen); err != nil {
			return nil, err
		}
		if vs != nil {
			return &Result{Verses: vs, Matches: []models.KeywordResult{}}, nil
		}
		s.logger.Debug("reference lookup missed, falling back to keyword search",
			zap.String("query", query))
	}

	matches, err := s.searcher.SearchByKeyword(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := s.checkStale(ctx, myGen); err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []models.KeywordResult{}
	}
	return &Result{Matches: matches}, nil
}

func (s *Service) checkStale(ctx context.Context, myGen int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.gen.Load() != myGen {
		return context.Canceled
	}
	return nil
}

// ShouldLookupReference reports whether a query is worth sending to the
// chapter fetcher: every parseable reference carries a chapter number, so a
// digit-free query cannot be one.
func ShouldLookupReference(query string) bool {
	for _, r := range query {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// ShouldLookupTerm reports whether a dictionary query is long enough to fire.
func ShouldLookupTerm(query string) bool {
	return len([]rune(strings.TrimSpace(query))) >= 2
}
