// Package keyword provides the offline fallback search over the bundled
// curated corpus, used when a query does not resolve as a scripture reference.
package keyword

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/char/asciifolding"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"go.uber.org/zap"

	"github.com/beroea/beroea/internal/corpus"
	"github.com/beroea/beroea/internal/models"
	"github.com/beroea/beroea/internal/versions"
	"github.com/beroea/beroea/pkg/utils"
)

const foldingAnalyzer = "folding"

// record is one searchable corpus verse under one of its book names.
type record struct {
	ref          string
	texts        map[string]string
	isJesusWords bool
}

// doc is what gets indexed: the reference plus every translation's text in
// one field. The folding analyzer lowercases and strips diacritics at both
// index and query time, so "amo" matches "amó".
type doc struct {
	Ref  string `json:"ref"`
	Text string `json:"text"`
}

// Index searches the curated corpus. Term matching goes through bleve first;
// when bleve's token matching finds nothing, a folded substring scan preserves
// the original partial-word semantics ("fidel" matching "fidelidad").
type Index struct {
	corpus *corpus.Corpus
	logger *zap.Logger

	mu      sync.RWMutex
	idx     bleve.Index
	records map[string]record
	order   []string
}

// NewIndex builds an in-memory index over the corpus. Call Rebuild after a
// corpus reload.
func NewIndex(c *corpus.Corpus, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ix := &Index{corpus: c, logger: logger}
	if err := ix.Rebuild(); err != nil {
		return nil, err
	}
	return ix, nil
}

// Rebuild reindexes the corpus from scratch. The old index is swapped out
// atomically and closed.
func (ix *Index) Rebuild() error {
	im := bleve.NewIndexMapping()
	if err := im.AddCustomAnalyzer(foldingAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"char_filters":  []string{asciifolding.Name},
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return fmt.Errorf("build folding analyzer: %w", err)
	}
	textMapping := bleve.NewTextFieldMapping()
	textMapping.Analyzer = foldingAnalyzer
	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("text", textMapping)
	im.DefaultMapping = docMapping

	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return fmt.Errorf("create corpus index: %w", err)
	}

	records := make(map[string]record)
	var order []string
	batch := idx.NewBatch()
	for _, e := range ix.corpus.Entries() {
		for _, book := range e.BookNames {
			ref := fmt.Sprintf("%s %d:%d", book, e.Chapter, e.Verse)
			if _, seen := records[ref]; seen {
				continue
			}
			records[ref] = record{ref: ref, texts: e.Versions, isJesusWords: e.IsJesusWords}
			order = append(order, ref)

			var all []string
			all = append(all, book)
			for _, text := range e.Versions {
				all = append(all, text)
			}
			if err := batch.Index(ref, doc{Ref: ref, Text: strings.Join(all, " ")}); err != nil {
				return fmt.Errorf("index corpus verse %s: %w", ref, err)
			}
		}
	}
	if err := idx.Batch(batch); err != nil {
		return fmt.Errorf("commit corpus batch: %w", err)
	}

	ix.mu.Lock()
	old := ix.idx
	ix.idx = idx
	ix.records = records
	ix.order = order
	ix.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	ix.logger.Debug("corpus index built", zap.Int("refs", len(records)))
	return nil
}

// SearchByKeyword returns one result per distinct reference whose text (in
// any translation) matches term. The snippet prefers the default translation
// when it exists.
func (ix *Index) SearchByKeyword(ctx context.Context, term string) ([]models.KeywordResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []models.KeywordResult{}, nil
	}

	ix.mu.RLock()
	idx := ix.idx
	ix.mu.RUnlock()

	q := bleve.NewMatchQuery(term)
	q.SetField("text")
	req := bleve.NewSearchRequest(q)
	req.Size = 50
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("corpus search failed: %w", err)
	}

	results := make([]models.KeywordResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if r, ok := ix.lookup(hit.ID); ok {
			results = append(results, r)
		}
	}
	if len(results) > 0 {
		return results, nil
	}
	// Token matching found nothing; fall back to the substring scan so
	// partial words still hit.
	return ix.scan(term), nil
}

func (ix *Index) lookup(ref string) (models.KeywordResult, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.records[ref]
	if !ok {
		return models.KeywordResult{}, false
	}
	return rec.result(), true
}

// scan is the linear diacritic-folded substring pass over every record.
func (ix *Index) scan(term string) []models.KeywordResult {
	folded := utils.Fold(term)
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	results := []models.KeywordResult{}
	for _, ref := range ix.order {
		rec := ix.records[ref]
		for _, code := range versions.All {
			text, ok := rec.texts[code]
			if !ok {
				continue
			}
			if strings.Contains(utils.Fold(text), folded) {
				results = append(results, rec.result())
				break
			}
		}
	}
	return results
}

// result builds the KeywordResult for a record, preferring the default
// translation's text for the snippet.
func (r record) result() models.KeywordResult {
	text := r.texts[versions.Default]
	if text == "" {
		for _, code := range versions.All {
			if t := r.texts[code]; t != "" {
				text = t
				break
			}
		}
	}
	return models.KeywordResult{Ref: r.ref, Text: text, IsJesusWords: r.isJesusWords}
}
