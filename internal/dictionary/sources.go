package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/beroea/beroea/pkg/utils"
)

// dictEntry is one entry of the structured dictionary API response.
type dictEntry struct {
	Word     string `json:"word"`
	Meanings []struct {
		PartOfSpeech string `json:"partOfSpeech"`
		Definitions  []struct {
			Definition string `json:"definition"`
		} `json:"definitions"`
	} `json:"meanings"`
}

// wikiEntry is one part-of-speech block of the wiki REST definition response.
// The response object is keyed by full language name ("Spanish", "English").
type wikiEntry struct {
	PartOfSpeech string `json:"partOfSpeech"`
	Definitions  []struct {
		Definition string `json:"definition"`
	} `json:"definitions"`
}

type wikiDefinitions map[string][]wikiEntry

// Sources holds the HTTP clients for the free dictionary backends. Every
// method reports a miss as (zero, false) rather than an error: the cascade
// treats any source failure as "try the next source".
type Sources struct {
	dictBase string
	wikiBase string
	http     *http.Client
	logger   *zap.Logger
}

// NewSources creates the source clients. dictBase is the structured dictionary
// API root, wikiBase the wiki root (both without trailing slash).
func NewSources(dictBase, wikiBase string, logger *zap.Logger) *Sources {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sources{
		dictBase: dictBase,
		wikiBase: wikiBase,
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

func (s *Sources) getJSON(ctx context.Context, url string, out any) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Debug("source request failed", zap.String("url", url), zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		s.logger.Debug("source decode failed", zap.String("url", url), zap.Error(err))
		return false
	}
	return true
}

// DictionaryEntries queries the structured dictionary API for a term. On a
// miss it retries once with diacritics stripped, when that changes the term.
func (s *Sources) DictionaryEntries(ctx context.Context, lang, term string) ([]dictEntry, bool) {
	lookup := func(w string) ([]dictEntry, bool) {
		var entries []dictEntry
		endpoint := fmt.Sprintf("%s/api/v2/entries/%s/%s", s.dictBase, lang, url.PathEscape(w))
		if !s.getJSON(ctx, endpoint, &entries) || len(entries) == 0 {
			return nil, false
		}
		return entries, true
	}
	if entries, ok := lookup(term); ok {
		return entries, true
	}
	if folded := utils.Fold(term); folded != term && folded != "" {
		return lookup(folded)
	}
	return nil, false
}

// WikiDefinitions queries the wiki REST definition endpoint for an exact page
// title.
func (s *Sources) WikiDefinitions(ctx context.Context, term string) (wikiDefinitions, bool) {
	var defs wikiDefinitions
	endpoint := fmt.Sprintf("%s/api/rest_v1/page/definition/%s", s.wikiBase, url.PathEscape(term))
	if !s.getJSON(ctx, endpoint, &defs) || len(defs) == 0 {
		return nil, false
	}
	return defs, true
}

// ResolveTitle asks the wiki search API for the closest page title to a query.
func (s *Sources) ResolveTitle(ctx context.Context, query string) (string, bool) {
	var body struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	endpoint := fmt.Sprintf("%s/w/api.php?action=query&list=search&srsearch=%s&format=json&origin=*",
		s.wikiBase, url.QueryEscape(query))
	if !s.getJSON(ctx, endpoint, &body) || len(body.Query.Search) == 0 {
		return "", false
	}
	return body.Query.Search[0].Title, true
}

// PageExtract fetches the plain-text extract of a wiki page. The extract spans
// the whole page; callers scope it to the language section they want.
func (s *Sources) PageExtract(ctx context.Context, title string) (string, bool) {
	var body struct {
		Query struct {
			Pages map[string]struct {
				Missing *string `json:"missing"`
				Extract string  `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	endpoint := fmt.Sprintf("%s/w/api.php?action=query&format=json&prop=extracts&explaintext=1&redirects=1&titles=%s&origin=*",
		s.wikiBase, url.QueryEscape(title))
	if !s.getJSON(ctx, endpoint, &body) {
		return "", false
	}
	for _, page := range body.Query.Pages {
		if page.Missing != nil || page.Extract == "" {
			continue
		}
		return page.Extract, true
	}
	return "", false
}
