// Package scripture fetches chapters from the upstream scripture API and
// slices them to a requested verse range.
package scripture

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/beroea/beroea/internal/models"
	"github.com/beroea/beroea/internal/reference"
	"github.com/beroea/beroea/internal/shape"
	"github.com/beroea/beroea/internal/versions"
)

// Fetcher resolves free-text references against the scripture chapter API.
// There is no caching at this layer: a missing chapter is a data-availability
// fact, and repeated identical calls are the caller's responsibility to
// debounce.
type Fetcher struct {
	baseURL        string
	defaultVersion string
	client         *http.Client
	logger         *zap.Logger
}

// NewFetcher creates a fetcher for the chapter API at baseURL. defaultVersion
// is the translation used when a fetch carries no version hint; it is
// canonicalized here so an empty or unknown configured value still resolves.
func NewFetcher(baseURL, defaultVersion string, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		baseURL:        baseURL,
		defaultVersion: versions.Canonical(defaultVersion),
		client:         &http.Client{Timeout: 15 * time.Second},
		logger:         logger,
	}
}

// FetchChapter parses a free-text reference, fetches the chapter in the hinted
// translation, and returns the verses in the requested range keyed by
// canonical translation code. Every translation valid for language is present
// as a key even when empty. Returns nil on parse failure, upstream not-found,
// or network error; all collapse to "no result", signaling the caller to fall
// back to keyword search.
func (f *Fetcher) FetchChapter(ctx context.Context, rawRef, versionHint, language string) *models.VerseSet {
	ref := reference.Parse(rawRef)
	if ref == nil {
		f.logger.Debug("unparseable reference", zap.String("reference", rawRef))
		return nil
	}

	hint := versionHint
	if hint == "" {
		hint = f.defaultVersion
	}
	canonical := versions.Canonical(hint)
	url := fmt.Sprintf("%s/read/%s/%s/%d", f.baseURL, versions.APISlug(canonical), reference.Slug(ref.Book), ref.Chapter)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.logger.Warn("chapter request build failed", zap.String("url", url), zap.Error(err))
		return nil
	}
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("chapter fetch failed", zap.String("url", url), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Warn("chapter fetch non-2xx", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return nil
	}

	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		f.logger.Warn("chapter response decode failed", zap.String("url", url), zap.Error(err))
		return nil
	}

	verses := shape.Adapt(raw)
	selected := make([]models.Verse, 0, len(verses))
	for _, v := range verses {
		if v.Number >= ref.VerseStart && v.Number <= ref.VerseEnd {
			selected = append(selected, v)
		}
	}
	if len(selected) == 0 {
		f.logger.Debug("no verses in requested range", zap.String("reference", rawRef))
		return nil
	}

	set := &models.VerseSet{
		Ref:      ref.String(),
		Versions: map[string][]models.Verse{canonical: selected},
	}
	for _, code := range versions.ForLanguage(language) {
		if _, ok := set.Versions[code]; !ok {
			set.Versions[code] = []models.Verse{}
		}
	}
	return set
}
