// Package dictionary implements the multi-source definition lookup: an
// ordered cascade of free backends with an AI generator as a gated last
// resort. The cascade stops at the first stage that yields definitions.
// Results are cached per language and term, a newer lookup cancels the one
// still in flight, and a rate-limited AI upstream closes a shared cooldown
// gate consulted before every AI call.
package dictionary

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/beroea/beroea/internal/models"
	"github.com/beroea/beroea/internal/ratelimit"
	"github.com/beroea/beroea/pkg/utils"
)

// ErrNotFound reports that every source in the cascade came up empty. When
// the lookup ran with the AI fallback disabled, callers may retry with it
// enabled.
var ErrNotFound = errors.New("definition not found")

// ErrDuplicate reports that an identical lookup fired within the suppression
// window; callers drop it and keep whatever they already show.
var ErrDuplicate = errors.New("duplicate lookup suppressed")

// RateLimitedError reports that the AI fallback is cooling down after an
// upstream rate limit.
type RateLimitedError struct {
	RetryIn time.Duration
}

func (e *RateLimitedError) Error() string {
	secs := int(math.Ceil(e.RetryIn.Seconds()))
	return fmt.Sprintf("IA temporalmente limitada. Intenta en %ds.", secs)
}

// AIDefiner is the slice of the AI client the cascade needs.
type AIDefiner interface {
	DefineWord(ctx context.Context, term, language string) (string, error)
}

type stageStatus int

const (
	stageNotFound stageStatus = iota
	stageFound
)

type stageResult struct {
	status stageStatus
	result models.DictionaryResult
}

func found(r models.DictionaryResult) stageResult {
	return stageResult{status: stageFound, result: r}
}

var notFound = stageResult{status: stageNotFound}

type stage struct {
	name string
	run  func(ctx context.Context, term string) stageResult
}

const (
	defaultCacheTTL   = 24 * time.Hour
	duplicateWindow   = 400 * time.Millisecond
	rateLimitCooldown = 10 * time.Minute
	softLimitCooldown = 2 * time.Minute
)

// Service runs definition lookups. One Service instance is shared by all
// callers; its only mutable state is the cache, the cooldown gate and the
// in-flight bookkeeping.
type Service struct {
	sources *Sources
	ai      AIDefiner
	gate    *ratelimit.Gate
	logger  *zap.Logger
	cache   *cache
	now     func() time.Time

	reqID atomic.Int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	lastKey string
	lastAt  time.Time
}

// NewService creates a lookup service. ai may be nil when no AI backend is
// configured; lookups then never fall through past the free sources.
func NewService(sources *Sources, ai AIDefiner, gate *ratelimit.Gate, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	now := time.Now
	return &Service{
		sources: sources,
		ai:      ai,
		gate:    gate,
		logger:  logger,
		cache:   newCache(ttl, now),
		now:     now,
	}
}

var spacesRe = regexp.MustCompile(`\s+`)

// Define looks up a term. language selects the source ordering ("en" differs
// from everything else). allowAI permits the AI fallback after every free
// source failed; debounce-driven callers pass false so typing never burns AI
// quota. Returns ErrNotFound, ErrDuplicate, a *RateLimitedError, or the
// context error of a superseded lookup.
func (s *Service) Define(ctx context.Context, term, language string, allowAI bool) (*models.DictionaryResult, error) {
	word := spacesRe.ReplaceAllString(strings.TrimSpace(term), " ")
	if word == "" {
		return nil, ErrNotFound
	}

	key := cacheKey(language, word)
	if cached, ok := s.cache.get(key); ok {
		return &cached, nil
	}

	if s.suppressDuplicate(key, allowAI) {
		return nil, ErrDuplicate
	}

	ctx, myID := s.begin(ctx)
	s.logger.Debug("dictionary lookup",
		zap.String("term", word), zap.String("language", language), zap.Bool("allow_ai", allowAI))

	for _, st := range s.stages(language) {
		res := st.run(ctx, word)
		if err := s.checkStale(ctx, myID); err != nil {
			return nil, err
		}
		if res.status == stageFound {
			s.logger.Debug("dictionary hit", zap.String("stage", st.name), zap.String("term", word))
			s.cache.put(key, res.result)
			r := res.result
			return &r, nil
		}
	}

	if !allowAI || s.ai == nil {
		return nil, ErrNotFound
	}
	return s.defineWithAI(ctx, myID, key, word, language)
}

// suppressDuplicate absorbs double fires of the same lookup (enter key plus
// button click) within a short window.
func (s *Service) suppressDuplicate(key string, allowAI bool) bool {
	fireKey := key + "|free"
	if allowAI {
		fireKey = key + "|ai"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.lastKey == fireKey && now.Sub(s.lastAt) < duplicateWindow {
		return true
	}
	s.lastKey = fireKey
	s.lastAt = now
	return false
}

// begin cancels any lookup still in flight and registers this one as the
// latest. The returned id is compared after every stage so a superseded
// lookup can never publish a result.
func (s *Service) begin(ctx context.Context) (context.Context, int64) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()
	return ctx, s.reqID.Add(1)
}

func (s *Service) checkStale(ctx context.Context, myID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.reqID.Load() != myID {
		return context.Canceled
	}
	return nil
}

// stages returns the source ordering for a language. English goes structured
// API first; everything else leads with the wiki, which has far better
// coverage outside English.
func (s *Service) stages(language string) []stage {
	if language == "en" {
		return []stage{
			{name: "structured-api", run: s.stageStructuredEnglish},
			{name: "wiki", run: func(ctx context.Context, w string) stageResult {
				return s.stageWikiDefinitions(ctx, w, []string{"en", "es", "pt"})
			}},
		}
	}

	sameLang := "es"
	if language == "pt" {
		sameLang = "pt"
	}
	order := []string{"es", "pt", "en"}
	if language == "pt" {
		order = []string{"pt", "es", "en"}
	}
	return []stage{
		{name: "wiki", run: func(ctx context.Context, w string) stageResult {
			return s.stageWikiDefinitions(ctx, w, order)
		}},
		{name: "structured-api", run: func(ctx context.Context, w string) stageResult {
			return s.stageStructured(ctx, sameLang, w)
		}},
		{name: "wiki-extract", run: func(ctx context.Context, w string) stageResult {
			return s.stageWikiExtract(ctx, sameLang, w)
		}},
		{name: "wiki-en", run: func(ctx context.Context, w string) stageResult {
			return s.stageWikiDefinitions(ctx, w, []string{"en"})
		}},
	}
}

// stageStructuredEnglish guards the structured API behind a plain-Latin check
// so obviously non-English terms skip straight to the wiki.
var latinWordRe = regexp.MustCompile(`^[a-zA-Z'-]+$`)

func (s *Service) stageStructuredEnglish(ctx context.Context, word string) stageResult {
	if !latinWordRe.MatchString(word) {
		return notFound
	}
	return s.stageStructured(ctx, "en", word)
}

func (s *Service) stageStructured(ctx context.Context, lang, word string) stageResult {
	entries, ok := s.sources.DictionaryEntries(ctx, lang, word)
	if !ok {
		return notFound
	}
	var defs []string
	for _, m := range entries[0].Meanings {
		if len(m.Definitions) == 0 || m.Definitions[0].Definition == "" {
			continue
		}
		prefix := ""
		if m.PartOfSpeech != "" {
			prefix = m.PartOfSpeech + ": "
		}
		defs = append(defs, prefix+m.Definitions[0].Definition)
	}
	if len(defs) == 0 {
		return notFound
	}
	return found(models.DictionaryResult{
		Source:      models.SourceStructuredAPI,
		Word:        word,
		Language:    lang,
		Definitions: defs,
	})
}

// stageWikiDefinitions hits the wiki REST endpoint, retrying once through the
// search API when the exact title has no page.
func (s *Service) stageWikiDefinitions(ctx context.Context, word string, langOrder []string) stageResult {
	data, ok := s.sources.WikiDefinitions(ctx, word)
	if !ok {
		title, resolved := s.sources.ResolveTitle(ctx, word)
		if !resolved {
			return notFound
		}
		if data, ok = s.sources.WikiDefinitions(ctx, title); !ok {
			return notFound
		}
	}
	lang, defs := pickDefs(data, langOrder)
	if len(defs) == 0 {
		return notFound
	}
	return found(models.DictionaryResult{
		Source:      models.SourceWiki,
		Word:        word,
		Language:    lang,
		Definitions: defs,
	})
}

// stageWikiExtract scrapes the whole-page plain-text extract, scoped to the
// language's section. Retries with diacritics stripped when that changes the
// title.
func (s *Service) stageWikiExtract(ctx context.Context, lang, word string) stageResult {
	extract, ok := s.sources.PageExtract(ctx, word)
	if !ok {
		if folded := utils.Fold(word); folded != word && folded != "" {
			extract, ok = s.sources.PageExtract(ctx, folded)
		}
		if !ok {
			return notFound
		}
	}
	defs := ScopeExtract(extract, languageNames[lang])
	if len(defs) == 0 {
		return notFound
	}
	return found(models.DictionaryResult{
		Source:      models.SourceWiki,
		Word:        word,
		Language:    lang,
		Definitions: defs,
	})
}

// cooldownHints are phrases an AI backend uses when replying with a pacing
// message instead of a definition. Such a reply must never be cached as one.
var cooldownHints = []string{"429", "límite", "limite", "espera", "aguarde", "pause", "pausa"}

func (s *Service) defineWithAI(ctx context.Context, myID int64, key, word, language string) (*models.DictionaryResult, error) {
	if remaining := s.gate.Remaining(); remaining > 0 {
		return nil, &RateLimitedError{RetryIn: remaining}
	}

	aiLang := "es"
	if language == "pt" {
		aiLang = "pt"
	}
	text, err := s.ai.DefineWord(ctx, word, aiLang)
	if stale := s.checkStale(ctx, myID); stale != nil {
		return nil, stale
	}
	if err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			s.gate.Block(rateLimitCooldown)
			return nil, &RateLimitedError{RetryIn: s.gate.Remaining()}
		}
		var paced *ratelimit.PacedError
		if errors.As(err, &paced) {
			return nil, &RateLimitedError{RetryIn: paced.Wait}
		}
		s.logger.Warn("ai definition failed", zap.String("term", word), zap.Error(err))
		return nil, ErrNotFound
	}
	if text == "" {
		return nil, ErrNotFound
	}
	lower := strings.ToLower(text)
	for _, hint := range cooldownHints {
		if strings.Contains(lower, hint) {
			s.gate.Block(softLimitCooldown)
			return nil, &RateLimitedError{RetryIn: s.gate.Remaining()}
		}
	}

	result := models.DictionaryResult{
		Source:      models.SourceAI,
		Word:        word,
		Language:    aiLang,
		Definitions: []string{text},
	}
	s.cache.put(key, result)
	return &result, nil
}
