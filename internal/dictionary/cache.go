package dictionary

import (
	"strings"
	"sync"
	"time"

	"github.com/beroea/beroea/internal/models"
)

type cacheEntry struct {
	result models.DictionaryResult
	at     time.Time
}

// cache is the per-service definition cache, keyed by language and lowercased
// term, with a fixed TTL.
type cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func newCache(ttl time.Duration, now func() time.Time) *cache {
	return &cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

func cacheKey(language, term string) string {
	return language + ":" + strings.ToLower(term)
}

func (c *cache) get(key string) (models.DictionaryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.at) >= c.ttl {
		return models.DictionaryResult{}, false
	}
	return e.result, true
}

func (c *cache) put(key string, result models.DictionaryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: result, at: c.now()}
}
