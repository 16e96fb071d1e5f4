package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/beroea/beroea/internal/models"
	"github.com/beroea/beroea/internal/ratelimit"
)

// fakeBackend serves the structured dictionary API and the wiki endpoints
// from one server, counting calls per endpoint.
type fakeBackend struct {
	mu       sync.Mutex
	wikiDefs map[string]wikiDefinitions // by page title
	entries  map[string][]dictEntry     // by "lang/term"
	searches map[string]string          // query -> resolved title
	extracts map[string]string          // title -> plain-text page

	dictCalls    atomic.Int32
	wikiCalls    atomic.Int32
	searchCalls  atomic.Int32
	extractCalls atomic.Int32

	blockWikiFor string        // page title whose wiki lookup stalls
	release      chan struct{} // closed to unblock it
	arrived      chan struct{} // signalled when the stalled lookup arrives
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		wikiDefs: map[string]wikiDefinitions{},
		entries:  map[string][]dictEntry{},
		searches: map[string]string{},
		extracts: map[string]string{},
		release:  make(chan struct{}),
		arrived:  make(chan struct{}, 4),
	}
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/entries/", func(w http.ResponseWriter, r *http.Request) {
		b.dictCalls.Add(1)
		key := strings.TrimPrefix(r.URL.Path, "/api/v2/entries/")
		b.mu.Lock()
		entries, ok := b.entries[key]
		b.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(entries)
	})
	mux.HandleFunc("/api/rest_v1/page/definition/", func(w http.ResponseWriter, r *http.Request) {
		b.wikiCalls.Add(1)
		title := strings.TrimPrefix(r.URL.Path, "/api/rest_v1/page/definition/")
		if b.blockWikiFor == title {
			b.arrived <- struct{}{}
			<-b.release
		}
		b.mu.Lock()
		defs, ok := b.wikiDefs[title]
		b.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(defs)
	})
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("list") == "search" {
			b.searchCalls.Add(1)
			b.mu.Lock()
			title, ok := b.searches[q.Get("srsearch")]
			b.mu.Unlock()
			if !ok {
				fmt.Fprint(w, `{"query":{"search":[]}}`)
				return
			}
			fmt.Fprintf(w, `{"query":{"search":[{"title":%q}]}}`, title)
			return
		}
		b.extractCalls.Add(1)
		b.mu.Lock()
		extract, ok := b.extracts[q.Get("titles")]
		b.mu.Unlock()
		if !ok {
			fmt.Fprint(w, `{"query":{"pages":{"-1":{"missing":""}}}}`)
			return
		}
		body := map[string]any{
			"query": map[string]any{
				"pages": map[string]any{
					"42": map[string]any{"extract": extract},
				},
			},
		}
		json.NewEncoder(w).Encode(body)
	})
	return mux
}

// fakeAI ignores ctx on purpose: the cascade must detect supersession itself.
type fakeAI struct {
	calls   atomic.Int32
	text    string
	err     error
	arrived chan struct{} // signalled when a call comes in, when set
	release chan struct{} // closed to let a blocked call return
}

func (f *fakeAI) DefineWord(ctx context.Context, term, language string) (string, error) {
	f.calls.Add(1)
	if f.arrived != nil {
		f.arrived <- struct{}{}
		<-f.release
	}
	return f.text, f.err
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func wikiSpanish(defs ...string) wikiDefinitions {
	var entries []wikiEntry
	for _, d := range defs {
		e := wikiEntry{PartOfSpeech: "noun"}
		e.Definitions = append(e.Definitions, struct {
			Definition string `json:"definition"`
		}{Definition: d})
		entries = append(entries, e)
	}
	return wikiDefinitions{"Spanish": entries}
}

func dictEntries(defs ...string) []dictEntry {
	entry := dictEntry{Word: "w"}
	for _, d := range defs {
		var m struct {
			PartOfSpeech string `json:"partOfSpeech"`
			Definitions  []struct {
				Definition string `json:"definition"`
			} `json:"definitions"`
		}
		m.PartOfSpeech = "noun"
		m.Definitions = append(m.Definitions, struct {
			Definition string `json:"definition"`
		}{Definition: d})
		entry.Meanings = append(entry.Meanings, m)
	}
	return []dictEntry{entry}
}

func newTestService(t *testing.T, backend *fakeBackend, ai *fakeAI) (*Service, *fakeClock, *ratelimit.Gate) {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)
	clk := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	gate := ratelimit.NewGateAt(clk.Now)
	var definer AIDefiner
	if ai != nil {
		definer = ai
	}
	svc := NewService(NewSources(srv.URL, srv.URL, nil), definer, gate, 24*time.Hour, nil)
	svc.now = clk.Now
	svc.cache.now = clk.Now
	return svc, clk, gate
}

func TestDefineWikiShortCircuit(t *testing.T) {
	backend := newFakeBackend()
	backend.wikiDefs["gracia"] = wikiSpanish("favor inmerecido de Dios")
	ai := &fakeAI{}
	svc, _, _ := newTestService(t, backend, ai)

	res, err := svc.Define(context.Background(), "gracia", "es", false)
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if res.Source != models.SourceWiki || res.Language != "es" {
		t.Errorf("result = %+v", res)
	}
	if len(res.Definitions) != 1 || !strings.Contains(res.Definitions[0], "favor inmerecido") {
		t.Errorf("definitions = %v", res.Definitions)
	}
	if backend.dictCalls.Load() != 0 || backend.extractCalls.Load() != 0 || ai.calls.Load() != 0 {
		t.Errorf("later stages ran: dict=%d extract=%d ai=%d",
			backend.dictCalls.Load(), backend.extractCalls.Load(), ai.calls.Load())
	}
}

func TestDefineCacheHitAvoidsNetwork(t *testing.T) {
	backend := newFakeBackend()
	backend.wikiDefs["gracia"] = wikiSpanish("favor inmerecido")
	svc, clk, _ := newTestService(t, backend, nil)

	if _, err := svc.Define(context.Background(), "gracia", "es", false); err != nil {
		t.Fatalf("first Define: %v", err)
	}
	clk.Advance(time.Hour)
	res, err := svc.Define(context.Background(), "Gracia", "es", false)
	if err != nil {
		t.Fatalf("second Define: %v", err)
	}
	if res.Source != models.SourceWiki {
		t.Errorf("cached result = %+v", res)
	}
	if n := backend.wikiCalls.Load(); n != 1 {
		t.Errorf("wiki calls = %d, want 1 (second lookup must hit the cache)", n)
	}

	clk.Advance(24 * time.Hour)
	if _, err := svc.Define(context.Background(), "gracia", "es", false); err != nil {
		t.Fatalf("post-TTL Define: %v", err)
	}
	if n := backend.wikiCalls.Load(); n != 2 {
		t.Errorf("wiki calls after TTL expiry = %d, want 2", n)
	}
}

func TestDefineTitleResolveRetry(t *testing.T) {
	backend := newFakeBackend()
	backend.searches["grasia"] = "gracia"
	backend.wikiDefs["gracia"] = wikiSpanish("favor inmerecido")
	svc, _, _ := newTestService(t, backend, nil)

	res, err := svc.Define(context.Background(), "grasia", "es", false)
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if res.Source != models.SourceWiki {
		t.Errorf("result = %+v", res)
	}
	if backend.wikiCalls.Load() != 2 || backend.searchCalls.Load() != 1 {
		t.Errorf("wiki=%d search=%d, want 2 and 1",
			backend.wikiCalls.Load(), backend.searchCalls.Load())
	}
}

func TestDefineStructuredFallback(t *testing.T) {
	backend := newFakeBackend()
	backend.entries["es/fe"] = dictEntries("confianza en lo que se espera")
	svc, _, _ := newTestService(t, backend, nil)

	res, err := svc.Define(context.Background(), "fe", "es", false)
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if res.Source != models.SourceStructuredAPI || res.Language != "es" {
		t.Errorf("result = %+v", res)
	}
	if !strings.HasPrefix(res.Definitions[0], "noun: ") {
		t.Errorf("definition should carry the part of speech, got %q", res.Definitions[0])
	}
}

func TestDefineExtractFallback(t *testing.T) {
	backend := newFakeBackend()
	backend.extracts["koinonia"] = strings.Join([]string{
		"== English ==",
		"Christian fellowship.",
		"== Spanish ==",
		"=== Noun ===",
		"IPA: /koi.no.nia/",
		"Comunión fraternal entre creyentes.",
		"Participación en común.",
		"=== Etymology ===",
		"From Ancient Greek.",
		"== Portuguese ==",
		"Comunhão.",
	}, "\n")
	svc, _, _ := newTestService(t, backend, nil)

	res, err := svc.Define(context.Background(), "koinonia", "es", false)
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if res.Source != models.SourceWiki || res.Language != "es" {
		t.Errorf("result = %+v", res)
	}
	want := []string{"Comunión fraternal entre creyentes.", "Participación en común."}
	if len(res.Definitions) != len(want) {
		t.Fatalf("definitions = %v, want %v", res.Definitions, want)
	}
	for i := range want {
		if res.Definitions[i] != want[i] {
			t.Errorf("definitions[%d] = %q, want %q", i, res.Definitions[i], want[i])
		}
	}
}

func TestDefineNotFoundNeverCallsAI(t *testing.T) {
	backend := newFakeBackend()
	ai := &fakeAI{text: "should not be used"}
	svc, _, _ := newTestService(t, backend, ai)

	_, err := svc.Define(context.Background(), "xyzzynotaword", "es", false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if ai.calls.Load() != 0 {
		t.Errorf("AI was called %d times without permission", ai.calls.Load())
	}
}

func TestDefineAIFallback(t *testing.T) {
	backend := newFakeBackend()
	ai := &fakeAI{text: "La gracia es el favor inmerecido de Dios."}
	svc, clk, _ := newTestService(t, backend, ai)

	res, err := svc.Define(context.Background(), "xyzzynotaword", "es", true)
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if res.Source != models.SourceAI || res.Language != "es" {
		t.Errorf("result = %+v", res)
	}

	// The AI answer is cached like any other.
	clk.Advance(time.Second)
	if _, err := svc.Define(context.Background(), "xyzzynotaword", "es", true); err != nil {
		t.Fatalf("cached Define: %v", err)
	}
	if ai.calls.Load() != 1 {
		t.Errorf("AI calls = %d, want 1", ai.calls.Load())
	}
}

func TestDefineAIRateLimitClosesGate(t *testing.T) {
	backend := newFakeBackend()
	ai := &fakeAI{err: ratelimit.ErrRateLimited}
	svc, clk, gate := newTestService(t, backend, ai)

	_, err := svc.Define(context.Background(), "palabra", "es", true)
	var rl *RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("err = %v, want *RateLimitedError", err)
	}
	if gate.Allow() {
		t.Fatal("gate should be closed after an upstream 429")
	}

	// Next lookup must fail fast without touching the AI backend.
	clk.Advance(time.Second)
	_, err = svc.Define(context.Background(), "otra", "es", true)
	if !errors.As(err, &rl) {
		t.Fatalf("gated err = %v, want *RateLimitedError", err)
	}
	if ai.calls.Load() != 1 {
		t.Errorf("AI calls = %d, want 1", ai.calls.Load())
	}

	clk.Advance(11 * time.Minute)
	ai.err = nil
	ai.text = "definición"
	if _, err := svc.Define(context.Background(), "tercera", "es", true); err != nil {
		t.Errorf("Define after cooldown: %v", err)
	}
}

func TestDefineAIPacedSurfacesRateLimit(t *testing.T) {
	backend := newFakeBackend()
	ai := &fakeAI{err: &ratelimit.PacedError{Wait: 2 * time.Second}}
	svc, _, gate := newTestService(t, backend, ai)

	_, err := svc.Define(context.Background(), "palabra", "es", true)
	var rl *RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("err = %v, want *RateLimitedError", err)
	}
	if rl.RetryIn != 2*time.Second {
		t.Errorf("RetryIn = %v, want the pacing wait", rl.RetryIn)
	}
	// Pacing is not an upstream 429: the shared gate must stay open.
	if !gate.Allow() {
		t.Error("gate closed over call pacing")
	}
	if _, ok := svc.cache.get(cacheKey("es", "palabra")); ok {
		t.Error("paced lookup must not be cached")
	}
}

func TestDefineCooldownReplyNotCached(t *testing.T) {
	backend := newFakeBackend()
	ai := &fakeAI{text: "Límite de IA alcanzado. Intenta más tarde."}
	svc, _, gate := newTestService(t, backend, ai)

	_, err := svc.Define(context.Background(), "palabra", "es", true)
	var rl *RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("err = %v, want *RateLimitedError for a pacing reply", err)
	}
	if gate.Allow() {
		t.Error("gate should be closed after a pacing reply")
	}
	if _, ok := svc.cache.get(cacheKey("es", "palabra")); ok {
		t.Error("pacing reply must not be cached as a definition")
	}
}

func TestDefineJunkReadmittedOnSecondPass(t *testing.T) {
	backend := newFakeBackend()
	backend.wikiDefs["grey"] = wikiDefinitions{
		"English": []wikiEntry{{
			PartOfSpeech: "adjective",
			Definitions: []struct {
				Definition string `json:"definition"`
			}{{Definition: "Alternative spelling of gray"}},
		}},
	}
	svc, _, _ := newTestService(t, backend, nil)

	res, err := svc.Define(context.Background(), "grey", "en", false)
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if len(res.Definitions) != 1 || !strings.Contains(res.Definitions[0], "Alternative spelling") {
		t.Errorf("definitions = %v", res.Definitions)
	}
}

func TestDefineEnglishOrdering(t *testing.T) {
	backend := newFakeBackend()
	backend.entries["en/grace"] = dictEntries("unmerited divine favor")
	svc, _, _ := newTestService(t, backend, nil)

	res, err := svc.Define(context.Background(), "grace", "en", false)
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if res.Source != models.SourceStructuredAPI {
		t.Errorf("result = %+v", res)
	}
	if backend.wikiCalls.Load() != 0 {
		t.Errorf("wiki calls = %d, the structured API should have short-circuited", backend.wikiCalls.Load())
	}

	// A term with non-Latin characters skips the structured API entirely.
	dictBefore := backend.dictCalls.Load()
	if _, err := svc.Define(context.Background(), "graça", "en", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if backend.dictCalls.Load() != dictBefore {
		t.Error("non-Latin term must not reach the structured API")
	}
}

func TestDefineDuplicateSuppressed(t *testing.T) {
	backend := newFakeBackend()
	svc, clk, _ := newTestService(t, backend, nil)

	if _, err := svc.Define(context.Background(), "nada", "es", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("first Define err = %v", err)
	}
	calls := backend.wikiCalls.Load()
	if _, err := svc.Define(context.Background(), "nada", "es", false); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("double fire err = %v, want ErrDuplicate", err)
	}
	if backend.wikiCalls.Load() != calls {
		t.Error("suppressed duplicate must not hit the network")
	}

	clk.Advance(time.Second)
	if _, err := svc.Define(context.Background(), "nada", "es", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("Define after window err = %v", err)
	}
}

func TestDefineNewerLookupWins(t *testing.T) {
	backend := newFakeBackend()
	backend.blockWikiFor = "lento"
	backend.wikiDefs["lento"] = wikiSpanish("que tarda")
	backend.wikiDefs["rapido"] = wikiSpanish("que no tarda")
	svc, _, _ := newTestService(t, backend, nil)

	type outcome struct {
		res *models.DictionaryResult
		err error
	}
	slow := make(chan outcome, 1)
	go func() {
		res, err := svc.Define(context.Background(), "lento", "es", false)
		slow <- outcome{res, err}
	}()
	<-backend.arrived

	res, err := svc.Define(context.Background(), "rapido", "es", false)
	if err != nil {
		t.Fatalf("newer Define: %v", err)
	}
	if res.Word != "rapido" {
		t.Errorf("newer result = %+v", res)
	}

	close(backend.release)
	got := <-slow
	if got.err == nil {
		t.Fatalf("superseded lookup returned %+v, want an error", got.res)
	}
	if !errors.Is(got.err, context.Canceled) {
		t.Errorf("superseded err = %v, want context.Canceled", got.err)
	}
	if _, ok := svc.cache.get(cacheKey("es", "lento")); ok {
		t.Error("superseded lookup must not populate the cache")
	}
}

func TestDefineNewerLookupWinsAIStage(t *testing.T) {
	backend := newFakeBackend()
	backend.wikiDefs["rapido"] = wikiSpanish("que no tarda")
	ai := &fakeAI{
		text:    "definición lenta",
		arrived: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	svc, _, _ := newTestService(t, backend, ai)

	type outcome struct {
		res *models.DictionaryResult
		err error
	}
	slow := make(chan outcome, 1)
	go func() {
		res, err := svc.Define(context.Background(), "palabrarara", "es", true)
		slow <- outcome{res, err}
	}()
	<-ai.arrived

	if _, err := svc.Define(context.Background(), "rapido", "es", false); err != nil {
		t.Fatalf("newer Define: %v", err)
	}

	close(ai.release)
	got := <-slow
	if !errors.Is(got.err, context.Canceled) {
		t.Fatalf("superseded AI lookup err = %v, want context.Canceled", got.err)
	}
	if got.res != nil {
		t.Errorf("superseded AI lookup returned %+v", got.res)
	}
	if _, ok := svc.cache.get(cacheKey("es", "palabrarara")); ok {
		t.Error("superseded AI answer must not be cached")
	}
}
