// Package server provides the HTTP API for beroea.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/beroea/beroea/internal/ai"
	"github.com/beroea/beroea/internal/config"
	"github.com/beroea/beroea/internal/corpus"
	"github.com/beroea/beroea/internal/lookup"
	"github.com/beroea/beroea/internal/models"
	"github.com/beroea/beroea/internal/storage"
)

// Searcher runs the reference-or-keyword pipeline.
type Searcher interface {
	Search(ctx context.Context, query, versionHint, language string) (*lookup.Result, error)
}

// Definer runs the dictionary cascade.
type Definer interface {
	Define(ctx context.Context, term, language string, allowAI bool) (*models.DictionaryResult, error)
}

// Fetcher resolves a reference to verses for the daily endpoint's lazy fetch.
type Fetcher interface {
	FetchChapter(ctx context.Context, rawRef, versionHint, language string) *models.VerseSet
}

// Generator is the AI surface the API exposes. Nil when no key is configured.
type Generator interface {
	Devotional(ctx context.Context, verseText, verseRef string) string
	Definition(ctx context.Context, term string) string
	AnalyzePassage(ctx context.Context, kind ai.AnalysisKind, reference string) string
	SermonSummary(ctx context.Context, title, notes, verses string) string
}

// Server is the HTTP server for the beroea API.
type Server struct {
	searcher Searcher
	definer  Definer
	fetcher  Fetcher
	gen      Generator
	corpus   *corpus.Corpus
	storage  storage.Storage
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	now      func() time.Time
}

// NewServer creates a server with the given dependencies. gen may be nil.
func NewServer(
	searcher Searcher,
	definer Definer,
	fetcher Fetcher,
	gen Generator,
	c *corpus.Corpus,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		searcher: searcher,
		definer:  definer,
		fetcher:  fetcher,
		gen:      gen,
		corpus:   c,
		storage:  store,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/define", s.handleDefine)
	r.Get("/api/v1/daily", s.handleDaily)
	r.Get("/api/v1/devotional", s.handleDevotional)
	r.Post("/api/v1/generate", s.handleGenerate)

	r.Post("/api/v1/sermons", s.handleCreateSermon)
	r.Get("/api/v1/sermons", s.handleListSermons)
	r.Get("/api/v1/sermons/{id}", s.handleGetSermon)
	r.Put("/api/v1/sermons/{id}", s.handleUpdateSermon)
	r.Delete("/api/v1/sermons/{id}", s.handleDeleteSermon)

	r.Post("/api/v1/notes", s.handleCreateNote)
	r.Get("/api/v1/notes", s.handleListNotes)
	r.Get("/api/v1/notes/{id}", s.handleGetNote)
	r.Put("/api/v1/notes/{id}", s.handleUpdateNote)
	r.Delete("/api/v1/notes/{id}", s.handleDeleteNote)

	r.Get("/api/v1/words/{scope}", s.handleListWords)
	r.Post("/api/v1/words/{scope}", s.handleSaveWord)
	r.Delete("/api/v1/words/{scope}/{term}", s.handleDeleteWord)

	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
