package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/beroea/beroea/internal/ai"
	"github.com/beroea/beroea/internal/dictionary"
	"github.com/beroea/beroea/internal/lookup"
	"github.com/beroea/beroea/internal/models"
	"github.com/beroea/beroea/internal/shape"
	"github.com/beroea/beroea/internal/storage"
	"github.com/beroea/beroea/internal/versions"
	"github.com/beroea/beroea/pkg/utils"
)

// language returns the request's UI language, falling back to the configured
// one.
func (s *Server) language(r *http.Request) string {
	if lang := r.URL.Query().Get("language"); lang != "" {
		return lang
	}
	return s.config.Language
}

type searchRequest struct {
	Query    string `json:"query"`
	Version  string `json:"version"`
	Language string `json:"language"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Language == "" {
		req.Language = s.config.Language
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.String("version", req.Version))
	result, err := s.searcher.Search(r.Context(), req.Query, req.Version, req.Language)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type defineRequest struct {
	Term     string `json:"term"`
	Language string `json:"language"`
	AllowAI  bool   `json:"allow_ai"`
}

func (s *Server) handleDefine(w http.ResponseWriter, r *http.Request) {
	var req defineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Language == "" {
		req.Language = s.config.Language
	}
	if !lookup.ShouldLookupTerm(req.Term) {
		s.respondError(w, http.StatusBadRequest, "term too short")
		return
	}
	s.logger.Debug("define request", zap.String("term", req.Term), zap.Bool("allow_ai", req.AllowAI))

	result, err := s.definer.Define(r.Context(), req.Term, req.Language, req.AllowAI)
	if err != nil {
		var rl *dictionary.RateLimitedError
		switch {
		case errors.As(err, &rl):
			s.respondError(w, http.StatusTooManyRequests, rl.Error())
		case errors.Is(err, dictionary.ErrDuplicate):
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, dictionary.ErrNotFound):
			s.respondJSON(w, http.StatusNotFound, map[string]any{
				"error":  "not found",
				"try_ai": !req.AllowAI,
			})
		default:
			s.logger.Error("define failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleDaily returns the day's curated verse. With fetch=1 the display text
// is resolved through the chapter fetcher; when that misses, the bundled
// translation text is used instead.
func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	lang := s.language(r)
	version := r.URL.Query().Get("version")
	if version == "" {
		version = s.config.Scripture.DefaultVersion
	}
	version = versions.Canonical(version)

	dv := s.corpus.VerseOfDay(s.now())
	ref := dv.Refs[lang]
	if ref == "" {
		ref = dv.Refs["es"]
	}

	resp := map[string]any{
		"ref":            ref,
		"is_jesus_words": dv.IsJesusWords,
		"version":        version,
		"text":           dv.Versions[version],
	}

	if r.URL.Query().Get("fetch") == "1" {
		if vs := s.fetcher.FetchChapter(r.Context(), ref, version, lang); vs != nil {
			if text := shape.FormatVerses(vs.Versions[version]); text != "" {
				resp["text"] = text
			}
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleDevotional serves the AI devotional for today's verse, cached per
// user, language and calendar day so each is generated at most once.
func (s *Server) handleDevotional(w http.ResponseWriter, r *http.Request) {
	if s.gen == nil {
		s.respondError(w, http.StatusNotImplemented, "ai not configured")
		return
	}
	lang := s.language(r)
	userKey := r.URL.Query().Get("user")
	if userKey == "" {
		userKey = "default"
	}
	day := utils.LocalDay(s.now())

	if cached, err := s.storage.GetDevotional(r.Context(), userKey, lang, day); err == nil {
		s.respondJSON(w, http.StatusOK, map[string]string{"day": day, "content": cached})
		return
	}

	dv := s.corpus.VerseOfDay(s.now())
	ref := dv.Refs[lang]
	if ref == "" {
		ref = dv.Refs["es"]
	}
	text := dv.Versions[versions.DefaultFor(lang)]

	content := s.gen.Devotional(r.Context(), text, ref)
	if err := s.storage.PutDevotional(r.Context(), userKey, lang, day, content); err != nil {
		s.logger.Warn("failed to cache devotional", zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"day": day, "content": content})
}

type generateRequest struct {
	Kind      string `json:"kind"`
	Reference string `json:"reference"`
	Term      string `json:"term"`
	Title     string `json:"title"`
	Notes     string `json:"notes"`
	Verses    string `json:"verses"`
	VerseText string `json:"verse_text"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.gen == nil {
		s.respondError(w, http.StatusNotImplemented, "ai not configured")
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("generate request", zap.String("kind", req.Kind))

	var content string
	switch req.Kind {
	case "devotional":
		content = s.gen.Devotional(r.Context(), req.VerseText, req.Reference)
	case "definition":
		content = s.gen.Definition(r.Context(), req.Term)
	case "exegesis", "application", "related", "prayer":
		content = s.gen.AnalyzePassage(r.Context(), ai.AnalysisKind(req.Kind), req.Reference)
	case "sermon-summary":
		content = s.gen.SermonSummary(r.Context(), req.Title, req.Notes, req.Verses)
	default:
		s.respondError(w, http.StatusBadRequest, "unknown kind")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"content": content})
}

func (s *Server) handleCreateSermon(w http.ResponseWriter, r *http.Request) {
	var sermon models.Sermon
	if err := json.NewDecoder(r.Body).Decode(&sermon); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if sermon.Title == "" {
		s.respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	if sermon.Date != "" {
		sermon.Date = utils.NormalizeDay(sermon.Date, s.now())
	}
	if err := s.storage.CreateSermon(r.Context(), &sermon); err != nil {
		s.logger.Error("create sermon failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, sermon)
}

func (s *Server) handleListSermons(w http.ResponseWriter, r *http.Request) {
	sermons, err := s.storage.ListSermons(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sermons == nil {
		sermons = []*models.Sermon{}
	}
	s.respondJSON(w, http.StatusOK, sermons)
}

func (s *Server) handleGetSermon(w http.ResponseWriter, r *http.Request) {
	sermon, err := s.storage.GetSermon(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "sermon not found")
		return
	}
	s.respondJSON(w, http.StatusOK, sermon)
}

func (s *Server) handleUpdateSermon(w http.ResponseWriter, r *http.Request) {
	var sermon models.Sermon
	if err := json.NewDecoder(r.Body).Decode(&sermon); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sermon.ID = chi.URLParam(r, "id")
	if sermon.Date != "" {
		sermon.Date = utils.NormalizeDay(sermon.Date, s.now())
	}
	if err := s.storage.UpdateSermon(r.Context(), &sermon); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "sermon not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, sermon)
}

func (s *Server) handleDeleteSermon(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.DeleteSermon(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "sermon not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var note models.Note
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if note.Title == "" {
		s.respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	if note.Date != "" {
		note.Date = utils.NormalizeDay(note.Date, s.now())
	}
	if err := s.storage.CreateNote(r.Context(), &note); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, note)
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.storage.ListNotes(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if notes == nil {
		notes = []*models.Note{}
	}
	s.respondJSON(w, http.StatusOK, notes)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.storage.GetNote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "note not found")
		return
	}
	s.respondJSON(w, http.StatusOK, note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var note models.Note
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	note.ID = chi.URLParam(r, "id")
	if note.Date != "" {
		note.Date = utils.NormalizeDay(note.Date, s.now())
	}
	if err := s.storage.UpdateNote(r.Context(), &note); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "note not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.DeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "note not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListWords(w http.ResponseWriter, r *http.Request) {
	words, err := s.storage.ListWords(r.Context(), chi.URLParam(r, "scope"))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if words == nil {
		words = []models.SavedWord{}
	}
	s.respondJSON(w, http.StatusOK, words)
}

func (s *Server) handleSaveWord(w http.ResponseWriter, r *http.Request) {
	var word models.SavedWord
	if err := json.NewDecoder(r.Body).Decode(&word); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if word.Term == "" || word.Definition == "" {
		s.respondError(w, http.StatusBadRequest, "term and definition are required")
		return
	}
	// Clients send anything from a bare day to a full timestamp; stored
	// words always carry the local YYYY-MM-DD day.
	word.CreatedAt = utils.NormalizeDay(word.CreatedAt, s.now())
	if err := s.storage.SaveWord(r.Context(), chi.URLParam(r, "scope"), word); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, word)
}

func (s *Server) handleDeleteWord(w http.ResponseWriter, r *http.Request) {
	scope := chi.URLParam(r, "scope")
	term := chi.URLParam(r, "term")
	if err := s.storage.DeleteWord(r.Context(), scope, term); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "word not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
