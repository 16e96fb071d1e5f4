// Package storage persists user documents (sermons, notes, saved words) and
// the per-day devotional cache in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/beroea/beroea/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sermons (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		preacher TEXT,
		date TEXT,
		notes TEXT,
		verses TEXT,
		dictionary TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sermons_date ON sermons(date);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT,
		date TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS saved_words (
		scope TEXT NOT NULL,
		term TEXT NOT NULL,
		definition TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(scope, term)
	);

	CREATE TABLE IF NOT EXISTS devotionals (
		user_key TEXT NOT NULL,
		lang TEXT NOT NULL,
		day TEXT NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (user_key, lang, day)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// CreateSermon inserts a sermon, assigning an id when missing.
func (s *SQLiteStorage) CreateSermon(ctx context.Context, sermon *models.Sermon) error {
	if sermon.ID == "" {
		sermon.ID = uuid.New().String()
	}
	versesJSON, err := json.Marshal(sermon.Verses)
	if err != nil {
		return fmt.Errorf("failed to marshal verses: %w", err)
	}
	dictJSON, err := json.Marshal(sermon.Dictionary)
	if err != nil {
		return fmt.Errorf("failed to marshal dictionary: %w", err)
	}

	now := time.Now()
	sermon.CreatedAt = now
	sermon.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sermons (id, title, preacher, date, notes, verses, dictionary, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sermon.ID, sermon.Title, sermon.Preacher, sermon.Date, sermon.Notes,
		string(versesJSON), string(dictJSON), sermon.CreatedAt, sermon.UpdatedAt,
	)
	return err
}

// GetSermon returns a sermon by id.
func (s *SQLiteStorage) GetSermon(ctx context.Context, id string) (*models.Sermon, error) {
	var sermon models.Sermon
	var versesJSON, dictJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, preacher, date, notes, verses, dictionary, created_at, updated_at
		 FROM sermons WHERE id = ?`, id,
	).Scan(&sermon.ID, &sermon.Title, &sermon.Preacher, &sermon.Date, &sermon.Notes,
		&versesJSON, &dictJSON, &sermon.CreatedAt, &sermon.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalDoc(versesJSON, &sermon.Verses); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(dictJSON, &sermon.Dictionary); err != nil {
		return nil, err
	}
	return &sermon, nil
}

// UpdateSermon updates an existing sermon.
func (s *SQLiteStorage) UpdateSermon(ctx context.Context, sermon *models.Sermon) error {
	versesJSON, err := json.Marshal(sermon.Verses)
	if err != nil {
		return fmt.Errorf("failed to marshal verses: %w", err)
	}
	dictJSON, err := json.Marshal(sermon.Dictionary)
	if err != nil {
		return fmt.Errorf("failed to marshal dictionary: %w", err)
	}
	sermon.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx,
		`UPDATE sermons SET title = ?, preacher = ?, date = ?, notes = ?, verses = ?, dictionary = ?, updated_at = ?
		 WHERE id = ?`,
		sermon.Title, sermon.Preacher, sermon.Date, sermon.Notes,
		string(versesJSON), string(dictJSON), sermon.UpdatedAt, sermon.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSermon removes a sermon by id.
func (s *SQLiteStorage) DeleteSermon(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sermons WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSermons returns all sermons, newest first.
func (s *SQLiteStorage) ListSermons(ctx context.Context) ([]*models.Sermon, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, preacher, date, notes, verses, dictionary, created_at, updated_at
		 FROM sermons ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sermons []*models.Sermon
	for rows.Next() {
		var sermon models.Sermon
		var versesJSON, dictJSON string
		if err := rows.Scan(&sermon.ID, &sermon.Title, &sermon.Preacher, &sermon.Date, &sermon.Notes,
			&versesJSON, &dictJSON, &sermon.CreatedAt, &sermon.UpdatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalDoc(versesJSON, &sermon.Verses); err != nil {
			return nil, err
		}
		if err := unmarshalDoc(dictJSON, &sermon.Dictionary); err != nil {
			return nil, err
		}
		sermons = append(sermons, &sermon)
	}
	return sermons, rows.Err()
}

// CreateNote inserts a note, assigning an id when missing.
func (s *SQLiteStorage) CreateNote(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, title, content, date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		note.ID, note.Title, note.Content, note.Date, note.CreatedAt, note.UpdatedAt,
	)
	return err
}

// GetNote returns a note by id.
func (s *SQLiteStorage) GetNote(ctx context.Context, id string) (*models.Note, error) {
	var note models.Note
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, date, created_at, updated_at FROM notes WHERE id = ?`, id,
	).Scan(&note.ID, &note.Title, &note.Content, &note.Date, &note.CreatedAt, &note.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// UpdateNote updates an existing note.
func (s *SQLiteStorage) UpdateNote(ctx context.Context, note *models.Note) error {
	note.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx,
		`UPDATE notes SET title = ?, content = ?, date = ?, updated_at = ? WHERE id = ?`,
		note.Title, note.Content, note.Date, note.UpdatedAt, note.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteNote removes a note by id.
func (s *SQLiteStorage) DeleteNote(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListNotes returns all notes, newest first.
func (s *SQLiteStorage) ListNotes(ctx context.Context) ([]*models.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, date, created_at, updated_at FROM notes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		var note models.Note
		if err := rows.Scan(&note.ID, &note.Title, &note.Content, &note.Date,
			&note.CreatedAt, &note.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, &note)
	}
	return notes, rows.Err()
}

// SaveWord stores a term/definition pair in a scope (a sermon's glossary or
// a study session). Saving the same term twice in a scope keeps the first
// definition.
func (s *SQLiteStorage) SaveWord(ctx context.Context, scope string, word models.SavedWord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO saved_words (scope, term, definition, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(scope, term) DO NOTHING`,
		scope, word.Term, word.Definition, word.CreatedAt,
	)
	return err
}

// ListWords returns the saved words of a scope in insertion order.
func (s *SQLiteStorage) ListWords(ctx context.Context, scope string) ([]models.SavedWord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT term, definition, created_at FROM saved_words WHERE scope = ? ORDER BY rowid`, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []models.SavedWord
	for rows.Next() {
		var w models.SavedWord
		if err := rows.Scan(&w.Term, &w.Definition, &w.CreatedAt); err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// DeleteWord removes one saved word from a scope.
func (s *SQLiteStorage) DeleteWord(ctx context.Context, scope, term string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM saved_words WHERE scope = ? AND term = ?`, scope, term)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetDevotional returns the cached devotional for a user, language and day.
func (s *SQLiteStorage) GetDevotional(ctx context.Context, userKey, lang, day string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM devotionals WHERE user_key = ? AND lang = ? AND day = ?`,
		userKey, lang, day,
	).Scan(&content)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return content, nil
}

// PutDevotional caches a devotional for a user, language and day, replacing
// any previous one.
func (s *SQLiteStorage) PutDevotional(ctx context.Context, userKey, lang, day, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO devotionals (user_key, lang, day, content) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_key, lang, day) DO UPDATE SET content = excluded.content`,
		userKey, lang, day, content,
	)
	return err
}

func unmarshalDoc[T any](raw string, out *T) error {
	if raw == "" || raw == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to unmarshal document field: %w", err)
	}
	return nil
}
