package storage

import (
	"context"

	"github.com/beroea/beroea/internal/models"
)

// Storage defines persistence for user documents and the devotional cache.
type Storage interface {
	// Sermon operations
	CreateSermon(ctx context.Context, sermon *models.Sermon) error
	GetSermon(ctx context.Context, id string) (*models.Sermon, error)
	UpdateSermon(ctx context.Context, sermon *models.Sermon) error
	DeleteSermon(ctx context.Context, id string) error
	ListSermons(ctx context.Context) ([]*models.Sermon, error)

	// Note operations
	CreateNote(ctx context.Context, note *models.Note) error
	GetNote(ctx context.Context, id string) (*models.Note, error)
	UpdateNote(ctx context.Context, note *models.Note) error
	DeleteNote(ctx context.Context, id string) error
	ListNotes(ctx context.Context) ([]*models.Note, error)

	// Saved-word operations
	SaveWord(ctx context.Context, scope string, word models.SavedWord) error
	ListWords(ctx context.Context, scope string) ([]models.SavedWord, error)
	DeleteWord(ctx context.Context, scope, term string) error

	// Devotional cache
	GetDevotional(ctx context.Context, userKey, lang, day string) (string, error)
	PutDevotional(ctx context.Context, userKey, lang, day, content string) error

	Close() error
}
