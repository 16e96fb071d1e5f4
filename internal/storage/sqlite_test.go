package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/beroea/beroea/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStorage_SermonCRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	sermon := &models.Sermon{
		Title:    "La gracia",
		Preacher: "Pr. García",
		Date:     "2026-08-30",
		Notes:    "Bosquejo inicial",
		Verses: []models.SavedVerse{
			{Ref: "Juan 3:16", Text: "Porque de tal manera...", Version: "RVR60", IsJesusWords: true},
		},
		Dictionary: []models.SavedWord{
			{Term: "gracia", Definition: "favor inmerecido", CreatedAt: "2026-08-30"},
		},
	}
	if err := store.CreateSermon(ctx, sermon); err != nil {
		t.Fatal(err)
	}
	if sermon.ID == "" {
		t.Error("ID should be assigned")
	}
	if sermon.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetSermon(ctx, sermon.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "La gracia" || len(got.Verses) != 1 || len(got.Dictionary) != 1 {
		t.Errorf("got %+v", got)
	}
	if !got.Verses[0].IsJesusWords {
		t.Error("verse flags should round-trip")
	}

	sermon.Title = "La gracia de Dios"
	if err := store.UpdateSermon(ctx, sermon); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetSermon(ctx, sermon.ID)
	if got.Title != "La gracia de Dios" {
		t.Errorf("expected updated title, got %s", got.Title)
	}

	list, err := store.ListSermons(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 sermon, got %d", len(list))
	}

	if err := store.DeleteSermon(ctx, sermon.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetSermon(ctx, sermon.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteSermon(ctx, sermon.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for double delete, got %v", err)
	}
}

func TestSQLiteStorage_NoteCRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	note := &models.Note{Title: "Estudio", Content: "Apuntes", Date: "2026-08-30"}
	if err := store.CreateNote(ctx, note); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetNote(ctx, note.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "Apuntes" {
		t.Errorf("got %+v", got)
	}

	note.Content = "Apuntes revisados"
	if err := store.UpdateNote(ctx, note); err != nil {
		t.Fatal(err)
	}

	list, err := store.ListNotes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Content != "Apuntes revisados" {
		t.Errorf("list = %+v", list)
	}

	if err := store.DeleteNote(ctx, note.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetNote(ctx, note.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_SavedWords(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	w := models.SavedWord{Term: "gracia", Definition: "favor inmerecido", CreatedAt: "2026-08-30"}
	if err := store.SaveWord(ctx, "study", w); err != nil {
		t.Fatal(err)
	}
	// Saving the same term again keeps the first definition.
	w2 := models.SavedWord{Term: "gracia", Definition: "otra cosa", CreatedAt: "2026-08-31"}
	if err := store.SaveWord(ctx, "study", w2); err != nil {
		t.Fatal(err)
	}

	words, err := store.ListWords(ctx, "study")
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 1 || words[0].Definition != "favor inmerecido" {
		t.Errorf("words = %+v", words)
	}

	// Scopes are independent.
	if err := store.SaveWord(ctx, "sermon:1", w); err != nil {
		t.Fatal(err)
	}
	other, _ := store.ListWords(ctx, "sermon:1")
	if len(other) != 1 {
		t.Errorf("scope isolation broken: %+v", other)
	}

	if err := store.DeleteWord(ctx, "study", "gracia"); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteWord(ctx, "study", "gracia"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_DevotionalCache(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	if _, err := store.GetDevotional(ctx, "u1", "es", "2026-08-30"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty cache, got %v", err)
	}

	if err := store.PutDevotional(ctx, "u1", "es", "2026-08-30", "Texto del día"); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetDevotional(ctx, "u1", "es", "2026-08-30")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Texto del día" {
		t.Errorf("got %q", got)
	}

	// Replacement and key independence.
	if err := store.PutDevotional(ctx, "u1", "es", "2026-08-30", "Texto revisado"); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetDevotional(ctx, "u1", "es", "2026-08-30")
	if got != "Texto revisado" {
		t.Errorf("got %q after replace", got)
	}
	if _, err := store.GetDevotional(ctx, "u1", "en", "2026-08-30"); !errors.Is(err, ErrNotFound) {
		t.Errorf("language must be part of the key, got %v", err)
	}
}
