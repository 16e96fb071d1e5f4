package models

import "time"

// SavedWord is a term/definition pair attached to a parent document (a
// sermon's glossary or a study session). CreatedAt is a local YYYY-MM-DD day.
type SavedWord struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	CreatedAt  string `json:"created_at"`
}

// SavedVerse is a verse pinned into a sermon.
type SavedVerse struct {
	Ref          string `json:"ref"`
	Text         string `json:"text"`
	Version      string `json:"version"`
	IsJesusWords bool   `json:"is_jesus_words,omitempty"`
}

// Sermon is a user's sermon document.
type Sermon struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Preacher   string       `json:"preacher"`
	Date       string       `json:"date"`
	Verses     []SavedVerse `json:"verses"`
	Notes      string       `json:"notes"`
	Dictionary []SavedWord  `json:"dictionary,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Note is a free-form personal note.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
