package corpus

import (
	"time"

	"github.com/beroea/beroea/internal/models"
)

// VerseOfDay returns the curated entry for now's calendar day:
// index = dayOfYear mod list length, with a 1-based day count since Jan 1.
// Deterministic per day and identical for every user; no network involved.
// The entry stores only references and bundled texts; fetching the display
// text in a specific translation is the caller's (lazy) concern.
func (c *Corpus) VerseOfDay(now time.Time) models.DailyVerse {
	daily := c.Daily()
	return daily[now.YearDay()%len(daily)]
}
