package utils

import (
	"regexp"
	"time"
)

var ymdRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// LocalDay returns t as YYYY-MM-DD in t's location. Daily keys (devotional
// cache, saved-word dates) use the user's local day, not UTC.
func LocalDay(t time.Time) string {
	return t.Format("2006-01-02")
}

// NormalizeDay coerces a stored date string to YYYY-MM-DD. Already-normalized
// strings pass through; parseable timestamps are converted to the local day;
// anything else falls back to today's local day.
func NormalizeDay(s string, now time.Time) string {
	if ymdRe.MatchString(s) {
		return s
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return LocalDay(t.Local())
		}
	}
	return LocalDay(now)
}
