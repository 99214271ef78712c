// Package ledger tracks one publish record per calendar date. The scheduler's
// firing window is deliberately wider than one tick, so the ledger is the
// guard that makes repeated triggers on the same date idempotent.
package ledger

import (
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// Record is the durable outcome of one successful workflow run. Exactly one
// record exists per calendar date; it is only written after the upload stage
// returned a video ID.
type Record struct {
	Date       string    `json:"date"` // YYYY-MM-DD, the map key repeated for readability
	Published  bool      `json:"published"`
	VideoID    string    `json:"video_id"`
	VideoTitle string    `json:"video_title"`
	Weekday    string    `json:"weekday"`
	Timestamp  time.Time `json:"timestamp"`
}

// Store is the persistence contract for publish records.
//
// HasPublishedToday reports whether today's date already has a published
// record AND today's actual weekday equals day; a mismatched day parameter
// (a stale trigger) never counts as published.
//
// MarkPublished writes or overwrites today's record and must be durable
// before it returns.
//
// History returns up to limit records, most recent date first. It exists for
// observability only.
type Store interface {
	HasPublishedToday(day time.Weekday) bool
	MarkPublished(videoID, videoTitle string) error
	History(limit int) []Record
}

// sortedRecords returns the values of m sorted by date descending, capped at
// limit (limit <= 0 means no cap).
func sortedRecords(m map[string]Record, limit int) []Record {
	out := make([]Record, 0, len(m))
	for _, rec := range m {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
