// Package activity keeps a per-doctype feed of editing activity built from
// the domain events of editing sessions.
package activity

import "time"

// Entry is one item of the activity feed.
type Entry struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	OccurredAt  time.Time `json:"occurred_at"`
	Doctype     string    `json:"doctype"`
	SessionID   string    `json:"session_id"`
	Summary     string    `json:"summary"`
	ChangeCount int       `json:"change_count,omitempty"`
	Fields      []string  `json:"fields,omitempty"`
}

// QueryOptions controls filtering and pagination of a doctype feed.
type QueryOptions struct {
	Since      *time.Time
	Until      *time.Time
	EventTypes []string // empty means all
	Limit      int      // default 100, max 500
	Cursor     string   // occurred_at of the last entry of the previous page
}

// SearchOptions controls filtering of a summary search.
type SearchOptions struct {
	Doctype string
	Since   *time.Time
	Limit   int // default 20
}

// DefaultQueryOptions returns QueryOptions covering the last 30 days.
func DefaultQueryOptions() QueryOptions {
	since := time.Now().AddDate(0, 0, -30)
	return QueryOptions{Since: &since, Limit: 100}
}
