package model

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"time"
)

// Event is a single cultural event as supplied by the feed. The engine treats
// it as read-only; every field except ID may be zero.
type Event struct {
	// ID is stable within a session and is the identity key of results.
	ID string

	// Title may still carry control characters or export noise.
	Title      string
	Discipline string

	// StartDate nil means the event is undated. EndDate nil means the event
	// is a single instant equal to StartDate.
	StartDate *time.Time
	EndDate   *time.Time

	// Time is free display text ("20:00", "de 10 a 14h"); it is never parsed.
	Time string

	Place PlaceField
	Link  string
}

// DisplayEvent is the normalized shape handed to the presentation layer.
type DisplayEvent struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Time       string     `json:"time"`
	Discipline string     `json:"discipline"`
	Place      Place      `json:"place"`
	MapLink    string     `json:"map_link"`
	InfoLink   string     `json:"info_link"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

// Counts maps a discipline label to the number of events carrying it.
type Counts map[string]int

// Total returns the sum of all counts.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Criteria is the caller's current filter selection. It is passed by value on
// every evaluation and never retained by the engine.
type Criteria struct {
	// DateFrom / DateTo are inclusive bounds; nil means unbounded.
	DateFrom *time.Time
	DateTo   *time.Time

	// Disciplines is treated as a set. Empty means "no discipline filter".
	Disciplines []string

	// SearchText is matched case-insensitively as a substring.
	SearchText string

	// Sort requests ascending start-date order on the result.
	Sort bool
}

// HasDateFilter reports whether at least one date bound is set.
func (c Criteria) HasDateFilter() bool {
	return c.DateFrom != nil || c.DateTo != nil
}

// DisciplineSet returns the selected disciplines as a lookup set.
func (c Criteria) DisciplineSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Disciplines))
	for _, d := range c.Disciplines {
		set[d] = struct{}{}
	}
	return set
}

// Key returns a structural hash of the criteria. Two criteria that select the
// same events produce the same key regardless of discipline order or
// duplicates.
func (c Criteria) Key() string {
	ds := slices.Clone(c.Disciplines)
	slices.Sort(ds)
	ds = slices.Compact(ds)

	var b strings.Builder
	b.WriteString("from=")
	b.WriteString(formatBound(c.DateFrom))
	b.WriteString("\x00to=")
	b.WriteString(formatBound(c.DateTo))
	b.WriteString("\x00disciplines=")
	b.WriteString(strings.Join(ds, "\x1f"))
	b.WriteString("\x00q=")
	b.WriteString(strings.ToLower(strings.TrimSpace(c.SearchText)))
	if c.Sort {
		b.WriteString("\x00sort")
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339Nano)
}
