// Package snapshot owns the event collection the engine reads from.
//
// A Snapshot is immutable once published. Refreshes build a new one and
// swap it into the Store wholesale, so readers never observe a half-loaded
// collection and never take a lock.
package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"agenda/internal/engine"
	"agenda/internal/model"
)

// Snapshot is one loaded generation of the event feed.
type Snapshot struct {
	// Version identifies this generation; memoized views are keyed on it.
	Version  string
	LoadedAt time.Time
	Events   []model.Event
	// Baseline holds the per-discipline counts of the whole collection,
	// computed once at load time.
	Baseline model.Counts
}

// New builds a Snapshot over events and computes its baseline counts.
func New(e *engine.Engine, events []model.Event, loadedAt time.Time) *Snapshot {
	if events == nil {
		events = []model.Event{}
	}
	return &Snapshot{
		Version:  uuid.NewString(),
		LoadedAt: loadedAt,
		Events:   events,
		Baseline: e.CountByDiscipline(events),
	}
}

// Store holds the current Snapshot. The zero value is ready to use and
// empty.
type Store struct {
	cur atomic.Pointer[Snapshot]
}

// Current returns the published snapshot, or nil before the first load.
func (s *Store) Current() *Snapshot {
	return s.cur.Load()
}

// Replace publishes snap and returns the snapshot it replaced.
func (s *Store) Replace(snap *Snapshot) *Snapshot {
	return s.cur.Swap(snap)
}
