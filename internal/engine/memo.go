package engine

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"agenda/internal/model"
)

const defaultMemoSize = 256

// Memo caches Views per (snapshot version, criteria, count mode) so repeated
// requests with unchanged criteria skip the filter pass. Cached views are
// shared; callers must not modify them.
type Memo struct {
	engine *Engine
	cache  *lru.Cache[memoKey, View]
}

type memoKey struct {
	version  string
	criteria string
	mode     CountMode
}

// NewMemo returns a Memo holding at most size views. size <= 0 selects a
// default.
func NewMemo(e *Engine, size int) *Memo {
	if size <= 0 {
		size = defaultMemoSize
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[memoKey, View](size)
	return &Memo{engine: e, cache: cache}
}

// Evaluate returns the cached view for the key or computes and stores it.
// hit reports whether the view came from the cache.
func (m *Memo) Evaluate(version string, events []model.Event, baseline model.Counts, c model.Criteria, mode CountMode) (v View, hit bool) {
	if mode != CountModeLive {
		mode = CountModeBaseline
	}
	key := memoKey{version: version, criteria: c.Key(), mode: mode}
	if v, ok := m.cache.Get(key); ok {
		return v, true
	}
	v = m.engine.Evaluate(events, baseline, c, mode)
	m.cache.Add(key, v)
	return v, false
}

// Purge drops every cached view. Views of replaced snapshots age out on their
// own; Purge is for callers that want the memory back immediately.
func (m *Memo) Purge() {
	m.cache.Purge()
}

// Len returns the number of cached views.
func (m *Memo) Len() int {
	return m.cache.Len()
}
