package snapshot

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"agenda/internal/engine"
	"agenda/internal/model"
)

func TestNewComputesBaseline(t *testing.T) {
	e := engine.Default()
	events := []model.Event{
		{ID: "1", Discipline: "Cine"},
		{ID: "2", Discipline: "Cine"},
		{ID: "3", Discipline: "Robótica"},
		{ID: "4"},
	}
	loaded := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

	snap := New(e, events, loaded)
	assert.NotEmpty(t, snap.Version)
	assert.Equal(t, loaded, snap.LoadedAt)
	assert.Equal(t, model.Counts{"Cine": 2, "Otros": 2}, snap.Baseline)
	assert.Equal(t, len(events), snap.Baseline.Total())

	other := New(e, events, loaded)
	assert.NotEqual(t, snap.Version, other.Version)
}

func TestNewWithoutEvents(t *testing.T) {
	snap := New(engine.Default(), nil, time.Now())
	assert.NotNil(t, snap.Events)
	assert.Empty(t, snap.Events)
	assert.Empty(t, snap.Baseline)
}

func TestStoreReplace(t *testing.T) {
	var s Store
	assert.Nil(t, s.Current())

	first := New(engine.Default(), nil, time.Now())
	assert.Nil(t, s.Replace(first))
	assert.Same(t, first, s.Current())

	second := New(engine.Default(), nil, time.Now())
	assert.Same(t, first, s.Replace(second))
	assert.Same(t, second, s.Current())
}

func TestStoreConcurrentReaders(t *testing.T) {
	var s Store
	e := engine.Default()
	s.Replace(New(e, nil, time.Now()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := s.Current()
				if !assert.NotNil(t, snap) {
					return
				}
				assert.Equal(t, len(snap.Events), snap.Baseline.Total())
			}
		}()
	}
	for i := 0; i < 20; i++ {
		s.Replace(New(e, []model.Event{{ID: "x", Discipline: "Cine"}}, time.Now()))
	}
	wg.Wait()
}
