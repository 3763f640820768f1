// Package engine normalizes and filters a snapshot of cultural events.
//
// Every exported function is pure: it performs no I/O, keeps no state between
// calls and never mutates its inputs, so one Engine may be shared freely
// between goroutines.
package engine

import (
	"strings"
)

const (
	// FallbackDiscipline is used for events with a blank or unknown discipline.
	FallbackDiscipline = "Otros"
	// FallbackTitle is shown for events without a usable title.
	FallbackTitle = "Evento sin título"
	// NoLink marks an action link that has nowhere to go.
	NoLink = "#"
	// MapSearchURL is the prefix of map searches built from a place name.
	MapSearchURL = "https://www.google.com/maps/search/"
)

// DefaultDisciplines is the vocabulary of discipline labels the feed uses.
var DefaultDisciplines = []string{
	"Cine",
	"Artes Escénicas",
	"Música",
	"Artes Visuales",
	"Narración Oral",
	"Conferencias",
	"Literatura",
	"Danza",
	"Formación / Taller",
	"Cultura Tradicional",
	"Itinerarios Patrimoniales",
	"Público Infantil / Familiar",
	"Medio Ambiente",
	"Salud y Bienestar",
	"Tecnología / Innovación",
	"Gastronomía",
	"Sociedad / Inclusión",
	"Divulgación / Institucional",
	"Multidisciplinar",
	"Actividades especiales",
	"Eventos",
	"Deportes / Actividad Física",
	FallbackDiscipline,
}

// Engine carries the discipline vocabulary. The zero value is not usable;
// build one with New or Default.
type Engine struct {
	labels     []string
	vocabulary map[string]struct{}
}

// New builds an Engine. An empty vocabulary accepts any non-blank label.
func New(vocabulary []string) *Engine {
	e := &Engine{}
	for _, v := range vocabulary {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if e.vocabulary == nil {
			e.vocabulary = make(map[string]struct{}, len(vocabulary))
		}
		if _, dup := e.vocabulary[v]; dup {
			continue
		}
		e.vocabulary[v] = struct{}{}
		e.labels = append(e.labels, v)
	}
	return e
}

// Default returns an Engine over DefaultDisciplines.
func Default() *Engine {
	return New(DefaultDisciplines)
}

// Disciplines returns the vocabulary in configuration order, or nil when
// the engine accepts any label.
func (e *Engine) Disciplines() []string {
	if len(e.labels) == 0 {
		return nil
	}
	out := make([]string, len(e.labels))
	copy(out, e.labels)
	return out
}

// Discipline returns the event's discipline after defaulting.
func (e *Engine) Discipline(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return FallbackDiscipline
	}
	if e.vocabulary != nil {
		if _, ok := e.vocabulary[label]; !ok {
			return FallbackDiscipline
		}
	}
	return label
}
