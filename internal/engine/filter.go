package engine

import (
	"fmt"
	"slices"
	"strings"

	appLog "agenda/internal/log"
	"agenda/internal/model"
)

// matcher is a Criteria prepared once per filter pass.
type matcher struct {
	e           *Engine
	criteria    model.Criteria
	disciplines map[string]struct{}
	search      string
}

func (e *Engine) newMatcher(c model.Criteria) matcher {
	return matcher{
		e:           e,
		criteria:    c,
		disciplines: c.DisciplineSet(),
		search:      strings.ToLower(strings.TrimSpace(c.SearchText)),
	}
}

// Filter returns the events that pass the discipline, date and text
// predicates, in input order. The input slice is not modified.
func (e *Engine) Filter(events []model.Event, c model.Criteria) []model.Event {
	m := e.newMatcher(c)
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if m.safeMatch(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// Cheapest rejection first: set lookup, time comparison, then the
// allocation-heavy substring search.
func (m matcher) match(ev model.Event) bool {
	if len(m.disciplines) > 0 {
		if _, ok := m.disciplines[m.e.Discipline(ev.Discipline)]; !ok {
			return false
		}
	}
	if !Overlaps(ev, m.criteria) {
		return false
	}
	if m.search != "" && !strings.Contains(searchHaystack(ev), m.search) {
		return false
	}
	return true
}

func (m matcher) safeMatch(ev model.Event) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			appLog.Error("filter: event skipped", fmt.Errorf("panic: %v", r), "id", ev.ID)
			ok = false
		}
	}()
	return m.match(ev)
}

func searchHaystack(ev model.Event) string {
	return strings.ToLower(strings.Join([]string{
		ev.Title,
		ev.Discipline,
		ev.Place.Raw(),
		ev.Link,
	}, " "))
}

// SortByStart returns a copy of events ordered by ascending start date.
// Undated events go last; equal keys keep their input order.
func SortByStart(events []model.Event) []model.Event {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b model.Event) int {
		return sortKey(a).Compare(sortKey(b))
	})
	return out
}
