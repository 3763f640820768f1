package engine

import (
	"fmt"

	"agenda/internal/model"
)

// CountMode selects which count map accompanies a filtered view.
type CountMode string

const (
	// CountModeBaseline reports counts computed once over the whole snapshot
	// when it was loaded. Badges stay fixed while filters change.
	CountModeBaseline CountMode = "baseline"
	// CountModeLive recounts the currently filtered events.
	CountModeLive CountMode = "live"
)

// ParseCountMode accepts "baseline" or "live"; empty means baseline.
func ParseCountMode(s string) (CountMode, error) {
	switch CountMode(s) {
	case "", CountModeBaseline:
		return CountModeBaseline, nil
	case CountModeLive:
		return CountModeLive, nil
	default:
		return "", fmt.Errorf("unknown count mode %q", s)
	}
}

// CountByDiscipline counts events per defaulted discipline. The values
// always sum to len(events).
func (e *Engine) CountByDiscipline(events []model.Event) model.Counts {
	counts := make(model.Counts)
	for _, ev := range events {
		counts[e.Discipline(ev.Discipline)]++
	}
	return counts
}
