package engine

import (
	"maps"

	"agenda/internal/model"
)

// View is the complete output of one evaluation: the events to render and
// the count map for the discipline badges.
type View struct {
	Events []model.DisplayEvent
	Counts model.Counts
	Mode   CountMode
}

// Evaluate runs filter, optional sort and normalization over events.
//
// baseline is the count map computed when the snapshot was loaded; it is
// copied into the view for CountModeBaseline and ignored for CountModeLive.
func (e *Engine) Evaluate(events []model.Event, baseline model.Counts, c model.Criteria, mode CountMode) View {
	filtered := e.Filter(events, c)
	if c.Sort {
		filtered = SortByStart(filtered)
	}

	v := View{
		Events: e.NormalizeAll(filtered),
		Mode:   mode,
	}
	switch mode {
	case CountModeLive:
		v.Counts = e.CountByDiscipline(filtered)
	default:
		v.Mode = CountModeBaseline
		v.Counts = maps.Clone(baseline)
		if v.Counts == nil {
			v.Counts = model.Counts{}
		}
	}
	return v
}
