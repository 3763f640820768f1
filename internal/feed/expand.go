package feed

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "agenda/internal/log"
	"agenda/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 500
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone all dates are converted to.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps very long or unbounded rules. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the expanded events and the UIDs that hit the cap.
type ExpandResult struct {
	Events          []model.Event
	TruncatedEvents []string
}

// Expand turns parsed VEVENTs into feed events within the configured window:
// single events pass through, RRULEs are expanded with EXDATEs removed, and
// RECURRENCE-ID overrides replace the matching instance.
func Expand(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Keep first-seen UID order so output is deterministic.
	var uids []string
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)

	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			uids = append(uids, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	out := make([]model.Event, 0, len(events))
	for _, uid := range uids {
		ov := overridesByUID[uid]
		truncated := false

		for _, ev := range baseByUID[uid] {
			occ, hitCap := expandEvent(ev, ov, cfg)
			if hitCap {
				truncated = true
			}
			out = append(out, occ...)
		}

		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Error("expand: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	result.Events = out
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Event, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Event {
	if o, ok := findOverrideForStart(overrides, ev.Start); ok {
		ev = o
	}
	if !timeRangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []model.Event{makeEvent(ev, ev.UID, ev.Start, ev.End, cfg.DisplayLocation)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Event, bool) {
	out := make([]model.Event, 0)

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return out, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the lower bound by the event duration so instances that started
	// before the window but are still running are kept.
	dur := ev.End.Sub(ev.Start)
	rangeStart := cfg.RangeStart.Add(-dur).In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)

	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	for _, occStart := range occTimes {
		occEnd := occStart.Add(dur)
		if ev.AllDay {
			date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occStart = date
			occEnd = date.AddDate(0, 0, max(1, int(dur.Hours()/24)))
		}

		instanceID := ev.UID + "@" + occStart.In(cfg.DisplayLocation).Format(time.RFC3339)
		base := ev
		if o, ok := findOverrideForStart(overrides, occStart); ok {
			base = o
			occStart, occEnd = o.Start, o.End
		}
		if !timeRangesOverlap(occStart, occEnd, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}

		out = append(out, makeEvent(base, instanceID, occStart, occEnd, cfg.DisplayLocation))
	}

	return out, hitCap
}

// findOverrideForStart finds an override whose RECURRENCE-ID equals start.
func findOverrideForStart(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// makeEvent converts one concrete instance into a feed event.
//
// All-day instances carry an exclusive DTEND; the event's last day becomes
// EndDate, and single-day events get no EndDate at all. Timed events show
// their local start clock time as the display time.
func makeEvent(ev ParsedEvent, id string, start, end time.Time, loc *time.Location) model.Event {
	startLocal := start.In(loc)
	if ev.AllDay {
		startLocal = dateIn(start, loc)
	}
	out := model.Event{
		ID:         id,
		Title:      ev.Summary,
		Discipline: ev.Discipline,
		StartDate:  &startLocal,
		Place:      model.PlaceText(ev.Location),
		Link:       ev.URL,
	}

	if ev.AllDay {
		last := dateIn(end.AddDate(0, 0, -1), loc)
		if last.After(startLocal) {
			out.EndDate = &last
		}
		return out
	}

	out.Time = startLocal.Format("15:04")
	if end.After(start) {
		endLocal := end.In(loc)
		out.EndDate = &endLocal
	}
	return out
}

// dateIn keeps the calendar date of t and moves it to midnight in loc, so an
// all-day date never shifts across a day boundary.
func dateIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// timeRangesOverlap treats [aStart, aEnd) as half-open unless it is a single
// instant; the window [bStart, bEnd] is closed.
func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aStart.After(bEnd) {
		return false
	}
	if aEnd.After(aStart) {
		return aEnd.After(bStart)
	}
	return !aStart.Before(bStart)
}
