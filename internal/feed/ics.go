package feed

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "agenda/internal/log"
)

// ParsedEvent is a VEVENT as read from an ICS payload, before recurrence
// expansion.
type ParsedEvent struct {
	Source Source

	UID string

	Summary    string
	Location   string
	Discipline string
	URL        string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID (if present) in event's own timezone
	IsOverride bool       // true if this VEVENT overrides one recurring instance
}

// ParseICS parses a single ICS payload into a list of ParsedEvent.
//
//   - Timezones come from the library's TZID handling.
//   - All-day events are detected from the DTSTART value format.
//   - RRULE/EXDATE/RECURRENCE-ID are recorded; Expand turns them into events.
//   - A VEVENT that cannot be read is logged and skipped.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			appLog.Error("ics vevent skipped", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent
	out.Source = src

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyUrl); p != nil {
		out.URL = strings.TrimSpace(p.Value)
	}
	// The first category is the discipline; further ones are tags we ignore.
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		first, _, _ := strings.Cut(p.Value, ",")
		out.Discipline = strings.TrimSpace(first)
	}

	dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStartProp == nil {
		return out, errors.New("missing DTSTART")
	}
	if params := dtStartProp.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
	}
	if !strings.Contains(dtStartProp.Value, "T") {
		out.AllDay = true
	}

	var err error
	if out.AllDay {
		out.Start, err = ve.GetAllDayStartAt()
	} else {
		out.Start, err = ve.GetStartAt()
	}
	if err != nil {
		return out, err
	}

	end, err := ve.GetEndAt()
	switch {
	case err == nil && end.After(out.Start):
		out.End = end
	case out.AllDay:
		out.End = out.Start.AddDate(0, 0, 1)
	default:
		out.End = out.Start
	}

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, out.Start.Location()); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if ridProp := ve.GetProperty(ical.ComponentPropertyRecurrenceId); ridProp != nil {
		if t, err := parseICSTime(ridProp.Value, out.Start.Location()); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

// parseICSTime parses a basic ICS date/date-time string. Floating values are
// read in loc, which callers set to the event's own start location.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if loc == nil {
		loc = time.Local
	}

	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
