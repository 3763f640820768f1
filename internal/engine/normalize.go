package engine

import (
	"fmt"
	"net/url"
	"strings"

	appLog "agenda/internal/log"
	"agenda/internal/model"
)

// Normalize builds the display shape of an event. It is pure and idempotent:
// normalizing EventOf(result) yields the same result.
func (e *Engine) Normalize(ev model.Event) model.DisplayEvent {
	title := Sanitize(ev.Title)
	if title == "" {
		title = FallbackTitle
	}

	place := ResolvePlace(ev.Place)

	infoLink := ev.Link
	if infoLink == "" {
		infoLink = NoLink
	}

	return model.DisplayEvent{
		ID:         ev.ID,
		Title:      title,
		Time:       Sanitize(ev.Time),
		Discipline: e.Discipline(ev.Discipline),
		Place:      place,
		MapLink:    mapLink(place),
		InfoLink:   infoLink,
		StartDate:  ev.StartDate,
		EndDate:    ev.EndDate,
	}
}

// NormalizeAll normalizes each event independently. A record whose
// normalization panics is replaced by a minimal display value rather than
// aborting the batch.
func (e *Engine) NormalizeAll(events []model.Event) []model.DisplayEvent {
	out := make([]model.DisplayEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, e.safeNormalize(ev))
	}
	return out
}

func (e *Engine) safeNormalize(ev model.Event) (d model.DisplayEvent) {
	defer func() {
		if r := recover(); r != nil {
			appLog.Error("normalize failed", fmt.Errorf("panic: %v", r), "id", ev.ID)
			d = model.DisplayEvent{
				ID:         ev.ID,
				Title:      FallbackTitle,
				Discipline: FallbackDiscipline,
				MapLink:    NoLink,
				InfoLink:   NoLink,
				StartDate:  ev.StartDate,
				EndDate:    ev.EndDate,
			}
		}
	}()
	return e.Normalize(ev)
}

// EventOf converts a display value back into an Event carrying the already
// normalized fields.
func EventOf(d model.DisplayEvent) model.Event {
	link := d.InfoLink
	if link == NoLink {
		link = ""
	}
	return model.Event{
		ID:         d.ID,
		Title:      d.Title,
		Discipline: d.Discipline,
		StartDate:  d.StartDate,
		EndDate:    d.EndDate,
		Time:       d.Time,
		Place:      model.StructuredPlace(d.Place),
		Link:       link,
	}
}

func mapLink(p model.Place) string {
	if p.URL != "" {
		return p.URL
	}
	if p.Name != "" {
		return MapSearchURL + encodeURIComponent(p.Name)
	}
	return NoLink
}

// uriComponentUnescapes undoes the QueryEscape choices that differ from
// JavaScript's encodeURIComponent.
var uriComponentUnescapes = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func encodeURIComponent(s string) string {
	return uriComponentUnescapes.Replace(url.QueryEscape(s))
}
