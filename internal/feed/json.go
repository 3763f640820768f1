package feed

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	appLog "agenda/internal/log"
	"agenda/internal/model"
)

// wireEvent is one record of the JSON events endpoint. Field names follow
// the upstream spreadsheet export.
type wireEvent struct {
	ID         json.RawMessage  `json:"id"`
	Title      string           `json:"evento"`
	Discipline string           `json:"disciplina"`
	Start      string           `json:"fecha"`
	End        string           `json:"fecha_fin"`
	Time       string           `json:"hora"`
	Place      model.PlaceField `json:"lugar"`
	Link       string           `json:"link"`
}

// dateLayouts are tried in order when parsing feed dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
	"02/01/2006",
}

// DecodeJSON decodes a JSON array of events. A record that does not decode
// is skipped and logged; only a body that is not a JSON array fails.
func DecodeJSON(src Source, body []byte, loc *time.Location) ([]model.Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty JSON body")
	}
	if loc == nil {
		loc = time.Local
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode events array: %w", err)
	}

	events := make([]model.Event, 0, len(records))
	skipped := 0
	for i, raw := range records {
		var w wireEvent
		if err := json.Unmarshal(raw, &w); err != nil {
			skipped++
			appLog.Error("feed record skipped", err, "id", src.ID, "index", i)
			continue
		}
		events = append(events, w.toEvent(src, loc))
	}

	appLog.Info("json decode completed", "id", src.ID, "event_count", len(events), "skipped", skipped)
	return events, nil
}

func (w wireEvent) toEvent(src Source, loc *time.Location) model.Event {
	ev := model.Event{
		ID:         rawID(w.ID),
		Title:      w.Title,
		Discipline: w.Discipline,
		StartDate:  parseDate(w.Start, loc),
		EndDate:    parseDate(w.End, loc),
		Time:       w.Time,
		Place:      w.Place,
		Link:       strings.TrimSpace(w.Link),
	}
	if ev.ID == "" {
		ev.ID = syntheticID(src.ID, w.Start, w.Title)
	}
	return ev
}

// rawID accepts string and numeric ids.
func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// syntheticID derives a stable id for records that arrive without one.
func syntheticID(sourceID, start, title string) string {
	sum := sha256.Sum256([]byte(sourceID + "\x00" + start + "\x00" + title))
	return sourceID + "-" + hex.EncodeToString(sum[:6])
}

// parseDate returns nil for blank or unparseable values: such events are
// undated rather than dropped.
func parseDate(s string, loc *time.Location) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t
		}
	}
	appLog.Debug("unparseable feed date treated as undated", "value", s)
	return nil
}
