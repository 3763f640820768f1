package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"agenda/internal/model"
)

// DecodeOptions carries the context needed to turn a payload into events.
type DecodeOptions struct {
	// Location interprets dates without an explicit zone and is the display
	// zone of expanded ICS events.
	Location *time.Location
	// RangeStart / RangeEnd bound ICS recurrence expansion.
	RangeStart time.Time
	RangeEnd   time.Time
}

// Decode dispatches on the source format.
func Decode(src Source, body []byte, opts DecodeOptions) ([]model.Event, error) {
	switch src.Format {
	case FormatJSON, "":
		return DecodeJSON(src, body, opts.Location)
	case FormatICS:
		parsed, err := ParseICS(src, body)
		if err != nil {
			return nil, err
		}
		res, err := Expand(parsed, ExpandConfig{
			DisplayLocation: opts.Location,
			RangeStart:      opts.RangeStart,
			RangeEnd:        opts.RangeEnd,
		})
		if err != nil {
			return nil, err
		}
		return res.Events, nil
	default:
		return nil, fmt.Errorf("unknown feed format %q", src.Format)
	}
}

// Validate checks that body has the shape its format requires: a JSON array
// of records, or a parseable calendar. It is meant as a Fetcher validator so
// a broken upstream response never overwrites the last good cached copy.
func Validate(src Source, body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return errors.New("empty body")
	}
	switch src.Format {
	case FormatJSON, "":
		var records []json.RawMessage
		if err := json.Unmarshal(body, &records); err != nil {
			return fmt.Errorf("not a JSON array: %w", err)
		}
		return nil
	case FormatICS:
		if _, err := ical.ParseCalendar(bytes.NewReader(body)); err != nil {
			return fmt.Errorf("not a calendar: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown feed format %q", src.Format)
	}
}
