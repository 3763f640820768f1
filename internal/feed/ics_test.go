package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func icsBody(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

var sampleICS = icsBody(
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//agenda//test//ES",
	"BEGIN:VEVENT",
	"UID:single-1",
	"DTSTAMP:20240601T000000Z",
	"DTSTART:20240610T180000Z",
	"DTEND:20240610T200000Z",
	"SUMMARY:Noche de Jazz",
	"LOCATION:Teatro Jovellanos",
	"CATEGORIES:Música,Jazz",
	"URL:https://teatro.test/jazz",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:allday-1",
	"DTSTAMP:20240601T000000Z",
	"DTSTART;VALUE=DATE:20240701",
	"DTEND;VALUE=DATE:20240704",
	"SUMMARY:Feria del Libro",
	"CATEGORIES:Literatura",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:weekly-1",
	"DTSTAMP:20240601T000000Z",
	"DTSTART:20240603T170000Z",
	"DTEND:20240603T180000Z",
	"RRULE:FREQ=WEEKLY;COUNT=4",
	"EXDATE:20240610T170000Z",
	"SUMMARY:Taller",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:weekly-1",
	"DTSTAMP:20240601T000000Z",
	"RECURRENCE-ID:20240617T170000Z",
	"DTSTART:20240617T190000Z",
	"DTEND:20240617T200000Z",
	"SUMMARY:Taller (cambio de hora)",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"DTSTAMP:20240601T000000Z",
	"DTSTART:20240601T100000Z",
	"SUMMARY:Sin UID",
	"END:VEVENT",
	"END:VCALENDAR",
)

func TestParseICS(t *testing.T) {
	src := Source{ID: "ayto", URL: "https://ayto.test/agenda.ics", Format: FormatICS}

	parsed, err := ParseICS(src, sampleICS)
	require.NoError(t, err)
	require.Len(t, parsed, 4)

	single := parsed[0]
	assert.Equal(t, "single-1", single.UID)
	assert.Equal(t, "Música", single.Discipline)
	assert.Equal(t, "https://teatro.test/jazz", single.URL)
	assert.Equal(t, "Teatro Jovellanos", single.Location)
	assert.False(t, single.AllDay)

	allDay := parsed[1]
	assert.True(t, allDay.AllDay)
	assert.Equal(t, 3*24*time.Hour, allDay.End.Sub(allDay.Start))

	weekly := parsed[2]
	assert.Equal(t, "FREQ=WEEKLY;COUNT=4", weekly.RawRRule)
	require.Len(t, weekly.ExDates, 1)

	override := parsed[3]
	assert.True(t, override.IsOverride)
	require.NotNil(t, override.Recurrence)
	assert.Equal(t, time.Date(2024, 6, 17, 17, 0, 0, 0, time.UTC), override.Recurrence.UTC())
}

func TestParseICSRejectsBadPayloads(t *testing.T) {
	src := Source{ID: "ayto"}

	_, err := ParseICS(src, nil)
	require.Error(t, err)

	_, err = ParseICS(src, []byte("this is not a calendar\r\n"))
	require.Error(t, err)
}

func TestExpand(t *testing.T) {
	parsed, err := ParseICS(Source{ID: "ayto"}, sampleICS)
	require.NoError(t, err)

	res, err := Expand(parsed, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2024, 7, 31, 23, 59, 59, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, res.TruncatedEvents)
	require.Len(t, res.Events, 5)

	jazz := res.Events[0]
	assert.Equal(t, "single-1", jazz.ID)
	assert.Equal(t, "Noche de Jazz", jazz.Title)
	assert.Equal(t, "18:00", jazz.Time)
	require.NotNil(t, jazz.EndDate)
	assert.Equal(t, time.Date(2024, 6, 10, 20, 0, 0, 0, time.UTC), *jazz.EndDate)
	assert.Equal(t, "Teatro Jovellanos", jazz.Place.Text())
	assert.Equal(t, "https://teatro.test/jazz", jazz.Link)

	fair := res.Events[1]
	assert.Equal(t, "allday-1", fair.ID)
	assert.Empty(t, fair.Time)
	require.NotNil(t, fair.StartDate)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), *fair.StartDate)
	require.NotNil(t, fair.EndDate)
	assert.Equal(t, time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC), *fair.EndDate)

	assert.Equal(t, []string{
		"weekly-1@2024-06-03T17:00:00Z",
		"weekly-1@2024-06-17T17:00:00Z",
		"weekly-1@2024-06-24T17:00:00Z",
	}, []string{res.Events[2].ID, res.Events[3].ID, res.Events[4].ID})
	assert.Equal(t, "Taller (cambio de hora)", res.Events[3].Title)
	assert.Equal(t, "19:00", res.Events[3].Time)
	assert.Equal(t, "17:00", res.Events[4].Time)
}

func TestExpandWindow(t *testing.T) {
	parsed, err := ParseICS(Source{ID: "ayto"}, sampleICS)
	require.NoError(t, err)

	res, err := Expand(parsed, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "weekly-1@2024-06-17T17:00:00Z", res.Events[0].ID)

	_, err = Expand(parsed, ExpandConfig{
		RangeStart: time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
}

func TestExpandCapsOccurrences(t *testing.T) {
	daily := ParsedEvent{
		UID:      "daily",
		Summary:  "Diario",
		Start:    time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		RawRRule: "FREQ=DAILY",
	}

	res, err := Expand([]ParsedEvent{daily}, ExpandConfig{
		DisplayLocation:        time.UTC,
		RangeStart:             time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:               time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		MaxOccurrencesPerEvent: 5,
	})
	require.NoError(t, err)
	assert.Len(t, res.Events, 5)
	assert.Equal(t, []string{"daily"}, res.TruncatedEvents)
}

func TestTimeRangesOverlap(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 6, 1, h, 0, 0, 0, time.UTC) }

	tests := []struct {
		name         string
		aStart, aEnd time.Time
		bStart, bEnd time.Time
		want         bool
	}{
		{"inside", at(10), at(11), at(9), at(12), true},
		{"ends at window start", at(8), at(9), at(9), at(12), false},
		{"starts at window end", at(12), at(13), at(9), at(12), true},
		{"after window", at(13), at(14), at(9), at(12), false},
		{"instant at window start", at(9), at(9), at(9), at(12), true},
		{"instant before window", at(8), at(8), at(9), at(12), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, timeRangesOverlap(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
		})
	}
}
