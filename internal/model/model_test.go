package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceFieldUnmarshal(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantText   string
		wantPlace  *Place
		wantIsZero bool
	}{
		{name: "null", in: `null`, wantIsZero: true},
		{name: "string", in: `"Teatro Campoamor"`, wantText: "Teatro Campoamor"},
		{name: "formula", in: `"=HYPERLINK(\"https://x.test\",\"Plaza\")"`, wantText: `=HYPERLINK("https://x.test","Plaza")`},
		{name: "object", in: `{"name":"Laboral","url":"https://l.test"}`, wantPlace: &Place{Name: "Laboral", URL: "https://l.test"}},
		{name: "spanish object", in: `{"nombre":"Niemeyer"}`, wantPlace: &Place{Name: "Niemeyer"}},
		{name: "unrelated object", in: `{"lat":43.5}`, wantIsZero: true},
		{name: "number", in: `12`, wantIsZero: true},
		{name: "array", in: `["a"]`, wantIsZero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f PlaceField
			require.NoError(t, json.Unmarshal([]byte(tt.in), &f))
			assert.Equal(t, tt.wantIsZero, f.IsZero())
			assert.Equal(t, tt.wantText, f.Text())
			p, ok := f.Structured()
			if tt.wantPlace == nil {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, *tt.wantPlace, p)
		})
	}
}

func TestPlaceFieldInsideDocumentNeverFails(t *testing.T) {
	var doc struct {
		ID    string     `json:"id"`
		Place PlaceField `json:"lugar"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","lugar":true}`), &doc))
	assert.Equal(t, "1", doc.ID)
	assert.True(t, doc.Place.IsZero())
}

func TestPlaceFieldRaw(t *testing.T) {
	assert.Equal(t, "Calle Uría 3", PlaceText("Calle Uría 3").Raw())
	assert.Equal(t, "Laboral https://l.test", StructuredPlace(Place{Name: "Laboral", URL: "https://l.test"}).Raw())
	assert.Equal(t, "", PlaceField{}.Raw())
}

func TestPlaceFieldMarshal(t *testing.T) {
	b, err := json.Marshal(PlaceText("Gijón"))
	require.NoError(t, err)
	assert.JSONEq(t, `"Gijón"`, string(b))

	b, err = json.Marshal(StructuredPlace(Place{Name: "A", URL: "u"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"A","url":"u"}`, string(b))

	b, err = json.Marshal(PlaceField{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestCriteriaKey(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	a := Criteria{DateFrom: &from, Disciplines: []string{"Cine", "Música"}, SearchText: " Jazz "}
	b := Criteria{DateFrom: &from, Disciplines: []string{"Música", "Cine", "Cine"}, SearchText: "jazz"}
	assert.Equal(t, a.Key(), b.Key())

	c := a
	c.Sort = true
	assert.NotEqual(t, a.Key(), c.Key())

	d := a
	d.DateFrom = nil
	assert.NotEqual(t, a.Key(), d.Key())
}

func TestCriteriaHelpers(t *testing.T) {
	var c Criteria
	assert.False(t, c.HasDateFilter())
	assert.Empty(t, c.DisciplineSet())

	to := time.Now()
	c.DateTo = &to
	c.Disciplines = []string{"Cine"}
	assert.True(t, c.HasDateFilter())
	assert.Contains(t, c.DisciplineSet(), "Cine")
}

func TestCountsTotal(t *testing.T) {
	assert.Equal(t, 0, Counts(nil).Total())
	assert.Equal(t, 3, Counts{"Música": 2, "Cine": 1}.Total())
}
