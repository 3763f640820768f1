package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"agenda/internal/model"
)

func TestResolvePlace(t *testing.T) {
	tests := []struct {
		name string
		in   model.PlaceField
		want model.Place
	}{
		{
			name: "absent",
			in:   model.PlaceField{},
			want: model.Place{},
		},
		{
			name: "formula",
			in:   model.PlaceText(`=HYPERLINK("https://x.test","Plaza Mayor")`),
			want: model.Place{Name: "Plaza Mayor", URL: "https://x.test"},
		},
		{
			name: "formula lowercase with spacing",
			in:   model.PlaceText("=hyperlink(\"https://x.test/a?b=1\",   \"  Plaza \x01 Mayor \")"),
			want: model.Place{Name: "Plaza Mayor", URL: "https://x.test/a?b=1"},
		},
		{
			name: "formula inside text",
			in:   model.PlaceText(`Ver =HYPERLINK("https://x.test","Laboral")`),
			want: model.Place{Name: "Laboral", URL: "https://x.test"},
		},
		{
			name: "bare url",
			in:   model.PlaceText("https://y.test"),
			want: model.Place{URL: "https://y.test"},
		},
		{
			name: "uppercase scheme is text",
			in:   model.PlaceText("HTTPS://y.test"),
			want: model.Place{Name: "HTTPS://y.test"},
		},
		{
			name: "plain text",
			in:   model.PlaceText("Calle Uría 3"),
			want: model.Place{Name: "Calle Uría 3"},
		},
		{
			name: "formula with empty url is text",
			in:   model.PlaceText(`=HYPERLINK("","Sala")`),
			want: model.Place{Name: `=HYPERLINK("","Sala")`},
		},
		{
			name: "structured passes through untouched",
			in:   model.StructuredPlace(model.Place{Name: "  Teatro\x00 ", URL: "u"}),
			want: model.Place{Name: "  Teatro\x00 ", URL: "u"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePlace(tt.in))
		})
	}
}

func TestClassifyPlace(t *testing.T) {
	assert.Equal(t, NoPlace{}, ClassifyPlace(model.PlaceField{}))
	assert.Equal(t, PlainText("Teatro"), ClassifyPlace(model.PlaceText("Teatro")))
	assert.Equal(t, URLText("http://a"), ClassifyPlace(model.PlaceText("http://a")))
	assert.Equal(t,
		FormulaText{URL: "http://a", Label: "A"},
		ClassifyPlace(model.PlaceText(`=HYPERLINK("http://a","A")`)),
	)
	assert.Equal(t,
		StructuredPlace{Name: "A"},
		ClassifyPlace(model.StructuredPlace(model.Place{Name: "A"})),
	)
}
