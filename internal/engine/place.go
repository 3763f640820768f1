package engine

import (
	"fmt"
	"regexp"
	"strings"

	appLog "agenda/internal/log"
	"agenda/internal/model"
)

// RawPlace is the classified form of a raw location field. The set of
// implementations is closed: NoPlace, PlainText, URLText, FormulaText and
// StructuredPlace.
type RawPlace interface {
	rawPlace()
}

// NoPlace is an absent location.
type NoPlace struct{}

// PlainText is a free-text location such as "Teatro Jovellanos".
type PlainText string

// URLText is a location given only as a link.
type URLText string

// FormulaText is a spreadsheet =HYPERLINK("<url>","<label>") cell.
type FormulaText struct {
	URL   string
	Label string
}

// StructuredPlace is a location that arrived already normalized.
type StructuredPlace model.Place

func (NoPlace) rawPlace()         {}
func (PlainText) rawPlace()       {}
func (URLText) rawPlace()         {}
func (FormulaText) rawPlace()     {}
func (StructuredPlace) rawPlace() {}

var hyperlinkRe = regexp.MustCompile(`(?i)=HYPERLINK\("([^"]+)",\s*"([^"]+)"\)`)

// ClassifyPlace applies the location precedence rules: structured value,
// formula anywhere in the text, "http" prefix, then plain text.
func ClassifyPlace(f model.PlaceField) RawPlace {
	if p, ok := f.Structured(); ok {
		return StructuredPlace(p)
	}
	if f.IsZero() {
		return NoPlace{}
	}
	raw := f.Text()
	if m := hyperlinkRe.FindStringSubmatch(raw); m != nil {
		return FormulaText{URL: m[1], Label: m[2]}
	}
	if strings.HasPrefix(raw, "http") {
		return URLText(raw)
	}
	return PlainText(raw)
}

// ResolvePlace turns a raw location field into a Place. It never fails: a
// location that cannot be understood resolves to an empty Place.
func ResolvePlace(f model.PlaceField) (p model.Place) {
	defer func() {
		if r := recover(); r != nil {
			appLog.Error("place resolve failed", fmt.Errorf("panic: %v", r), "raw", f.Raw())
			p = model.Place{}
		}
	}()
	return placeOf(ClassifyPlace(f))
}

func placeOf(raw RawPlace) model.Place {
	switch v := raw.(type) {
	case StructuredPlace:
		return model.Place(v)
	case FormulaText:
		return model.Place{Name: Sanitize(v.Label), URL: v.URL}
	case URLText:
		return model.Place{URL: string(v)}
	case PlainText:
		return model.Place{Name: Sanitize(string(v))}
	default:
		return model.Place{}
	}
}
