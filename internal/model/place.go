package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Place is the normalized location of an event. Both fields may be empty.
type Place struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PlaceField is the raw location field of an Event. Upstream spreadsheets
// deliver it as plain text, a URL, a =HYPERLINK(...) formula, or an already
// structured object; PlaceField keeps whichever form arrived.
type PlaceField struct {
	text       string
	structured *Place
}

// PlaceText wraps a raw textual location.
func PlaceText(s string) PlaceField {
	return PlaceField{text: s}
}

// StructuredPlace wraps a pre-normalized location.
func StructuredPlace(p Place) PlaceField {
	return PlaceField{structured: &p}
}

// IsZero reports whether the field is absent.
func (f PlaceField) IsZero() bool {
	return f.structured == nil && f.text == ""
}

// Text returns the raw textual value, or "" for structured places.
func (f PlaceField) Text() string {
	return f.text
}

// Structured returns the structured value, if the field holds one.
func (f PlaceField) Structured() (Place, bool) {
	if f.structured == nil {
		return Place{}, false
	}
	return *f.structured, true
}

// Raw returns the text used for free-text search: the raw string, or the
// name and URL of a structured place joined by a space.
func (f PlaceField) Raw() string {
	if f.structured != nil {
		return strings.TrimSpace(f.structured.Name + " " + f.structured.URL)
	}
	return f.text
}

// UnmarshalJSON accepts a string, an object with name/url (or the feed's
// "nombre"), or null. Any other shape leaves the field empty instead of
// failing the surrounding document.
func (f *PlaceField) UnmarshalJSON(data []byte) error {
	*f = PlaceField{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		f.text = s
	case '{':
		var obj struct {
			Name   *string `json:"name"`
			Nombre *string `json:"nombre"`
			URL    *string `json:"url"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil
		}
		if obj.Name == nil && obj.Nombre == nil && obj.URL == nil {
			return nil
		}
		var p Place
		switch {
		case obj.Name != nil:
			p.Name = *obj.Name
		case obj.Nombre != nil:
			p.Name = *obj.Nombre
		}
		if obj.URL != nil {
			p.URL = *obj.URL
		}
		f.structured = &p
	}
	return nil
}

// MarshalJSON writes the field back in the form it arrived.
func (f PlaceField) MarshalJSON() ([]byte, error) {
	if f.structured != nil {
		return json.Marshal(f.structured)
	}
	if f.text == "" {
		return []byte("null"), nil
	}
	return json.Marshal(f.text)
}
