package engine

import "strings"

// extraAllowed lists the characters kept by Sanitize beyond printable ASCII.
// The set is tuned for Spanish event text and must not be widened: output is
// compared byte for byte with what the feed consumers already display.
const extraAllowed = "áéíóúÁÉÍÓÚñÑüÜ.,:;()¿?¡!/-\"'\n"

func allowed(r rune) bool {
	if r >= 0x20 && r <= 0x7E {
		return true
	}
	return strings.ContainsRune(extraAllowed, r)
}

// Sanitize strips everything outside the allow-list, replacing each run of
// disallowed characters with one space, then collapses whitespace and trims.
// Invalid UTF-8 counts as disallowed.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	inRun := false
	for _, r := range text {
		if allowed(r) {
			b.WriteRune(r)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteByte(' ')
			inRun = true
		}
	}

	// After the pass only ' ' and '\n' remain as whitespace.
	return strings.Join(strings.Fields(b.String()), " ")
}
