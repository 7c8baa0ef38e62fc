// Package slug derives lowercase, diacritic-free identifiers from free text.
// The portal uses slugs as stable keys for dashboard documentation views and
// for matching CSV header cells to canonical field names.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make converts input to a slug: diacritics stripped, lowercased, runs of
// non-alphanumeric characters collapsed to a single underscore, leading and
// trailing underscores trimmed. Returns "" when nothing survives.
func Make(input string) string {
	base, _, err := transform.String(stripDiacritics, input)
	if err != nil {
		base = input
	}
	base = strings.ToLower(base)

	var b strings.Builder
	pendingSep := false
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// MakeOr is Make with a fallback for inputs that slug to nothing.
func MakeOr(input, fallback string) string {
	if s := Make(input); s != "" {
		return s
	}
	return fallback
}
