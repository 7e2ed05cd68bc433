// Package normalize produces filesystem- and branch-safe identifiers from
// repository names that may contain arbitrary unicode.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// Slug converts an arbitrary name into a lowercase ascii-ish identifier usable
// as a directory name or log label. Diacritics are stripped via NFKD
// decomposition; runs of non-alphanumeric characters collapse to single dashes.
func Slug(name string) string {
	decomposed := lower.String(norm.NFKD.String(name))

	var b strings.Builder
	b.Grow(len(decomposed))
	lastDash := true // suppress leading dash
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark from decomposition, drop
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
