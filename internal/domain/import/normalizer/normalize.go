// Package normalizer canonicalizes free-text names for catalog comparison and
// hosts the persisted manual-match store keyed by those canonical forms.
package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD and removes combining marks, so "Azúcar" and
// "AZUCAR" collapse to the same form.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a name for comparison: lowercase, diacritics
// stripped, runs of anything outside [a-z0-9] collapsed to a single space,
// trimmed. Idempotent.
func Normalize(s string) string {
	lowered := strings.ToLower(s)

	stripped, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		stripped = lowered
	}

	var b strings.Builder
	b.Grow(len(stripped))
	pendingSpace := false
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		} else {
			pendingSpace = true
		}
	}
	return b.String()
}

// Tokens normalizes and splits into whitespace-delimited tokens.
func Tokens(s string) []string {
	normalized := Normalize(s)
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}
