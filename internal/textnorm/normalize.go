// Package textnorm reduces free text to comparable keys for title matching.
// Every matching stage in the resolver goes through these functions, so they
// must stay pure and deterministic.
package textnorm

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldAccents decomposes to NFD, drops combining marks, and recomposes.
// Turns "război" into "razboi" without touching base letters.
var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases text and strips diacritics while preserving spacing and
// punctuation. Used where word boundaries still matter (moderation patterns).
func Fold(text string) string {
	folded, _, err := transform.String(foldAccents, strings.ToLower(text))
	if err != nil {
		return strings.ToLower(text)
	}
	return folded
}

// Normalize produces the matching key: lowercase ASCII letters and digits
// only, every other rune removed outright. "To Kill a Mockingbird" and
// "ToKillAMockingbird" normalize to the same key. Empty input yields "".
func Normalize(text string) string {
	folded := Fold(text)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokenize splits text into lowercase words. Letters keep their diacritics so
// that seed-table keys like "război" still match their tokens.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// Ratio returns an edit-distance similarity in [0, 1]. Two empty strings are
// identical (1.0).
func Ratio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1.0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(d)/float64(longest)
}
