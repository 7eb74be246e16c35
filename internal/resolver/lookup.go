package resolver

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Interrogative templates that usually wrap a title. Applied to the
// English-normalized question, lowercased, with an optional trailing "?".
var lookupPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?:what\s+is|what's)\s+(.+?)\??$`),
	regexp.MustCompile(`^who\s+is\s+(.+?)\??$`),
	regexp.MustCompile(`^who\s+wrote\s+(.+?)\??$`),
	regexp.MustCompile(`^tell\s+me\s+about\s+(.+?)\??$`),
	regexp.MustCompile(`^do\s+you\s+know\s+anything\s+about\s+(.+?)\??$`),
	regexp.MustCompile(`^what\s+can\s+you\s+tell\s+me\s+about\s+(.+?)\??$`),
}

const shortNumericMax = 10

// ExtractLookupPhrase pulls a probable title out of a question. Template
// matches return the captured tail; short strings containing a digit are
// returned whole, which handles numeric titles like "1984" asked bare.
func ExtractLookupPhrase(text string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return "", false
	}
	for _, p := range lookupPatterns {
		if m := p.FindStringSubmatch(t); m != nil {
			phrase := strings.TrimSpace(m[1])
			if phrase != "" {
				return phrase, true
			}
		}
	}
	if utf8.RuneCountInString(t) <= shortNumericMax && strings.ContainsAny(t, "0123456789") {
		return t, true
	}
	return "", false
}
