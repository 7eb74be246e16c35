package language

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// LinguaDetector identifies languages with an offline statistical model.
// Restricting the candidate set to the languages we actually see keeps the
// classifier sharper on short input.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector over the supported and commonly
// confused languages.
func NewLinguaDetector() *LinguaDetector {
	languages := []lingua.Language{
		lingua.English,
		lingua.Romanian,
		lingua.Italian,
		lingua.Spanish,
		lingua.Portuguese,
		lingua.French,
		lingua.German,
	}
	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			Build(),
	}
}

// Detect returns the lowercase ISO 639-1 code, or "unknown".
func (d *LinguaDetector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return "unknown"
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "unknown"
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
