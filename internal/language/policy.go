// Package language decides which language a turn is answered in. The
// external detector is unreliable on short, code-mixed input, so a lexical
// heuristic corrects its dominant failure mode: Romanian misread as another
// Romance language.
package language

import "strings"

// Detector is the external language-identification service.
type Detector interface {
	// Detect returns an ISO 639-1 code, or "unknown" when identification
	// fails.
	Detect(text string) string
}

// Languages the detector commonly confuses with Romanian.
var confusableWithRomanian = map[string]struct{}{
	"it": {}, "es": {}, "pt": {}, "fr": {},
}

// Short everyday Romanian words and phrases. Substring match on the lowered
// text, so multiword hints like "te rog" work too.
var romanianHints = []string{
	"îmi", "imi", "poți", "poti", "te rog", "mulțumesc", "multumesc",
	"carte", "despre", "vreau", "dragoni", "magie",
	"ce este", "spune-mi", "spunemi", "știi", "stii",
	"bună", "buna", "salut",
}

// Resolve applies the override policy to a detector verdict. A confusable
// verdict on text with Romanian hints becomes "ro"; an empty or unknown
// verdict defaults to "en"; anything else passes through.
func Resolve(text, detected string) string {
	if detected == "" || detected == "unknown" {
		return "en"
	}
	if _, confusable := confusableWithRomanian[detected]; confusable && LooksRomanian(text) {
		return "ro"
	}
	return detected
}

// LooksRomanian reports whether the text carries Romanian lexical hints:
// any Romanian diacritic, or any hint word.
func LooksRomanian(text string) bool {
	t := strings.ToLower(text)
	if strings.ContainsAny(t, "ăâîșț") {
		return true
	}
	for _, h := range romanianHints {
		if strings.Contains(t, h) {
			return true
		}
	}
	return false
}
