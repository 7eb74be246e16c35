package pipeline

import "strings"

// Canned terminal messages, authored in English and localized on the way
// out.
const (
	msgRephrase = "Your message contains inappropriate language. Please rephrase politely."
	msgOffTopic = "Please ask something related to books or stories."
	msgFallback = "Sorry, I don't have information about that. Please ask about a specific book title or describe the kind of story you want."
)

// On-topic markers in both supported languages. Romanian entries cover words
// that survive a partial translation of mixed input. Matched as substrings
// of the lowered text, so multiword entries work.
var onTopicKeywords = []string{
	// English
	"book", "novel", "read", "story", "recommend", "suggest",
	"magic", "war", "friendship", "freedom", "society", "fantasy",
	"adventure", "love", "romance", "dragon", "dragons",
	// Romanian
	"carte", "roman", "poveste", "recomanda", "recomandă", "sugereaza", "sugerează",
	"magie", "razboi", "război", "prietenie", "prieteni", "libertate", "societate",
	"aventura", "aventură", "iubire", "dragoni",
	// Intent phrasings
	"o carte", "o poveste", "citit", "vreau", "caut",
}

// onTopic is the last gate before the fallback: a question with none of the
// markers gets redirected instead of a "no information" answer.
func onTopic(text string) bool {
	t := strings.ToLower(text)
	for _, kw := range onTopicKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}
