// Package moderation screens user input for abusive language before any
// model call happens. A fast lexical blacklist runs first; an optional
// external classifier catches what the word list misses.
package moderation

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"bookmind/internal/textnorm"
)

// Blacklisted words, kept in their ASCII-folded form so that both "proastă"
// and "proasta" hit the same pattern.
var blacklist = []string{
	// Romanian
	"prost", "proasta", "tampit", "idiot", "idiota", "bou",
	"fraier", "fraiero", "handicapat", "handicapata", "imbecil", "imbecila",
	"cretin", "cretina", "panarama",
	// English
	"stupid", "moron", "dumb", "retard", "retarded", "jerk",
	"asshole", "bastard", "loser", "dickhead",
}

var blacklistPattern = regexp.MustCompile(`\b(` + strings.Join(blacklist, "|") + `)\b`)

// Classifier is the external moderation service.
type Classifier interface {
	// Flag reports whether the text should be blocked.
	Flag(ctx context.Context, text string) (bool, error)
}

// Filter combines the blacklist with an optional classifier.
type Filter struct {
	classifier Classifier
	logger     *zap.Logger
}

// NewFilter builds a filter. A nil classifier means blacklist-only.
func NewFilter(classifier Classifier, logger *zap.Logger) *Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{classifier: classifier, logger: logger}
}

// IsOffensive screens one input. Blacklist hits never reach the network.
// A classifier failure is treated as not offensive: blocking legitimate
// users over a service hiccup is the worse outcome.
func (f *Filter) IsOffensive(ctx context.Context, text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	if blacklistPattern.MatchString(textnorm.Fold(t)) {
		return true
	}
	if f.classifier == nil {
		return false
	}
	flagged, err := f.classifier.Flag(ctx, t)
	if err != nil {
		f.logger.Warn("moderation classifier unavailable, allowing input", zap.Error(err))
		return false
	}
	return flagged
}
