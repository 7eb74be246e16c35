// Package resolver maps free text onto the closed title vocabulary. It never
// guesses: when every stage misses, the caller gets absent and moves on to
// thematic retrieval.
package resolver

import (
	"regexp"
	"strings"

	"bookmind/internal/catalog"
	"bookmind/internal/textnorm"
)

// Fuzzy-stage cutoffs. Each sub-stage has its own acceptance ratio; the
// relaxed raw-text pass tolerates more noise because it still has the full
// alias key to anchor against.
const (
	cutoffNormVsAlias  = 0.82
	cutoffRawVsAlias   = 0.75
	cutoffNgramVsAlias = 0.80
	cutoffNormVsTitle  = 0.82
)

type aliasKey struct {
	key   string
	title string
}

// Resolver holds precomputed matching forms for the catalog and alias table.
// Read-only after construction, safe for concurrent use.
type Resolver struct {
	titles        []string
	titlePatterns []*regexp.Regexp
	normTitles    []string
	aliases       []aliasKey
}

// New precompiles word-boundary patterns for every title and normalized keys
// for every alias, preserving catalog and table order.
func New(cat *catalog.Catalog, aliases *catalog.AliasTable) *Resolver {
	titles := cat.Titles()
	r := &Resolver{
		titles:        titles,
		titlePatterns: make([]*regexp.Regexp, len(titles)),
		normTitles:    make([]string, len(titles)),
	}
	for i, t := range titles {
		r.titlePatterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(t)) + `\b`)
		r.normTitles[i] = textnorm.Normalize(t)
	}
	for _, e := range aliases.Entries() {
		r.aliases = append(r.aliases, aliasKey{key: textnorm.Normalize(e.Match), title: e.Title})
	}
	return r
}

// Resolve tries each candidate text in order and returns the first title any
// of them resolves to. Absent means no stage matched anywhere.
func (r *Resolver) Resolve(texts ...string) (string, bool) {
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if title, ok := r.resolveOne(text); ok {
			return title, true
		}
	}
	return "", false
}

// resolveOne runs the staged match for a single text. Stages are strictly
// ordered and the first hit wins.
func (r *Resolver) resolveOne(text string) (string, bool) {
	lower := strings.ToLower(text)

	// Stage 1: exact phrase at a word boundary, catalog order.
	for i, pat := range r.titlePatterns {
		if pat.MatchString(lower) {
			return r.titles[i], true
		}
	}

	norm := textnorm.Normalize(text)
	if norm != "" {
		// Stage 2: alias key contained in the normalized text, table order.
		// No longest-match rule: the first entry wins.
		for _, a := range r.aliases {
			if a.key != "" && strings.Contains(norm, a.key) {
				return a.title, true
			}
		}

		// Stage 3: normalized title contained in the normalized text.
		for i, nt := range r.normTitles {
			if nt != "" && strings.Contains(norm, nt) {
				return r.titles[i], true
			}
		}
	}

	return r.resolveFuzzy(lower, norm)
}

// resolveFuzzy is the last-resort stage. Sub-stages run in fixed priority and
// the first one producing a match above its cutoff short-circuits the rest.
func (r *Resolver) resolveFuzzy(lower, norm string) (string, bool) {
	if title, ok := r.bestAlias(norm, cutoffNormVsAlias); ok {
		return title, true
	}
	if title, ok := r.bestAlias(lower, cutoffRawVsAlias); ok {
		return title, true
	}
	if title, ok := r.bestNgramAlias(lower); ok {
		return title, true
	}
	return r.bestTitle(norm, cutoffNormVsTitle)
}

// bestAlias returns the alias whose key scores highest against the probe,
// provided it reaches the cutoff. Ties keep the earlier table entry.
func (r *Resolver) bestAlias(probe string, cutoff float64) (string, bool) {
	if probe == "" {
		return "", false
	}
	bestScore := 0.0
	bestTitle := ""
	for _, a := range r.aliases {
		if a.key == "" {
			continue
		}
		if score := textnorm.Ratio(probe, a.key); score >= cutoff && score > bestScore {
			bestScore = score
			bestTitle = a.title
		}
	}
	return bestTitle, bestTitle != ""
}

// bestNgramAlias slides 2-, 3-, and 4-token windows across the text and
// scores each window's normalized form against the alias keys. Catches a
// title phrase buried inside a longer question.
func (r *Resolver) bestNgramAlias(lower string) (string, bool) {
	tokens := textnorm.Tokenize(lower)
	bestScore := 0.0
	bestTitle := ""
	for size := 2; size <= 4; size++ {
		if len(tokens) < size {
			break
		}
		for i := 0; i+size <= len(tokens); i++ {
			gram := textnorm.Normalize(strings.Join(tokens[i:i+size], " "))
			if gram == "" {
				continue
			}
			for _, a := range r.aliases {
				if a.key == "" {
					continue
				}
				if score := textnorm.Ratio(gram, a.key); score >= cutoffNgramVsAlias && score > bestScore {
					bestScore = score
					bestTitle = a.title
				}
			}
		}
	}
	return bestTitle, bestTitle != ""
}

// bestTitle scores the normalized text against every normalized title.
func (r *Resolver) bestTitle(norm string, cutoff float64) (string, bool) {
	if norm == "" {
		return "", false
	}
	bestScore := 0.0
	bestTitle := ""
	for i, nt := range r.normTitles {
		if nt == "" {
			continue
		}
		if score := textnorm.Ratio(norm, nt); score >= cutoff && score > bestScore {
			bestScore = score
			bestTitle = r.titles[i]
		}
	}
	return bestTitle, bestTitle != ""
}
