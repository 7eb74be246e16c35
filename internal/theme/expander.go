// Package theme broadens thematic questions into enriched retrieval queries.
// Used only after strict title resolution fails.
package theme

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"bookmind/internal/textnorm"
)

const maxVariants = 3

// Synonyms maps an English theme word to retrieval synonyms.
var defaultSynonyms = map[string][]string{
	"friendship": {"friends", "bond", "companionship", "ally"},
	"magic":      {"wizardry", "sorcery", "magical", "fantasy"},
	"love":       {"romance", "affection"},
	"war":        {"battle", "conflict"},
	"freedom":    {"liberty", "escape"},
	"society":    {"social", "community", "class"},
	"adventure":  {"quest", "journey"},
}

// Romanian theme words that survive translation, mapped to English seeds.
var defaultSeedMap = map[string][]string{
	"prieteni":  {"friendship", "friends"},
	"prietenie": {"friendship"},
	"magie":     {"magic", "fantasy"},
	"iubire":    {"love", "romance"},
	"dragoste":  {"love", "romance"},
	"razboi":    {"war", "battle"},
	"război":    {"war", "battle"},
	"libertate": {"freedom"},
	"societate": {"society", "social"},
	"aventura":  {"adventure"},
	"aventură":  {"adventure"},
}

// Canonical theme list used to pick the "important" subset for variant 2.
var canonicalThemes = map[string]struct{}{
	"magic": {}, "friendship": {}, "war": {}, "love": {},
	"freedom": {}, "society": {}, "adventure": {},
}

// Expander produces up to three deduplicated query variants per question.
// Read-only after construction.
type Expander struct {
	synonyms map[string][]string
	seedMap  map[string][]string
}

// NewExpander uses the built-in theme tables.
func NewExpander() *Expander {
	return &Expander{synonyms: defaultSynonyms, seedMap: defaultSeedMap}
}

// tablesFile is the YAML shape for externally curated theme tables.
type tablesFile struct {
	Synonyms map[string][]string `yaml:"synonyms"`
	Seeds    map[string][]string `yaml:"seeds"`
}

// NewExpanderFromFile loads synonym and seed tables from YAML, falling back
// to the built-in table for any section left empty.
func NewExpanderFromFile(path string) (*Expander, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme tables: %w", err)
	}
	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse theme tables %s: %w", path, err)
	}
	e := NewExpander()
	if len(f.Synonyms) > 0 {
		e.synonyms = f.Synonyms
	}
	if len(f.Seeds) > 0 {
		e.seedMap = f.Seeds
	}
	return e, nil
}

// Expand builds the retrieval query variants:
//  1. every seed term (tokens + cross-language seeds + synonyms), sorted;
//  2. only the important theme seeds, sorted; omitted when empty;
//  3. the original trimmed lowercased text.
//
// Variants are deduplicated in order and capped at three. Alphabetical
// sorting keeps the output independent of token order in the question.
func (e *Expander) Expand(text string) []string {
	base := strings.ToLower(strings.TrimSpace(text))
	tokens := textnorm.Tokenize(base)

	seeds := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seeds[t] = struct{}{}
	}
	for _, t := range tokens {
		for _, en := range e.seedMap[t] {
			seeds[en] = struct{}{}
		}
	}
	// Synonyms expand the seed set in place; iterate a snapshot so newly
	// added synonyms do not recursively expand.
	for _, s := range sortedKeys(seeds) {
		for _, syn := range e.synonyms[s] {
			seeds[syn] = struct{}{}
		}
	}

	var variants []string
	if len(seeds) > 0 {
		variants = append(variants, strings.Join(sortedKeys(seeds), " "))
	}

	var important []string
	for s := range seeds {
		_, canonical := canonicalThemes[s]
		_, synKey := e.synonyms[s]
		if canonical || synKey {
			important = append(important, s)
		}
	}
	if len(important) > 0 {
		sort.Strings(important)
		variants = append(variants, strings.Join(important, " "))
	}

	if base != "" {
		variants = append(variants, base)
	}

	out := make([]string, 0, maxVariants)
	for _, v := range variants {
		v = strings.TrimSpace(v)
		if v == "" || contains(out, v) {
			continue
		}
		out = append(out, v)
		if len(out) == maxVariants {
			break
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
