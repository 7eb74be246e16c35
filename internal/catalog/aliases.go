package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AliasEntry maps an alternate phrasing (translation, nickname, common
// misspelling) to a canonical title. Match is compared through the
// normalized-key form.
type AliasEntry struct {
	Match string `yaml:"match"`
	Title string `yaml:"title"`
}

// AliasTable is an ordered alias list. Order is the only tie-break: when two
// aliases both match a text, the earlier entry wins. There is deliberately no
// longest-match rule.
type AliasTable struct {
	entries []AliasEntry
}

// NewAliasTable validates and wraps an ordered entry list.
func NewAliasTable(entries []AliasEntry) (*AliasTable, error) {
	out := make([]AliasEntry, 0, len(entries))
	for i, e := range entries {
		match := strings.TrimSpace(e.Match)
		title := strings.TrimSpace(e.Title)
		if match == "" || title == "" {
			return nil, fmt.Errorf("alias entry %d is incomplete (match=%q title=%q)", i, e.Match, e.Title)
		}
		out = append(out, AliasEntry{Match: match, Title: title})
	}
	return &AliasTable{entries: out}, nil
}

// LoadAliases reads a YAML list of {match, title} pairs, preserving file order.
func LoadAliases(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias table: %w", err)
	}
	var entries []AliasEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse alias table %s: %w", path, err)
	}
	return NewAliasTable(entries)
}

// Entries returns the alias pairs in table order.
func (t *AliasTable) Entries() []AliasEntry {
	out := make([]AliasEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// DefaultAliases covers the stock catalog: short forms, a few known
// misspellings, and Romanian translations of the titles.
func DefaultAliases() *AliasTable {
	t, err := NewAliasTable([]AliasEntry{
		{Match: "nineteen eighty four", Title: "1984"},
		{Match: "harry potter", Title: "Harry Potter and the Philosopher's Stone"},
		{Match: "philosophers stone", Title: "Harry Potter and the Philosopher's Stone"},
		{Match: "sorcerers stone", Title: "Harry Potter and the Philosopher's Stone"},
		{Match: "hary poter", Title: "Harry Potter and the Philosopher's Stone"},
		{Match: "hobbit", Title: "The Hobbit"},
		{Match: "lord of the rings", Title: "The Lord of the Rings"},
		{Match: "stapanul inelelor", Title: "The Lord of the Rings"},
		{Match: "mockingbird", Title: "To Kill a Mockingbird"},
		{Match: "gatsby", Title: "The Great Gatsby"},
		{Match: "narnia", Title: "The Lion, the Witch and the Wardrobe"},
		{Match: "ferma animalelor", Title: "Animal Farm"},
		{Match: "minunata lume noua", Title: "Brave New World"},
		{Match: "mandrie si prejudecata", Title: "Pride and Prejudice"},
		{Match: "fahrenheit", Title: "Fahrenheit 451"},
		{Match: "hotul de carti", Title: "The Book Thief"},
		{Match: "nimic nou pe frontul de vest", Title: "All Quiet on the Western Front"},
	})
	if err != nil {
		panic(err) // static table, cannot fail
	}
	return t
}
