// Package catalog holds the closed set of books the system can talk about:
// canonical titles, their stored summaries, and the curated alias table used
// by the resolver. Everything here is read-only after load and safe to share
// across concurrent requests.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Book is one catalog entry. Title is the primary key.
type Book struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Catalog is the fixed title set loaded once at startup.
type Catalog struct {
	books  []Book
	titles []string
}

// New builds a catalog from a book list. Titles must be unique and non-empty.
func New(books []Book) (*Catalog, error) {
	if len(books) == 0 {
		return nil, fmt.Errorf("catalog must contain at least one book")
	}
	seen := make(map[string]struct{}, len(books))
	c := &Catalog{books: make([]Book, 0, len(books)), titles: make([]string, 0, len(books))}
	for _, b := range books {
		title := strings.TrimSpace(b.Title)
		if title == "" {
			return nil, fmt.Errorf("catalog entry with empty title")
		}
		if _, dup := seen[title]; dup {
			return nil, fmt.Errorf("duplicate catalog title %q", title)
		}
		seen[title] = struct{}{}
		c.books = append(c.books, Book{Title: title, Summary: strings.TrimSpace(b.Summary)})
		c.titles = append(c.titles, title)
	}
	return c, nil
}

// Load reads a JSON list of {title, summary} objects.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var books []Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return New(books)
}

// Titles returns the canonical titles in catalog order.
func (c *Catalog) Titles() []string {
	out := make([]string, len(c.titles))
	copy(out, c.titles)
	return out
}

// Books returns the entries in catalog order.
func (c *Catalog) Books() []Book {
	out := make([]Book, len(c.books))
	copy(out, c.books)
	return out
}

// SummaryOf looks up a stored summary. Matching ignores casing and
// surrounding whitespace but is otherwise exact. A recognized title without a
// stored summary reports false so callers keep searching instead of
// fabricating content.
func (c *Catalog) SummaryOf(title string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(title))
	for _, b := range c.books {
		if strings.ToLower(b.Title) == want {
			if b.Summary == "" {
				return "", false
			}
			return b.Summary, true
		}
	}
	return "", false
}
