// Package retrieval ranks catalog books against a query by embedding
// distance. The index lives in a local sqlite file: one row per book with
// its summary embedding stored as JSON. The catalog is small enough that a
// full scan per query is the right amount of machinery.
package retrieval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"bookmind/internal/catalog"
	"bookmind/internal/embedding"
)

// Candidate is one ranked result. Distance is non-negative; lower means more
// relevant.
type Candidate struct {
	Distance float64
	Title    string
	Summary  string
}

// BookIndex is the sqlite-backed vector index over the catalog.
type BookIndex struct {
	db     *sql.DB
	engine embedding.Engine
	logger *zap.Logger
}

// Open opens (and creates if needed) the index file.
func Open(path string, engine embedding.Engine, logger *zap.Logger) (*BookIndex, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index at %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	// The modernc driver serializes access; a single connection avoids
	// SQLITE_BUSY under concurrent queries.
	db.SetMaxOpenConns(1)

	schema := `CREATE TABLE IF NOT EXISTS books (
		title     TEXT PRIMARY KEY,
		summary   TEXT NOT NULL,
		embedding TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &BookIndex{db: db, engine: engine, logger: logger}, nil
}

// Build embeds every catalog summary and upserts the rows. Rebuilding is
// idempotent: existing titles are overwritten.
func (x *BookIndex) Build(ctx context.Context, books []catalog.Book) error {
	if len(books) == 0 {
		return fmt.Errorf("nothing to index")
	}

	summaries := make([]string, len(books))
	for i, b := range books {
		summaries[i] = b.Summary
	}
	vectors, err := x.engine.EmbedBatch(ctx, summaries)
	if err != nil {
		return fmt.Errorf("failed to embed summaries: %w", err)
	}
	if len(vectors) != len(books) {
		return fmt.Errorf("expected %d embeddings, got %d", len(books), len(vectors))
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO books (title, summary, embedding) VALUES (?, ?, ?)
		 ON CONFLICT(title) DO UPDATE SET summary=excluded.summary, embedding=excluded.embedding`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, b := range books {
		blob, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("failed to encode embedding for %q: %w", b.Title, err)
		}
		if _, err := stmt.ExecContext(ctx, b.Title, b.Summary, string(blob)); err != nil {
			return fmt.Errorf("failed to upsert %q: %w", b.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index build: %w", err)
	}
	x.logger.Info("book index built",
		zap.Int("books", len(books)),
		zap.String("engine", x.engine.Name()))
	return nil
}

// Query embeds the text and returns up to topK candidates ordered by
// ascending cosine distance (1 - similarity). An empty query returns no
// results.
func (x *BookIndex) Query(ctx context.Context, text string, topK int) ([]Candidate, error) {
	if text == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = 3
	}

	queryVec, err := x.engine.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := x.db.QueryContext(ctx, `SELECT title, summary, embedding FROM books`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan index: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var title, summary, blob string
		if err := rows.Scan(&title, &summary, &blob); err != nil {
			return nil, fmt.Errorf("failed to read index row: %w", err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(blob), &vec); err != nil {
			x.logger.Warn("skipping row with corrupt embedding", zap.String("title", title), zap.Error(err))
			continue
		}
		sim, err := embedding.CosineSimilarity(queryVec, vec)
		if err != nil {
			x.logger.Warn("skipping row with mismatched embedding", zap.String("title", title), zap.Error(err))
			continue
		}
		candidates = append(candidates, Candidate{
			Distance: 1.0 - sim,
			Title:    title,
			Summary:  summary,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index scan failed: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// Count returns the number of indexed books.
func (x *BookIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count index rows: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (x *BookIndex) Close() error {
	return x.db.Close()
}
