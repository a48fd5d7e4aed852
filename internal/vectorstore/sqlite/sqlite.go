// Package sqlite implements an on-disk vector store backed by SQLite.
// Vectors and records are stored as JSON columns; search is a brute-force
// cosine scan in Go, which is plenty for corpora of extracted questions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"choukai/internal/domain"
	"choukai/internal/vectorstore"
)

// Store persists index entries in a single SQLite database file.
type Store struct {
	db   *sql.DB
	path string

	mu        sync.Mutex
	ready     bool
	dimension int
}

// Open connects to the database at path, creating parent directories as
// needed. If the file already holds a collection, the store comes up ready;
// otherwise it stays uninitialized until Init.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: path}
	var dim int
	err = db.QueryRow(`SELECT dimension FROM collection_meta WHERE id = 1`).Scan(&dim)
	switch {
	case err == nil:
		s.ready = true
		s.dimension = dim
	case errors.Is(err, sql.ErrNoRows):
	case strings.Contains(err.Error(), "no such table"):
	default:
		_ = db.Close()
		return nil, fmt.Errorf("read collection meta: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Init creates the collection schema for the given dimension. A dimension
// change drops and recreates the collection; matching dimension is a no-op.
func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready && s.dimension == dimension {
		return nil
	}
	stmts := []string{
		`DROP TABLE IF EXISTS entries`,
		`CREATE TABLE entries (
			id TEXT PRIMARY KEY,
			collection_id TEXT NOT NULL,
			question_type INTEGER NOT NULL,
			text TEXT NOT NULL,
			vector TEXT NOT NULL,
			record TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS collection_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			dimension INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO collection_meta (id, dimension) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET dimension = excluded.dimension`, dimension); err != nil {
		return fmt.Errorf("write collection meta: %w", err)
	}
	s.dimension = dimension
	s.ready = true
	return nil
}

// Upsert writes entries one at a time so cancellation between items keeps
// the rows already written. The conflict target is the content-hash id;
// replacing a row keeps its rowid, so insertion order survives re-upserts.
func (s *Store) Upsert(ctx context.Context, entries []domain.IndexEntry) (int, error) {
	if !s.isReady() {
		return 0, domain.ErrStoreNotReady
	}
	written := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if len(e.Vector) != s.dim() {
			return written, fmt.Errorf("vector dimension %d, store expects %d", len(e.Vector), s.dim())
		}
		vec, err := json.Marshal(e.Vector)
		if err != nil {
			return written, fmt.Errorf("marshal vector: %w", err)
		}
		rec, err := json.Marshal(e.Record)
		if err != nil {
			return written, fmt.Errorf("marshal record: %w", err)
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO entries (id, collection_id, question_type, text, vector, record)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				collection_id = excluded.collection_id,
				question_type = excluded.question_type,
				text = excluded.text,
				vector = excluded.vector,
				record = excluded.record`,
			e.ID, e.CollectionID, int(e.Record.QuestionType), e.Text, string(vec), string(rec))
		if err != nil {
			return written, fmt.Errorf("upsert entry %s: %w", e.ID, err)
		}
		written++
	}
	return written, nil
}

// Search scans the collection in rowid order, computes cosine distances and
// returns the k nearest. The stable sort keeps equal distances in insertion
// order; a k larger than the collection clamps silently.
func (s *Store) Search(ctx context.Context, vector []float64, k int, filter *domain.SearchFilter) ([]domain.SearchResult, error) {
	if !s.isReady() {
		return nil, domain.ErrStoreNotReady
	}
	if k <= 0 {
		k = 5
	}

	query := `SELECT id, collection_id, text, vector, record FROM entries`
	var args []any
	if filter != nil && len(filter.QuestionTypes) > 0 {
		placeholders := make([]string, len(filter.QuestionTypes))
		for i, t := range filter.QuestionTypes {
			placeholders[i] = "?"
			args = append(args, int(t))
		}
		query += ` WHERE question_type IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scan entries: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var (
			entry   domain.IndexEntry
			vecJSON string
			recJSON string
		)
		if err := rows.Scan(&entry.ID, &entry.CollectionID, &entry.Text, &vecJSON, &recJSON); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		if err := json.Unmarshal([]byte(vecJSON), &entry.Vector); err != nil {
			return nil, fmt.Errorf("parse vector for %s: %w", entry.ID, err)
		}
		if err := json.Unmarshal([]byte(recJSON), &entry.Record); err != nil {
			return nil, fmt.Errorf("parse record for %s: %w", entry.ID, err)
		}
		results = append(results, domain.SearchResult{
			Entry:    entry,
			Distance: vectorstore.CosineDistance(vector, entry.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Count returns the number of indexed entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	if !s.isReady() {
		return 0, domain.ErrStoreNotReady
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// DeleteAll removes every entry; the collection stays ready for reindexing.
func (s *Store) DeleteAll(ctx context.Context) error {
	if !s.isReady() {
		return domain.ErrStoreNotReady
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	return nil
}

func (s *Store) isReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Store) dim() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dimension
}
