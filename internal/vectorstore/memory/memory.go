// Package memory implements an in-memory vector store with brute-force
// cosine search. Useful for tests and small corpora; nothing survives the
// process.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"choukai/internal/domain"
	"choukai/internal/vectorstore"
)

// Store keys entries by content hash and preserves insertion order for
// stable tie-breaking.
type Store struct {
	mu        sync.RWMutex
	ready     bool
	dimension int
	order     []string
	entries   map[string]domain.IndexEntry
}

// New creates an uninitialized store.
func New() *Store { return &Store{} }

// Init makes the store ready for the given dimension. Re-initializing with
// the same dimension keeps existing entries; a different dimension resets.
func (s *Store) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready || s.dimension != dimension {
		s.entries = make(map[string]domain.IndexEntry)
		s.order = nil
	}
	s.dimension = dimension
	s.ready = true
	return nil
}

// Upsert writes entries keyed by id. An existing key keeps its original
// insertion position, so re-upserting is a no-op that still counts.
// Cancellation is checked between items; entries already written stay.
func (s *Store) Upsert(ctx context.Context, entries []domain.IndexEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return 0, domain.ErrStoreNotReady
	}
	written := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if len(e.Vector) != s.dimension {
			return written, fmt.Errorf("vector dimension %d, store expects %d", len(e.Vector), s.dimension)
		}
		if _, ok := s.entries[e.ID]; !ok {
			s.order = append(s.order, e.ID)
		}
		s.entries[e.ID] = e
		written++
	}
	return written, nil
}

// Search returns up to k entries by ascending cosine distance. Walking the
// insertion order and sorting stably keeps ties in insertion order. A k
// larger than the store clamps silently.
func (s *Store) Search(_ context.Context, vector []float64, k int, filter *domain.SearchFilter) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return nil, domain.ErrStoreNotReady
	}
	if k <= 0 {
		k = 5
	}
	results := make([]domain.SearchResult, 0, len(s.order))
	for _, id := range s.order {
		entry := s.entries[id]
		if !filter.Match(entry.Record) {
			continue
		}
		results = append(results, domain.SearchResult{
			Entry:    entry,
			Distance: vectorstore.CosineDistance(vector, entry.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Count returns the number of indexed entries.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return 0, domain.ErrStoreNotReady
	}
	return len(s.order), nil
}

// DeleteAll removes every entry; the store stays ready for reindexing.
func (s *Store) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return domain.ErrStoreNotReady
	}
	s.entries = make(map[string]domain.IndexEntry)
	s.order = nil
	return nil
}
