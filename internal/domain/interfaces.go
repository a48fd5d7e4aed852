package domain

import "context"

// TextGenerator produces a free-text completion for a prompt. Implementations
// wrap an external model API and must honor context cancellation.
type TextGenerator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus; remote
// backends treat Prepare as a no-op. Embedding the same text twice yields
// identical vectors, so callers may rely on it for idempotent reindexing.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// VectorStore persists index entries and supports nearest-neighbor search.
// A store starts uninitialized and becomes ready after Init; every other
// operation fails with ErrStoreNotReady before that, never with an empty
// result set.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	// Upsert writes entries keyed by content hash and returns the number
	// written. Re-upserting identical entries is a no-op that still counts.
	Upsert(ctx context.Context, entries []IndexEntry) (int, error)
	// Search returns up to k hits ordered by ascending distance, ties broken
	// by insertion order.
	Search(ctx context.Context, vector []float64, k int, filter *SearchFilter) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

// Retriever is the query surface exposed to external UI/CLI collaborators.
type Retriever interface {
	Index(ctx context.Context, corpus MergedCorpus) (int, error)
	Query(ctx context.Context, text string, k int, filter *SearchFilter) ([]RankedRecord, error)
}
