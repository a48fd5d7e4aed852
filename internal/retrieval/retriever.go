// Package retrieval glues the embedder and vector store into the indexing
// and query surface consumed by UI/CLI collaborators.
package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"choukai/internal/domain"
)

// DefaultTopK is the result count used when a caller passes k <= 0.
const DefaultTopK = 5

// Retriever embeds queries and corpora and delegates ranking entirely to the
// store's native distance order; there is no re-ranking here.
type Retriever struct {
	embedder domain.Embedder
	store    domain.VectorStore
	log      *slog.Logger
}

// New wires a retriever from its backends. A nil logger selects slog.Default.
func New(embedder domain.Embedder, store domain.VectorStore, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, store: store, log: logger}
}

// Index embeds each record's question field and upserts the corpus into the
// store, keyed by content hash so re-indexing unchanged data is idempotent.
// It returns the number of entries written.
func (r *Retriever) Index(ctx context.Context, corpus domain.MergedCorpus) (int, error) {
	if len(corpus.Records) == 0 {
		return 0, errors.New("refusing to index an empty corpus")
	}

	texts := make([]string, len(corpus.Records))
	for i, rec := range corpus.Records {
		texts[i] = rec.Question
	}
	if err := r.embedder.Prepare(texts); err != nil {
		return 0, err
	}

	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}
	if err := r.store.Init(ctx, len(vectors[0])); err != nil {
		return 0, err
	}

	entries := make([]domain.IndexEntry, len(corpus.Records))
	for i, rec := range corpus.Records {
		entries[i] = domain.IndexEntry{
			ID:           rec.ContentHash(),
			Vector:       vectors[i],
			Text:         texts[i],
			Record:       rec,
			CollectionID: corpus.ID,
		}
	}
	written, err := r.store.Upsert(ctx, entries)
	if err != nil {
		return written, err
	}
	r.log.Info("corpus indexed", "corpus", corpus.ID, "entries", written,
		"embedder", r.embedder.Name())
	return written, nil
}

// Query embeds the text, searches the store and unwraps the hits back into
// question records with their distances. An empty or whitespace-only query
// fails with ErrEmptyQuery; a k beyond the store size clamps silently.
func (r *Retriever) Query(ctx context.Context, text string, k int, filter *domain.SearchFilter) ([]domain.RankedRecord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultTopK
	}

	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	results, err := r.store.Search(ctx, vec, k, filter)
	if err != nil {
		return nil, err
	}

	ranked := make([]domain.RankedRecord, len(results))
	for i, res := range results {
		ranked[i] = domain.RankedRecord{Record: res.Entry.Record, Distance: res.Distance}
	}
	return ranked, nil
}
