package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"choukai/internal/domain"
	"choukai/internal/embedding"
	"choukai/internal/vectorstore/memory"
)

func corpus(questions ...string) domain.MergedCorpus {
	recs := make([]domain.QuestionRecord, len(questions))
	for i, q := range questions {
		recs[i] = domain.QuestionRecord{
			ID:           i + 1,
			QuestionType: domain.TypeDialogueResponse,
			Introduction: "intro",
			Conversation: "conversation " + q,
			Question:     q,
		}
	}
	return domain.MergedCorpus{ID: "corpus-1", CreatedAt: time.Now().UTC(), Records: recs}
}

func newRetriever(t *testing.T, c domain.MergedCorpus) (*Retriever, *memory.Store) {
	t.Helper()
	store := memory.New()
	r := New(embedding.NewLocal(), store, nil)
	n, err := r.Index(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, len(c.Records), n)
	return r, store
}

func TestIndexEmptyCorpus(t *testing.T) {
	r := New(embedding.NewLocal(), memory.New(), nil)
	_, err := r.Index(context.Background(), domain.MergedCorpus{ID: "empty"})
	require.Error(t, err)
}

func TestIndexIsIdempotent(t *testing.T) {
	c := corpus("where is the station", "what did she order")
	r, store := newRetriever(t, c)

	n, err := r.Index(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestQuerySelfRetrieval(t *testing.T) {
	c := corpus("where is the train station", "what did the woman order", "when does the store open")
	r, _ := newRetriever(t, c)

	ranked, err := r.Query(context.Background(), "where is the train station", 1, nil)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	require.Equal(t, "where is the train station", ranked[0].Record.Question)
	require.InDelta(t, 0, ranked[0].Distance, 1e-9)
}

func TestQueryRanksAscending(t *testing.T) {
	c := corpus("where is the train station", "what did the woman order", "when does the store open")
	r, _ := newRetriever(t, c)

	ranked, err := r.Query(context.Background(), "train station", 3, nil)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	require.Equal(t, "where is the train station", ranked[0].Record.Question)
	for i := 1; i < len(ranked); i++ {
		require.LessOrEqual(t, ranked[i-1].Distance, ranked[i].Distance)
	}
}

func TestQueryEmptyText(t *testing.T) {
	r, _ := newRetriever(t, corpus("where is the train station"))
	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := r.Query(context.Background(), q, 5, nil)
		require.ErrorIs(t, err, domain.ErrEmptyQuery)
	}
}

func TestQueryClampsK(t *testing.T) {
	r, _ := newRetriever(t, corpus("where is the train station", "what did the woman order"))

	ranked, err := r.Query(context.Background(), "station", 100, nil)
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	// k <= 0 selects the default, still clamped by the store size.
	ranked, err = r.Query(context.Background(), "station", 0, nil)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
}

func TestQueryAgainstUnindexedStore(t *testing.T) {
	embedder := embedding.NewLocal()
	require.NoError(t, embedder.Prepare([]string{"some corpus text"}))
	r := New(embedder, memory.New(), nil)

	_, err := r.Query(context.Background(), "anything", 5, nil)
	require.ErrorIs(t, err, domain.ErrStoreNotReady)
}

func TestQueryFilterPassedThrough(t *testing.T) {
	recs := []domain.QuestionRecord{
		{ID: 1, QuestionType: domain.TypeDialogueResponse, Introduction: "i", Conversation: "c", Question: "where is the station"},
		{ID: 2, QuestionType: domain.TypeQuickResponse, Introduction: "i", Conversation: "c", Question: "where is the exit"},
	}
	c := domain.MergedCorpus{ID: "corpus-2", CreatedAt: time.Now().UTC(), Records: recs}
	r, _ := newRetriever(t, c)

	ranked, err := r.Query(context.Background(), "where", 10, &domain.SearchFilter{
		QuestionTypes: []domain.QuestionType{domain.TypeQuickResponse},
	})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	require.Equal(t, domain.TypeQuickResponse, ranked[0].Record.QuestionType)
}
