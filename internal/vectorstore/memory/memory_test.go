package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"choukai/internal/domain"
)

func entry(id string, qt domain.QuestionType, vec ...float64) domain.IndexEntry {
	return domain.IndexEntry{
		ID:     id,
		Vector: vec,
		Text:   id,
		Record: domain.QuestionRecord{QuestionType: qt, Question: id},
	}
}

func TestNotReady(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Upsert(ctx, []domain.IndexEntry{entry("a", domain.TypeQuickResponse, 1, 0)})
	require.ErrorIs(t, err, domain.ErrStoreNotReady)
	_, err = s.Search(ctx, []float64{1, 0}, 5, nil)
	require.ErrorIs(t, err, domain.ErrStoreNotReady)
	_, err = s.Count(ctx)
	require.ErrorIs(t, err, domain.ErrStoreNotReady)
	require.ErrorIs(t, s.DeleteAll(ctx), domain.ErrStoreNotReady)
}

func TestUpsertIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))

	batch := []domain.IndexEntry{
		entry("a", domain.TypeQuickResponse, 1, 0),
		entry("b", domain.TypeQuickResponse, 0, 1),
	}
	written, err := s.Upsert(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 2, written)

	written, err = s.Upsert(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 2, written)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestUpsertDimensionMismatch(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))

	written, err := s.Upsert(ctx, []domain.IndexEntry{
		entry("a", domain.TypeQuickResponse, 1, 0),
		entry("bad", domain.TypeQuickResponse, 1, 0, 0),
	})
	require.Error(t, err)
	require.Equal(t, 1, written)
}

func TestUpsertCancelledKeepsProgress(t *testing.T) {
	s := New()
	require.NoError(t, s.Init(context.Background(), 2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	written, err := s.Upsert(ctx, []domain.IndexEntry{entry("a", domain.TypeQuickResponse, 1, 0)})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, written)
}

func TestSearchRanksAscendingWithStableTies(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))

	_, err := s.Upsert(ctx, []domain.IndexEntry{
		entry("far", domain.TypeQuickResponse, 0, 1),
		entry("tie1", domain.TypeQuickResponse, 1, 1),
		entry("exact", domain.TypeQuickResponse, 2, 0),
		entry("tie2", domain.TypeQuickResponse, 2, 2),
	})
	require.NoError(t, err)

	results, err := s.Search(ctx, []float64{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 4)
	require.Equal(t, "exact", results[0].Entry.ID)
	require.InDelta(t, 0, results[0].Distance, 1e-9)
	// tie1 and tie2 have identical distance; insertion order breaks the tie.
	require.Equal(t, "tie1", results[1].Entry.ID)
	require.Equal(t, "tie2", results[2].Entry.ID)
	require.Equal(t, "far", results[3].Entry.ID)
	require.InDelta(t, 1, results[3].Distance, 1e-9)
}

func TestSearchClampsK(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))
	_, err := s.Upsert(ctx, []domain.IndexEntry{entry("a", domain.TypeQuickResponse, 1, 0)})
	require.NoError(t, err)

	results, err := s.Search(ctx, []float64{1, 0}, 100, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSearchFilterByType(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))
	_, err := s.Upsert(ctx, []domain.IndexEntry{
		entry("dialogue", domain.TypeDialogueResponse, 1, 0),
		entry("quick", domain.TypeQuickResponse, 1, 0),
	})
	require.NoError(t, err)

	results, err := s.Search(ctx, []float64{1, 0}, 10, &domain.SearchFilter{
		QuestionTypes: []domain.QuestionType{domain.TypeQuickResponse},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "quick", results[0].Entry.ID)
}

func TestReinitSameDimensionKeepsData(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))
	_, err := s.Upsert(ctx, []domain.IndexEntry{entry("a", domain.TypeQuickResponse, 1, 0)})
	require.NoError(t, err)

	require.NoError(t, s.Init(ctx, 2))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, s.Init(ctx, 3))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestDeleteAllStaysReady(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))
	_, err := s.Upsert(ctx, []domain.IndexEntry{entry("a", domain.TypeQuickResponse, 1, 0)})
	require.NoError(t, err)

	require.NoError(t, s.DeleteAll(ctx))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	written, err := s.Upsert(ctx, []domain.IndexEntry{entry("b", domain.TypeQuickResponse, 0, 1)})
	require.NoError(t, err)
	require.Equal(t, 1, written)
}
