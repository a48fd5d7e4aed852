package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"choukai/internal/domain"
)

func open(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func entry(id string, qt domain.QuestionType, vec ...float64) domain.IndexEntry {
	return domain.IndexEntry{
		ID:           id,
		Vector:       vec,
		Text:         id,
		Record:       domain.QuestionRecord{QuestionType: qt, Question: id},
		CollectionID: "corpus-1",
	}
}

func TestOpenFreshIsNotReady(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "v.db"))
	ctx := context.Background()

	_, err := s.Upsert(ctx, []domain.IndexEntry{entry("a", domain.TypeQuickResponse, 1, 0)})
	require.ErrorIs(t, err, domain.ErrStoreNotReady)
	_, err = s.Search(ctx, []float64{1, 0}, 5, nil)
	require.ErrorIs(t, err, domain.ErrStoreNotReady)
	_, err = s.Count(ctx)
	require.ErrorIs(t, err, domain.ErrStoreNotReady)
}

func TestUpsertSearchRoundtrip(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "v.db"))
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))

	_, err := s.Upsert(ctx, []domain.IndexEntry{
		entry("far", domain.TypeQuickResponse, 0, 1),
		entry("near", domain.TypeDialogueResponse, 1, 0),
	})
	require.NoError(t, err)

	results, err := s.Search(ctx, []float64{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "near", results[0].Entry.ID)
	require.InDelta(t, 0, results[0].Distance, 1e-9)
	require.Equal(t, domain.TypeDialogueResponse, results[0].Entry.Record.QuestionType)
	require.Equal(t, "corpus-1", results[0].Entry.CollectionID)
	require.Equal(t, []float64{1, 0}, results[0].Entry.Vector)
}

func TestUpsertIdempotentCountsAndKeepsOrder(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "v.db"))
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))

	batch := []domain.IndexEntry{
		entry("tie1", domain.TypeQuickResponse, 1, 1),
		entry("tie2", domain.TypeQuickResponse, 2, 2),
	}
	written, err := s.Upsert(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 2, written)

	// Re-upsert in reverse; rowids must survive the conflict update so tie
	// order stays first-inserted-first.
	written, err = s.Upsert(ctx, []domain.IndexEntry{batch[1], batch[0]})
	require.NoError(t, err)
	require.Equal(t, 2, written)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	results, err := s.Search(ctx, []float64{1, 1}, 10, nil)
	require.NoError(t, err)
	require.Equal(t, "tie1", results[0].Entry.ID)
	require.Equal(t, "tie2", results[1].Entry.ID)
}

func TestSearchFilterPushdown(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "v.db"))
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))

	_, err := s.Upsert(ctx, []domain.IndexEntry{
		entry("dialogue", domain.TypeDialogueResponse, 1, 0),
		entry("quick", domain.TypeQuickResponse, 1, 0),
	})
	require.NoError(t, err)

	results, err := s.Search(ctx, []float64{1, 0}, 10, &domain.SearchFilter{
		QuestionTypes: []domain.QuestionType{domain.TypeDialogueResponse},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "dialogue", results[0].Entry.ID)
}

func TestSearchClampsK(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "v.db"))
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))
	_, err := s.Upsert(ctx, []domain.IndexEntry{entry("a", domain.TypeQuickResponse, 1, 0)})
	require.NoError(t, err)

	results, err := s.Search(ctx, []float64{1, 0}, 50, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestReopenRestoresReadiness(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	ctx := context.Background()

	s := open(t, path)
	require.NoError(t, s.Init(ctx, 2))
	_, err := s.Upsert(ctx, []domain.IndexEntry{entry("a", domain.TypeQuickResponse, 1, 0)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened := open(t, path)
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// Same dimension: data kept.
	require.NoError(t, reopened.Init(ctx, 2))
	n, err = reopened.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestInitDimensionChangeResets(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "v.db"))
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))
	_, err := s.Upsert(ctx, []domain.IndexEntry{entry("a", domain.TypeQuickResponse, 1, 0)})
	require.NoError(t, err)

	require.NoError(t, s.Init(ctx, 3))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	written, err := s.Upsert(ctx, []domain.IndexEntry{entry("b", domain.TypeQuickResponse, 1, 0, 0)})
	require.NoError(t, err)
	require.Equal(t, 1, written)
}

func TestUpsertCancelledKeepsProgress(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "v.db"))
	require.NoError(t, s.Init(context.Background(), 2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	written, err := s.Upsert(ctx, []domain.IndexEntry{entry("a", domain.TypeQuickResponse, 1, 0)})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, written)
}

func TestDeleteAllStaysReady(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "v.db"))
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
