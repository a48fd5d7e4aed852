package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"choukai/internal/domain"
)

func rec(qt domain.QuestionType, question string) domain.QuestionRecord {
	return domain.QuestionRecord{
		QuestionType: qt,
		Introduction: "intro",
		Conversation: "conv",
		Question:     question,
	}
}

func run(id string, at time.Time, recs ...domain.QuestionRecord) domain.RunCollection {
	return domain.RunCollection{ID: id, CreatedAt: at, Records: recs}
}

func TestMergeEmptyInput(t *testing.T) {
	_, err := Merge(nil)
	require.ErrorIs(t, err, domain.ErrEmptyMergeInput)
}

func TestMergeReassignsIDs(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := rec(domain.TypeDialogueResponse, "q1")
	a.ID = 7
	b := rec(domain.TypeQuickResponse, "q2")
	b.ID = 7

	corpus, err := Merge([]domain.RunCollection{run("r1", t0, a, b)})
	require.NoError(t, err)
	require.Len(t, corpus.Records, 2)
	require.Equal(t, 1, corpus.Records[0].ID)
	require.Equal(t, 2, corpus.Records[1].ID)
	require.Equal(t, []string{"r1"}, corpus.Runs)
}

func TestMergeNewerRunWinsKeepsPosition(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old := rec(domain.TypeDialogueResponse, "Shared Question")
	old.Introduction = "intro"
	newer := rec(domain.TypeDialogueResponse, "shared   question")
	newer.Introduction = "INTRO" // same canonical key, different surface form

	corpus, err := Merge([]domain.RunCollection{
		// Pass newest first to prove ordering is by CreatedAt, not argument order.
		run("r2", t0.Add(time.Hour), newer, rec(domain.TypeQuickResponse, "later only")),
		run("r1", t0, old, rec(domain.TypeQuickResponse, "early only")),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"r1", "r2"}, corpus.Runs)
	require.Len(t, corpus.Records, 3)
	// Duplicate keeps the first-seen (oldest run) position but carries the
	// newer run's content.
	require.Equal(t, "INTRO", corpus.Records[0].Introduction)
	require.Equal(t, "early only", corpus.Records[1].Question)
	require.Equal(t, "later only", corpus.Records[2].Question)
}

func TestMergeIdempotentOverSnapshot(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first, err := Merge([]domain.RunCollection{
		run("r1", t0, rec(domain.TypeDialogueResponse, "a"), rec(domain.TypeQuickResponse, "b")),
	})
	require.NoError(t, err)

	again, err := Merge([]domain.RunCollection{first.AsCollection()})
	require.NoError(t, err)
	require.Equal(t, first.Records, again.Records)
}
