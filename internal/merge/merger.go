// Package merge combines extraction runs into one deduplicated corpus.
package merge

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"choukai/internal/domain"
)

// Merge deduplicates run collections into a single corpus. Collections are
// walked oldest first; when two records share a canonical key the record
// from the most recently created collection wins, while keeping the
// first-seen key position, so output ordering is stable across re-merges.
// Record ids are reassigned sequentially in output order.
func Merge(collections []domain.RunCollection) (domain.MergedCorpus, error) {
	if len(collections) == 0 {
		return domain.MergedCorpus{}, domain.ErrEmptyMergeInput
	}

	sorted := make([]domain.RunCollection, len(collections))
	copy(sorted, collections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	position := make(map[string]int)
	var records []domain.QuestionRecord
	runs := make([]string, 0, len(sorted))
	for _, c := range sorted {
		runs = append(runs, c.ID)
		for _, rec := range c.Records {
			key := rec.CanonicalKey()
			if at, ok := position[key]; ok {
				records[at] = rec
				continue
			}
			position[key] = len(records)
			records = append(records, rec)
		}
	}
	for i := range records {
		records[i].ID = i + 1
	}

	return domain.MergedCorpus{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Runs:      runs,
		Records:   records,
	}, nil
}
