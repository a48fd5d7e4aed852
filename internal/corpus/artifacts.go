// Package corpus persists extraction runs and merged corpora as timestamped
// JSON artifacts. It is the only place that knows the on-disk layout; core
// components receive loaded collections and never touch filesystem paths.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"choukai/internal/domain"
)

const (
	runPrefix    = "questions_run_"
	mergedPrefix = "questions_merged_runs_"
	// stampLayout sorts lexicographically by creation time, so the latest
	// artifact can be picked without parsing file contents.
	stampLayout = "20060102_150405"
)

// SaveRun writes a raw extraction run as a timestamped artifact and returns
// the file path.
func SaveRun(dir string, run domain.RunCollection) (string, error) {
	stamp := run.CreatedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	name := runPrefix + stamp.UTC().Format(stampLayout) + ".json"
	return save(dir, name, run)
}

// LoadRuns reads every raw run artifact in dir, oldest first.
func LoadRuns(dir string) ([]domain.RunCollection, error) {
	paths, err := filepath.Glob(filepath.Join(dir, runPrefix+"*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	runs := make([]domain.RunCollection, 0, len(paths))
	for _, p := range paths {
		var run domain.RunCollection
		if err := load(p, &run); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// SaveMerged writes a merged corpus snapshot and returns the file path.
func SaveMerged(dir string, corpus domain.MergedCorpus) (string, error) {
	stamp := corpus.CreatedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	name := mergedPrefix + stamp.UTC().Format(stampLayout) + ".json"
	return save(dir, name, corpus)
}

// LatestMerged returns the most recent merged corpus snapshot in dir,
// decided by filename ordering alone.
func LatestMerged(dir string) (domain.MergedCorpus, error) {
	paths, err := filepath.Glob(filepath.Join(dir, mergedPrefix+"*.json"))
	if err != nil {
		return domain.MergedCorpus{}, err
	}
	if len(paths) == 0 {
		return domain.MergedCorpus{}, fmt.Errorf("no merged corpus artifact in %s", dir)
	}
	sort.Strings(paths)
	var corpus domain.MergedCorpus
	if err := load(paths[len(paths)-1], &corpus); err != nil {
		return domain.MergedCorpus{}, err
	}
	return corpus, nil
}

func save(dir, name string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
