// Package embedding provides the batch-embedding helper and the local
// TF-IDF embedder; remote backends live in subpackages.
package embedding

import (
	"context"
	"sync"
)

// EmbedFunc embeds a single text.
type EmbedFunc func(ctx context.Context, text string) ([]float64, error)

// Batch runs fn over texts with at most workers concurrent calls and returns
// vectors in input order. The context is checked before each item, so
// cancellation takes effect between items rather than mid-call. The first
// error stops remaining work and is returned; no retry is attempted here.
func Batch(ctx context.Context, fn EmbedFunc, texts []string, workers int) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(texts) {
		workers = len(texts)
	}

	vectors := make([][]float64, len(texts))
	jobs := make(chan int, len(texts))
	for i := range texts {
		jobs <- i
	}
	close(jobs)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					fail(err)
					return
				}
				if failed() {
					return
				}
				vec, err := fn(ctx, texts[i])
				if err != nil {
					fail(err)
					return
				}
				vectors[i] = vec
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}
