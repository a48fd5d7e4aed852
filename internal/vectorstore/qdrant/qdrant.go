// Package qdrant implements the vector store against a Qdrant server using
// its REST API. Content-hash ids are deterministic UUIDs, so re-upserting an
// unchanged corpus rewrites the same points.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"choukai/internal/domain"
)

// Store is a minimal REST client to Qdrant. Collections are created with
// cosine distance; Qdrant reports cosine scores as similarity, which is
// converted to distance here so all backends rank the same way.
// Readiness lives server-side: operations against a missing collection
// surface ErrStoreNotReady, so a query-only process needs no local Init.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// Config contains connection details for a Qdrant server.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// New creates an unconnected store; Init creates the collection.
func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Init creates the collection if missing. Qdrant answers 200 for an existing
// collection with the same schema.
func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body, nil)
}

// Upsert writes all entries in one wait=true call; the server applies points
// keyed by id, so the operation is idempotent.
func (s *Store) Upsert(ctx context.Context, entries []domain.IndexEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		points[i] = map[string]any{
			"id":     e.ID,
			"vector": e.Vector,
			"payload": map[string]any{
				"collection_id": e.CollectionID,
				"record_id":     e.Record.ID,
				"question_type": int(e.Record.QuestionType),
				"introduction":  e.Record.Introduction,
				"conversation":  e.Record.Conversation,
				"question":      e.Record.Question,
				"text":          e.Text,
			},
		}
	}
	body := map[string]any{"points": points}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection)
	if err := s.putJSON(ctx, url, body, nil); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Search queries the server, pushing a question-type filter down when given.
func (s *Store) Search(ctx context.Context, vector []float64, k int, filter *domain.SearchFilter) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if filter != nil && len(filter.QuestionTypes) > 0 {
		types := make([]int, len(filter.QuestionTypes))
		for i, t := range filter.QuestionTypes {
			types[i] = int(t)
		}
		req["filter"] = map[string]any{
			"must": []map[string]any{
				{"key": "question_type", "match": map[string]any{"any": types}},
			},
		}
	}

	var resp struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection)
	if err := s.postJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		entry := domain.IndexEntry{ID: r.ID}
		if v, ok := r.Payload["collection_id"].(string); ok {
			entry.CollectionID = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			entry.Text = v
		}
		if v, ok := r.Payload["record_id"].(float64); ok {
			entry.Record.ID = int(v)
		}
		if v, ok := r.Payload["question_type"].(float64); ok {
			entry.Record.QuestionType = domain.QuestionType(int(v))
		}
		if v, ok := r.Payload["introduction"].(string); ok {
			entry.Record.Introduction = v
		}
		if v, ok := r.Payload["conversation"].(string); ok {
			entry.Record.Conversation = v
		}
		if v, ok := r.Payload["question"].(string); ok {
			entry.Record.Question = v
		}
		results = append(results, domain.SearchResult{Entry: entry, Distance: 1 - r.Score})
	}
	return results, nil
}

// Count asks the server for an exact point count.
func (s *Store) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/count", s.url, s.collection)
	if err := s.postJSON(ctx, url, map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// DeleteAll removes every point but keeps the collection, so the store stays
// ready for reindexing.
func (s *Store) DeleteAll(ctx context.Context) error {
	body := map[string]any{"filter": map[string]any{"must": []any{}}}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", s.url, s.collection)
	return s.postJSON(ctx, url, body, nil)
}

func (s *Store) putJSON(ctx context.Context, url string, body, out any) error {
	return s.doJSON(ctx, http.MethodPut, url, body, out)
}

func (s *Store) postJSON(ctx context.Context, url string, body, out any) error {
	return s.doJSON(ctx, http.MethodPost, url, body, out)
}

func (s *Store) doJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: qdrant collection %q missing", domain.ErrStoreNotReady, s.collection)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
