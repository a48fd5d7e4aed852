// Package ollama provides an Ollama-native embeddings backend.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"choukai/internal/domain"
	"choukai/internal/embedding"
)

const backendName = "ollama"

// Client calls a local Ollama server's /api/embeddings endpoint. No retry is
// attempted on failure; batch callers own the retry policy. Inputs beyond
// the model's context window are truncated by the server.
type Client struct {
	baseURL string
	model   string
	workers int
	client  *http.Client

	mu        sync.Mutex
	dimension int
}

// Config configures the Ollama embeddings client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Workers int
}

// New creates an embeddings client with defaults for a local server.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	return &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		workers: cfg.Workers,
		client:  &http.Client{Timeout: t},
	}
}

// Name returns the backend identifier.
func (c *Client) Name() string { return backendName }

// Prepare is a no-op; the dimension is learned from the first embedding.
func (c *Client) Prepare([]string) error { return nil }

// Dimension returns the vector dimensionality, zero before the first embed.
func (c *Client) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimension
}

// Embed returns the embedding vector for the text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	body := struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}{Model: c.model, Prompt: text}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, &domain.BackendError{Backend: backendName, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, &domain.BackendError{Backend: backendName, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.BackendError{Backend: backendName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, &domain.BackendError{
			Backend: backendName,
			Err:     fmt.Errorf("embeddings returned status %d: %s", resp.StatusCode, string(payload)),
		}
	}

	var out struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &domain.BackendError{Backend: backendName, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Embedding) == 0 {
		return nil, &domain.BackendError{Backend: backendName, Err: errors.New("no embedding returned")}
	}
	c.mu.Lock()
	if c.dimension == 0 {
		c.dimension = len(out.Embedding)
	}
	c.mu.Unlock()
	return out.Embedding, nil
}

// EmbedBatch embeds texts across concurrent requests, preserving order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return embedding.Batch(ctx, c.Embed, texts, c.workers)
}
