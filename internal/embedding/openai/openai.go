// Package openai provides an OpenAI-compatible embeddings backend.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"choukai/internal/domain"
	"choukai/internal/embedding"
)

const backendName = "openai"

// Client is an OpenAI-compatible embeddings client. No retry is attempted on
// failure; batch callers own the retry policy. If the backend truncates long
// inputs, the truncation point is the model's own (8191 tokens for the
// text-embedding-3 family).
type Client struct {
	baseURL string
	apiKey  string
	model   string
	workers int
	client  *http.Client

	mu        sync.Mutex
	dimension int
}

// Config configures the embeddings client. The API key is read from the
// environment variable named by APIKeyEnv.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	Workers   int
}

// New creates an embeddings client using the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  key,
		model:   cfg.Model,
		workers: cfg.Workers,
		client:  &http.Client{Timeout: t},
	}, nil
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
		Input string `json:"input"`
		Model string `json:"model"`
	}{Input: text, Model: c.model}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, &domain.BackendError{Backend: backendName, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, &domain.BackendError{Backend: backendName, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.BackendError{Backend: backendName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return nil, &domain.BackendError{
			Backend: backendName,
			Err:     fmt.Errorf("embeddings returned %s: %s", resp.Status, string(payload)),
		}
	}

	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &domain.BackendError{Backend: backendName, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, &domain.BackendError{Backend: backendName, Err: errors.New("no embedding returned")}
	}
	vec := out.Data[0].Embedding
	c.mu.Lock()
	if c.dimension == 0 {
		c.dimension = len(vec)
	}
	c.mu.Unlock()
	return vec, nil
}

// EmbedBatch embeds texts across concurrent requests, preserving order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return embedding.Batch(ctx, c.Embed, texts, c.workers)
}
