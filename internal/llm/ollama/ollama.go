// Package ollama wraps the Ollama generate API as a text-generation backend.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"choukai/internal/domain"
)

const backendName = "ollama"

// Client calls a local Ollama server's /api/generate endpoint.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// Config configures the Ollama generation client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// New creates a generation client with sensible defaults for a local server.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "mistral"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 2 * time.Minute
	}
	return &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: t},
	}
}

// Name returns the backend identifier.
func (c *Client) Name() string { return backendName }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate runs the prompt through the model and returns the completion.
// The JSON output format is requested so replies are machine-parseable.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body := generateRequest{Model: c.model, Prompt: prompt, Stream: false, Format: "json"}
	data, err := json.Marshal(body)
	if err != nil {
		return "", &domain.BackendError{Backend: backendName, Err: err}
	}

	url := c.baseURL + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", &domain.BackendError{Backend: backendName, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &domain.BackendError{Backend: backendName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return "", &domain.BackendError{
			Backend: backendName,
			Err:     fmt.Errorf("generate returned status %d: %s", resp.StatusCode, string(payload)),
		}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &domain.BackendError{Backend: backendName, Err: fmt.Errorf("decode response: %w", err)}
	}
	return out.Response, nil
}
