package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRequiresKey(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "")
	_, err := New(Config{APIKeyEnv: "TEST_EMBED_KEY"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "TEST_EMBED_KEY")
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body struct {
			Input string `json:"input"`
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "hello", body.Input)
		require.Equal(t, "text-embedding-3-small", body.Model)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.5, 0.5}}},
		})
	}))
	defer srv.Close()

	t.Setenv("TEST_EMBED_KEY", "secret")
	c, err := New(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_EMBED_KEY"})
	require.NoError(t, err)

	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []float64{0.5, 0.5}, vec)
	require.Equal(t, 2, c.Dimension())
}

func TestEmbedAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	t.Setenv("TEST_EMBED_KEY", "secret")
	c, err := New(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_EMBED_KEY"})
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
}

func TestEmbedNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	t.Setenv("TEST_EMBED_KEY", "secret")
	c, err := New(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_EMBED_KEY"})
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no embedding")
}
