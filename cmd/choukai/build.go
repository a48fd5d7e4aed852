package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"choukai/internal/config"
	"choukai/internal/corpus"
	"choukai/internal/domain"
	"choukai/internal/embedding"
	embollama "choukai/internal/embedding/ollama"
	embopenai "choukai/internal/embedding/openai"
	genollama "choukai/internal/llm/ollama"
	genopenai "choukai/internal/llm/openai"
	"choukai/internal/logging"
	"choukai/internal/retrieval"
	"choukai/internal/vectorstore/memory"
	"choukai/internal/vectorstore/qdrant"
	"choukai/internal/vectorstore/sqlite"
)

// app assembles components from configuration. Backends are injected
// explicitly; nothing reaches for ambient global clients.
type app struct {
	cfg     *config.AppConfig
	log     *slog.Logger
	closers []io.Closer
}

func newApp(cfgPath string) (*app, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: logger}, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func (a *app) generator() (domain.TextGenerator, error) {
	switch a.cfg.Generator.Type {
	case "ollama", "":
		c := a.cfg.Generator.Ollama
		if c == nil {
			c = &config.OllamaConfig{}
		}
		return genollama.New(genollama.Config{
			BaseURL: c.BaseURL,
			Model:   c.Model,
			Timeout: secs(c.TimeoutSecs),
		}), nil
	case "openai":
		c := a.cfg.Generator.OpenAI
		if c == nil {
			return nil, fmt.Errorf("openai generator config missing")
		}
		return genopenai.New(genopenai.Config{
			BaseURL:   c.BaseURL,
			APIKeyEnv: c.APIKeyEnv,
			Model:     c.Model,
			Timeout:   secs(c.TimeoutSecs),
		})
	default:
		return nil, fmt.Errorf("unknown generator: %s", a.cfg.Generator.Type)
	}
}

func (a *app) generatorTimeout() time.Duration {
	switch a.cfg.Generator.Type {
	case "openai":
		if c := a.cfg.Generator.OpenAI; c != nil {
			return secs(c.TimeoutSecs)
		}
	default:
		if c := a.cfg.Generator.Ollama; c != nil {
			return secs(c.TimeoutSecs)
		}
	}
	return 0
}

func (a *app) embedder() (domain.Embedder, error) {
	switch a.cfg.Embedder.Type {
	case "local", "":
		return embedding.NewLocal(), nil
	case "ollama":
		c := a.cfg.Embedder.Ollama
		if c == nil {
			c = &config.OllamaConfig{}
		}
		return embollama.New(embollama.Config{
			BaseURL: c.BaseURL,
			Model:   c.Model,
			Timeout: secs(c.TimeoutSecs),
			Workers: a.cfg.Embedder.Workers,
		}), nil
	case "openai":
		c := a.cfg.Embedder.OpenAI
		if c == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return embopenai.New(embopenai.Config{
			BaseURL:   c.BaseURL,
			APIKeyEnv: c.APIKeyEnv,
			Model:     c.Model,
			Timeout:   secs(c.TimeoutSecs),
			Workers:   a.cfg.Embedder.Workers,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", a.cfg.Embedder.Type)
	}
}

func (a *app) store() (domain.VectorStore, error) {
	switch a.cfg.VectorStore.Type {
	case "sqlite", "":
		c := a.cfg.VectorStore.SQLite
		if c == nil {
			return nil, fmt.Errorf("sqlite store config missing")
		}
		st, err := sqlite.Open(c.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st)
		return st, nil
	case "memory":
		return memory.New(), nil
	case "qdrant":
		c := a.cfg.VectorStore.Qdrant
		if c == nil {
			return nil, fmt.Errorf("qdrant store config missing")
		}
		return qdrant.New(qdrant.Config{
			URL:        c.URL,
			APIKey:     c.APIKey,
			Collection: c.Collection,
			Timeout:    secs(c.TimeoutSecs),
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", a.cfg.VectorStore.Type)
	}
}

// retriever assembles the indexing/query orchestrator.
func (a *app) retriever() (*retrieval.Retriever, error) {
	emb, err := a.embedder()
	if err != nil {
		return nil, err
	}
	st, err := a.store()
	if err != nil {
		return nil, err
	}
	return retrieval.New(emb, st, a.log), nil
}

// queryRetriever is the retriever for query-only commands. The local
// embedder builds its vector space from the corpus, so it is re-prepared
// from the latest merged snapshot to reproduce the space the index was
// built in.
func (a *app) queryRetriever() (*retrieval.Retriever, error) {
	emb, err := a.embedder()
	if err != nil {
		return nil, err
	}
	if emb.Name() == "local" {
		merged, err := corpus.LatestMerged(a.cfg.Corpus.Dir)
		if err != nil {
			return nil, fmt.Errorf("local embedder needs the merged corpus: %w", err)
		}
		texts := make([]string, len(merged.Records))
		for i, rec := range merged.Records {
			texts[i] = rec.Question
		}
		if err := emb.Prepare(texts); err != nil {
			return nil, err
		}
	}
	st, err := a.store()
	if err != nil {
		return nil, err
	}
	return retrieval.New(emb, st, a.log), nil
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}
