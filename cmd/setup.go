package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/imageproxy/internal/cache"
	cachepg "github.com/kozaktomas/imageproxy/internal/cache/postgres"
	"github.com/kozaktomas/imageproxy/internal/config"
	"github.com/kozaktomas/imageproxy/internal/embedding"
	"github.com/kozaktomas/imageproxy/internal/generator"
	"github.com/kozaktomas/imageproxy/internal/orchestrator"
	"github.com/kozaktomas/imageproxy/internal/pipeline"
	"github.com/kozaktomas/imageproxy/internal/storage"
)

// buildChain assembles the generator fallback chain from the embedded
// chain definition, skipping backends whose credentials are missing.
func buildChain(ctx context.Context, cfg *config.Config) ([]generator.Descriptor, error) {
	var chain []generator.Descriptor

	retries := func() int {
		if len(chain) == 0 {
			return cfg.Generation.PrimaryRetries
		}
		return cfg.Generation.FallbackRetries
	}

	for _, entry := range cfg.Generators.Chain {
		var provider generator.Provider
		var err error

		switch entry.Provider {
		case "gemini":
			if cfg.Gemini.APIKey == "" {
				continue
			}
			provider, err = generator.NewGeminiProvider(ctx, cfg.Gemini.APIKey, entry.Model)
		case "imagen":
			if cfg.Gemini.APIKey == "" {
				continue
			}
			provider, err = generator.NewImagenProvider(ctx, cfg.Gemini.APIKey, entry.Model)
		case "openai":
			if cfg.OpenAI.Token == "" {
				continue
			}
			provider = generator.NewOpenAIProvider(cfg.OpenAI.Token, entry.Model)
		default:
			return nil, fmt.Errorf("unknown provider %q in generator chain", entry.Provider)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", entry.Name, err)
		}

		chain = append(chain, generator.Descriptor{Provider: provider, MaxRetries: retries()})
	}

	if len(chain) == 0 {
		return nil, fmt.Errorf("no generator available: set GEMINI_API_KEY and/or OPENAI_TOKEN")
	}
	return chain, nil
}

// buildCache selects the cache backend: postgres when DATABASE_URL is
// set, in-process memory when only an embedding server is configured,
// no-op otherwise.
func buildCache(ctx context.Context, cfg *config.Config, logf pipeline.Logger) (cache.Cache, func(), error) {
	noop := func() {}

	if cfg.Database.URL != "" {
		pool, err := cachepg.NewPool(&cfg.Database)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("failed to run migrations: %w", err)
		}
		embedder := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Dim)
		return cachepg.NewRepository(pool, embedder), func() { pool.Close() }, nil
	}

	if cfg.Embedding.URL != "" {
		embedder := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Dim)
		return cache.NewMemory(embedder), noop, nil
	}

	if logf != nil {
		logf("no database or embedding server configured, semantic cache disabled")
	}
	return cache.NewNoop(), noop, nil
}

// buildPipeline wires the full pipeline from configuration. The
// returned cleanup closes the database pool when one was opened.
func buildPipeline(ctx context.Context, cfg *config.Config, logf pipeline.Logger) (*pipeline.Pipeline, func(), error) {
	noop := func() {}

	chain, err := buildChain(ctx, cfg)
	if err != nil {
		return nil, noop, err
	}

	c, cleanup, err := buildCache(ctx, cfg, logf)
	if err != nil {
		return nil, noop, err
	}

	orch, err := orchestrator.New(chain, c, orchestrator.Config{
		BaseDelay:              cfg.Generation.BaseDelay,
		CacheFallbackThreshold: cfg.Cache.FallbackThreshold,
	}, orchestrator.Logger(logf))
	if err != nil {
		cleanup()
		return nil, noop, err
	}

	store, err := storage.NewLocal(cfg.Storage.Dir)
	if err != nil {
		cleanup()
		return nil, noop, err
	}

	p, err := pipeline.New(orch, c, store, cfg.Cache.SimilarityThreshold, logf)
	if err != nil {
		cleanup()
		return nil, noop, err
	}

	return p, cleanup, nil
}
