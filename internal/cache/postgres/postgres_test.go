//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/imageproxy/internal/cache"
	"github.com/kozaktomas/imageproxy/internal/config"
)

// fixedEmbedder returns deterministic vectors so similarity is
// predictable without an embedding server.
type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f *fixedEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no vector for %q", text)
}

// vec768 builds a 768-dim vector with the given leading components.
func vec768(lead ...float32) []float32 {
	v := make([]float32, 768)
	copy(v, lead)
	return v
}

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	embedder := &fixedEmbedder{vectors: map[string][]float32{
		"mountain lake at sunrise": vec768(1, 0, 0),
		"alpine lake at dawn":      vec768(0.95, 0.3, 0),
		"city skyline at night":    vec768(0, 0, 1),
	}}
	repo := NewRepository(pool, embedder)

	t.Run("StoreAndFindSimilar", func(t *testing.T) {
		id, err := repo.Store(ctx, cache.Entry{
			Prompt:    "mountain lake at sunrise",
			Topics:    []string{"Nature", "Lake"},
			Style:     "photorealistic",
			ImagePath: "/images/abc/original.png",
			Model:     "gemini-2.5-flash-image",
		})
		if err != nil {
			t.Fatalf("Failed to store entry: %v", err)
		}

		match, err := repo.FindSimilar(ctx, "alpine lake at dawn", cache.Filters{Topics: []string{"lake"}}, 0.85)
		if err != nil {
			t.Fatalf("Failed to find similar: %v", err)
		}
		if match == nil {
			t.Fatal("Expected a match, got nil")
		}
		if match.ID != id {
			t.Errorf("Expected match ID %s, got %s", id, match.ID)
		}
		if match.Similarity < 0.85 {
			t.Errorf("Similarity %.3f below threshold", match.Similarity)
		}
		if match.ImagePath != "/images/abc/original.png" {
			t.Errorf("Unexpected image path %s", match.ImagePath)
		}
	})

	t.Run("TopicFilterExcludes", func(t *testing.T) {
		match, err := repo.FindSimilar(ctx, "alpine lake at dawn", cache.Filters{Topics: []string{"architecture"}}, 0.70)
		if err != nil {
			t.Fatalf("Failed to find similar: %v", err)
		}
		if match != nil {
			t.Errorf("Expected no match for unrelated topic, got %s", match.ID)
		}
	})

	t.Run("ThresholdExcludesDistantPrompt", func(t *testing.T) {
		match, err := repo.FindSimilar(ctx, "city skyline at night", cache.Filters{}, 0.70)
		if err != nil {
			t.Fatalf("Failed to find similar: %v", err)
		}
		if match != nil {
			t.Errorf("Expected no match for orthogonal prompt, got similarity %.3f", match.Similarity)
		}
	})

	t.Run("RecordHit", func(t *testing.T) {
		match, err := repo.FindSimilar(ctx, "mountain lake at sunrise", cache.Filters{}, 0.99)
		if err != nil || match == nil {
			t.Fatalf("Expected exact match, got %v, %v", match, err)
		}

		if err := repo.RecordHit(ctx, match.ID); err != nil {
			t.Fatalf("Failed to record hit: %v", err)
		}

		again, err := repo.FindSimilar(ctx, "mountain lake at sunrise", cache.Filters{}, 0.99)
		if err != nil || again == nil {
			t.Fatalf("Expected exact match, got %v, %v", again, err)
		}
		if again.HitCount != match.HitCount+1 {
			t.Errorf("HitCount = %d, want %d", again.HitCount, match.HitCount+1)
		}

		if err := repo.RecordHit(ctx, "00000000-0000-0000-0000-000000000000"); err == nil {
			t.Error("Expected error for unknown entry")
		}
	})
}
