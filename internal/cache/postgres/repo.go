package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/imageproxy/internal/cache"
)

// Repository is a PostgreSQL-backed semantic cache using pgvector
// cosine search. Implements cache.Cache.
type Repository struct {
	pool     *Pool
	embedder cache.Embedder
}

func NewRepository(pool *Pool, embedder cache.Embedder) *Repository {
	return &Repository{
		pool:     pool,
		embedder: embedder,
	}
}

// FindSimilar returns the closest cached image at or above threshold.
// Topics narrow the search to entries sharing at least one topic; an
// empty topic list matches everything.
func (r *Repository) FindSimilar(ctx context.Context, prompt string, filters cache.Filters, threshold float64) (*cache.Match, error) {
	embedding, err := r.embedder.EmbedText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("could not embed prompt: %w", err)
	}

	query := `
		SELECT id, prompt, topics, style, image_path, cropped_path, model,
		       generation_ms, hit_count, created_at,
		       1 - (prompt_embedding <=> $1::vector) AS similarity
		FROM cached_images
		WHERE 1 - (prompt_embedding <=> $1::vector) >= $2
		  AND (cardinality($3::text[]) = 0 OR topics && $3)
		  AND ($4 = '' OR style = $4)
		ORDER BY prompt_embedding <=> $1::vector
		LIMIT 1
	`

	topics := cache.NormalizeTopics(filters.Topics)
	if topics == nil {
		topics = []string{}
	}

	var match cache.Match
	var topicsOut pq.StringArray
	err = r.pool.QueryRow(ctx, query,
		pgvector.NewVector(embedding), threshold, pq.Array(topics), filters.Style,
	).Scan(
		&match.ID,
		&match.Prompt,
		&topicsOut,
		&match.Style,
		&match.ImagePath,
		&match.CroppedPath,
		&match.Model,
		&match.GenerationMS,
		&match.HitCount,
		&match.CreatedAt,
		&match.Similarity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query similar cached images: %w", err)
	}

	match.Topics = topicsOut
	return &match, nil
}

// Store inserts a cached image and returns its ID.
func (r *Repository) Store(ctx context.Context, entry cache.Entry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	topics := cache.NormalizeTopics(entry.Topics)
	if topics == nil {
		topics = []string{}
	}

	embedding, err := r.embedder.EmbedText(ctx, entry.Prompt)
	if err != nil {
		return "", fmt.Errorf("could not embed prompt: %w", err)
	}

	query := `
		INSERT INTO cached_images
			(id, prompt, prompt_embedding, topics, style, image_path, cropped_path, model, generation_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.pool.Exec(ctx, query,
		entry.ID,
		entry.Prompt,
		pgvector.NewVector(embedding),
		pq.Array(topics),
		entry.Style,
		entry.ImagePath,
		entry.CroppedPath,
		entry.Model,
		entry.GenerationMS,
	)
	if err != nil {
		return "", fmt.Errorf("insert cached image: %w", err)
	}

	return entry.ID, nil
}

// RecordHit increments the hit counter of a cached image.
func (r *Repository) RecordHit(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, "UPDATE cached_images SET hit_count = hit_count + 1 WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("record cache hit: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record cache hit: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("cache entry %s not found", id)
	}
	return nil
}
