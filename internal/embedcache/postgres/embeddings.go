package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/embedcache"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingRepository provides PostgreSQL-backed storage for gallery
// reference embeddings. Implements embedcache.Cache.
type EmbeddingRepository struct {
	pool *Pool
}

// NewEmbeddingRepository creates a new PostgreSQL embedding repository.
func NewEmbeddingRepository(pool *Pool) *EmbeddingRepository {
	return &EmbeddingRepository{pool: pool}
}

// Get retrieves the cached embedding for the key. A row whose path or mtime
// differs from the key is stale and reported as a miss.
func (r *EmbeddingRepository) Get(ctx context.Context, key embedcache.Key) (*embedcache.StoredEmbedding, error) {
	query := `
		SELECT identity, path, mod_time, embedding, dim, model, created_at
		FROM gallery_embeddings
		WHERE identity = $1
	`

	var e embedcache.StoredEmbedding
	var vec pgvector.Vector
	err := r.pool.QueryRow(ctx, query, key.Identity).
		Scan(&e.Identity, &e.Path, &e.ModTime, &vec, &e.Dim, &e.Model, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query gallery embedding: %w", err)
	}

	if e.Path != key.Path || !e.ModTime.Equal(key.ModTime) {
		return nil, nil
	}

	e.Embedding = vec.Slice()
	return &e, nil
}

// Put inserts or replaces the embedding for its identity.
func (r *EmbeddingRepository) Put(ctx context.Context, e embedcache.StoredEmbedding) error {
	query := `
		INSERT INTO gallery_embeddings (identity, path, mod_time, embedding, dim, model)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (identity) DO UPDATE SET
			path = EXCLUDED.path,
			mod_time = EXCLUDED.mod_time,
			embedding = EXCLUDED.embedding,
			dim = EXCLUDED.dim,
			model = EXCLUDED.model,
			created_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		e.Identity, e.Path, e.ModTime, pgvector.NewVector(e.Embedding), e.Dim, e.Model)
	if err != nil {
		return fmt.Errorf("upsert gallery embedding: %w", err)
	}
	return nil
}

// Count returns the number of cached embeddings.
func (r *EmbeddingRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM gallery_embeddings").Scan(&count); err != nil {
		return 0, fmt.Errorf("count gallery embeddings: %w", err)
	}
	return count, nil
}

// Nearest returns up to k cached identities closest to the query embedding in
// cosine distance, using the pgvector HNSW index.
func (r *EmbeddingRepository) Nearest(ctx context.Context, query []float32, k int) ([]string, []float64, error) {
	sqlQuery := `
		SELECT identity, embedding <=> $1 AS distance
		FROM gallery_embeddings
		ORDER BY distance
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, sqlQuery, pgvector.NewVector(query), k)
	if err != nil {
		return nil, nil, fmt.Errorf("nearest gallery embeddings: %w", err)
	}
	defer rows.Close()

	var ids []string
	var distances []float64
	for rows.Next() {
		var id string
		var d float64
		if err := rows.Scan(&id, &d); err != nil {
			return nil, nil, fmt.Errorf("scan nearest embedding: %w", err)
		}
		ids = append(ids, id)
		distances = append(distances, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate nearest embeddings: %w", err)
	}
	return ids, distances, nil
}
