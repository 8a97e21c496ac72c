// Package embedcache caches face embeddings of gallery reference images so
// they are not recomputed on every verification attempt. Entries are keyed by
// (identity, path, mtime); touching a reference file invalidates its entry.
//
// The cache is purely an optimization layer. Matching correctness never
// depends on it: a miss simply costs one extra embedding service call.
package embedcache

import (
	"context"
	"fmt"
	"time"
)

// Key identifies one cached reference embedding.
type Key struct {
	Identity string
	Path     string
	ModTime  time.Time
}

// StoredEmbedding is a cached face embedding for a gallery reference image.
type StoredEmbedding struct {
	Identity  string
	Path      string
	ModTime   time.Time
	Embedding []float32
	Dim       int
	Model     string
	CreatedAt time.Time
}

// Cache stores and retrieves reference embeddings.
type Cache interface {
	// Get returns the cached embedding for key, or nil if absent or stale.
	Get(ctx context.Context, key Key) (*StoredEmbedding, error)
	// Put inserts or replaces the embedding for its (identity, path) pair.
	Put(ctx context.Context, emb StoredEmbedding) error
	// Count returns the number of cached embeddings.
	Count(ctx context.Context) (int, error)
}

var (
	postgresCache       func() Cache
	postgresInitialized bool
)

// RegisterPostgresBackend registers the PostgreSQL cache constructor.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(cache func() Cache) {
	postgresCache = cache
	postgresInitialized = true
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetCache returns the registered PostgreSQL cache, or an in-memory cache when
// no database backend is configured.
func GetCache(ctx context.Context) (Cache, error) {
	if postgresInitialized {
		if postgresCache == nil {
			return nil, fmt.Errorf("PostgreSQL embedding cache not registered")
		}
		return postgresCache(), nil
	}
	return NewMemoryCache(), nil
}
