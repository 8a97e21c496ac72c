package embedcache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/hnsw"
)

// hnswMaxNeighbors is the M parameter of the HNSW graph.
const hnswMaxNeighbors = 16

// MemoryCache is an in-memory embedding cache with an optional HNSW index for
// nearest-neighbor lookups over the cached gallery embeddings.
type MemoryCache struct {
	mu       sync.RWMutex
	entries  map[string]*StoredEmbedding // keyed by identity
	graph    *hnsw.Graph[string]
	indexing bool
}

// NewMemoryCache creates an empty in-memory embedding cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*StoredEmbedding),
	}
}

// EnableIndex turns on HNSW indexing over cached embeddings. Useful for large
// galleries where a full cosine scan per probe becomes noticeable.
func (m *MemoryCache) EnableIndex() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexing = true
	m.rebuildLocked()
}

// rebuildLocked rebuilds the HNSW graph from the current entries.
// Callers must hold the write lock.
func (m *MemoryCache) rebuildLocked() {
	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance

	for identity, e := range m.entries {
		if len(e.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(identity, e.Embedding))
	}
	m.graph = g
}

// Get returns the cached embedding for key, or nil on a miss. An entry whose
// recorded mtime differs from the key's is stale and counts as a miss.
func (m *MemoryCache) Get(ctx context.Context, key Key) (*StoredEmbedding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key.Identity]
	if !ok {
		return nil, nil
	}
	if e.Path != key.Path || !e.ModTime.Equal(key.ModTime) {
		return nil, nil
	}
	return e, nil
}

// Put inserts or replaces the embedding for its identity.
func (m *MemoryCache) Put(ctx context.Context, emb StoredEmbedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if emb.CreatedAt.IsZero() {
		emb.CreatedAt = time.Now()
	}
	m.entries[emb.Identity] = &emb

	if m.indexing {
		if m.graph == nil {
			m.rebuildLocked()
		} else if len(emb.Embedding) > 0 {
			m.graph.Add(hnsw.MakeNode(emb.Identity, emb.Embedding))
		}
	}
	return nil
}

// Count returns the number of cached embeddings.
func (m *MemoryCache) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Nearest returns up to k cached identities closest to the query embedding,
// with their cosine distances. Requires EnableIndex.
func (m *MemoryCache) Nearest(query []float32, k int) ([]string, []float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.graph == nil {
		return nil, nil, errors.New("index not initialized")
	}

	neighbors := m.graph.Search(query, k)
	ids := make([]string, len(neighbors))
	distances := make([]float64, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.Key
		distances[i] = CosineDistance(query, n.Value)
	}
	return ids, distances, nil
}
