//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/embedcache"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testEmbeddingDim = 512

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

	if err := pool.Migrate(ctx, testEmbeddingDim); err != nil {
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

// testEmbedding builds a unit vector pointing along the given axis, so
// embeddings with different axes are orthogonal to each other.
func testEmbedding(axis int) []float32 {
	embedding := make([]float32, testEmbeddingDim)
	embedding[axis%testEmbeddingDim] = 1
	return embedding
}

func TestEmbeddingRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewEmbeddingRepository(pool)
	modTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("PutAndGet", func(t *testing.T) {
		err := repo.Put(ctx, embedcache.StoredEmbedding{
			Identity:  "alice",
			Path:      "/gallery/alice.jpg",
			ModTime:   modTime,
			Embedding: testEmbedding(0),
			Dim:       testEmbeddingDim,
			Model:     "buffalo_l",
		})
		if err != nil {
			t.Fatalf("Failed to put embedding: %v", err)
		}

		got, err := repo.Get(ctx, embedcache.Key{
			Identity: "alice",
			Path:     "/gallery/alice.jpg",
			ModTime:  modTime,
		})
		if err != nil {
			t.Fatalf("Failed to get embedding: %v", err)
		}
		if got == nil {
			t.Fatal("Expected embedding, got nil")
		}
		if got.Identity != "alice" {
			t.Errorf("Expected identity 'alice', got '%s'", got.Identity)
		}
		if got.Model != "buffalo_l" {
			t.Errorf("Expected model 'buffalo_l', got '%s'", got.Model)
		}
		if len(got.Embedding) != testEmbeddingDim {
			t.Errorf("Expected %d dimensions, got %d", testEmbeddingDim, len(got.Embedding))
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := repo.Get(ctx, embedcache.Key{Identity: "nobody", Path: "/gallery/nobody.jpg"})
		if err != nil {
			t.Fatalf("Failed to get embedding: %v", err)
		}
		if got != nil {
			t.Error("Expected nil for missing identity")
		}
	})

	t.Run("StaleModTimeIsMiss", func(t *testing.T) {
		got, err := repo.Get(ctx, embedcache.Key{
			Identity: "alice",
			Path:     "/gallery/alice.jpg",
			ModTime:  modTime.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("Failed to get embedding: %v", err)
		}
		if got != nil {
			t.Error("Expected stale entry to count as a miss")
		}
	})

	t.Run("PutReplacesExisting", func(t *testing.T) {
		newModTime := modTime.Add(2 * time.Hour)
		err := repo.Put(ctx, embedcache.StoredEmbedding{
			Identity:  "alice",
			Path:      "/gallery/alice.jpg",
			ModTime:   newModTime,
			Embedding: testEmbedding(1),
			Dim:       testEmbeddingDim,
			Model:     "buffalo_l",
		})
		if err != nil {
			t.Fatalf("Failed to replace embedding: %v", err)
		}

		count, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 entry after replace, got %d", count)
		}
	})

	t.Run("Nearest", func(t *testing.T) {
		for i, identity := range []string{"bob", "carol"} {
			err := repo.Put(ctx, embedcache.StoredEmbedding{
				Identity:  identity,
				Path:      fmt.Sprintf("/gallery/%s.jpg", identity),
				ModTime:   modTime,
				Embedding: testEmbedding(100 + i),
				Dim:       testEmbeddingDim,
				Model:     "buffalo_l",
			})
			if err != nil {
				t.Fatalf("Failed to put embedding for %s: %v", identity, err)
			}
		}

		ids, distances, err := repo.Nearest(ctx, testEmbedding(1), 2)
		if err != nil {
			t.Fatalf("Failed to query nearest: %v", err)
		}
		if len(ids) != 2 {
			t.Fatalf("Expected 2 neighbors, got %d", len(ids))
		}
		if ids[0] != "alice" {
			t.Errorf("Expected alice as nearest, got %s", ids[0])
		}
		if distances[0] > 0.0001 {
			t.Errorf("Expected near-zero distance, got %f", distances[0])
		}
	})
}
