package verifier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/embedcache"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

const defaultEmbeddingURL = "http://localhost:8000"

// EntryVerifier is an optional fast path for verifiers that can use gallery
// entry metadata (path, mtime) to cache per-entry work across scans.
type EntryVerifier interface {
	VerifyEntry(ctx context.Context, probe []byte, entry gallery.Entry) (Result, error)
}

// EmbeddingClient computes face embeddings using the embedding server.
type EmbeddingClient struct {
	baseURL string
	client  *http.Client
}

// NewEmbeddingClient creates a new embedding client.
func NewEmbeddingClient(baseURL string, timeout time.Duration) *EmbeddingClient {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	if timeout <= 0 {
		timeout = constants.DefaultVerifyTimeout
	}
	return &EmbeddingClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// faceDetection represents a single detected face in the service response.
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	DetScore  float64   `json:"det_score"`
}

// faceResponse represents the response from the face embedding endpoint.
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// ComputeFaceEmbedding computes the face embedding for an image. When the
// service detects several faces, the one with the highest detection score
// wins. Zero faces maps to ErrNoFaceDetected.
func (c *EmbeddingClient) ComputeFaceEmbedding(ctx context.Context, imageData []byte) ([]float32, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, "", fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed/face", &buf)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var fr faceResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, "", fmt.Errorf("failed to parse response: %w", err)
	}
	if fr.FacesCount == 0 || len(fr.Faces) == 0 {
		return nil, "", ErrNoFaceDetected
	}

	best := fr.Faces[0]
	for _, f := range fr.Faces[1:] {
		if f.DetScore > best.DetScore {
			best = f
		}
	}
	if len(best.Embedding) == 0 {
		return nil, "", fmt.Errorf("empty embedding returned")
	}
	return best.Embedding, fr.Model, nil
}

// EmbeddingVerifier verifies faces by comparing embeddings from the embedding
// service with cosine distance against a fixed threshold. Reference embeddings
// are cached; the probe embedding is computed once per scan.
type EmbeddingVerifier struct {
	client    *EmbeddingClient
	cache     embedcache.Cache
	threshold float64

	mu       sync.Mutex
	probeSum [sha256.Size]byte
	probeEmb []float32
}

// NewEmbeddingVerifier creates an embedding-backed verifier. The cache may be
// nil, in which case reference embeddings are recomputed on every call.
func NewEmbeddingVerifier(client *EmbeddingClient, cache embedcache.Cache, threshold float64) *EmbeddingVerifier {
	if threshold <= 0 {
		threshold = constants.DefaultDistanceThreshold
	}
	return &EmbeddingVerifier{
		client:    client,
		cache:     cache,
		threshold: threshold,
	}
}

// probeEmbedding returns the embedding for the probe, computing it only when
// the probe bytes change between calls.
func (v *EmbeddingVerifier) probeEmbedding(ctx context.Context, probe []byte) ([]float32, error) {
	sum := sha256.Sum256(probe)

	v.mu.Lock()
	if v.probeEmb != nil && v.probeSum == sum {
		emb := v.probeEmb
		v.mu.Unlock()
		return emb, nil
	}
	v.mu.Unlock()

	emb, _, err := v.client.ComputeFaceEmbedding(ctx, probe)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.probeSum = sum
	v.probeEmb = emb
	v.mu.Unlock()
	return emb, nil
}

// Verify compares probe and reference by embedding cosine distance.
func (v *EmbeddingVerifier) Verify(ctx context.Context, probe, reference []byte) (Result, error) {
	probeEmb, err := v.probeEmbedding(ctx, probe)
	if err != nil {
		return Result{}, err
	}

	refEmb, _, err := v.client.ComputeFaceEmbedding(ctx, reference)
	if err != nil {
		return Result{}, err
	}

	return v.compare(probeEmb, refEmb), nil
}

// VerifyEntry is the cached path used by the matcher: the reference embedding
// is looked up by (identity, path, mtime) and only recomputed when the file
// changed.
func (v *EmbeddingVerifier) VerifyEntry(ctx context.Context, probe []byte, entry gallery.Entry) (Result, error) {
	probeEmb, err := v.probeEmbedding(ctx, probe)
	if err != nil {
		return Result{}, err
	}

	refEmb, err := v.referenceEmbedding(ctx, entry)
	if err != nil {
		return Result{}, err
	}

	return v.compare(probeEmb, refEmb), nil
}

// referenceEmbedding fetches the reference embedding from the cache or the
// embedding service. Cache write failures are not fatal; the attempt proceeds
// with the freshly computed embedding.
func (v *EmbeddingVerifier) referenceEmbedding(ctx context.Context, entry gallery.Entry) ([]float32, error) {
	key := embedcache.Key{Identity: entry.Identity, Path: entry.Path, ModTime: entry.ModTime}

	if v.cache != nil {
		cached, err := v.cache.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("embedding cache lookup for %s: %w", entry.Identity, err)
		}
		if cached != nil {
			return cached.Embedding, nil
		}
	}

	emb, model, err := v.client.ComputeFaceEmbedding(ctx, entry.Image)
	if err != nil {
		return nil, err
	}

	if v.cache != nil {
		_ = v.cache.Put(ctx, embedcache.StoredEmbedding{
			Identity:  entry.Identity,
			Path:      entry.Path,
			ModTime:   entry.ModTime,
			Embedding: emb,
			Dim:       len(emb),
			Model:     model,
		})
	}
	return emb, nil
}

func (v *EmbeddingVerifier) compare(probe, reference []float32) Result {
	distance := embedcache.CosineDistance(probe, reference)
	return Result{
		Matched:  distance <= v.threshold,
		Distance: distance,
	}
}
