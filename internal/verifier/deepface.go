package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

const defaultVerifierURL = "http://localhost:5000"

// DeepFaceClient talks to a DeepFace-style verification service exposing a
// POST /verify endpoint that takes two images and returns a verified boolean
// plus a distance score.
type DeepFaceClient struct {
	baseURL string
	client  *http.Client
}

// NewDeepFaceClient creates a new verification service client. The HTTP client
// carries a hard timeout on top of any per-call context deadline.
func NewDeepFaceClient(baseURL string, timeout time.Duration) *DeepFaceClient {
	if baseURL == "" {
		baseURL = defaultVerifierURL
	}
	if timeout <= 0 {
		timeout = constants.DefaultVerifyTimeout
	}
	return &DeepFaceClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// verifyResponse represents the response from the verification service.
type verifyResponse struct {
	Verified bool    `json:"verified"`
	Distance float64 `json:"distance"`
	Model    string  `json:"model"`
	Error    string  `json:"error,omitempty"`
}

// Verify compares a probe image against one reference image. A 422 from the
// service means it found no face in one of the images and maps to
// ErrNoFaceDetected so callers can skip the entry and keep scanning.
func (c *DeepFaceClient) Verify(ctx context.Context, probe, reference []byte) (Result, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, part := range []struct {
		field string
		data  []byte
	}{
		{"img1", probe},
		{"img2", reference},
	} {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="image.jpg"`, part.field))
		h.Set("Content-Type", detectMIMEType(part.data))
		w, err := writer.CreatePart(h)
		if err != nil {
			return Result{}, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := w.Write(part.data); err != nil {
			return Result{}, fmt.Errorf("failed to write image data: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify", &buf)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("verify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	// DeepFace's HTTP API reports detection failures as 422.
	if resp.StatusCode == http.StatusUnprocessableEntity {
		return Result{}, fmt.Errorf("%w: %s", ErrNoFaceDetected, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("verifier API error (status %d): %s", resp.StatusCode, string(body))
	}

	var vr verifyResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return Result{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if vr.Error != "" {
		return Result{}, fmt.Errorf("verifier error: %s", vr.Error)
	}

	return Result{Matched: vr.Verified, Distance: vr.Distance}, nil
}
