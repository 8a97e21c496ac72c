package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/verifier"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Report: config.ReportConfig{
			WorkdayStart: "09:00",
			GraceMinutes: 15,
		},
	}
}

// testGallery builds a gallery whose image bytes equal the identity name,
// so a stub verifier can decide by reference content.
func testGallery(t *testing.T, identities ...string) *gallery.Gallery {
	t.Helper()

	dir := t.TempDir()
	for _, id := range identities {
		if err := os.WriteFile(filepath.Join(dir, id+".jpg"), []byte(id), 0o644); err != nil {
			t.Fatalf("failed to write gallery file: %v", err)
		}
	}

	g, err := gallery.Load(dir)
	if err != nil {
		t.Fatalf("failed to load gallery: %v", err)
	}
	return g
}

func testLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	return ledger.Open(filepath.Join(t.TempDir(), "attendance.json"))
}

func seedLedger(t *testing.T, l *ledger.Ledger, date string, names map[string]string) {
	t.Helper()
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("bad test date %q: %v", date, err)
	}
	for identity, ts := range names {
		arrival, err := time.Parse("15:04:05", ts)
		if err != nil {
			t.Fatalf("bad test time %q: %v", ts, err)
		}
		stamp := time.Date(day.Year(), day.Month(), day.Day(),
			arrival.Hour(), arrival.Minute(), arrival.Second(), 0, time.UTC)
		if err := l.Record(identity, stamp); err != nil {
			t.Fatalf("failed to seed ledger: %v", err)
		}
	}
}

// stubVerifier decides by the reference image content.
type stubVerifier struct {
	results map[string]verifier.Result
	err     error
}

func (v *stubVerifier) Verify(_ context.Context, _, reference []byte) (verifier.Result, error) {
	if v.err != nil {
		return verifier.Result{}, v.err
	}
	return v.results[string(reference)], nil
}

// multipartImageRequest builds a POST request with an "image" form field.
func multipartImageRequest(t *testing.T, path string, image []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "probe.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(image); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
