package config

import (
	"os"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

type Config struct {
	Gallery  GalleryConfig
	Ledger   LedgerConfig
	Verifier VerifierConfig
	Camera   CameraConfig
	Database DatabaseConfig
	Report   ReportConfig
}

type GalleryConfig struct {
	Dir string // directory of reference images, file stem = identity
}

type LedgerConfig struct {
	Path string // path to the JSON attendance snapshot file
}

type VerifierConfig struct {
	URL          string        // DeepFace-style verification service URL
	Timeout      time.Duration // per-call timeout for verify requests
	EmbeddingURL string        // embedding service URL (alternative verifier backend)
	EmbeddingDim int           // expected embedding dimension
	Threshold    float64       // max cosine distance for the embedding verifier
}

type CameraConfig struct {
	SnapshotURL string // HTTP snapshot endpoint of the kiosk camera
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL for the embedding cache (optional)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type ReportConfig struct {
	WorkdayStart string // HH:MM start-of-day for late arrival reports
	GraceMinutes int    // grace period in minutes before an arrival counts as late
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envSeconds reads an environment variable holding a number of seconds.
// Returns the default duration if the env var is unset, empty, or invalid.
func envSeconds(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Gallery: GalleryConfig{
			Dir: os.Getenv("GALLERY_DIR"),
		},
		Ledger: LedgerConfig{
			Path: envString("LEDGER_PATH", "attendance.json"),
		},
		Verifier: VerifierConfig{
			URL:          os.Getenv("VERIFIER_URL"),
			Timeout:      envSeconds("VERIFIER_TIMEOUT_SECONDS", constants.DefaultVerifyTimeout),
			EmbeddingURL: os.Getenv("EMBEDDING_URL"),
			EmbeddingDim: envInt("EMBEDDING_DIM", constants.DefaultEmbeddingDim),
			Threshold:    envFloat("VERIFIER_THRESHOLD", constants.DefaultDistanceThreshold),
		},
		Camera: CameraConfig{
			SnapshotURL: os.Getenv("CAMERA_URL"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Report: ReportConfig{
			WorkdayStart: envString("WORKDAY_START", constants.DefaultWorkdayStart),
			GraceMinutes: envInt("GRACE_MINUTES", constants.DefaultGraceMinutes),
		},
	}
}
