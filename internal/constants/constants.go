// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Verification constants
const (
	// DefaultVerifyTimeout is the maximum duration of a single verifier call.
	// One pathological reference image must not stall a whole attendance attempt.
	DefaultVerifyTimeout = 30 * time.Second

	// DefaultDistanceThreshold is the default maximum cosine distance for the
	// embedding-based verifier. Lower values = stricter matching.
	DefaultDistanceThreshold = 0.5

	// DefaultEmbeddingDim is the expected dimension of face embeddings
	DefaultEmbeddingDim = 512

	// MaxImageSize is the maximum dimension (width or height) for images sent
	// to the verification service. Larger images are downscaled first.
	MaxImageSize = 1920
)

// Ledger constants
const (
	// DateFormat is the ISO calendar date layout used as ledger keys
	DateFormat = "2006-01-02"

	// TimeFormat is the time-of-day layout stored per attendance record
	TimeFormat = "15:04:05"

	// MonthFormat is the layout for monthly report selectors
	MonthFormat = "2006-01"
)

// Report constants
const (
	// DefaultWorkdayStart is the default start-of-day for late arrival reports
	DefaultWorkdayStart = "09:00"

	// DefaultGraceMinutes is the default grace period before an arrival counts as late
	DefaultGraceMinutes = 15
)

// Camera constants
const (
	// SnapshotTimeout is the maximum duration of a single frame fetch
	SnapshotTimeout = 10 * time.Second
)
