// Package verifier abstracts the external face verification capability: given
// two images, decide whether they show the same person and how far apart the
// faces are. Two backends exist, a DeepFace-style verify service and an
// embedding service compared by cosine distance.
package verifier

import (
	"context"
	"errors"
)

// ErrNoFaceDetected is returned when the service finds no face in either
// image. Callers recover from it per gallery entry; it must never abort a
// whole matching scan.
var ErrNoFaceDetected = errors.New("no face detected")

// Result is the outcome of comparing a probe against one reference image.
type Result struct {
	Matched  bool    // the backend's own acceptance decision
	Distance float64 // distance score, lower = more similar
}

// Verifier compares a probe image against a single reference image.
// Implementations are expected to be safe for concurrent use.
type Verifier interface {
	Verify(ctx context.Context, probe, reference []byte) (Result, error)
}
