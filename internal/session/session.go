// Package session orchestrates one end-to-end attendance attempt: capture a
// probe frame, match it against the gallery, and on success write the
// attendance record. The session never retries on its own; triggering another
// attempt is the caller's decision.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/matcher"
	"github.com/kozaktomas/face-attendance/internal/verifier"
)

// State is the terminal state of one attendance attempt.
type State string

const (
	// StateRecorded means a match was accepted and the ledger updated.
	StateRecorded State = "recorded"
	// StateNoMatch means the scan completed without an accepted candidate.
	// This is a normal outcome, not an error.
	StateNoMatch State = "no_match"
	// StateErrored covers capture failures, matcher failures, and ledger
	// failures. The session survives; the message says what went wrong.
	StateErrored State = "errored"
)

// Outcome is the presentable result of one attempt.
type Outcome struct {
	AttemptID   string    `json:"attempt_id"`
	State       State     `json:"state"`
	Identity    string    `json:"identity,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Distance    float64   `json:"distance,omitempty"`
	RecordedAt  time.Time `json:"recorded_at,omitzero"`
	Message     string    `json:"message,omitempty"`
}

// Options configure a session.
type Options struct {
	// Now supplies timestamps for ledger writes. Defaults to time.Now.
	Now func() time.Time
	// VerifyTimeout bounds each verifier call during matching.
	VerifyTimeout time.Duration
	// Concurrency is passed through to the matcher.
	Concurrency int
}

// Session runs attendance attempts against a fixed gallery, verifier, and
// ledger. The camera handle is acquired per attempt and always released.
type Session struct {
	gallery  *gallery.Gallery
	verifier verifier.Verifier
	ledger   *ledger.Ledger
	handle   *camera.Handle
	opts     Options
}

// New creates a session. The handle wraps whatever frame source the caller
// uses (HTTP camera, file, test stub).
func New(g *gallery.Gallery, v verifier.Verifier, l *ledger.Ledger, h *camera.Handle, opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = constants.DefaultVerifyTimeout
	}
	return &Session{
		gallery:  g,
		verifier: v,
		ledger:   l,
		handle:   h,
		opts:     opts,
	}
}

// Run executes one attempt: Capturing -> Matching -> {Recorded, NoMatch,
// Errored}. Phases are strictly ordered and never overlap. Any panic from a
// misbehaving verifier is converted into an Errored outcome instead of
// killing the host process.
func (s *Session) Run(ctx context.Context) (outcome Outcome) {
	outcome = Outcome{AttemptID: uuid.NewString()}

	defer func() {
		if r := recover(); r != nil {
			outcome.State = StateErrored
			outcome.Message = fmt.Sprintf("verification panicked: %v", r)
		}
	}()

	// Capturing.
	if err := s.handle.Acquire(); err != nil {
		outcome.State = StateErrored
		outcome.Message = err.Error()
		return outcome
	}
	defer s.handle.Release()

	probe, err := s.handle.NextFrame(ctx)
	if err != nil {
		outcome.State = StateErrored
		if errors.Is(err, camera.ErrNoFrame) {
			outcome.Message = "camera produced no frame"
		} else {
			outcome.Message = err.Error()
		}
		return outcome
	}

	// Oversized kiosk frames are downscaled once here rather than per
	// gallery entry inside the verifier.
	if resized, err := verifier.ResizeImage(probe, constants.MaxImageSize); err == nil {
		probe = resized
	}

	// Matching.
	res, err := matcher.Match(ctx, probe, s.gallery, s.verifier, matcher.Options{
		VerifyTimeout: s.opts.VerifyTimeout,
		Concurrency:   s.opts.Concurrency,
	})
	if err != nil {
		outcome.State = StateErrored
		outcome.Message = fmt.Sprintf("matching failed: %v", err)
		return outcome
	}
	if !res.Accepted {
		outcome.State = StateNoMatch
		outcome.Message = "no matching identity in gallery"
		return outcome
	}

	outcome.Identity = res.Identity
	outcome.DisplayName = res.DisplayName
	outcome.Distance = res.Distance

	// An attempt aborted between match and record must leave the ledger
	// untouched; no partial attendance record for a cancelled capture.
	if ctx.Err() != nil {
		outcome.State = StateErrored
		outcome.Message = "attempt cancelled before recording"
		return outcome
	}

	// Recording.
	now := s.opts.Now()
	if err := s.ledger.Record(res.Identity, now); err != nil {
		outcome.State = StateErrored
		outcome.Message = fmt.Sprintf("recording attendance failed: %v", err)
		return outcome
	}

	outcome.State = StateRecorded
	outcome.RecordedAt = now
	return outcome
}
