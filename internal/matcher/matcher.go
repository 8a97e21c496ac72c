// Package matcher decides whether a probe image corresponds to a gallery
// identity by running it against every reference image through a verifier
// and keeping the accepted candidate with the lowest distance.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/verifier"
)

// ErrEmptyGallery is returned when there are no reference identities to scan.
// No verifier call is made in that case.
var ErrEmptyGallery = errors.New("gallery is empty")

// ErrEmptyProbe is returned when the probe image has no data.
var ErrEmptyProbe = errors.New("probe image is empty")

// Result is the decision for one probe against the gallery.
type Result struct {
	Identity    string  `json:"identity,omitempty"`
	DisplayName string  `json:"display_name,omitempty"`
	Distance    float64 `json:"distance"`
	Accepted    bool    `json:"accepted"`
	Scanned     int     `json:"scanned"` // entries evaluated
	Skipped     int     `json:"skipped"` // entries skipped after a per-entry failure
}

// Options tune a matching scan.
type Options struct {
	// VerifyTimeout bounds each individual verifier call so one pathological
	// reference image cannot stall the whole attempt. Zero means the default.
	VerifyTimeout time.Duration
	// Concurrency > 1 scans gallery entries in parallel. Results are reduced
	// by (distance, gallery index), which preserves the sequential tie-break:
	// on an exact distance tie the entry earlier in identity order wins.
	Concurrency int
}

// entryOutcome is the per-entry scan result used by the parallel reduction.
type entryOutcome struct {
	index  int
	result verifier.Result
	err    error
}

// Match runs the probe against every gallery entry. Acceptance is delegated
// entirely to the verifier's own matched decision; the matcher only minimizes
// distance among accepted candidates. Per-entry verification failures are
// absorbed: the entry is skipped and the scan continues. Only a total failure
// (empty gallery, empty probe, every entry failing) is an error.
func Match(ctx context.Context, probe []byte, g *gallery.Gallery, v verifier.Verifier, opts Options) (Result, error) {
	if len(probe) == 0 {
		return Result{}, ErrEmptyProbe
	}
	if g == nil || g.Len() == 0 {
		return Result{}, ErrEmptyGallery
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = constants.DefaultVerifyTimeout
	}

	entries := g.Entries()
	outcomes := make([]entryOutcome, len(entries))

	if opts.Concurrency > 1 {
		scanParallel(ctx, probe, entries, v, opts, outcomes)
	} else {
		scanSequential(ctx, probe, entries, v, opts, outcomes)
	}

	return reduce(entries, outcomes)
}

// verifyOne runs a single bounded verifier call, preferring the entry-aware
// fast path when the verifier offers one.
func verifyOne(ctx context.Context, probe []byte, entry gallery.Entry, v verifier.Verifier, timeout time.Duration) (verifier.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if ev, ok := v.(verifier.EntryVerifier); ok {
		return ev.VerifyEntry(callCtx, probe, entry)
	}
	return v.Verify(callCtx, probe, entry.Image)
}

func scanSequential(ctx context.Context, probe []byte, entries []gallery.Entry, v verifier.Verifier, opts Options, outcomes []entryOutcome) {
	for i, entry := range entries {
		if ctx.Err() != nil {
			outcomes[i] = entryOutcome{index: i, err: ctx.Err()}
			continue
		}
		res, err := verifyOne(ctx, probe, entry, v, opts.VerifyTimeout)
		outcomes[i] = entryOutcome{index: i, result: res, err: err}
	}
}

func scanParallel(ctx context.Context, probe []byte, entries []gallery.Entry, v verifier.Verifier, opts Options, outcomes []entryOutcome) {
	sem := make(chan struct{}, opts.Concurrency)
	var wg sync.WaitGroup

	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry gallery.Entry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				outcomes[i] = entryOutcome{index: i, err: ctx.Err()}
				return
			}
			res, err := verifyOne(ctx, probe, entry, v, opts.VerifyTimeout)
			outcomes[i] = entryOutcome{index: i, result: res, err: err}
		}(i, entry)
	}
	wg.Wait()
}

// reduce folds per-entry outcomes into the final decision. Iterating outcomes
// in gallery order keeps strictly-lower-distance-wins with first-seen on ties,
// regardless of how the entries were scanned.
func reduce(entries []gallery.Entry, outcomes []entryOutcome) (Result, error) {
	result := Result{Distance: math.Inf(1)}
	var lastErr error
	failed := 0

	for _, o := range outcomes {
		if o.err != nil {
			failed++
			lastErr = o.err
			if !errors.Is(o.err, verifier.ErrNoFaceDetected) {
				log.Printf("verify %s: %v", entries[o.index].Identity, o.err)
			}
			continue
		}
		result.Scanned++
		if o.result.Matched && o.result.Distance < result.Distance {
			result.Identity = entries[o.index].Identity
			result.DisplayName = entries[o.index].DisplayName
			result.Distance = o.result.Distance
			result.Accepted = true
		}
	}
	result.Skipped = failed

	if failed == len(entries) {
		return Result{}, fmt.Errorf("all %d gallery entries failed verification: %w", failed, lastErr)
	}
	if !result.Accepted {
		return Result{Scanned: result.Scanned, Skipped: result.Skipped}, nil
	}
	return result, nil
}
