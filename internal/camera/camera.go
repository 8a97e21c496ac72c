// Package camera abstracts probe frame acquisition. Verification does not
// care whether the frame comes from a kiosk camera's HTTP snapshot endpoint
// or a file on disk.
package camera

import (
	"context"
	"errors"
	"sync"
)

// ErrNoFrame is returned when no frame is available (camera offline,
// disconnected, empty snapshot). Recoverable: the session returns to idle.
var ErrNoFrame = errors.New("no frame available")

// ErrAlreadyAcquired is returned when acquiring an already-active handle.
var ErrAlreadyAcquired = errors.New("camera already acquired")

// ErrNotAcquired is returned when releasing an inactive handle.
var ErrNotAcquired = errors.New("camera not acquired")

// Source produces probe frames as encoded image bytes.
type Source interface {
	NextFrame(ctx context.Context) ([]byte, error)
}

// Handle enforces exclusive ownership of a frame source. At most one
// verification session may hold the camera at a time; double acquisition or
// release of an inactive handle is a programming error and fails fast instead
// of corrupting state.
type Handle struct {
	mu     sync.Mutex
	source Source
	active bool
}

// NewHandle wraps a source in an exclusive handle.
// Frame is a fixed image acting as a one-shot Source, used for uploaded
// probe images.
type Frame []byte

func (f Frame) NextFrame(_ context.Context) ([]byte, error) {
	if len(f) == 0 {
		return nil, ErrNoFrame
	}
	return []byte(f), nil
}

func NewHandle(source Source) *Handle {
	return &Handle{source: source}
}

// Acquire claims the camera for one session.
func (h *Handle) Acquire() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active {
		return ErrAlreadyAcquired
	}
	h.active = true
	return nil
}

// Release returns the camera. Must be called on every session exit path.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return ErrNotAcquired
	}
	h.active = false
	return nil
}

// Active reports whether the handle is currently held.
func (h *Handle) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// NextFrame fetches one frame from the underlying source. The handle must be
// acquired first.
func (h *Handle) NextFrame(ctx context.Context) ([]byte, error) {
	h.mu.Lock()
	if !h.active {
		h.mu.Unlock()
		return nil, ErrNotAcquired
	}
	source := h.source
	h.mu.Unlock()

	return source.NextFrame(ctx)
}
