package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// HTTPCamera fetches frames from an IP camera's still-snapshot endpoint
// (e.g. mjpg-streamer's /?action=snapshot).
type HTTPCamera struct {
	snapshotURL string
	client      *http.Client
}

// NewHTTPCamera creates a camera source for the given snapshot URL.
func NewHTTPCamera(snapshotURL string) *HTTPCamera {
	return &HTTPCamera{
		snapshotURL: snapshotURL,
		client:      &http.Client{Timeout: constants.SnapshotTimeout},
	}
}

// NextFrame fetches one snapshot. Connection failures, non-200 responses,
// and empty bodies all map to ErrNoFrame.
func (c *HTTPCamera) NextFrame(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.snapshotURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: snapshot endpoint returned status %d", ErrNoFrame, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading snapshot: %v", ErrNoFrame, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty snapshot body", ErrNoFrame)
	}
	return data, nil
}
