package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSource reads probe frames from a single image file. Used by the CLI
// verify command and in tests.
type FileSource struct {
	path string
}

// NewFileSource creates a frame source for one image file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// NextFrame reads the image file.
func (s *FileSource) NextFrame(ctx context.Context) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(s.path))
	switch ext {
	case ".png", ".jpg", ".jpeg":
	default:
		return nil, fmt.Errorf("unsupported probe image type %q", ext)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoFrame, s.path)
	}
	return data, nil
}
