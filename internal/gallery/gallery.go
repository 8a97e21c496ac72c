// Package gallery loads the set of known reference identities from a directory
// of image files. The file base name (without extension) is the identity key.
package gallery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrUnreadable is returned when the gallery directory cannot be read.
var ErrUnreadable = errors.New("gallery directory unreadable")

// ErrDuplicateIdentity is returned when two reference files share the same
// identity label (e.g. alice.jpg next to alice.png).
var ErrDuplicateIdentity = errors.New("duplicate identity in gallery")

// supportedExtensions are the reference image types the gallery accepts.
// Extensions are compared case-insensitively; everything else is skipped.
var supportedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// Entry is one (identity, reference image) pair.
type Entry struct {
	Identity    string    // file stem, unique key into gallery and ledger
	DisplayName string    // from roster.yaml, falls back to Identity
	Path        string    // absolute path to the reference image
	Image       []byte    // raw image bytes, loaded once at gallery load
	ModTime     time.Time // file modification time, used for cache invalidation
}

// Gallery holds the loaded reference entries, sorted by identity so that the
// matcher's scan order (and its first-seen-wins tie-break) is deterministic.
type Gallery struct {
	dir     string
	entries []Entry
}

// Load reads all supported reference images from dir. Files whose extension is
// not a supported image type are skipped silently. Two files mapping to the
// same identity are rejected rather than letting one silently shadow the other.
func Load(dir string) (*Gallery, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, dir, err)
	}

	roster, err := loadRoster(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string) // identity -> path of first occurrence
	var entries []Entry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name()))
		if _, ok := supportedExtensions[ext]; !ok {
			continue
		}

		identity := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
		path := filepath.Join(dir, f.Name())
		if prev, ok := seen[identity]; ok {
			return nil, fmt.Errorf("%w: %q maps to both %s and %s", ErrDuplicateIdentity, identity, prev, path)
		}
		seen[identity] = path

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading reference image %s: %w", path, err)
		}
		info, err := f.Info()
		if err != nil {
			return nil, fmt.Errorf("stat reference image %s: %w", path, err)
		}

		entries = append(entries, Entry{
			Identity:    identity,
			DisplayName: roster.displayName(identity),
			Path:        path,
			Image:       data,
			ModTime:     info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Identity < entries[j].Identity
	})

	return &Gallery{dir: dir, entries: entries}, nil
}

// Entries returns the gallery entries in identity order.
func (g *Gallery) Entries() []Entry {
	return g.entries
}

// Len returns the number of identities in the gallery.
func (g *Gallery) Len() int {
	return len(g.entries)
}

// Identities returns all identity labels in sorted order.
func (g *Gallery) Identities() []string {
	ids := make([]string, len(g.entries))
	for i, e := range g.entries {
		ids[i] = e.Identity
	}
	return ids
}

// Dir returns the backing directory of the gallery.
func (g *Gallery) Dir() string {
	return g.dir
}
