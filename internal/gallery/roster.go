package gallery

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// rosterFileName is the optional display-name mapping living next to the
// reference images. Keys are identity labels, values are display names.
const rosterFileName = "roster.yaml"

type roster struct {
	Names map[string]string `yaml:"names"`

	normalized map[string]string // NormalizeIdentity(key) -> display name
}

// loadRoster reads roster.yaml from the gallery directory. A missing roster is
// not an error; every identity then displays as its raw label.
func loadRoster(dir string) (*roster, error) {
	r := &roster{normalized: make(map[string]string)}

	data, err := os.ReadFile(filepath.Join(dir, rosterFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("reading %s: %w", rosterFileName, err)
	}

	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rosterFileName, err)
	}

	for key, name := range r.Names {
		r.normalized[NormalizeIdentity(key)] = name
	}
	return r, nil
}

// displayName resolves an identity to its roster display name, falling back to
// the identity itself. Lookup is normalized so "jan-novak" finds "Jan Novák".
func (r *roster) displayName(identity string) string {
	if name, ok := r.normalized[NormalizeIdentity(identity)]; ok && name != "" {
		return name
	}
	return identity
}
