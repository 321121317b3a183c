package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// LockFileName records what every dependency resolved to.
const LockFileName = "srcdeps.lock"

const lockFileVersion = 1

type LockFile struct {
	Version      int              `toml:"version"`
	Dependencies []DependencyLock `toml:"dependency,omitempty"`
}

// DependencyLock is the resolution of one manifest dependency.
type DependencyLock struct {
	Name      string `toml:"name"`
	Module    string `toml:"module"`
	Requested string `toml:"requested"`
	// Build and Project identify the providing project of the included build.
	Build    string `toml:"build"`
	Project  string `toml:"project"`
	Version  string `toml:"version"`
	Revision string `toml:"revision"`
	// Root is the checkout directory of the build.
	Root      string `toml:"root"`
	Integrity string `toml:"integrity,omitempty"`
}

func NewLockFile() *LockFile {
	return &LockFile{Version: lockFileVersion}
}

// Find returns the entry for the named dependency.
func (l *LockFile) Find(name string) (DependencyLock, bool) {
	for _, d := range l.Dependencies {
		if d.Name == name {
			return d, true
		}
	}
	return DependencyLock{}, false
}

// Sort orders entries by dependency name.
func (l *LockFile) Sort() {
	sort.Slice(l.Dependencies, func(i, j int) bool {
		return l.Dependencies[i].Name < l.Dependencies[j].Name
	})
}

// LoadLockFile reads the lockfile at path. A missing file is an empty lockfile.
func LoadLockFile(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewLockFile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	lf := &LockFile{}
	if err := toml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if lf.Version != lockFileVersion {
		return nil, fmt.Errorf("unsupported lockfile version %d in %s (expected %d)", lf.Version, path, lockFileVersion)
	}
	return lf, nil
}

func SaveLockFile(path string, lf *LockFile) error {
	lf.Sort()
	data, err := toml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lockfile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
