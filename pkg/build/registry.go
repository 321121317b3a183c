package build

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// IncludedBuild is a checkout taking part in the current resolution.
type IncludedBuild struct {
	Name       string
	RootDir    string
	Descriptor *Descriptor
}

// AvailableModules lists the modules the build publishes.
func (b *IncludedBuild) AvailableModules() []Publication {
	out := make([]Publication, len(b.Descriptor.Publications))
	copy(out, b.Descriptor.Publications)
	return out
}

// Registry holds the builds included so far. Safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	byRoot map[string]*IncludedBuild
	byName map[string]*IncludedBuild
}

func NewRegistry() *Registry {
	return &Registry{
		byRoot: make(map[string]*IncludedBuild),
		byName: make(map[string]*IncludedBuild),
	}
}

// BuildForRoot returns the build registered for rootDir, if any.
func (r *Registry) BuildForRoot(rootDir string) (*IncludedBuild, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byRoot[filepath.Clean(rootDir)]
	return b, ok
}

// AddImplicitBuild includes the build at rootDir under name. A root that is
// already included is returned as is, whatever name it was given.
func (r *Registry) AddImplicitBuild(name, rootDir string) (*IncludedBuild, error) {
	rootDir = filepath.Clean(rootDir)

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.byRoot[rootDir]; ok {
		return b, nil
	}
	if other, ok := r.byName[name]; ok {
		return nil, fmt.Errorf("build name %q is already used by %s", name, other.RootDir)
	}

	d, err := LoadDescriptor(rootDir)
	if err != nil {
		return nil, err
	}

	b := &IncludedBuild{Name: name, RootDir: rootDir, Descriptor: d}
	r.byRoot[rootDir] = b
	r.byName[name] = b
	return b, nil
}

// Builds returns the included builds ordered by name.
func (r *Registry) Builds() []*IncludedBuild {
	r.mu.Lock()
	defer r.mu.Unlock()

	builds := make([]*IncludedBuild, 0, len(r.byName))
	for _, b := range r.byName {
		builds = append(builds, b)
	}
	sort.Slice(builds, func(i, j int) bool { return builds[i].Name < builds[j].Name })
	return builds
}
