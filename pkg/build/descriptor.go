// Package build loads the build descriptors of checked out dependencies and
// keeps track of the builds included into the current resolution.
package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"
)

// DescriptorFileName is looked up at the root of every included build.
const DescriptorFileName = "srcdeps-build.yaml"

// RootProject is the path of a build's root project.
const RootProject = ":"

// Descriptor lists what a build publishes.
type Descriptor struct {
	Name         string        `json:"name,omitempty"`
	Publications []Publication `json:"publications,omitempty"`
}

// Publication is a module produced by one project of a build.
type Publication struct {
	Group   string `json:"group"`
	Module  string `json:"module"`
	Version string `json:"version,omitempty"`
	// Project is the producing project's path, e.g. ":core". Empty means
	// the root project.
	Project string `json:"project,omitempty"`
}

// ProjectPath returns Project, defaulting to the root project.
func (p Publication) ProjectPath() string {
	if p.Project == "" {
		return RootProject
	}
	return p.Project
}

func (p Publication) String() string {
	s := p.Group + ":" + p.Module
	if p.Version != "" {
		s += ":" + p.Version
	}
	return s
}

// LoadDescriptor reads the descriptor at the root of dir. A directory without
// one is a build that publishes nothing.
func LoadDescriptor(dir string) (*Descriptor, error) {
	path := filepath.Join(dir, DescriptorFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Descriptor{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	d := &Descriptor{}
	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return d, nil
}

func (d *Descriptor) Validate() error {
	var err error
	seen := make(map[string]bool, len(d.Publications))
	for i, p := range d.Publications {
		if p.Group == "" || p.Module == "" {
			err = errors.Join(err, fmt.Errorf("publication %d must name a group and a module", i))
			continue
		}
		if !strings.HasPrefix(p.ProjectPath(), RootProject) {
			err = errors.Join(err, fmt.Errorf("publication %s: project path %q must start with %q", p, p.Project, RootProject))
		}
		key := p.Group + ":" + p.Module
		if seen[key] {
			err = errors.Join(err, fmt.Errorf("%s is published more than once", key))
		}
		seen[key] = true
	}
	return err
}
