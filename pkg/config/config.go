package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/agentpkg/srcdeps/pkg/module"
	"github.com/agentpkg/srcdeps/pkg/version"
)

// ManifestFileName is the project manifest committed to version control.
const ManifestFileName = "srcdeps.toml"

type Config struct {
	Project       ProjectConfig         `toml:"project"`
	Dependencies  map[string]Dependency `toml:"dependencies,omitempty"`
	SourceControl []SourceControlRule   `toml:"sourceControl,omitempty"`
}

type ProjectConfig struct {
	Name string `toml:"name"`
}

// Dependency requests a module at a version or from a branch.
type Dependency struct {
	// Module is "group:name".
	Module  string `toml:"module"`
	Version string `toml:"version,omitempty"`
	Branch  string `toml:"branch,omitempty"`
}

// Constraint returns the requested version or branch.
func (d Dependency) Constraint() version.Constraint {
	return version.Constraint{Branch: d.Branch, Required: d.Version}
}

// Selector parses the dependency into a module selector.
func (d Dependency) Selector() (module.ModuleSelector, error) {
	id, err := module.ParseID(d.Module)
	if err != nil {
		return module.ModuleSelector{}, err
	}
	c := d.Constraint()
	if err := c.Validate(); err != nil {
		return module.ModuleSelector{}, err
	}
	return module.ModuleSelector{ID: id, Constraint: c}, nil
}

// SourceControlRule says which repository builds a module, every module of a
// group, or (with All) any module not matched otherwise.
type SourceControlRule struct {
	Module string `toml:"module,omitempty"`
	Group  string `toml:"group,omitempty"`
	All    bool   `toml:"all,omitempty"`

	Git string `toml:"git"`
	// RootDir is the build root inside the repository.
	RootDir string `toml:"rootDir,omitempty"`
}

// DependencyNames returns the dependency names in sorted order.
func (c *Config) DependencyNames() []string {
	names := make([]string, 0, len(c.Dependencies))
	for name := range c.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) Validate() error {
	var err error
	for _, name := range c.DependencyNames() {
		if _, e := c.Dependencies[name].Selector(); e != nil {
			err = errors.Join(err, fmt.Errorf("dependency %q: %w", name, e))
		}
	}
	for i, r := range c.SourceControl {
		if r.Git == "" {
			err = errors.Join(err, fmt.Errorf("sourceControl rule %d: git is required", i))
		}
		if r.Module != "" {
			if _, e := module.ParseID(r.Module); e != nil {
				err = errors.Join(err, fmt.Errorf("sourceControl rule %d: %w", i, e))
			}
		}
	}
	return err
}

func UnmarshalConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	err := toml.Unmarshal(data, cfg)

	return cfg, err
}

func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := UnmarshalConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func SaveFile(path string, cfg *Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// GlobalConfigDir returns ~/.srcdeps, which holds the global developer
// config. It is not created.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, ".srcdeps"), nil
}
