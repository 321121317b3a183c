// Package project locates and initialises srcdeps projects on disk.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentpkg/srcdeps/pkg/config"
)

const ManifestFile = config.ManifestFileName

// LocalStoreDir is the conventional project-local store, used when
// developers point storeDir inside the project.
const LocalStoreDir = ".srcdeps/"

// ErrNoProject is returned by FindRoot when no manifest is found.
var ErrNoProject = errors.New("no " + ManifestFile + " found in this directory or any parent")

// InferName derives a project name from the given directory path.
func InferName(dir string) string {
	return filepath.Base(dir)
}

// FindRoot returns the closest directory at or above dir that holds a
// manifest.
func FindRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoProject
		}
		dir = parent
	}
}

// Init creates a srcdeps.toml manifest in dir with the given project name.
// Returns an error if the manifest already exists.
func Init(dir, name string) error {
	path := filepath.Join(dir, ManifestFile)

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", ManifestFile)
	}

	cfg := &config.Config{
		Project:      config.ProjectConfig{Name: name},
		Dependencies: map[string]config.Dependency{},
	}
	if err := config.SaveFile(path, cfg); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// EnsureGitignore appends to dir/.gitignore the entries it does not list yet
// and returns the ones it added.
func EnsureGitignore(dir string, entries []string) ([]string, error) {
	path := filepath.Join(dir, ".gitignore")

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(existing), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var (
		added []string
		buf   strings.Builder
	)
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		buf.WriteString("\n")
	}
	for _, entry := range entries {
		if present[entry] {
			continue
		}
		present[entry] = true
		added = append(added, entry)
		buf.WriteString(entry + "\n")
	}
	if len(added) == 0 {
		return nil, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(buf.String()); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	return added, nil
}
