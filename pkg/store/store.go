// Package store manages the srcdeps home directory: checkouts, the
// persistent metadata cache and anything else shared between builds.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

const (
	dirPerm     = 0o755
	hashPrefix  = "sha256:"
	DefaultRoot = ".srcdeps"

	// HomeEnv overrides the default store root.
	HomeEnv = "SRCDEPS_HOME"
)

type Store interface {
	// Root is the absolute directory everything else lives under.
	Root() string
	// Path returns the absolute path of segments below the root without
	// touching the filesystem.
	Path(segments ...string) string
	// Exists reports whether the path at the given segments exists.
	Exists(segments ...string) (bool, error)
	// EnsureDir creates the directory at segments, including parents.
	EnsureDir(segments ...string) error
	// Remove deletes the entire tree at segments. Removing a missing path
	// is not an error.
	Remove(segments ...string) error
	// HashDir computes a "sha256:<hex>" integrity hash over the files below
	// segments, in sorted order. Version control metadata (.git) is skipped.
	HashDir(segments ...string) (string, error)
}

// New returns a store rooted at root, which is made absolute.
func New(root string) Store {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &store{root: root, fs: osfs.New(root)}
}

// Default returns the store at $SRCDEPS_HOME, or ~/.srcdeps when unset.
func Default() (Store, error) {
	if root := os.Getenv(HomeEnv); root != "" {
		return New(root), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("determining home directory: %w", err)
	}
	return New(filepath.Join(home, DefaultRoot)), nil
}

type store struct {
	root string
	fs   billy.Filesystem
}

var _ Store = &store{}

func (s *store) Root() string {
	return s.root
}

func (s *store) Path(segments ...string) string {
	return filepath.Join(append([]string{s.root}, segments...)...)
}

// rel is the path of segments inside the store filesystem.
func (s *store) rel(segments ...string) string {
	if len(segments) == 0 {
		return "."
	}
	return filepath.Join(segments...)
}

func (s *store) Exists(segments ...string) (bool, error) {
	_, err := s.fs.Stat(s.rel(segments...))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *store) EnsureDir(segments ...string) error {
	if err := s.fs.MkdirAll(s.rel(segments...), dirPerm); err != nil {
		return fmt.Errorf("creating %s: %w", s.Path(segments...), err)
	}
	return nil
}

func (s *store) Remove(segments ...string) error {
	if err := util.RemoveAll(s.fs, s.rel(segments...)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", s.Path(segments...), err)
	}
	return nil
}

func (s *store) HashDir(segments ...string) (string, error) {
	dir := s.rel(segments...)

	var files []string
	err := util.Walk(s.fs, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking %s: %w", s.Path(segments...), err)
	}

	sort.Strings(files)

	h := sha256.New()
	for _, f := range files {
		data, err := util.ReadFile(s.fs, filepath.Join(dir, f))
		if err != nil {
			return "", err
		}
		h.Write([]byte(f))
		h.Write(data)
	}

	return hashPrefix + hex.EncodeToString(h.Sum(nil)), nil
}
