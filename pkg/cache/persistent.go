package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agentpkg/srcdeps/pkg/vcs"
	"github.com/agentpkg/srcdeps/pkg/version"
)

const (
	// DirName carries the record format version; a new format gets a new
	// directory instead of a migration.
	DirName = "vcs-metadata-1"

	entriesDir   = "entries"
	lockFileName = ".lock"

	defaultReadCacheSize = 256
)

// ErrStopped is returned by every operation on a stopped PersistentCache.
var ErrStopped = errors.New("persistent vcs metadata cache is stopped")

type persistentOptions struct {
	fs            billy.Filesystem
	readCacheSize int
}

// PersistentOption configures OpenPersistentCache.
type PersistentOption func(*persistentOptions)

// WithFilesystem stores the cache on fs instead of the local filesystem.
//
// Example:
//
//	c, _ := cache.OpenPersistentCache("/cache", cache.WithFilesystem(memfs.New()))
func WithFilesystem(fs billy.Filesystem) PersistentOption {
	return func(o *persistentOptions) {
		o.fs = fs
	}
}

// WithReadCacheSize bounds the number of decoded records kept in memory.
func WithReadCacheSize(n int) PersistentOption {
	return func(o *persistentOptions) {
		o.readCacheSize = n
	}
}

// PersistentCache remembers, across builds, which working directory a
// (repository, constraint) pair last resolved to. Opening it takes no lock;
// every operation takes the cache's file lock for its own duration.
type PersistentCache struct {
	fs         billy.Filesystem
	dir        string
	recent     *lru.Cache[string, WorkingDir]
	serializer WorkingDirSerializer

	mu      sync.Mutex
	stopped bool
}

// OpenPersistentCache opens (creating if needed) the cache below root.
func OpenPersistentCache(root string, opts ...PersistentOption) (*PersistentCache, error) {
	options := &persistentOptions{readCacheSize: defaultReadCacheSize}
	for _, opt := range opts {
		opt(options)
	}

	fs := options.fs
	if fs == nil {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolving cache root %s: %w", root, err)
		}
		root = abs
		fs = osfs.New("/")
	}

	dir := filepath.Join(root, DirName)
	if err := fs.MkdirAll(filepath.Join(dir, entriesDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}

	recent, err := lru.New[string, WorkingDir](max(options.readCacheSize, 1))
	if err != nil {
		return nil, fmt.Errorf("creating read cache: %w", err)
	}

	return &PersistentCache{
		fs:     fs,
		dir:    dir,
		recent: recent,
	}, nil
}

// Dir is the directory holding the cache.
func (c *PersistentCache) Dir() string {
	return c.dir
}

// WorkingDirForSelector returns the last recorded resolution of the
// constraint against the repository.
func (c *PersistentCache) WorkingDirForSelector(spec vcs.Spec, constraint version.Constraint) (WorkingDir, bool, error) {
	key := vcs.CacheKey(spec.UniqueID(), constraint)

	var (
		wd    WorkingDir
		found bool
	)
	err := c.withLock(func() error {
		if cached, ok := c.recent.Get(key); ok {
			wd, found = cached, true
			return nil
		}

		data, err := util.ReadFile(c.fs, c.entryPath(key))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("reading cache entry for %s: %w", key, err)
		}

		wd, err = c.serializer.Read(NewDecoder(data))
		if err != nil {
			return fmt.Errorf("decoding cache entry for %s: %w", key, err)
		}
		found = true
		c.recent.Add(key, wd)
		return nil
	})
	return wd, found, err
}

// PutWorkingDirForSelector records that constraint resolved to selected,
// checked out at dir. An existing record is overwritten.
func (c *PersistentCache) PutWorkingDirForSelector(spec vcs.Spec, constraint version.Constraint, selected vcs.VersionRef, dir string) error {
	key := vcs.CacheKey(spec.UniqueID(), constraint)
	wd := WorkingDir{Selected: selected, Dir: dir}

	enc := NewEncoder()
	if err := c.serializer.Write(enc, wd); err != nil {
		return fmt.Errorf("encoding cache entry for %s: %w", key, err)
	}

	return c.withLock(func() error {
		path := c.entryPath(key)
		tmp := path + ".tmp"
		if err := util.WriteFile(c.fs, tmp, enc.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing cache entry for %s: %w", key, err)
		}
		if err := c.fs.Rename(tmp, path); err != nil {
			c.fs.Remove(tmp)
			return fmt.Errorf("committing cache entry for %s: %w", key, err)
		}
		// Decoding gives the absolute path the serializer wrote.
		stored, err := c.serializer.Read(NewDecoder(enc.Bytes()))
		if err != nil {
			return err
		}
		c.recent.Add(key, stored)
		return nil
	})
}

// Stop closes the cache. It must be called once, at the end of the build
// session that opened it.
func (c *PersistentCache) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}
	c.stopped = true
	c.recent.Purge()
	return nil
}

func (c *PersistentCache) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, entriesDir, hex.EncodeToString(sum[:]))
}

// withLock runs fn holding the in-process mutex and the cache's file lock,
// which serialises access from other processes sharing the directory.
func (c *PersistentCache) withLock(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}

	f, err := c.fs.OpenFile(filepath.Join(c.dir, lockFileName), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("opening cache lock: %w", err)
	}
	defer f.Close()

	if err := f.Lock(); err != nil {
		return fmt.Errorf("locking cache: %w", err)
	}
	defer f.Unlock()

	return fn()
}
