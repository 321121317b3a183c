package cache

import (
	"sync"

	"github.com/agentpkg/srcdeps/pkg/vcs"
	"github.com/agentpkg/srcdeps/pkg/version"
)

// SelectionCache remembers version listings and working directories for the
// lifetime of one build invocation. Each method is atomic on its own; a
// lookup followed by a store is not, callers that need that serialise
// themselves.
type SelectionCache struct {
	versions     sync.Map // repo id -> []vcs.VersionRef
	revisionDirs sync.Map // "<repo id>:<canonical id>" -> dir
	selectorDirs sync.Map // cache key -> dir
}

func NewSelectionCache() *SelectionCache {
	return &SelectionCache{}
}

// VersionsForRepo returns a copy of the cached version listing.
func (c *SelectionCache) VersionsForRepo(repo vcs.Spec) ([]vcs.VersionRef, bool) {
	v, ok := c.versions.Load(repo.UniqueID())
	if !ok {
		return nil, false
	}
	return cloneRefs(v.([]vcs.VersionRef)), true
}

func (c *SelectionCache) PutVersionsForRepo(repo vcs.Spec, versions []vcs.VersionRef) {
	c.versions.Store(repo.UniqueID(), cloneRefs(versions))
}

func (c *SelectionCache) WorkingDirForRevision(repo vcs.Spec, ref vcs.VersionRef) (string, bool) {
	return loadString(&c.revisionDirs, vcs.RevisionKey(repo.UniqueID(), ref))
}

func (c *SelectionCache) PutWorkingDirForRevision(repo vcs.Spec, ref vcs.VersionRef, dir string) {
	c.revisionDirs.Store(vcs.RevisionKey(repo.UniqueID(), ref), dir)
}

func (c *SelectionCache) WorkingDirForSelector(repo vcs.Spec, constraint version.Constraint) (string, bool) {
	return loadString(&c.selectorDirs, vcs.CacheKey(repo.UniqueID(), constraint))
}

func (c *SelectionCache) PutWorkingDirForSelector(repo vcs.Spec, constraint version.Constraint, dir string) {
	c.selectorDirs.Store(vcs.CacheKey(repo.UniqueID(), constraint), dir)
}

func loadString(m *sync.Map, key string) (string, bool) {
	v, ok := m.Load(key)
	if !ok {
		return "", false
	}
	return v.(string), true
}

func cloneRefs(refs []vcs.VersionRef) []vcs.VersionRef {
	out := make([]vcs.VersionRef, len(refs))
	copy(out, refs)
	return out
}
