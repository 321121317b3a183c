package workingdir

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/agentpkg/srcdeps/pkg/cache"
	"github.com/agentpkg/srcdeps/pkg/vcs"
	"github.com/agentpkg/srcdeps/pkg/version"
)

// OncePerBuildResolver serialises resolution per repository so that
// concurrent requests for one repository do the work once, while requests
// for different repositories run in parallel. Misses are not remembered.
type OncePerBuildResolver struct {
	delegate   Resolver
	selections *cache.SelectionCache
	locks      keyedMutex
}

var _ Resolver = &OncePerBuildResolver{}

func NewOncePerBuildResolver(delegate Resolver, selections *cache.SelectionCache) *OncePerBuildResolver {
	return &OncePerBuildResolver{delegate: delegate, selections: selections}
}

func (r *OncePerBuildResolver) SelectVersion(ctx context.Context, c version.Constraint, repo vcs.RepositoryConnection) (string, bool, error) {
	spec := repo.Spec()
	unlock := r.locks.lock(spec.UniqueID())
	defer unlock()

	if dir, ok := r.selections.WorkingDirForSelector(spec, c); ok {
		return filepath.Join(dir, spec.RootDir()), true, nil
	}
	return r.delegate.SelectVersion(ctx, c, repo)
}

// keyedMutex hands out one mutex per key and drops it once no goroutine
// holds or waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
