// Package workingdir decides which revision of a repository satisfies a
// version constraint and materialises it into a working directory.
package workingdir

import (
	"context"
	"fmt"

	"github.com/agentpkg/srcdeps/pkg/cache"
	"github.com/agentpkg/srcdeps/pkg/vcs"
	"github.com/agentpkg/srcdeps/pkg/version"
)

// Resolver selects a revision for a constraint and returns the directory to
// treat as the build root. ok is false with a nil error when the constraint
// cannot be resolved by this resolver; callers should fall back to other
// resolution strategies.
type Resolver interface {
	SelectVersion(ctx context.Context, c version.Constraint, repo vcs.RepositoryConnection) (dir string, ok bool, err error)
}

// MetadataCache is the durable record of previous selections.
type MetadataCache interface {
	WorkingDirForSelector(spec vcs.Spec, c version.Constraint) (cache.WorkingDir, bool, error)
	PutWorkingDirForSelector(spec vcs.Spec, c version.Constraint, selected vcs.VersionRef, dir string) error
}

var _ MetadataCache = &cache.PersistentCache{}

// OfflineMissError is returned when offline resolution finds no previous
// selection to reuse.
type OfflineMissError struct {
	Constraint version.Constraint
	Repository string
}

func (e *OfflineMissError) Error() string {
	return fmt.Sprintf("cannot resolve %s from %s in offline mode", e.Constraint, e.Repository)
}
