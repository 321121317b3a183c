package workingdir

import (
	"context"
	"fmt"
	"path/filepath"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/agentpkg/srcdeps/pkg/cache"
	"github.com/agentpkg/srcdeps/pkg/vcs"
	"github.com/agentpkg/srcdeps/pkg/version"
)

// OfflineResolver reuses the selection recorded by an earlier online build.
// It never lists the repository's versions.
type OfflineResolver struct {
	selections *cache.SelectionCache
	persistent MetadataCache
}

var _ Resolver = &OfflineResolver{}

func NewOfflineResolver(selections *cache.SelectionCache, persistent MetadataCache) *OfflineResolver {
	return &OfflineResolver{selections: selections, persistent: persistent}
}

func (r *OfflineResolver) SelectVersion(ctx context.Context, c version.Constraint, repo vcs.RepositoryConnection) (string, bool, error) {
	spec := repo.Spec()
	wd, found, err := r.persistent.WorkingDirForSelector(spec, c)
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, &OfflineMissError{Constraint: c, Repository: spec.DisplayName()}
	}

	if err := repo.Populate(ctx, wd.Selected, wd.Dir); err != nil {
		return "", false, fmt.Errorf("populating %s from %s: %w", wd.Selected, spec.DisplayName(), err)
	}
	r.selections.PutWorkingDirForRevision(spec, wd.Selected, wd.Dir)
	r.selections.PutWorkingDirForSelector(spec, c, wd.Dir)

	slogcontext.FromCtx(ctx).Debug("reusing recorded selection",
		"repository", spec.DisplayName(), "constraint", c.String(), "version", wd.Selected.Version)
	return filepath.Join(wd.Dir, spec.RootDir()), true, nil
}
