package workingdir

import (
	"context"
	"fmt"
	"path/filepath"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/agentpkg/srcdeps/pkg/cache"
	"github.com/agentpkg/srcdeps/pkg/store"
	"github.com/agentpkg/srcdeps/pkg/vcs"
	"github.com/agentpkg/srcdeps/pkg/version"
)

// CheckoutsDir is the store directory revisions are materialised under.
const CheckoutsDir = "checkouts"

// DefaultResolver resolves constraints against the live repository.
type DefaultResolver struct {
	scheme     *version.Scheme
	selections *cache.SelectionCache
	persistent MetadataCache
	checkouts  store.Store
}

var _ Resolver = &DefaultResolver{}

func NewDefaultResolver(scheme *version.Scheme, selections *cache.SelectionCache, persistent MetadataCache, checkouts store.Store) *DefaultResolver {
	if scheme == nil {
		scheme = version.DefaultScheme
	}
	return &DefaultResolver{
		scheme:     scheme,
		selections: selections,
		persistent: persistent,
		checkouts:  checkouts,
	}
}

func (r *DefaultResolver) SelectVersion(ctx context.Context, c version.Constraint, repo vcs.RepositoryConnection) (string, bool, error) {
	spec := repo.Spec()
	logger := slogcontext.FromCtx(ctx).With("repository", spec.DisplayName(), "constraint", c.String())

	if dir, ok := r.selections.WorkingDirForSelector(spec, c); ok {
		logger.Debug("using working dir selected earlier in this build", "dir", dir)
		return filepath.Join(dir, spec.RootDir()), true, nil
	}

	selected, ok, err := r.selectRevision(ctx, c, repo)
	if err != nil {
		return "", false, err
	}
	if !ok {
		logger.Debug("no version selected")
		return "", false, nil
	}

	dir, err := r.populate(ctx, repo, selected)
	if err != nil {
		return "", false, err
	}

	// Durable record first: the in-memory entry short-circuits later calls.
	if err := r.persistent.PutWorkingDirForSelector(spec, c, selected, dir); err != nil {
		return "", false, fmt.Errorf("recording selection of %s: %w", selected, err)
	}
	r.selections.PutWorkingDirForSelector(spec, c, dir)

	logger.Info("selected version", "version", selected.Version, "revision", selected.CanonicalID)
	return filepath.Join(dir, spec.RootDir()), true, nil
}

func (r *DefaultResolver) selectRevision(ctx context.Context, c version.Constraint, repo vcs.RepositoryConnection) (vcs.VersionRef, bool, error) {
	if c.IsBranch() {
		ref, err := repo.Branch(ctx, c.Branch)
		if err != nil {
			return vcs.VersionRef{}, false, err
		}
		return ref, true, nil
	}

	selector, err := r.scheme.Parse(c.Required)
	if err != nil {
		return vcs.VersionRef{}, false, err
	}

	if latest, ok := selector.(*version.LatestSelector); ok && latest.Status() == version.StatusIntegration {
		ref, err := repo.DefaultBranch(ctx)
		if err != nil {
			return vcs.VersionRef{}, false, err
		}
		return ref, true, nil
	}
	if selector.RequiresMetadata() {
		return vcs.VersionRef{}, false, nil
	}

	versions, err := r.availableVersions(ctx, repo)
	if err != nil {
		return vcs.VersionRef{}, false, err
	}
	ref, ok := pickMax(selector, versions)
	return ref, ok, nil
}

func (r *DefaultResolver) availableVersions(ctx context.Context, repo vcs.RepositoryConnection) ([]vcs.VersionRef, error) {
	spec := repo.Spec()
	if versions, ok := r.selections.VersionsForRepo(spec); ok {
		return versions, nil
	}
	versions, err := repo.AvailableVersions(ctx)
	if err != nil {
		return nil, err
	}
	r.selections.PutVersionsForRepo(spec, versions)
	return versions, nil
}

// pickMax returns the highest accepted version. Versions that compare equal
// are ordered by canonical id, smallest first.
func pickMax(selector version.Selector, candidates []vcs.VersionRef) (vcs.VersionRef, bool) {
	var (
		best       vcs.VersionRef
		bestParsed version.Version
		found      bool
	)
	for _, candidate := range candidates {
		parsed := version.Parse(candidate.Version)
		if !selector.Accept(parsed) {
			continue
		}
		if found {
			cmp := version.Compare(parsed, bestParsed)
			if cmp < 0 || (cmp == 0 && candidate.CanonicalID >= best.CanonicalID) {
				continue
			}
		}
		best, bestParsed, found = candidate, parsed, true
	}
	return best, found
}

func (r *DefaultResolver) populate(ctx context.Context, repo vcs.RepositoryConnection, ref vcs.VersionRef) (string, error) {
	spec := repo.Spec()
	if dir, ok := r.selections.WorkingDirForRevision(spec, ref); ok {
		return dir, nil
	}

	name := vcs.WorkingDirName(spec.UniqueID(), ref)
	if err := r.checkouts.EnsureDir(CheckoutsDir); err != nil {
		return "", err
	}
	existed, err := r.checkouts.Exists(CheckoutsDir, name)
	if err != nil {
		return "", fmt.Errorf("checking checkout %s: %w", name, err)
	}

	dir := r.checkouts.Path(CheckoutsDir, name)
	if err := repo.Populate(ctx, ref, dir); err != nil {
		// A checkout from an earlier build is kept; a partial first one is not.
		if !existed {
			if rmErr := r.checkouts.Remove(CheckoutsDir, name); rmErr != nil {
				slogcontext.FromCtx(ctx).Warn("removing failed checkout", "dir", dir, "error", rmErr)
			}
		}
		return "", fmt.Errorf("populating %s from %s: %w", ref, spec.DisplayName(), err)
	}
	r.selections.PutWorkingDirForRevision(spec, ref, dir)
	return dir, nil
}
