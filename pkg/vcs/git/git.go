package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/agentpkg/srcdeps/pkg/vcs"
)

const peeledSuffix = "^{}"

func init() {
	if err := vcs.RegisterSystem(Kind, System{}); err != nil {
		panic(err)
	}
}

// System connects to git repositories.
type System struct{}

var _ vcs.System = System{}

func (System) Connect(spec vcs.Spec) (vcs.RepositoryConnection, error) {
	s, ok := spec.(Spec)
	if !ok {
		return nil, fmt.Errorf("git cannot handle %s", spec.DisplayName())
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Connection{spec: s}, nil
}

// Connection talks to a single git remote. It keeps no state between calls.
type Connection struct {
	spec Spec
}

var _ vcs.RepositoryConnection = &Connection{}

func (c *Connection) Spec() vcs.Spec { return c.spec }

// listRefs lists the remote's references, keeping annotated tags resolved to
// the commit they point at.
func (c *Connection) listRefs(ctx context.Context) ([]*plumbing.Reference, error) {
	remote := gogit.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: gogit.DefaultRemoteName,
		URLs: []string{c.spec.URL},
	})
	refs, err := remote.ListContext(ctx, &gogit.ListOptions{PeelingOption: gogit.AppendPeeled})
	if err != nil {
		return nil, fmt.Errorf("listing references of %s: %w", c.spec.URL, err)
	}
	return refs, nil
}

func (c *Connection) AvailableVersions(ctx context.Context) ([]vcs.VersionRef, error) {
	refs, err := c.listRefs(ctx)
	if err != nil {
		return nil, err
	}

	tags := make(map[string]string)
	peeled := make(map[string]string)
	for _, ref := range refs {
		name := ref.Name().String()
		if !strings.HasPrefix(name, "refs/tags/") {
			continue
		}
		tag := strings.TrimPrefix(name, "refs/tags/")
		// For annotated tags, prefer the dereferenced entry (^{})
		// which points to the underlying commit.
		if strings.HasSuffix(tag, peeledSuffix) {
			peeled[strings.TrimSuffix(tag, peeledSuffix)] = ref.Hash().String()
			continue
		}
		tags[tag] = ref.Hash().String()
	}

	versions := make([]vcs.VersionRef, 0, len(tags))
	for tag, hash := range tags {
		if commit, ok := peeled[tag]; ok {
			hash = commit
		}
		versions = append(versions, vcs.VersionRef{Version: tag, CanonicalID: hash})
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })

	slogcontext.FromCtx(ctx).Debug("listed versions", "repository", c.spec.URL, "count", len(versions))
	return versions, nil
}

func (c *Connection) Branch(ctx context.Context, name string) (vcs.VersionRef, error) {
	refs, err := c.listRefs(ctx)
	if err != nil {
		return vcs.VersionRef{}, err
	}
	want := plumbing.NewBranchReferenceName(name)
	for _, ref := range refs {
		if ref.Name() == want {
			return vcs.VersionRef{Version: name, CanonicalID: ref.Hash().String()}, nil
		}
	}
	return vcs.VersionRef{}, fmt.Errorf("branch %q not found in %s", name, c.spec.URL)
}

func (c *Connection) DefaultBranch(ctx context.Context) (vcs.VersionRef, error) {
	refs, err := c.listRefs(ctx)
	if err != nil {
		return vcs.VersionRef{}, err
	}

	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, ref := range refs {
		byName[ref.Name()] = ref
	}

	head, ok := byName[plumbing.HEAD]
	if !ok {
		return vcs.VersionRef{}, fmt.Errorf("%s has no HEAD", c.spec.URL)
	}
	if head.Type() == plumbing.SymbolicReference {
		target, ok := byName[head.Target()]
		if !ok {
			return vcs.VersionRef{}, fmt.Errorf("HEAD of %s points at missing %s", c.spec.URL, head.Target())
		}
		return vcs.VersionRef{Version: head.Target().Short(), CanonicalID: target.Hash().String()}, nil
	}
	return vcs.VersionRef{Version: plumbing.HEAD.String(), CanonicalID: head.Hash().String()}, nil
}

// Populate clones the repository into dir when needed, then force checks out
// the ref's commit and updates submodules.
func (c *Connection) Populate(ctx context.Context, ref vcs.VersionRef, dir string) error {
	if !isCommitHash(ref.CanonicalID) {
		return fmt.Errorf("populating %s: %q is not a commit hash", c.spec.URL, ref.CanonicalID)
	}
	logger := slogcontext.FromCtx(ctx).With("repository", c.spec.URL, "version", ref.Version, "dir", dir)

	repo, err := gogit.PlainOpen(dir)
	switch {
	case errors.Is(err, gogit.ErrRepositoryNotExists):
		logger.Info("cloning repository")
		repo, err = c.clone(ctx, dir)
		if err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("opening checkout %s: %w", dir, err)
	}

	hash := plumbing.NewHash(ref.CanonicalID)
	if _, err := repo.CommitObject(hash); err != nil {
		logger.Info("fetching missing revision")
		if err := c.fetch(ctx, repo); err != nil {
			return err
		}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree of %s: %w", dir, err)
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return fmt.Errorf("checking out %s in %s: %w", ref, dir, err)
	}

	subs, err := wt.Submodules()
	if err != nil {
		return fmt.Errorf("reading submodules of %s: %w", dir, err)
	}
	if len(subs) > 0 {
		err := subs.UpdateContext(ctx, &gogit.SubmoduleUpdateOptions{
			Init:              true,
			RecurseSubmodules: gogit.DefaultSubmoduleRecursionDepth,
		})
		if err != nil {
			return fmt.Errorf("updating submodules of %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Connection) clone(ctx context.Context, dir string) (*gogit.Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dir), err)
	}
	repo, err := gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{
		URL:        c.spec.URL,
		NoCheckout: true,
	})
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("cloning %s: %w", c.spec.URL, err)
	}
	return repo, nil
}

func (c *Connection) fetch(ctx context.Context, repo *gogit.Repository) error {
	err := repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: gogit.DefaultRemoteName,
		RefSpecs: []config.RefSpec{
			"+refs/heads/*:refs/remotes/origin/*",
			"+refs/tags/*:refs/tags/*",
		},
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetching %s: %w", c.spec.URL, err)
	}
	return nil
}
