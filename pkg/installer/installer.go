// Package installer resolves every dependency of a manifest and records the
// outcome in a lockfile.
package installer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"github.com/agentpkg/srcdeps/pkg/config"
	"github.com/agentpkg/srcdeps/pkg/depresolve"
	"github.com/agentpkg/srcdeps/pkg/session"
	"github.com/agentpkg/srcdeps/pkg/store"
)

type Installer struct {
	Session *session.Session
	Store   store.Store
	// Concurrency bounds the number of dependencies resolved at once.
	Concurrency int
}

// ResolveAll resolves the manifest's dependencies concurrently and returns
// a lockfile describing the result. Every failing dependency is reported,
// not only the first. existing may be nil; it is only used to report
// changed revisions.
func (inst *Installer) ResolveAll(ctx context.Context, cfg *config.Config, existing *config.LockFile) (*config.LockFile, error) {
	names := cfg.DependencyNames()
	entries := make([]config.DependencyLock, len(names))
	errs := make([]error, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(inst.Concurrency, 1))
	for i, name := range names {
		g.Go(func() error {
			entry, err := inst.resolve(gctx, name, cfg.Dependencies[name])
			if err != nil {
				errs[i] = fmt.Errorf("dependency %q: %w", name, err)
				return nil
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	lf := config.NewLockFile()
	lf.Dependencies = entries
	reportChanges(ctx, existing, lf)
	return lf, nil
}

func (inst *Installer) resolve(ctx context.Context, name string, dep config.Dependency) (config.DependencyLock, error) {
	sel, err := dep.Selector()
	if err != nil {
		return config.DependencyLock{}, err
	}

	res := inst.Session.Resolve(ctx, sel)
	switch res.State {
	case depresolve.NotApplicable:
		return config.DependencyLock{}, fmt.Errorf("no source control rule provides %s", sel.DisplayName())
	case depresolve.Failed:
		return config.DependencyLock{}, res.Err
	}
	c := res.Component

	wd, found, err := inst.Session.Persistent.WorkingDirForSelector(c.Repository, sel.Constraint)
	if err != nil {
		return config.DependencyLock{}, err
	}
	if !found {
		return config.DependencyLock{}, fmt.Errorf("no recorded selection for %s", sel.DisplayName())
	}

	integrity, err := inst.integrity(wd.Dir)
	if err != nil {
		return config.DependencyLock{}, err
	}

	return config.DependencyLock{
		Name:      name,
		Module:    sel.ID.String(),
		Requested: sel.Constraint.String(),
		Build:     c.Build,
		Project:   c.ID.Path,
		Version:   wd.Selected.Version,
		Revision:  wd.Selected.CanonicalID,
		Root:      c.BuildRoot,
		Integrity: integrity,
	}, nil
}

// integrity hashes a checkout below the store. Checkouts elsewhere are not
// hashed.
func (inst *Installer) integrity(dir string) (string, error) {
	rel, err := filepath.Rel(inst.Store.Root(), dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", nil
	}
	sum, err := inst.Store.HashDir(rel)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", dir, err)
	}
	return sum, nil
}

func reportChanges(ctx context.Context, existing, current *config.LockFile) {
	if existing == nil {
		return
	}
	logger := slogcontext.FromCtx(ctx)
	for _, entry := range current.Dependencies {
		old, ok := existing.Find(entry.Name)
		switch {
		case !ok:
			logger.Info("dependency added", "name", entry.Name, "version", entry.Version)
		case old.Revision != entry.Revision:
			logger.Info("dependency changed", "name", entry.Name,
				"from", old.Version+"@"+old.Revision, "to", entry.Version+"@"+entry.Revision)
		}
	}
}
