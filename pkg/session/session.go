// Package session wires the caches and resolvers used by one build
// invocation.
package session

import (
	"context"
	"fmt"
	"sync"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/agentpkg/srcdeps/pkg/build"
	"github.com/agentpkg/srcdeps/pkg/cache"
	"github.com/agentpkg/srcdeps/pkg/config"
	"github.com/agentpkg/srcdeps/pkg/depresolve"
	"github.com/agentpkg/srcdeps/pkg/module"
	"github.com/agentpkg/srcdeps/pkg/store"
	"github.com/agentpkg/srcdeps/pkg/vcs"
	"github.com/agentpkg/srcdeps/pkg/vcs/git"
	"github.com/agentpkg/srcdeps/pkg/version"
	"github.com/agentpkg/srcdeps/pkg/workingdir"
)

type Options struct {
	Store store.Store
	// Offline resolves only from selections recorded by earlier builds.
	Offline bool
	// Rules map modules to repositories.
	Rules []config.SourceControlRule

	// Connections defaults to the registered version control systems.
	Connections vcs.ConnectionFactory
	// Scheme defaults to version.DefaultScheme.
	Scheme *version.Scheme
	// CacheOptions are passed to the persistent metadata cache.
	CacheOptions []cache.PersistentOption
}

// Session owns the state of one build invocation. Close must be called when
// resolution is done.
type Session struct {
	Selections  *cache.SelectionCache
	Persistent  *cache.PersistentCache
	WorkingDirs workingdir.Resolver
	Builds      *build.Registry
	Resolver    *depresolve.Resolver

	closeOnce sync.Once
	closeErr  error
}

func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("session requires a store")
	}
	connections := opts.Connections
	if connections == nil {
		connections = vcs.Factory{}
	}

	mappings, err := Mappings(opts.Rules)
	if err != nil {
		return nil, err
	}

	persistent, err := cache.OpenPersistentCache(opts.Store.Root(), opts.CacheOptions...)
	if err != nil {
		return nil, fmt.Errorf("opening vcs metadata cache: %w", err)
	}

	selections := cache.NewSelectionCache()
	var delegate workingdir.Resolver
	if opts.Offline {
		delegate = workingdir.NewOfflineResolver(selections, persistent)
	} else {
		delegate = workingdir.NewDefaultResolver(opts.Scheme, selections, persistent, opts.Store)
	}
	workingDirs := workingdir.NewOncePerBuildResolver(delegate, selections)
	builds := build.NewRegistry()

	slogcontext.FromCtx(ctx).Debug("opened build session",
		"store", opts.Store.Root(), "offline", opts.Offline, "rules", len(opts.Rules))

	return &Session{
		Selections:  selections,
		Persistent:  persistent,
		WorkingDirs: workingDirs,
		Builds:      builds,
		Resolver:    depresolve.NewResolver(mappings, connections, workingDirs, builds),
	}, nil
}

// Resolve resolves one module selector.
func (s *Session) Resolve(ctx context.Context, sel module.ComponentSelector) depresolve.Result {
	return s.Resolver.Resolve(ctx, sel)
}

// Close stops the persistent cache. Later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.Persistent.Stop()
	})
	return s.closeErr
}

// Mappings turns manifest rules into repository mappings. Every rule
// currently names a git repository.
func Mappings(rules []config.SourceControlRule) (*depresolve.RuleMappings, error) {
	converted := make([]depresolve.Rule, 0, len(rules))
	for i, r := range rules {
		spec := git.Spec{URL: r.Git, Root: r.RootDir}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("sourceControl rule %d: %w", i, err)
		}
		rule := depresolve.Rule{Group: r.Group, All: r.All, Spec: spec}
		if r.Module != "" {
			id, err := module.ParseID(r.Module)
			if err != nil {
				return nil, fmt.Errorf("sourceControl rule %d: %w", i, err)
			}
			rule.Module = &id
		}
		converted = append(converted, rule)
	}
	return depresolve.NewRuleMappings(converted...)
}
