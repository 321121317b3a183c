// Package depresolve resolves module dependencies to projects of builds
// checked out from source control.
package depresolve

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/agentpkg/srcdeps/pkg/build"
	"github.com/agentpkg/srcdeps/pkg/module"
	"github.com/agentpkg/srcdeps/pkg/vcs"
	"github.com/agentpkg/srcdeps/pkg/workingdir"
)

// State is the outcome of resolving one selector.
type State int

const (
	// NotApplicable means source control does not provide the component
	// and other resolution strategies should be tried.
	NotApplicable State = iota
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case NotApplicable:
		return "not applicable"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Component is a project of an included build that provides a module.
type Component struct {
	ID        module.ProjectComponentID
	Module    module.VersionID
	Build     string
	BuildRoot string
	// Repository is the source the build was checked out from.
	Repository vcs.Spec
}

// Result is the outcome of Resolve. Component is set when State is
// Resolved, Err when it is Failed.
type Result struct {
	State     State
	Component *Component
	Err       error
}

// NoMatchingModuleError reports a checkout whose build does not publish the
// requested module.
type NoMatchingModuleError struct {
	Repository string
	Module     module.ID
}

func (e *NoMatchingModuleError) Error() string {
	return e.Repository + " did not contain a project publishing the specified dependency."
}

// Resolver turns module selectors into projects of implicitly included
// builds. Safe for concurrent use.
type Resolver struct {
	mappings    Mappings
	connections vcs.ConnectionFactory
	workingDirs workingdir.Resolver
	builds      *build.Registry

	// includeMu makes the root lookup, naming and registration of a build
	// one step.
	includeMu sync.Mutex
	namesMu   sync.Mutex
	names     map[string]bool
}

func NewResolver(mappings Mappings, connections vcs.ConnectionFactory, workingDirs workingdir.Resolver, builds *build.Registry) *Resolver {
	return &Resolver{
		mappings:    mappings,
		connections: connections,
		workingDirs: workingDirs,
		builds:      builds,
		names:       make(map[string]bool),
	}
}

// Resolve resolves sel. It never panics and never returns an error directly:
// failures are reported in the Result.
func (r *Resolver) Resolve(ctx context.Context, sel module.ComponentSelector) (result Result) {
	defer func() {
		if p := recover(); p != nil {
			result = Result{State: Failed, Err: fmt.Errorf("resolving %s: panic: %v", sel.DisplayName(), p)}
		}
	}()

	ms, ok := sel.(module.ModuleSelector)
	if !ok {
		return Result{State: NotApplicable}
	}
	spec, ok := r.mappings.Lookup(ms)
	if !ok {
		return Result{State: NotApplicable}
	}

	logger := slogcontext.FromCtx(ctx).With("dependency", ms.DisplayName(), "repository", spec.DisplayName())

	component, found, err := r.resolve(ctx, ms, spec)
	if err != nil {
		logger.Warn("source dependency resolution failed", "error", err)
		return Result{State: Failed, Err: fmt.Errorf("resolving %s: %w", ms.DisplayName(), err)}
	}
	if !found {
		logger.Debug("no version of the repository selected")
		return Result{State: NotApplicable}
	}

	logger.Debug("resolved source dependency", "build", component.Build, "project", component.ID.Path)
	return Result{State: Resolved, Component: component}
}

func (r *Resolver) resolve(ctx context.Context, sel module.ModuleSelector, spec vcs.Spec) (*Component, bool, error) {
	repo, err := r.connections.Connect(spec)
	if err != nil {
		return nil, false, err
	}

	dir, ok, err := r.workingDirs.SelectVersion(ctx, sel.Constraint, repo)
	if err != nil || !ok {
		return nil, false, err
	}

	b, err := r.include(spec, dir)
	if err != nil {
		return nil, false, err
	}

	p, ok := findPublication(b, sel.ID)
	if !ok {
		return nil, false, &NoMatchingModuleError{Repository: spec.DisplayName(), Module: sel.ID}
	}
	return &Component{
		ID:         module.ProjectComponentID{Build: b.Name, Path: p.ProjectPath()},
		Module:     module.VersionID{ID: sel.ID, Version: p.Version},
		Build:      b.Name,
		BuildRoot:  b.RootDir,
		Repository: spec,
	}, true, nil
}

// findPublication returns the build's publication of id. Descriptors never
// publish a module twice.
func findPublication(b *build.IncludedBuild, id module.ID) (build.Publication, bool) {
	for _, p := range b.AvailableModules() {
		if p.Group == id.Group && p.Module == id.Name {
			return p, true
		}
	}
	return build.Publication{}, false
}

// include registers dir as a build, reusing the registration of a root that
// was included before.
func (r *Resolver) include(spec vcs.Spec, dir string) (*build.IncludedBuild, error) {
	r.includeMu.Lock()
	defer r.includeMu.Unlock()

	if b, ok := r.builds.BuildForRoot(dir); ok {
		return b, nil
	}
	name := r.AssignBuildName(spec.RepoName())
	b, err := r.builds.AddImplicitBuild(name, dir)
	if err != nil {
		r.releaseBuildName(name)
		return nil, err
	}
	return b, nil
}

// AssignBuildName returns name, or name with the smallest numeric suffix
// that has not been handed out by this resolver.
func (r *Resolver) AssignBuildName(name string) string {
	r.namesMu.Lock()
	defer r.namesMu.Unlock()

	candidate := name
	for i := 1; r.names[candidate]; i++ {
		candidate = name + strconv.Itoa(i)
	}
	r.names[candidate] = true
	return candidate
}

// releaseBuildName makes a name handed out for a build that was never
// registered available again.
func (r *Resolver) releaseBuildName(name string) {
	r.namesMu.Lock()
	defer r.namesMu.Unlock()
	delete(r.names, name)
}
