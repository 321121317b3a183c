package vcs

import (
	"context"
)

// VersionRef points at a resolved revision of a repository. Version is the
// human readable label (a tag or branch name); CanonicalID is the commit it
// resolves to.
type VersionRef struct {
	Version     string
	CanonicalID string
}

func (r VersionRef) String() string {
	return r.Version + "@" + r.CanonicalID
}

// Spec identifies a repository and the directory inside it that is treated
// as a build root.
type Spec interface {
	// Kind names the version control system, e.g. "git".
	Kind() string
	// UniqueID is stable for a repository and is used in cache keys.
	UniqueID() string
	DisplayName() string
	// RepoName is a short name suitable for naming an included build.
	RepoName() string
	// RootDir is relative to the root of a checkout; empty means the root.
	RootDir() string
}

// RepositoryConnection is the capability to inspect a repository and
// materialise revisions of it.
type RepositoryConnection interface {
	Spec() Spec
	// AvailableVersions lists the released versions (tags).
	AvailableVersions(ctx context.Context) ([]VersionRef, error)
	// Branch resolves the head of a branch.
	Branch(ctx context.Context, name string) (VersionRef, error)
	// DefaultBranch resolves the head of the repository's default branch.
	DefaultBranch(ctx context.Context) (VersionRef, error)
	// Populate makes dir a checkout of ref, cloning or updating as needed.
	Populate(ctx context.Context, ref VersionRef, dir string) error
}

// ConnectionFactory creates connections for specs.
type ConnectionFactory interface {
	Connect(spec Spec) (RepositoryConnection, error)
}
