package vcs

import (
	"context"
	"slices"
	"strings"
	"testing"
)

type stubSpec struct{ kind string }

func (s stubSpec) Kind() string        { return s.kind }
func (s stubSpec) UniqueID() string    { return "stub:" + s.kind }
func (s stubSpec) DisplayName() string { return "stub repository" }
func (s stubSpec) RepoName() string    { return "stub" }
func (s stubSpec) RootDir() string     { return "" }

type stubConnection struct{ spec Spec }

func (c *stubConnection) Spec() Spec { return c.spec }
func (c *stubConnection) AvailableVersions(context.Context) ([]VersionRef, error) {
	return nil, nil
}
func (c *stubConnection) Branch(context.Context, string) (VersionRef, error) {
	return VersionRef{}, nil
}
func (c *stubConnection) DefaultBranch(context.Context) (VersionRef, error) {
	return VersionRef{}, nil
}
func (c *stubConnection) Populate(context.Context, VersionRef, string) error { return nil }

type stubSystem struct{}

func (stubSystem) Connect(spec Spec) (RepositoryConnection, error) {
	return &stubConnection{spec: spec}, nil
}

func TestRegistry(t *testing.T) {
	saved := defaultRegistry
	t.Cleanup(func() { defaultRegistry = saved })
	defaultRegistry = make(registry)

	if err := RegisterSystem("stub", stubSystem{}); err != nil {
		t.Fatalf("RegisterSystem() error = %v", err)
	}
	if err := RegisterSystem("stub", stubSystem{}); err == nil {
		t.Error("registering a kind twice should fail")
	}
	if got := RegisteredSystems(); !slices.Equal(got, []string{"stub"}) {
		t.Errorf("RegisteredSystems() = %v", got)
	}

	conn, err := Factory{}.Connect(stubSpec{kind: "stub"})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if conn.Spec().Kind() != "stub" {
		t.Errorf("connection spec kind = %q", conn.Spec().Kind())
	}

	_, err = Factory{}.Connect(stubSpec{kind: "svn"})
	if err == nil {
		t.Fatal("Connect() for an unregistered kind should fail")
	}
	if !strings.Contains(err.Error(), "known systems: stub") {
		t.Errorf("error %q does not list the registered systems", err)
	}
}
