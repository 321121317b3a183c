package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"

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

// localRepo serves a single tag and materialises it by writing a build
// descriptor.
type localRepo struct {
	spec      vcs.Spec
	populated int
}

func (r *localRepo) Spec() vcs.Spec { return r.spec }
func (r *localRepo) AvailableVersions(context.Context) ([]vcs.VersionRef, error) {
	return []vcs.VersionRef{{Version: "1.0", CanonicalID: "0123456789abcdef0123456789abcdef01234567"}}, nil
}
func (r *localRepo) Branch(context.Context, string) (vcs.VersionRef, error) {
	return vcs.VersionRef{}, errors.New("no branches")
}
func (r *localRepo) DefaultBranch(context.Context) (vcs.VersionRef, error) {
	return vcs.VersionRef{}, errors.New("no branches")
}
func (r *localRepo) Populate(_ context.Context, _ vcs.VersionRef, dir string) error {
	r.populated++
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	descriptor := "publications:\n  - {group: org.example, module: core, version: \"1.0\"}\n"
	return os.WriteFile(filepath.Join(dir, build.DescriptorFileName), []byte(descriptor), 0o644)
}

type repoFactory struct{ repo *localRepo }

func (f repoFactory) Connect(spec vcs.Spec) (vcs.RepositoryConnection, error) {
	f.repo.spec = spec
	return f.repo, nil
}

var rules = []config.SourceControlRule{{Group: "org.example", Git: "https://example.com/lib.git"}}

func coreSelector() module.ModuleSelector {
	return module.ModuleSelector{
		ID:         module.ID{Group: "org.example", Name: "core"},
		Constraint: version.ForVersion("1.+"),
	}
}

func TestSessionOnlineThenOffline(t *testing.T) {
	ctx := context.Background()
	s := store.New(t.TempDir())
	fs := memfs.New()
	repo := &localRepo{}

	online, err := Open(ctx, Options{
		Store:        s,
		Rules:        rules,
		Connections:  repoFactory{repo: repo},
		CacheOptions: []cache.PersistentOption{cache.WithFilesystem(fs)},
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	res := online.Resolve(ctx, coreSelector())
	if res.State != depresolve.Resolved {
		t.Fatalf("online Resolve() = %+v", res)
	}
	if err := online.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	offline, err := Open(ctx, Options{
		Store:        s,
		Offline:      true,
		Rules:        rules,
		Connections:  repoFactory{repo: repo},
		CacheOptions: []cache.PersistentOption{cache.WithFilesystem(fs)},
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer offline.Close()

	again := offline.Resolve(ctx, coreSelector())
	if again.State != depresolve.Resolved || again.Component.BuildRoot != res.Component.BuildRoot {
		t.Fatalf("offline Resolve() = %+v, want root %s", again, res.Component.BuildRoot)
	}

	missing := offline.Resolve(ctx, module.ModuleSelector{
		ID:         module.ID{Group: "org.example", Name: "core"},
		Constraint: version.ForVersion("2.+"),
	})
	var miss *workingdir.OfflineMissError
	if missing.State != depresolve.Failed || !errors.As(missing.Err, &miss) {
		t.Errorf("offline Resolve() of an unrecorded constraint = %+v", missing)
	}
}

func TestSessionClose(t *testing.T) {
	sess, err := Open(context.Background(), Options{
		Store:        store.New(t.TempDir()),
		CacheOptions: []cache.PersistentOption{cache.WithFilesystem(memfs.New())},
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, _, err := sess.Persistent.WorkingDirForSelector(git.Spec{URL: "x"}, version.ForVersion("1.0")); !errors.Is(err, cache.ErrStopped) {
		t.Errorf("cache access after Close() error = %v, want ErrStopped", err)
	}
}

func TestOpenRequiresStore(t *testing.T) {
	if _, err := Open(context.Background(), Options{}); err == nil {
		t.Error("Open() without a store should fail")
	}
}

func TestMappings(t *testing.T) {
	tests := map[string]struct {
		rules   []config.SourceControlRule
		lookup  string
		wantURL string
		wantErr bool
	}{
		"module rule": {
			rules:   []config.SourceControlRule{{Module: "g:m", Git: "https://example.com/m.git", RootDir: "sub"}},
			lookup:  "g:m",
			wantURL: "https://example.com/m.git",
		},
		"catch-all": {
			rules:   []config.SourceControlRule{{All: true, Git: "/srv/git/all"}},
			lookup:  "any:thing",
			wantURL: "/srv/git/all",
		},
		"escaping root dir": {
			rules:   []config.SourceControlRule{{All: true, Git: "https://example.com/m.git", RootDir: "../up"}},
			wantErr: true,
		},
		"bad module": {
			rules:   []config.SourceControlRule{{Module: "nope", Git: "https://example.com/m.git"}},
			wantErr: true,
		},
		"no target": {
			rules:   []config.SourceControlRule{{Git: "https://example.com/m.git"}},
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			m, err := Mappings(tc.rules)
			if tc.wantErr {
				if err == nil {
					t.Error("Mappings() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("Mappings() error = %v", err)
			}

			id, _ := module.ParseID(tc.lookup)
			spec, ok := m.Lookup(module.ModuleSelector{ID: id, Constraint: version.ForVersion("1.0")})
			if !ok {
				t.Fatalf("Lookup(%s) found nothing", tc.lookup)
			}
			gs, isGit := spec.(git.Spec)
			if !isGit || gs.URL != tc.wantURL {
				t.Errorf("Lookup(%s) = %#v, want git %s", tc.lookup, spec, tc.wantURL)
			}
		})
	}
}
