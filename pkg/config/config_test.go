package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentpkg/srcdeps/pkg/version"
)

const sampleManifest = `
[project]
name = "app"

[dependencies.core]
module = "org.example:core"
version = "1.+"

[dependencies.tools]
module = "org.example:tools"
branch = "release"

[[sourceControl]]
group = "org.example"
git = "https://github.com/example/lib.git"
rootDir = "build"

[[sourceControl]]
all = true
git = "https://github.com/example/everything.git"
`

func TestUnmarshalConfig(t *testing.T) {
	cfg, err := UnmarshalConfig([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("UnmarshalConfig() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Project.Name != "app" {
		t.Errorf("project name = %q", cfg.Project.Name)
	}
	if names := cfg.DependencyNames(); len(names) != 2 || names[0] != "core" || names[1] != "tools" {
		t.Errorf("DependencyNames() = %v", names)
	}

	core, err := cfg.Dependencies["core"].Selector()
	if err != nil {
		t.Fatalf("Selector() error = %v", err)
	}
	if core.Group != "org.example" || core.Name != "core" || core.Constraint != version.ForVersion("1.+") {
		t.Errorf("core selector = %+v", core)
	}
	if c := cfg.Dependencies["tools"].Constraint(); c != version.ForBranch("release") {
		t.Errorf("tools constraint = %+v", c)
	}

	if len(cfg.SourceControl) != 2 {
		t.Fatalf("sourceControl rules = %d, want 2", len(cfg.SourceControl))
	}
	if r := cfg.SourceControl[0]; r.Group != "org.example" || r.RootDir != "build" || r.All {
		t.Errorf("first rule = %+v", r)
	}
	if r := cfg.SourceControl[1]; !r.All || r.Git != "https://github.com/example/everything.git" {
		t.Errorf("second rule = %+v", r)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := map[string]struct {
		cfg     Config
		wantErr []string
	}{
		"valid": {
			cfg: Config{Dependencies: map[string]Dependency{"a": {Module: "g:a", Version: "1.0"}}},
		},
		"bad module": {
			cfg:     Config{Dependencies: map[string]Dependency{"a": {Module: "nogroup", Version: "1.0"}}},
			wantErr: []string{`dependency "a"`, "group:name"},
		},
		"version and branch": {
			cfg:     Config{Dependencies: map[string]Dependency{"a": {Module: "g:a", Version: "1.0", Branch: "main"}}},
			wantErr: []string{"both branch"},
		},
		"no constraint": {
			cfg:     Config{Dependencies: map[string]Dependency{"a": {Module: "g:a"}}},
			wantErr: []string{"requires a branch or a version"},
		},
		"rule without repository": {
			cfg:     Config{SourceControl: []SourceControlRule{{All: true}}},
			wantErr: []string{"git is required"},
		},
		"errors are collected": {
			cfg: Config{
				Dependencies:  map[string]Dependency{"a": {Module: "g:a"}},
				SourceControl: []SourceControlRule{{Module: "bad", Git: "x"}},
			},
			wantErr: []string{"requires a branch or a version", "sourceControl rule 0"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if len(tc.wantErr) == 0 {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			for _, want := range tc.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestFileName)
	cfg := &Config{
		Project:      ProjectConfig{Name: "app"},
		Dependencies: map[string]Dependency{"core": {Module: "g:core", Version: "2.+"}},
	}
	if err := SaveFile(path, cfg); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got.Project.Name != "app" || got.Dependencies["core"] != cfg.Dependencies["core"] {
		t.Errorf("LoadFile() = %+v", got)
	}
}

func TestLockFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockFileName)

	empty, err := LoadLockFile(path)
	if err != nil {
		t.Fatalf("LoadLockFile() of a missing file error = %v", err)
	}
	if empty.Version != 1 || len(empty.Dependencies) != 0 {
		t.Errorf("missing lockfile = %+v", empty)
	}

	lf := NewLockFile()
	lf.Dependencies = []DependencyLock{
		{Name: "tools", Module: "g:tools", Requested: "branch main", Build: "lib1", Project: ":", Version: "main", Revision: "def"},
		{Name: "core", Module: "g:core", Requested: "1.+", Build: "lib", Project: ":core", Version: "1.2", Revision: "abc", Root: "/store/x", Integrity: "sha256:00"},
	}
	if err := SaveLockFile(path, lf); err != nil {
		t.Fatalf("SaveLockFile() error = %v", err)
	}

	got, err := LoadLockFile(path)
	if err != nil {
		t.Fatalf("LoadLockFile() error = %v", err)
	}
	if len(got.Dependencies) != 2 || got.Dependencies[0].Name != "core" {
		t.Fatalf("entries = %+v, want sorted by name", got.Dependencies)
	}
	core, ok := got.Find("core")
	if !ok || core != lf.Dependencies[0] {
		t.Errorf("Find(core) = %+v, %v", core, ok)
	}
	if _, ok := got.Find("missing"); ok {
		t.Error("Find() returned an entry for an unknown dependency")
	}
}

func TestLoadLockFileRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockFileName)
	writeFile(t, path, "version = 7\n")
	if _, err := LoadLockFile(path); err == nil || !strings.Contains(err.Error(), "unsupported lockfile version") {
		t.Errorf("LoadLockFile() error = %v", err)
	}
}
