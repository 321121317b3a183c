package vcs

import (
	"strings"
	"testing"

	"github.com/agentpkg/srcdeps/pkg/version"
)

func TestCacheKey(t *testing.T) {
	tests := map[string]struct {
		repoID string
		c      version.Constraint
		want   string
	}{
		"branch":  {repoID: "git-repo:x", c: version.ForBranch("main"), want: "git-repo:x:b:main"},
		"version": {repoID: "git-repo:x", c: version.ForVersion("1.+"), want: "git-repo:x:v:1.+"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := CacheKey(tc.repoID, tc.c); got != tc.want {
				t.Errorf("CacheKey() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCacheKeyDeterminism(t *testing.T) {
	a := CacheKey("repo", version.ForVersion("1.0"))
	b := CacheKey("repo", version.Constraint{Required: "1.0"})
	if a != b {
		t.Errorf("equal constraints produced different keys: %q vs %q", a, b)
	}

	distinct := []string{
		CacheKey("repo", version.ForVersion("1.0")),
		CacheKey("repo", version.ForVersion("1.1")),
		CacheKey("repo", version.ForBranch("1.0")),
		CacheKey("other", version.ForVersion("1.0")),
	}
	seen := map[string]bool{}
	for _, k := range distinct {
		if seen[k] {
			t.Errorf("key %q produced twice", k)
		}
		seen[k] = true
	}
}

func TestWorkingDirName(t *testing.T) {
	ref := VersionRef{Version: "1.0", CanonicalID: "abc123"}
	name := WorkingDirName("git-repo:https://example.com/lib.git", ref)

	hash, id, ok := strings.Cut(name, "-")
	if !ok || id != "abc123" {
		t.Fatalf("WorkingDirName() = %q, want <hash>-abc123", name)
	}
	if len(hash) != 32 {
		t.Errorf("hash part %q is not an md5 hex digest", hash)
	}
	if again := WorkingDirName("git-repo:https://example.com/lib.git", ref); again != name {
		t.Errorf("WorkingDirName() not stable: %q vs %q", name, again)
	}
	if other := WorkingDirName("git-repo:https://example.com/other.git", ref); other == name {
		t.Error("different repositories share a working dir name")
	}
}
