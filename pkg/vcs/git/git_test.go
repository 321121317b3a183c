package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentpkg/srcdeps/pkg/vcs"
)

// requireGit skips the test if git is not available.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}
}

func runGit(t *testing.T, args ...string) string {
	t.Helper()
	out, err := exec.Command("git", args...).CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

type fixture struct {
	url     string
	first   string // commit tagged 1.0 (lightweight)
	second  string // commit tagged 1.2 (annotated)
	release string // head of the "release" branch
}

// setupBareRepo creates a bare repository with two commits on main, a
// lightweight tag 1.0 on the first, an annotated tag 1.2 on the second and a
// "release" branch with one more commit.
func setupBareRepo(t *testing.T) fixture {
	t.Helper()

	workDir := filepath.Join(t.TempDir(), "work")
	runGit(t, "init", "--initial-branch=main", workDir)
	runGit(t, "-C", workDir, "config", "user.email", "test@test.com")
	runGit(t, "-C", workDir, "config", "user.name", "Test")

	var f fixture

	os.MkdirAll(filepath.Join(workDir, "lib"), 0o755)
	os.WriteFile(filepath.Join(workDir, "lib", "srcdeps-build.yaml"), []byte("name: lib\n"), 0o644)
	runGit(t, "-C", workDir, "add", ".")
	runGit(t, "-C", workDir, "commit", "-m", "first")
	runGit(t, "-C", workDir, "tag", "1.0")
	f.first = runGit(t, "-C", workDir, "rev-parse", "HEAD")

	os.WriteFile(filepath.Join(workDir, "README.md"), []byte("# second\n"), 0o644)
	runGit(t, "-C", workDir, "add", ".")
	runGit(t, "-C", workDir, "commit", "-m", "second")
	runGit(t, "-C", workDir, "tag", "-a", "1.2", "-m", "version 1.2")
	f.second = runGit(t, "-C", workDir, "rev-parse", "HEAD")

	runGit(t, "-C", workDir, "checkout", "-b", "release")
	os.WriteFile(filepath.Join(workDir, "RELEASE.md"), []byte("release\n"), 0o644)
	runGit(t, "-C", workDir, "add", ".")
	runGit(t, "-C", workDir, "commit", "-m", "release")
	f.release = runGit(t, "-C", workDir, "rev-parse", "HEAD")
	runGit(t, "-C", workDir, "checkout", "main")

	bareDir := filepath.Join(t.TempDir(), "lib.git")
	runGit(t, "clone", "--bare", workDir, bareDir)
	f.url = bareDir
	return f
}

func connect(t *testing.T, url string) vcs.RepositoryConnection {
	t.Helper()
	conn, err := System{}.Connect(Spec{URL: url, Root: "lib"})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return conn
}

func TestAvailableVersions(t *testing.T) {
	requireGit(t)
	f := setupBareRepo(t)
	conn := connect(t, f.url)

	versions, err := conn.AvailableVersions(context.Background())
	if err != nil {
		t.Fatalf("AvailableVersions() error = %v", err)
	}

	want := map[string]string{"1.0": f.first, "1.2": f.second}
	if len(versions) != len(want) {
		t.Fatalf("AvailableVersions() = %v, want %d versions", versions, len(want))
	}
	for _, v := range versions {
		if want[v.Version] != v.CanonicalID {
			t.Errorf("version %s resolved to %s, want %s", v.Version, v.CanonicalID, want[v.Version])
		}
	}
}

func TestAnnotatedTagSharesCheckoutWithBranch(t *testing.T) {
	requireGit(t)
	f := setupBareRepo(t)
	conn := connect(t, f.url)
	ctx := context.Background()

	versions, err := conn.AvailableVersions(ctx)
	if err != nil {
		t.Fatalf("AvailableVersions() error = %v", err)
	}
	var tagged vcs.VersionRef
	for _, v := range versions {
		if v.Version == "1.2" {
			tagged = v
		}
	}
	head, err := conn.Branch(ctx, "main")
	if err != nil {
		t.Fatalf("Branch(main) error = %v", err)
	}

	if tagged.CanonicalID != f.second || tagged.CanonicalID != head.CanonicalID {
		t.Errorf("annotated tag 1.2 = %v, branch main = %v, want both at %s", tagged, head, f.second)
	}
	spec := Spec{URL: f.url}
	if vcs.WorkingDirName(spec.UniqueID(), tagged) != vcs.WorkingDirName(spec.UniqueID(), head) {
		t.Error("annotated tag and branch on one commit map to different working dirs")
	}

	dir := filepath.Join(t.TempDir(), "tagged")
	if err := conn.Populate(ctx, tagged, dir); err != nil {
		t.Fatalf("Populate(1.2) error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "README.md")); err != nil {
		t.Errorf("checkout of 1.2 is missing README.md: %v", err)
	}
}

func TestBranch(t *testing.T) {
	requireGit(t)
	f := setupBareRepo(t)
	conn := connect(t, f.url)
	ctx := context.Background()

	tests := map[string]struct {
		branch  string
		want    string
		wantErr bool
	}{
		"main":    {branch: "main", want: f.second},
		"release": {branch: "release", want: f.release},
		"missing": {branch: "nope", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ref, err := conn.Branch(ctx, tc.branch)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Branch(%q) error = %v, wantErr %v", tc.branch, err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if ref.CanonicalID != tc.want || ref.Version != tc.branch {
				t.Errorf("Branch(%q) = %v, want %s@%s", tc.branch, ref, tc.branch, tc.want)
			}
		})
	}
}

func TestDefaultBranch(t *testing.T) {
	requireGit(t)
	f := setupBareRepo(t)
	conn := connect(t, f.url)

	ref, err := conn.DefaultBranch(context.Background())
	if err != nil {
		t.Fatalf("DefaultBranch() error = %v", err)
	}
	if ref.CanonicalID != f.second {
		t.Errorf("DefaultBranch() = %v, want commit %s", ref, f.second)
	}
}

func TestPopulate(t *testing.T) {
	requireGit(t)
	f := setupBareRepo(t)
	conn := connect(t, f.url)
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "checkouts", "lib")

	if err := conn.Populate(ctx, vcs.VersionRef{Version: "1.0", CanonicalID: f.first}, dir); err != nil {
		t.Fatalf("Populate(1.0) error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "lib", "srcdeps-build.yaml")); err != nil {
		t.Errorf("checkout of 1.0 is missing the build descriptor: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "README.md")); !os.IsNotExist(err) {
		t.Errorf("checkout of 1.0 should not contain README.md, stat err = %v", err)
	}

	// Repopulating the same directory moves it to another revision.
	if err := conn.Populate(ctx, vcs.VersionRef{Version: "release", CanonicalID: f.release}, dir); err != nil {
		t.Fatalf("Populate(release) error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "RELEASE.md")); err != nil {
		t.Errorf("checkout of release is missing RELEASE.md: %v", err)
	}
}

func TestPopulateRejectsNonCommit(t *testing.T) {
	conn, err := System{}.Connect(Spec{URL: "https://example.com/lib.git"})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	err = conn.Populate(context.Background(), vcs.VersionRef{Version: "main", CanonicalID: "main"}, t.TempDir())
	if err == nil {
		t.Error("Populate() with a non-hash canonical id should fail")
	}
}
