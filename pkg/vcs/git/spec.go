package git

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/agentpkg/srcdeps/pkg/vcs"
)

// Kind is the registry key of the git version control system.
const Kind = "git"

// Spec is a git repository, optionally narrowed to a build root below the
// repository root.
type Spec struct {
	URL  string
	Root string
}

var _ vcs.Spec = Spec{}

func (s Spec) Kind() string        { return Kind }
func (s Spec) UniqueID() string    { return "git-repo:" + s.URL }
func (s Spec) DisplayName() string { return "Git repository at " + s.URL }
func (s Spec) RootDir() string     { return s.Root }

// RepoName is the last path segment of the URL without ".git", e.g.
// "skills" for https://github.com/anthropics/skills.git.
func (s Spec) RepoName() string {
	_, repoPath, err := parseGitURL(s.URL)
	if err != nil || repoPath == "" {
		return strings.TrimSuffix(path.Base(s.URL), ".git")
	}
	return path.Base(repoPath)
}

// Validate checks that the URL is parseable and the root stays inside the
// checkout.
func (s Spec) Validate() error {
	if s.URL == "" {
		return fmt.Errorf("git url is required")
	}
	if _, _, err := parseGitURL(s.URL); err != nil {
		return fmt.Errorf("parsing git URL %q: %w", s.URL, err)
	}
	if s.Root != "" {
		clean := path.Clean(s.Root)
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("root dir %q must be relative to the repository root", s.Root)
		}
	}
	return nil
}

// parseGitURL extracts the host and repository path from a git URL.
// Supports HTTPS URLs, SSH shorthand (git@host:owner/repo.git) and local
// paths, which have an empty host.
func parseGitURL(rawURL string) (host, repoPath string, err error) {
	// SSH shorthand: git@github.com:owner/repo.git
	if idx := strings.Index(rawURL, ":"); idx > 0 && !strings.Contains(rawURL[:idx], "/") && !strings.Contains(rawURL, "://") {
		host = rawURL[:idx]
		if at := strings.Index(host, "@"); at >= 0 {
			host = host[at+1:]
		}
		repoPath = strings.TrimSuffix(rawURL[idx+1:], ".git")
		return host, repoPath, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	repoPath = strings.TrimSuffix(u.Path, "/")
	if u.Host != "" {
		repoPath = strings.TrimPrefix(repoPath, "/")
	}
	repoPath = strings.TrimSuffix(repoPath, ".git")
	return u.Host, repoPath, nil
}

// isCommitHash reports whether s is a full 40-character hex SHA-1 hash.
func isCommitHash(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
