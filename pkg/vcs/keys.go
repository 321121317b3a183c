package vcs

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/agentpkg/srcdeps/pkg/version"
)

// CacheKey derives the lookup key for a repository and constraint:
// "<id>:b:<branch>" or "<id>:v:<version>".
func CacheKey(repoID string, c version.Constraint) string {
	if c.Branch != "" {
		return repoID + ":b:" + c.Branch
	}
	return repoID + ":v:" + c.Required
}

// RevisionKey derives the lookup key for a repository at a revision.
func RevisionKey(repoID string, ref VersionRef) string {
	return repoID + ":" + ref.CanonicalID
}

// WorkingDirName names the directory a revision is materialised into,
// "<md5(uniqueID)>-<canonicalID>", so that every revision of every
// repository gets its own stable directory.
func WorkingDirName(uniqueID string, ref VersionRef) string {
	sum := md5.Sum([]byte(uniqueID))
	return hex.EncodeToString(sum[:]) + "-" + ref.CanonicalID
}
