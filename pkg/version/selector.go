package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Selector decides which candidate versions satisfy a requested version.
type Selector interface {
	// Accept reports whether candidate satisfies the selector.
	Accept(candidate Version) bool
	// IsDynamic reports whether more than one version may be accepted.
	IsDynamic() bool
	// RequiresMetadata reports whether the selector can only be evaluated
	// against component metadata (e.g. a status), not against the version
	// string alone.
	RequiresMetadata() bool
	String() string
}

type ExactSelector struct {
	version string
}

func (s *ExactSelector) Accept(candidate Version) bool { return candidate.String() == s.version }
func (s *ExactSelector) IsDynamic() bool               { return false }
func (s *ExactSelector) RequiresMetadata() bool        { return false }
func (s *ExactSelector) String() string                { return s.version }

// PrefixSelector matches every version starting with a prefix: "1.+"
// accepts 1.0 and 1.9.2, "+" accepts everything.
type PrefixSelector struct {
	selector string
	prefix   string
}

func (s *PrefixSelector) Accept(candidate Version) bool {
	return strings.HasPrefix(candidate.String(), s.prefix)
}
func (s *PrefixSelector) IsDynamic() bool        { return true }
func (s *PrefixSelector) RequiresMetadata() bool { return false }
func (s *PrefixSelector) String() string         { return s.selector }

// RangeSelector is a bracketed interval. An empty bound is unbounded.
type RangeSelector struct {
	selector       string
	lower, upper   *Version
	lowerInclusive bool
	upperInclusive bool
}

func (s *RangeSelector) Accept(candidate Version) bool {
	if s.lower != nil {
		c := Compare(candidate, *s.lower)
		if c < 0 || (c == 0 && !s.lowerInclusive) {
			return false
		}
	}
	if s.upper != nil {
		c := Compare(candidate, *s.upper)
		if c > 0 || (c == 0 && !s.upperInclusive) {
			return false
		}
	}
	return true
}
func (s *RangeSelector) IsDynamic() bool        { return true }
func (s *RangeSelector) RequiresMetadata() bool { return false }
func (s *RangeSelector) String() string         { return s.selector }

// LatestSelector is "latest.<status>". Only "latest.integration" can be
// answered without metadata, since every version has at least that status.
type LatestSelector struct {
	status string
}

func (s *LatestSelector) Status() string                { return s.status }
func (s *LatestSelector) Accept(candidate Version) bool { return true }
func (s *LatestSelector) IsDynamic() bool               { return true }
func (s *LatestSelector) RequiresMetadata() bool        { return s.status != StatusIntegration }
func (s *LatestSelector) String() string                { return latestPrefix + s.status }

// SemverSelector evaluates semantic version constraints such as "^1.2" or
// ">= 1.0, < 2.0". Candidates that are not valid semantic versions are
// rejected.
type SemverSelector struct {
	selector   string
	constraint *semver.Constraints
}

func (s *SemverSelector) Accept(candidate Version) bool {
	v, err := semver.NewVersion(candidate.String())
	if err != nil {
		return false
	}
	return s.constraint.Check(v)
}
func (s *SemverSelector) IsDynamic() bool        { return true }
func (s *SemverSelector) RequiresMetadata() bool { return false }
func (s *SemverSelector) String() string         { return s.selector }
