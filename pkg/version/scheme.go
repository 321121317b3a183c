package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	latestPrefix      = "latest."
	StatusIntegration = "integration"
)

// Scheme turns selector strings into Selectors.
type Scheme struct{}

// DefaultScheme is safe for concurrent use; Scheme carries no state.
var DefaultScheme = &Scheme{}

// Parse recognises, in order: latest.<status>, prefix selectors ending in
// '+', bracketed ranges, semantic version constraints (leading ^ ~ < > = !
// or an "||" alternative) and finally exact versions.
func (sc *Scheme) Parse(selector string) (Selector, error) {
	s := strings.TrimSpace(selector)
	if s == "" {
		return nil, fmt.Errorf("empty version selector")
	}

	switch {
	case strings.HasPrefix(s, latestPrefix):
		status := strings.TrimPrefix(s, latestPrefix)
		if status == "" {
			return nil, fmt.Errorf("invalid version selector %q: missing status", selector)
		}
		return &LatestSelector{status: status}, nil

	case strings.HasSuffix(s, "+"):
		return &PrefixSelector{selector: s, prefix: strings.TrimSuffix(s, "+")}, nil

	case isRange(s):
		return parseRange(s)

	case strings.ContainsAny(s[:1], "^~<>=!") || strings.Contains(s, "||"):
		c, err := semver.NewConstraint(s)
		if err != nil {
			return nil, fmt.Errorf("invalid version selector %q: %w", selector, err)
		}
		return &SemverSelector{selector: s, constraint: c}, nil
	}

	return &ExactSelector{version: s}, nil
}

func isRange(s string) bool {
	if len(s) < 3 || !strings.Contains(s, ",") {
		return false
	}
	return strings.ContainsAny(s[:1], "[](") && strings.ContainsAny(s[len(s)-1:], "[])")
}

func parseRange(s string) (Selector, error) {
	opening, closing := s[0], s[len(s)-1]
	bounds := strings.Split(s[1:len(s)-1], ",")
	if len(bounds) != 2 {
		return nil, fmt.Errorf("invalid version range %q", s)
	}

	r := &RangeSelector{
		selector:       s,
		lowerInclusive: opening == '[',
		upperInclusive: closing == ']',
	}
	if lo := strings.TrimSpace(bounds[0]); lo != "" {
		v := Parse(lo)
		r.lower = &v
	}
	if hi := strings.TrimSpace(bounds[1]); hi != "" {
		v := Parse(hi)
		r.upper = &v
	}
	if r.lower == nil && r.upper == nil {
		return nil, fmt.Errorf("invalid version range %q: no bounds", s)
	}
	if r.lower != nil && r.upper != nil && Compare(*r.lower, *r.upper) > 0 {
		return nil, fmt.Errorf("invalid version range %q: lower bound above upper bound", s)
	}
	return r, nil
}
