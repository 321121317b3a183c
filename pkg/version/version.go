package version

import (
	"strings"
)

// Version is a parsed version string. Parts are split on '.', '-', '_' and
// '+' as well as on every boundary between digits and letters, so "1.0rc1"
// yields [1 0 rc 1].
type Version struct {
	source string
	parts  []string
}

// Parse never fails: every string is a version, some just sort oddly.
func Parse(s string) Version {
	v := Version{source: s}

	var (
		current   strings.Builder
		lastDigit bool
	)

	flush := func() {
		if current.Len() == 0 {
			return
		}
		v.parts = append(v.parts, current.String())
		current.Reset()
	}

	for _, r := range s {
		if isSeparator(r) {
			flush()
			continue
		}
		digit := r >= '0' && r <= '9'
		if current.Len() > 0 && digit != lastDigit {
			flush()
		}
		current.WriteRune(r)
		lastDigit = digit
	}
	flush()
	return v
}

func isSeparator(r rune) bool {
	return r == '.' || r == '-' || r == '_' || r == '+'
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (v Version) String() string { return v.source }

// Parts returns a copy of the parsed parts.
func (v Version) Parts() []string {
	out := make([]string, len(v.parts))
	copy(out, v.parts)
	return out
}

var specialMeanings = map[string]int{
	"dev":      -1,
	"rc":       1,
	"snapshot": 2,
	"final":    3,
	"ga":       4,
	"release":  5,
	"sp":       6,
}

// Compare orders two versions. Numeric parts compare as numbers and sort
// above non-numeric parts. Qualifiers with a special meaning sort as
// dev < (anything else) < rc < snapshot < final < ga < release < sp.
// When one version has extra parts it is greater if the first extra part is
// numeric (1.0 < 1.0.1) and lower otherwise (1.0-beta < 1.0).
func Compare(a, b Version) int {
	if a.source == b.source {
		return 0
	}

	n := min(len(a.parts), len(b.parts))
	for i := 0; i < n; i++ {
		p1, p2 := a.parts[i], b.parts[i]
		if p1 == p2 {
			continue
		}
		num1, num2 := isNumber(p1), isNumber(p2)
		switch {
		case num1 && num2:
			if c := compareNumeric(p1, p2); c != 0 {
				return c
			}
			continue
		case num1:
			return 1
		case num2:
			return -1
		}

		sm1, ok1 := specialMeanings[strings.ToLower(p1)]
		sm2, ok2 := specialMeanings[strings.ToLower(p2)]
		if ok1 && ok2 && sm1 == sm2 {
			continue
		}
		if ok1 {
			return sign(sm1 - sm2)
		}
		if ok2 {
			return sign(-sm2)
		}
		return strings.Compare(p1, p2)
	}

	if len(a.parts) > n {
		if isNumber(a.parts[n]) {
			return 1
		}
		return -1
	}
	if len(b.parts) > n {
		if isNumber(b.parts[n]) {
			return -1
		}
		return 1
	}
	// Same parts up to separators and qualifier case.
	return strings.Compare(a.source, b.source)
}

// compareNumeric compares two digit strings of arbitrary length.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func sign(i int) int {
	switch {
	case i < 0:
		return -1
	case i > 0:
		return 1
	}
	return 0
}
