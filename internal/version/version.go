// Package version implements the dotted numeric version arithmetic used when
// negotiating a release number: parsing, numeric comparison with zero padding,
// and incrementing the final segment.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// UnparseableError is returned when a version string cannot be split into
// integer segments.
type UnparseableError struct {
	Version string
}

func (e *UnparseableError) Error() string {
	return fmt.Sprintf("unparseable version %q", e.Version)
}

// Version is a parsed dotted numeric version.
type Version []int

// Parse splits s into integer segments. Surrounding whitespace and a single
// leading "v" are ignored.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "v")
	if trimmed == "" {
		return nil, &UnparseableError{Version: s}
	}
	parts := strings.Split(trimmed, ".")
	v := make(Version, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || p == "" || strings.HasPrefix(p, "+") {
			return nil, &UnparseableError{Version: s}
		}
		v[i] = n
	}
	return v, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Compare returns -1, 0 or 1. The shorter version is zero-padded, so 1.2 and
// 1.2.0 compare equal.
func (v Version) Compare(o Version) int {
	n := max(len(v), len(o))
	for i := range n {
		a, b := v.at(i), o.at(i)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

func (v Version) at(i int) int {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// Pad returns a copy of v extended with zeros to at least n segments.
func (v Version) Pad(n int) Version {
	out := make(Version, max(n, len(v)))
	copy(out, v)
	return out
}

// Increment returns a copy of v with its final segment increased by one.
func (v Version) Increment() Version {
	out := v.Pad(len(v))
	if len(out) == 0 {
		return Version{1}
	}
	out[len(out)-1]++
	return out
}

// Compare parses a and b and compares them numerically.
func Compare(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// Less reports whether a sorts before b. Unparseable versions sort first,
// ordered lexically among themselves.
func Less(a, b string) bool {
	va, errA := Parse(a)
	vb, errB := Parse(b)
	switch {
	case errA != nil && errB != nil:
		return a < b
	case errA != nil:
		return true
	case errB != nil:
		return false
	}
	if c := va.Compare(vb); c != 0 {
		return c < 0
	}
	return a < b
}

// Increment parses s and increments its final segment: "2.3.9" becomes "2.3.10".
func Increment(s string) (string, error) {
	v, err := Parse(s)
	if err != nil {
		return "", err
	}
	return v.Increment().String(), nil
}

// NextAfter returns the version to propose once proposed has been found
// already published and latest is the highest published version. The latest
// version is zero-padded to the longer of the two segment counts and its
// final segment incremented, so "2.3" against latest "2.3.1" yields "2.3.2"
// and "2.3.0" against latest "2.3" yields "2.3.1". A proposed version above
// latest is used as the base instead.
func NextAfter(proposed, latest string) (string, error) {
	p, err := Parse(proposed)
	if err != nil {
		return "", err
	}
	l, err := Parse(latest)
	if err != nil {
		return "", err
	}
	base := l.Pad(len(p))
	if p.Compare(l) > 0 {
		base = p.Pad(len(l))
	}
	return base.Increment().String(), nil
}

// Latest returns the highest version in versions. Entries that do not parse
// are skipped; if none parse the error names the first one.
func Latest(versions []string) (string, error) {
	var (
		best     Version
		bestRaw  string
		firstErr error
	)
	for _, s := range versions {
		v, err := Parse(s)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if best == nil || v.Compare(best) > 0 {
			best, bestRaw = v, s
		}
	}
	if best == nil {
		if firstErr != nil {
			return "", firstErr
		}
		return "", nil
	}
	return bestRaw, nil
}

// Equal reports whether a and b name the same release, either verbatim or
// numerically ("1.0" equals "1.0.0").
func Equal(a, b string) bool {
	if a == b {
		return true
	}
	c, err := Compare(a, b)
	return err == nil && c == 0
}

// Contains reports whether versions holds s per Equal.
func Contains(versions []string, s string) bool {
	for _, v := range versions {
		if Equal(v, s) {
			return true
		}
	}
	return false
}
