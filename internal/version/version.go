// Package version compares and parses dotted numeric version strings.
//
// Comparison is deliberately lenient: it never fails on malformed input.
// Each dot-separated segment is worth the value of its leading run of ASCII
// digits, and a segment without leading digits is worth 0. Missing trailing
// segments are treated as 0, so "1.0" equals "1.0.0". Use IsValid when strict
// validation is required before comparing.
package version

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var validRegex = regexp.MustCompile(`^\d+\.\d+\.\d+(?:\.\d+)?$`)

// Version is the parsed form of a dotted version string.
type Version struct {
	Major    int
	Minor    int
	Patch    int
	Build    int
	HasBuild bool
}

// Parse splits a version string into its components.
// The first three segments become Major, Minor and Patch (0 when absent);
// a fourth segment, if present, becomes Build.
func Parse(s string) Version {
	segs := segments(s)

	var v Version
	if len(segs) > 0 {
		v.Major = segs[0]
	}
	if len(segs) > 1 {
		v.Minor = segs[1]
	}
	if len(segs) > 2 {
		v.Patch = segs[2]
	}
	if len(segs) > 3 {
		v.Build = segs[3]
		v.HasBuild = true
	}
	return v
}

// String returns the string representation
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.HasBuild {
		s += "." + strconv.Itoa(v.Build)
	}
	return s
}

// Compare compares two version strings segment by segment.
// Returns:
//   - 1 if a > b
//   - 0 if a == b
//   - -1 if a < b
func Compare(a, b string) int {
	as, bs := segments(a), segments(b)

	n := max(len(as), len(bs))
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		if x != y {
			if x > y {
				return 1
			}
			return -1
		}
	}
	return 0
}

// IsUpdateAvailable returns true if latest is strictly newer than current.
// An empty latest version never counts as an update.
func IsUpdateAvailable(current, latest string) bool {
	if strings.TrimSpace(latest) == "" {
		return false
	}
	return Compare(current, latest) < 0
}

// IsValid reports whether s is three or four dot-separated non-negative integers.
func IsValid(s string) bool {
	return validRegex.MatchString(s)
}

// Sort sorts versions in ascending order. Equal versions keep their order.
func Sort(versions []string) {
	slices.SortStableFunc(versions, Compare)
}

// Max returns the greater of a and b, preferring a on ties.
func Max(a, b string) string {
	if Compare(b, a) > 0 {
		return b
	}
	return a
}

// Latest returns the greatest version in the list, or "" for an empty list.
func Latest(versions []string) string {
	if len(versions) == 0 {
		return ""
	}
	latest := versions[0]
	for _, v := range versions[1:] {
		latest = Max(latest, v)
	}
	return latest
}

// Normalize removes the 'v' prefix and surrounding whitespace.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 0 && (s[0] == 'v' || s[0] == 'V') {
		return s[1:]
	}
	return s
}

// segments converts a version string into its numeric segments.
func segments(s string) []int {
	s = Normalize(s)
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		out[i] = leadingInt(p)
	}
	return out
}

// leadingInt parses the leading run of digits in s, returning 0 if there is none.
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// overflow; clamp rather than fail
		return int(^uint(0) >> 1)
	}
	return n
}
