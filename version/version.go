// Package version implements ward's version algebra (spec.md §3.3/§4.4):
// parsing, ordering and constraint satisfaction over semantic versions.
// Ordering and canonicalization are delegated to golang.org/x/mod/semver;
// this package only adds the parts that library doesn't cover (missing
// minor/patch defaults, the caret/tilde/range constraint grammar, and
// `:`-prefix stripping for ward's version-marker token text).
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a parsed semantic version.
type Version struct {
	Major, Minor, Patch int
	Prerelease          string // without leading '-'
	Build               string // without leading '+'
	Raw                 string
}

var versionPattern = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(-[A-Za-z0-9.\-]+)?(\+[A-Za-z0-9.\-]+)?$`)

// Parse parses a version string per spec.md §4.4's grammar: an optional
// leading ':' (ward's keyword-marker sigil) or 'v' prefix, major required,
// minor/patch defaulting to 0, optional prerelease and build metadata.
func Parse(s string) (Version, error) {
	raw := s
	s = strings.TrimPrefix(s, ":")
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("version: invalid version %q", raw)
	}
	major, _ := strconv.Atoi(m[1])
	minor, patch := 0, 0
	if m[2] != "" {
		minor, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		patch, _ = strconv.Atoi(m[3])
	}
	v := Version{
		Major:      major,
		Minor:      minor,
		Patch:      patch,
		Prerelease: strings.TrimPrefix(m[4], "-"),
		Build:      strings.TrimPrefix(m[5], "+"),
		Raw:        raw,
	}
	return v, nil
}

// canonical renders v in the "vM.m.p[-pre]" form golang.org/x/mod/semver
// expects; build metadata is intentionally dropped, matching spec.md
// §3.3's "build metadata is ignored for ordering".
func (v Version) canonical() string {
	s := fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

// Key returns the canonical registry key "M.m.p[-pre]" (no leading v),
// spec.md §3.4's VersionedEntity map key.
func (v Version) Key() string {
	return strings.TrimPrefix(v.canonical(), "v")
}

// String renders the version as it would appear in source.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// IsStable is true iff v carries no prerelease component.
func (v Version) IsStable() bool { return v.Prerelease == "" }

// Compare orders two versions: lexicographic triple, then the spec.md
// §3.3 rule that a no-prerelease version is greater than one sharing its
// triple with a prerelease. semver.Compare already implements exactly
// this rule once both sides are canonicalized.
func Compare(a, b Version) int {
	return semver.Compare(a.canonical(), b.canonical())
}

// NextMajor returns the version one major bump above v, patch/minor/pre
// reset — the exclusive upper bound of a caret constraint.
func NextMajor(v Version) Version {
	return Version{Major: v.Major + 1}
}

// NextMinor returns the version one minor bump above v, patch/pre reset
// — the exclusive upper bound of a tilde constraint.
func NextMinor(v Version) Version {
	return Version{Major: v.Major, Minor: v.Minor + 1}
}
