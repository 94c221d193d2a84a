// Package manifest defines the directory manifest format used by the
// cache client: a versioned mapping from filename to the set of file
// revisions available for that filename, and the resolver that picks
// the single best revision for a target library version.
package manifest

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version wraps a parsed semantic version so the resolver never has
// to hand-roll version comparison. The zero Version (no parsed semver
// inside) is what a wildcard revision carries as its MinVersion.
type Version struct {
	v *semver.Version
}

// ParseVersion parses a version string as used in a FileRevision's
// min_version field. The wildcard sentinel "*" is rejected here;
// callers translate "*" to a nil MinVersion before ever reaching this
// function (see codec.go).
func ParseVersion(s string) (Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("manifest: parse version %q: %w", s, err)
	}
	return Version{v: v}, nil
}

// String renders the version the way it was parsed, e.g. "1.2.3" or
// "1.2.3-rc.0".
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.Original()
}

// canonical returns the normalized semver string (e.g. "v1.2.3" and
// "1.2.3" both become "1.2.3"), used to detect two min_version keys
// that denote the same version even when spelled differently.
func (v Version) canonical() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// Compare returns -1, 0, or 1 the way semver.Version.Compare does.
// A nil receiver or argument (the wildcard) always compares as the
// lowest possible version.
func (v Version) Compare(o Version) int {
	switch {
	case v.v == nil && o.v == nil:
		return 0
	case v.v == nil:
		return -1
	case o.v == nil:
		return 1
	default:
		return v.v.Compare(o.v)
	}
}

// GreaterThanOrEqual reports whether v >= o, with the wildcard
// sorting below every concrete version.
func (v Version) GreaterThanOrEqual(o Version) bool {
	return v.Compare(o) >= 0
}
