// Package dcp defines the DCP specification revisions this library speaks
// and the capability set each revision implies.
package dcp

// Version is one revision of the DCP wire format. The set of revisions is
// closed: a version string that does not parse to one of the constants below
// is unknown to this library.
type Version string

// Known DCP specification versions, oldest first.
const (
	Version20241105 Version = "2024-11-05"
	Version20250326 Version = "2025-03-26"
	Version20250618 Version = "2025-06-18"
)

// SupportedVersions lists every known revision in ascending order.
var SupportedVersions = []Version{
	Version20241105,
	Version20250326,
	Version20250618,
}

// OldestVersion is the fallback when a peer reports an unparseable version.
const OldestVersion = Version20241105

// LatestVersion is the preferred version for new clients.
const LatestVersion = Version20250618

// Minimum versions required per capability, used in gating errors.
const (
	RootsMinVersion       = Version20250326
	ElicitationMinVersion = Version20250618
)

// Parse maps a version string onto a known revision. ok is false for
// anything outside the closed enumeration.
func Parse(s string) (v Version, ok bool) {
	for _, known := range SupportedVersions {
		if string(known) == s {
			return known, true
		}
	}
	return "", false
}

// String returns the wire form of the version.
func (v Version) String() string { return string(v) }

// index returns the position of v in the ascending revision order, or -1 for
// an unknown version.
func (v Version) index() int {
	for i, known := range SupportedVersions {
		if v == known {
			return i
		}
	}
	return -1
}

// AtLeast reports whether v is the given revision or a successor of it.
// Unknown versions compare older than everything.
func (v Version) AtLeast(min Version) bool {
	vi, mi := v.index(), min.index()
	return vi >= 0 && mi >= 0 && vi >= mi
}

// SupportsRoots reports whether the revision carries the roots capability
// (roots/list and the roots-changed notification).
func (v Version) SupportsRoots() bool {
	return v.AtLeast(RootsMinVersion)
}

// SupportsElicitation reports whether the revision carries the elicitation
// capability. Elicitation exists only in the newest revision of this
// protocol generation.
func (v Version) SupportsElicitation() bool {
	return v == ElicitationMinVersion
}
