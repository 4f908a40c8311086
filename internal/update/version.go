package update

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "autoupdater/internal/errors"
)

// maxVersionSegments is the number of components in a Version.
const maxVersionSegments = 4

// Version represents a parsed major.minor.build.revision version.
// Versions are plain values: two versions are equal iff all four fields match.
type Version struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// ParseVersion parses a dotted version string with one to four numeric segments.
// Missing trailing segments default to zero, so "2.1" parses as 2.1.0.0.
// Returns a format error for empty input, empty or non-numeric segments, and
// more than four segments.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, formatError("empty version string", nil)
	}

	parts := strings.Split(s, ".")
	if len(parts) > maxVersionSegments {
		return Version{}, formatError(fmt.Sprintf("invalid version format: %s", s), nil)
	}

	var fields [maxVersionSegments]int
	for i, part := range parts {
		n, err := parseSegment(part)
		if err != nil {
			return Version{}, formatError(fmt.Sprintf("invalid version format: %s", s), err)
		}
		fields[i] = n
	}

	return Version{
		Major:    fields[0],
		Minor:    fields[1],
		Build:    fields[2],
		Revision: fields[3],
	}, nil
}

// MustParseVersion is like ParseVersion but panics on error.
// Intended for build-time constants and tests.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// parseSegment accepts only plain decimal digits; signs and spaces are rejected.
func parseSegment(part string) (int, error) {
	if part == "" {
		return 0, fmt.Errorf("empty segment")
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("segment %q is not numeric", part)
		}
	}
	n, err := strconv.Atoi(part)
	if err != nil {
		return 0, fmt.Errorf("segment %q: %w", part, err)
	}
	return n, nil
}

// String renders the version as four dot-separated integers.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// Compare compares two versions.
// Returns:
//
//	-1 if v < other
//	 0 if v == other
//	 1 if v > other
func (v Version) Compare(other Version) int {
	if v.Major != other.Major {
		return compareInt(v.Major, other.Major)
	}
	if v.Minor != other.Minor {
		return compareInt(v.Minor, other.Minor)
	}
	if v.Build != other.Build {
		return compareInt(v.Build, other.Build)
	}
	return compareInt(v.Revision, other.Revision)
}

// LessThan returns true if v < other.
func (v Version) LessThan(other Version) bool {
	return v.Compare(other) < 0
}

// GreaterThan returns true if v > other.
func (v Version) GreaterThan(other Version) bool {
	return v.Compare(other) > 0
}

// Equal returns true if v == other.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

func compareInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func formatError(msg string, err error) error {
	return apperrors.New(apperrors.CodeFormat, msg, err)
}
