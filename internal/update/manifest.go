package update

import (
	"strings"
)

// UpdateKind classifies how an available update is applied.
type UpdateKind int

const (
	// KindPatch updates are applied automatically.
	KindPatch UpdateKind = iota
	// KindMajor updates require explicit user consent.
	KindMajor
)

// String returns the string representation of an UpdateKind.
func (k UpdateKind) String() string {
	switch k {
	case KindMajor:
		return "major"
	default:
		return "patch"
	}
}

// manifestLines is the number of meaningful lines a manifest must carry.
const manifestLines = 3

// Manifest describes the latest release published on the update server.
type Manifest struct {
	DownloadURL   string
	LatestVersion Version
	Kind          UpdateKind
}

// ParseManifest parses the plaintext manifest served by the update endpoint.
//
// The format is three non-empty lines, in order: download URL, latest version,
// update kind. Empty and whitespace-only lines are discarded before indexing,
// lines after the third are ignored. The kind is case-insensitive and anything
// other than "major" is treated as a patch.
func ParseManifest(raw string) (Manifest, error) {
	lines := nonEmptyLines(raw)
	if len(lines) < manifestLines {
		return Manifest{}, formatError("", ErrInvalidManifest)
	}

	latest, err := ParseVersion(lines[1])
	if err != nil {
		return Manifest{}, formatError("invalid manifest version", err)
	}

	kind := KindPatch
	if strings.ToLower(strings.TrimSpace(lines[2])) == "major" {
		kind = KindMajor
	}

	return Manifest{
		DownloadURL:   strings.TrimSpace(lines[0]),
		LatestVersion: latest,
		Kind:          kind,
	}, nil
}

func nonEmptyLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
