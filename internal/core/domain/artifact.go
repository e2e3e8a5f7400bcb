package domain

import (
	"regexp"
	"strings"

	"go.trai.ch/zerr"
)

// ArtifactKind is the shape of a build artifact.
type ArtifactKind string

const (
	// ArtifactWheel is a standard installable py3-none-any wheel.
	ArtifactWheel ArtifactKind = "wheel"
	// ArtifactPex is a self-contained executable zipapp.
	ArtifactPex ArtifactKind = "pex"
)

var wheelNameRegexp = regexp.MustCompile(`[^A-Za-z0-9.]+`)

// ParseArtifactKind converts a user supplied kind.
func ParseArtifactKind(s string) (ArtifactKind, error) {
	switch ArtifactKind(strings.ToLower(strings.TrimSpace(s))) {
	case ArtifactWheel:
		return ArtifactWheel, nil
	case ArtifactPex:
		return ArtifactPex, nil
	default:
		return "", zerr.With(zerr.Wrap(ErrUnknownArtifactKind, "cannot package"), "kind", s)
	}
}

// Artifact is a packaged, versioned bundle written to the dist directory.
type Artifact struct {
	Kind    ArtifactKind
	Name    string
	Version string
	Path    string
}

// ArtifactFilename derives the file name of an artifact from the distribution
// name and version.
func ArtifactFilename(kind ArtifactKind, name, version string) string {
	switch kind {
	case ArtifactPex:
		return name + "-" + version + ".pex"
	default:
		return WheelDistName(name) + "-" + version + "-py3-none-any.whl"
	}
}

// WheelDistName escapes a distribution name for use in wheel and dist-info file names.
func WheelDistName(name string) string {
	return wheelNameRegexp.ReplaceAllString(name, "_")
}
