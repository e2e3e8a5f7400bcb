package index

import (
	"context"
	"os"

	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.PackageIndex = (*Static)(nil)

// StaticFile is the YAML document of a static index:
//
//	packages:
//	  requests:
//	    - version: "2.31.0"
//	      requires_python: ">=3.7"
//	      dependencies: ["idna<4,>=2.5"]
type StaticFile struct {
	Packages map[string][]StaticRelease `yaml:"packages"`
}

// StaticRelease is one release entry of a static index.
type StaticRelease struct {
	domain.Release `yaml:",inline"`
	Dependencies   []string `yaml:"dependencies"`
}

// Static implements ports.PackageIndex over an in-memory set of releases.
type Static struct {
	packages map[string][]StaticRelease
}

// LoadStatic reads a static index file.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from project configuration
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrIndexUnavailable, err.Error()), "path", path)
	}
	var file StaticFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrIndexUnavailable, "malformed static index"), "path", path)
	}
	return NewStatic(file), nil
}

// NewStatic creates an index serving the releases in file.
func NewStatic(file StaticFile) *Static {
	packages := make(map[string][]StaticRelease, len(file.Packages))
	for name, releases := range file.Packages {
		canonical := domain.CanonicalName(name)
		packages[canonical] = append(packages[canonical], releases...)
	}
	return &Static{packages: packages}
}

// Releases implements ports.PackageIndex.
func (s *Static) Releases(_ context.Context, name string) ([]domain.Release, error) {
	releases, ok := s.packages[domain.CanonicalName(name)]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrPackageNotFound, "no such project"), "package", name)
	}
	out := make([]domain.Release, len(releases))
	for i, r := range releases {
		out[i] = r.Release
	}
	return out, nil
}

// Dependencies implements ports.PackageIndex.
func (s *Static) Dependencies(_ context.Context, name, version string) ([]domain.Requirement, error) {
	canonical := domain.CanonicalName(name)
	releases, ok := s.packages[canonical]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrPackageNotFound, "no such project"), "package", name)
	}
	for _, r := range releases {
		if r.Version == version {
			return parseRequiresDist(canonical, version, r.Dependencies)
		}
	}
	notFound := zerr.With(zerr.Wrap(domain.ErrPackageNotFound, "no such release"), "package", name)
	return nil, zerr.With(notFound, "version", version)
}
