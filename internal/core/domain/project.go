package domain

import (
	"path/filepath"
	"slices"
)

// Layout holds the persisted locations of the pipeline, relative to the project root.
type Layout struct {
	VersionFile     string
	Venv            string
	RequirementsDir string
	Dist            string
	Build           string
	State           string
}

// Stage is one quality gate step.
type Stage struct {
	Name    string
	Command []string
}

// IndexConfig selects the package index used during compilation.
type IndexConfig struct {
	// URL is the base of a PyPI JSON API.
	URL string
	// Static is the path of a YAML index file. It takes precedence over URL.
	Static string
}

// Project is the loaded build configuration with defaults applied.
type Project struct {
	// Root is the absolute directory that contains the configuration file.
	Root string
	// Name is the distribution name.
	Name string
	// Package is the importable top-level package.
	Package        string
	Summary        string
	URL            string
	Readme         string
	PythonRequires string
	// EntryPoints maps console script names to "module:function" references.
	EntryPoints map[string]string
	// PexEntryPoint is the "module:function" a pex runs. Defaults to the first console script.
	PexEntryPoint string

	// Python is the interpreter used to bootstrap the environment.
	Python string
	// PythonVersion is the target interpreter version used for markers and requires_python.
	PythonVersion string
	// Platform is the target sys.platform value.
	Platform string
	// Machine is the target platform.machine() value.
	Machine string

	Layout            Layout
	Index             IndexConfig
	Specs             []string
	ProdSpec          string
	AllowPreReleases  bool
	BootstrapPackages []string
	MaxRounds         int

	Stages      []Stage
	TestPattern string
}

// Path resolves a project relative path against the root.
func (p *Project) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}

// ProdManifest returns the path of the locked production manifest.
func (p *Project) ProdManifest() string {
	return ManifestPath(p.ProdSpec)
}

// Manifests returns the locked manifest path of every configured spec.
func (p *Project) Manifests() []string {
	out := make([]string, 0, len(p.Specs))
	for _, spec := range p.Specs {
		out = append(out, ManifestPath(spec))
	}
	return out
}

// ConsoleScripts returns the console script names in sorted order.
func (p *Project) ConsoleScripts() []string {
	names := make([]string, 0, len(p.EntryPoints))
	for name := range p.EntryPoints {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// MarkerEnv returns the marker environment of the target interpreter.
func (p *Project) MarkerEnv() MarkerEnv {
	return DefaultMarkerEnv(p.PythonVersion, p.Platform, p.Machine)
}
