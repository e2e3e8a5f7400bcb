// Package config provides the configuration loader for pyrig.
package config

import (
	"bytes"
	"cmp"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	version "github.com/aquasecurity/go-pep440-version"
	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// DefaultFilename is the configuration file looked up when no path is given.
const DefaultFilename = "pyrig.yaml"

const (
	defaultIndexURL    = "https://pypi.org"
	defaultPython      = "python3"
	defaultPyVersion   = "3.11"
	defaultMaxRounds   = 2000
	defaultTestPattern = "test_*.py"
)

var defaultBootstrap = []string{"pip", "setuptools", "wheel"}

// defaultStages mirror the pre-commit hook: import ordering, formatting, linting, tests under coverage.
var defaultStages = []domain.Stage{
	{Name: "isort", Command: []string{"{python}", "-m", "isort", "{files}"}},
	{Name: "black", Command: []string{"{python}", "-m", "black", "{files}"}},
	{Name: "flake8", Command: []string{"{python}", "-m", "flake8", "{files}"}},
	{Name: "unittest", Command: []string{
		"{python}", "-m", "coverage", "run", "--include", "{package}/*",
		"-m", "unittest", "discover", "-s", ".", "-p", "{pattern}",
	}},
	{Name: "coverage", Command: []string{"{python}", "-m", "coverage", "report"}},
}

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	logger ports.Logger
}

// NewLoader creates a new Loader.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads the configuration file at path and returns the project with defaults applied.
func (l *Loader) Load(path string) (*domain.Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to resolve config path"), "path", path)
	}

	data, err := os.ReadFile(abs) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", abs)
	}

	file, err := Parse(data)
	if err != nil {
		return nil, zerr.With(err, "path", abs)
	}

	project, err := file.toProject(filepath.Dir(abs))
	if err != nil {
		return nil, zerr.With(err, "path", abs)
	}

	if !slices.Contains(project.Specs, project.ProdSpec) {
		if l.logger != nil {
			l.logger.Warn("prod spec is not listed in requirements.specs, compiling it anyway")
		}
		project.Specs = append([]string{project.ProdSpec}, project.Specs...)
	}
	return project, nil
}

// Parse decodes a pyrig.yaml document. Unknown keys are rejected.
func Parse(data []byte) (*Pyrigfile, error) {
	var file Pyrigfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, zerr.Wrap(err, "failed to parse config file")
	}
	return &file, nil
}

func (f *Pyrigfile) toProject(root string) (*domain.Project, error) {
	if f.Version != "" && f.Version != "1" {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "unsupported config version"), "version", f.Version)
	}
	if f.Project.Name == "" {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "project.name is required"), "field", "project.name")
	}

	pkg := cmp.Or(f.Project.Package, strings.ReplaceAll(f.Project.Name, "-", "_"))
	reqDir := cmp.Or(f.Layout.Requirements, "requirements")

	p := &domain.Project{
		Root:           root,
		Name:           f.Project.Name,
		Package:        pkg,
		Summary:        f.Project.Summary,
		URL:            f.Project.URL,
		Readme:         f.Project.Readme,
		PythonRequires: f.Project.PythonRequires,
		EntryPoints:    f.Project.EntryPoints,
		PexEntryPoint:  f.Project.PexEntryPoint,
		Python:         cmp.Or(f.Python.Interpreter, defaultPython),
		PythonVersion:  cmp.Or(f.Python.Version, defaultPyVersion),
		Platform:       cmp.Or(f.Python.Platform, hostPlatform()),
		Machine:        f.Python.Machine,
		Layout: domain.Layout{
			VersionFile:     cmp.Or(f.Layout.VersionFile, pkg+"/version.txt"),
			Venv:            cmp.Or(f.Layout.Venv, ".venv"),
			RequirementsDir: reqDir,
			Dist:            cmp.Or(f.Layout.Dist, "dist"),
			Build:           cmp.Or(f.Layout.Build, "build"),
			State:           cmp.Or(f.Layout.State, ".pyrig"),
		},
		Index: domain.IndexConfig{
			URL:    strings.TrimSuffix(cmp.Or(f.Index.URL, defaultIndexURL), "/"),
			Static: f.Index.Static,
		},
		Specs:             f.Requirements.Specs,
		ProdSpec:          cmp.Or(f.Requirements.Prod, reqDir+"/prod.in"),
		AllowPreReleases:  f.Requirements.AllowPreReleases,
		BootstrapPackages: f.Requirements.Bootstrap,
		MaxRounds:         f.Requirements.MaxRounds,
		TestPattern:       cmp.Or(f.Gate.TestPattern, defaultTestPattern),
	}

	if p.Readme == "" {
		if _, err := os.Stat(filepath.Join(root, "README.md")); err == nil {
			p.Readme = "README.md"
		}
	}
	if len(p.Specs) == 0 {
		p.Specs = []string{reqDir + "/prod.in", reqDir + "/dev.in"}
	}
	if p.BootstrapPackages == nil {
		p.BootstrapPackages = defaultBootstrap
	}
	if p.MaxRounds <= 0 {
		p.MaxRounds = defaultMaxRounds
	}

	if p.PythonRequires != "" {
		if _, err := version.NewSpecifiers(p.PythonRequires); err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "invalid python_requires"), "python_requires", p.PythonRequires)
		}
	}
	if _, err := version.Parse(p.PythonVersion); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "invalid python.version"), "version", p.PythonVersion)
	}

	for name, ref := range p.EntryPoints {
		if !strings.Contains(ref, ":") {
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "entry point must be module:function"), "entry_point", name), "ref", ref)
		}
	}
	if p.Machine == "" {
		p.Machine = hostMachine(p.Platform)
	}
	if p.PexEntryPoint == "" {
		if scripts := p.ConsoleScripts(); len(scripts) > 0 {
			p.PexEntryPoint = p.EntryPoints[scripts[0]]
		}
	}

	stages, err := convertStages(f.Gate.Stages)
	if err != nil {
		return nil, err
	}
	p.Stages = stages

	return p, nil
}

func convertStages(dtos []StageDTO) ([]domain.Stage, error) {
	if len(dtos) == 0 {
		return slices.Clone(defaultStages), nil
	}
	seen := make(map[string]bool, len(dtos))
	out := make([]domain.Stage, 0, len(dtos))
	for i, dto := range dtos {
		if dto.Name == "" || len(dto.Cmd) == 0 {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "gate stage needs a name and a command"), "index", i)
		}
		if seen[dto.Name] {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "duplicate gate stage"), "stage", dto.Name)
		}
		seen[dto.Name] = true
		out = append(out, domain.Stage{Name: dto.Name, Command: dto.Cmd})
	}
	return out, nil
}

// hostMachine returns the platform.machine() value CPython reports on the running host.
func hostMachine(platform string) string {
	switch runtime.GOARCH {
	case "amd64":
		if platform == "win32" {
			return "AMD64"
		}
		return "x86_64"
	case "arm64":
		switch platform {
		case "linux":
			return "aarch64"
		case "win32":
			return "ARM64"
		}
		return "arm64"
	case "386":
		return "i686"
	default:
		return runtime.GOARCH
	}
}

// hostPlatform returns the sys.platform value of the running host.
func hostPlatform() string {
	if runtime.GOOS == "windows" {
		return "win32"
	}
	return runtime.GOOS
}

