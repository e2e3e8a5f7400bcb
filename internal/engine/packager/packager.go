// Package packager builds versioned wheel and pex artifacts from the application tree.
package packager

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/zerr"
)

// ignores are never shipped in an artifact.
var ignores = []string{"__pycache__", "*.pyc", "*.pyo", ".pytest_cache", "*.egg-info"}

// Packager produces artifacts for one project.
type Packager struct {
	project  *domain.Project
	env      ports.Environment
	executor ports.Executor
	walker   ports.Walker
	logger   ports.Logger
}

// New creates a Packager.
func New(
	project *domain.Project,
	env ports.Environment,
	executor ports.Executor,
	walker ports.Walker,
	logger ports.Logger,
) *Packager {
	return &Packager{
		project:  project,
		env:      env,
		executor: executor,
		walker:   walker,
		logger:   logger,
	}
}

// Package builds an artifact of the given kind into the dist directory.
// Nothing is written to dist unless every step succeeds.
func (p *Packager) Package(ctx context.Context, kind domain.ArtifactKind) (*domain.Artifact, error) {
	ver, err := p.Version()
	if err != nil {
		return nil, err
	}
	reqs, err := p.Requirements()
	if err != nil {
		return nil, err
	}
	files, err := p.sources()
	if err != nil {
		return nil, err
	}

	artifact := &domain.Artifact{
		Kind:    kind,
		Name:    p.project.Name,
		Version: ver,
		Path:    filepath.ToSlash(filepath.Join(p.project.Layout.Dist, domain.ArtifactFilename(kind, p.project.Name, ver))),
	}

	entries, err := p.appEntries(files)
	if err != nil {
		return nil, err
	}

	var build func(path string) error
	switch kind {
	case domain.ArtifactWheel:
		build = func(path string) error {
			return p.writeWheel(path, ver, reqs, entries)
		}
	case domain.ArtifactPex:
		build = func(path string) error {
			return p.writePex(ctx, path, ver, reqs, entries)
		}
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownArtifactKind, "cannot package"), "kind", string(kind))
	}

	target := p.project.Path(artifact.Path)
	if err := p.produce(ctx, target, kind, build); err != nil {
		return nil, err
	}

	p.logger.Info(fmt.Sprintf("Built %s", artifact.Path))
	return artifact, nil
}

// produce builds into a temp file next to target, checks it and renames it into place.
func (p *Packager) produce(ctx context.Context, target string, kind domain.ArtifactKind, build func(path string) error) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create dist directory"), "path", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return zerr.Wrap(err, "failed to create temp artifact")
	}
	tmpName := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpName) }()

	if err := build(tmpName); err != nil {
		return err
	}
	if err := p.checkImport(ctx, tmpName, kind); err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if kind == domain.ArtifactPex {
		mode = 0o755
	}
	//nolint:gosec // Artifacts are meant to be shared.
	if err := os.Chmod(tmpName, mode); err != nil {
		return zerr.Wrap(err, "failed to set artifact permissions")
	}
	if err := os.Rename(tmpName, target); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to move artifact into place"), "path", target)
	}
	return nil
}

// Version reads the first line of the version file and validates it as PEP 440.
func (p *Packager) Version() (string, error) {
	rel := p.project.Layout.VersionFile
	f, err := os.Open(p.project.Path(rel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", zerr.With(zerr.Wrap(domain.ErrVersionFileMissing, "cannot package"), "path", rel)
		}
		return "", zerr.With(zerr.Wrap(err, "failed to open version file"), "path", rel)
	}
	defer func() { _ = f.Close() }()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return "", zerr.With(zerr.Wrap(domain.ErrInvalidVersion, "version file is empty"), "path", rel)
	}
	ver := strings.TrimSpace(line)
	if _, err := domain.ParseVersion(ver); err != nil {
		return "", zerr.With(err, "path", rel)
	}
	return ver, nil
}

// Requirements returns the install requirements of the artifact. They come from
// the locked prod manifest, or from the prod spec when no manifest exists.
func (p *Packager) Requirements() ([]string, error) {
	manifest, err := p.prodManifest()
	if err != nil {
		return nil, err
	}
	if manifest != nil {
		out := make([]string, 0, len(manifest.Packages))
		for _, pkg := range manifest.Packages {
			out = append(out, pkg.String())
		}
		return out, nil
	}

	p.logger.Warn(fmt.Sprintf("%s not found, falling back to %s", p.project.ProdManifest(), p.project.ProdSpec))
	data, err := os.ReadFile(p.project.Path(p.project.ProdSpec))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read requirement spec"), "file", p.project.ProdSpec)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "#") {
			continue
		}
		if idx := strings.Index(line, " #"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		out = append(out, line)
	}
	return out, nil
}

// prodManifest returns the locked prod manifest, or nil when it has not been compiled.
func (p *Packager) prodManifest() (*domain.Manifest, error) {
	manifestPath := p.project.ProdManifest()
	data, err := os.ReadFile(p.project.Path(manifestPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read manifest"), "manifest", manifestPath)
	}
	return domain.ParseManifest(manifestPath, bytes.NewReader(data))
}

// sources lists the shipped files of the application package, relative to the root:
// Python modules of the package and of every nested directory that is itself a
// package, plus the version file as package data.
func (p *Packager) sources() ([]string, error) {
	pkgDir := p.project.Path(p.project.Package)
	info, err := os.Stat(pkgDir)
	if err != nil || !info.IsDir() {
		return nil, zerr.With(zerr.New("application package not found"), "package", p.project.Package)
	}
	versionFile := filepath.ToSlash(filepath.Clean(p.project.Layout.VersionFile))
	packages := map[string]bool{pkgDir: true}

	var files []string
	for path, err := range p.walker.WalkFiles(pkgDir, ignores) {
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to list package files"), "package", p.project.Package)
		}
		rel, err := filepath.Rel(p.project.Root, path)
		if err != nil {
			return nil, zerr.Wrap(err, "failed to relativize package file")
		}
		rel = filepath.ToSlash(rel)
		if rel == versionFile || (filepath.Ext(path) == ".py" && isPackage(filepath.Dir(path), packages)) {
			files = append(files, rel)
		}
	}
	return files, nil
}

// isPackage reports whether dir and each of its parents up to a known package hold an __init__.py.
func isPackage(dir string, known map[string]bool) bool {
	if ok, seen := known[dir]; seen {
		return ok
	}
	ok := false
	if parent := filepath.Dir(dir); parent != dir && isPackage(parent, known) {
		_, err := os.Stat(filepath.Join(dir, "__init__.py"))
		ok = err == nil
	}
	known[dir] = ok
	return ok
}

func (p *Packager) appEntries(files []string) ([]entry, error) {
	out := make([]entry, 0, len(files))
	for _, rel := range files {
		data, err := os.ReadFile(p.project.Path(rel))
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to read package file"), "path", rel)
		}
		out = append(out, entry{name: rel, data: data})
	}
	return out, nil
}

// checkImport imports the application package from the built archive.
// A pex is run through its own bootstrap, isolated from site-packages.
func (p *Packager) checkImport(ctx context.Context, archive string, kind domain.ArtifactKind) error {
	python := p.project.Python
	if p.env != nil && p.env.Exists() {
		python = p.env.Python()
	}
	var cmd *domain.Command
	if kind == domain.ArtifactPex {
		cmd = domain.NewCommand(p.project.Root, python, "-S", "-I", archive, "-c", "import "+p.project.Package)
		cmd.Env = map[string]string{
			"PEX_INTERPRETER": "1",
			"PEX_ROOT":        filepath.Join(p.project.Path(p.project.Layout.Build), "pex-root"),
		}
	} else {
		script := fmt.Sprintf("import sys; sys.path.insert(0, %q); import %s", archive, p.project.Package)
		cmd = domain.NewCommand(p.project.Root, python, "-I", "-c", script)
	}
	if err := p.executor.Execute(ctx, cmd); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrImportCheckFailed, err.Error()), "package", p.project.Package)
	}
	return nil
}
