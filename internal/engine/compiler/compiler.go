// Package compiler turns abstract requirement specs into locked manifests.
package compiler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/zerr"
)

// Options controls one compile run.
type Options struct {
	// Upgrade ignores every pin of the existing manifests.
	Upgrade bool
	// UpgradePackages ignores the existing pins of the named packages only.
	UpgradePackages []string
	// DryRun renders manifests to Out instead of writing them.
	DryRun bool
	// Force recompiles even when the inputs are unchanged.
	Force bool
	Out   io.Writer
}

// Result describes the outcome for one spec.
type Result struct {
	Spec     string
	Manifest string
	Packages []domain.PinnedPackage
	// Cached is set when the manifest was already up to date.
	Cached bool
}

// Compiler compiles the configured specs of a project.
type Compiler struct {
	project  *domain.Project
	indexes  ports.IndexFactory
	hasher   ports.Hasher
	store    ports.BuildInfoStore
	verifier ports.Verifier
	logger   ports.Logger

	specs map[string]*domain.RequirementSpec
}

// New creates a Compiler for project.
func New(
	project *domain.Project,
	indexes ports.IndexFactory,
	hasher ports.Hasher,
	store ports.BuildInfoStore,
	verifier ports.Verifier,
	logger ports.Logger,
) *Compiler {
	return &Compiler{
		project:  project,
		indexes:  indexes,
		hasher:   hasher,
		store:    store,
		verifier: verifier,
		logger:   logger,
		specs:    make(map[string]*domain.RequirementSpec),
	}
}

// Compile writes one manifest per configured spec. Included specs are compiled
// before the specs that include them, and their pins are preferred downstream.
func (c *Compiler) Compile(ctx context.Context, opts Options) ([]Result, error) {
	order, err := c.order()
	if err != nil {
		return nil, err
	}

	fresh := make(map[string]map[string]string)
	results := make([]Result, 0, len(order))
	for _, path := range order {
		res, err := c.compileSpec(ctx, path, fresh, opts)
		if err != nil {
			return nil, zerr.With(err, "spec", path)
		}
		fresh[path] = domain.NewManifest(path, res.Packages).Pins()
		results = append(results, res)
	}
	return results, nil
}

// order returns the configured specs with included specs first.
func (c *Compiler) order() ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	var visit func(path string) error
	visit = func(path string) error {
		if seen[path] {
			return nil
		}
		seen[path] = true
		spec, err := c.load(path)
		if err != nil {
			return err
		}
		for _, inc := range spec.Includes {
			if slices.Contains(c.project.Specs, inc) {
				if err := visit(inc); err != nil {
					return err
				}
			}
		}
		out = append(out, path)
		return nil
	}
	for _, path := range c.project.Specs {
		if err := visit(filepath.ToSlash(filepath.Clean(path))); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// load parses a spec once per compiler.
func (c *Compiler) load(path string) (*domain.RequirementSpec, error) {
	if spec, ok := c.specs[path]; ok {
		return spec, nil
	}
	f, err := os.Open(c.project.Path(path))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open requirement spec"), "file", path)
	}
	defer func() { _ = f.Close() }()

	spec, err := domain.ParseSpec(path, f)
	if err != nil {
		return nil, err
	}
	c.specs[path] = spec
	return spec, nil
}

func (c *Compiler) compileSpec(
	ctx context.Context,
	path string,
	fresh map[string]map[string]string,
	opts Options,
) (Result, error) {
	manifestPath := domain.ManifestPath(path)
	res := Result{Spec: path, Manifest: manifestPath}

	spec, err := c.load(path)
	if err != nil {
		return res, err
	}
	composed, err := spec.Compose(c.load)
	if err != nil {
		return res, err
	}

	upstream := make(map[string]string)
	for _, inc := range composed.Includes {
		maps.Copy(upstream, fresh[inc])
	}

	inputHash, err := c.inputHash(path, composed, upstream, opts)
	if err != nil {
		return res, err
	}

	if !opts.Force && !opts.Upgrade && !opts.DryRun && len(opts.UpgradePackages) == 0 {
		if existing, ok := c.upToDate(manifestPath, inputHash); ok {
			res.Packages = existing.Packages
			res.Cached = true
			c.logger.Info(fmt.Sprintf("%s is up to date", manifestPath))
			return res, nil
		}
	}

	constraints, err := c.constraints(composed.Constraints)
	if err != nil {
		return res, err
	}

	index, err := c.indexes.Open(composed.IndexURL)
	if err != nil {
		return res, err
	}
	resolver, err := NewResolver(index, ResolveOptions{
		Env:              c.project.MarkerEnv(),
		PythonVersion:    c.project.PythonVersion,
		AllowPreReleases: c.project.AllowPreReleases,
		Preferred:        c.preferred(manifestPath, upstream, opts),
		MaxRounds:        c.project.MaxRounds,
	})
	if err != nil {
		return res, err
	}

	pins, err := resolver.Resolve(ctx, composed.Requirements, constraints)
	if err != nil {
		return res, err
	}
	manifest := domain.NewManifest(path, pins)
	res.Packages = manifest.Packages
	rendered := manifest.Render()

	if opts.DryRun {
		out := opts.Out
		if out == nil {
			out = os.Stdout
		}
		if _, err := fmt.Fprintf(out, "# %s\n", manifestPath); err != nil {
			return res, zerr.Wrap(err, "failed to print manifest")
		}
		if _, err := out.Write(rendered); err != nil {
			return res, zerr.Wrap(err, "failed to print manifest")
		}
		return res, nil
	}

	target := c.project.Path(manifestPath)
	if err := writeFileAtomic(target, rendered); err != nil {
		return res, zerr.With(err, "manifest", manifestPath)
	}
	outputHash, err := c.hasher.ComputeFileHash(target)
	if err != nil {
		return res, err
	}
	if err := c.store.Put(domain.BuildInfo{
		Key:        manifestPath,
		InputHash:  inputHash,
		OutputHash: outputHash,
		Timestamp:  time.Now(),
	}); err != nil {
		return res, zerr.Wrap(err, "failed to store build info")
	}

	c.logger.Info(fmt.Sprintf("Wrote %s (%d packages)", manifestPath, len(manifest.Packages)))
	return res, nil
}

// inputHash fingerprints every file and option the manifest depends on.
func (c *Compiler) inputHash(path string, composed *domain.ComposedSpec, upstream map[string]string, opts Options) (string, error) {
	files := []string{path}
	files = append(files, composed.Includes...)
	files = append(files, composed.Constraints...)

	salt := []string{
		"python=" + c.project.PythonVersion,
		"platform=" + c.project.Platform,
		"machine=" + c.project.Machine,
		"prereleases=" + strconv.FormatBool(c.project.AllowPreReleases),
		"index=" + composed.IndexURL,
		"index.url=" + c.project.Index.URL,
		"index.static=" + c.project.Index.Static,
	}
	if opts.Upgrade {
		salt = append(salt, "upgrade")
	}
	for _, name := range slices.Sorted(maps.Keys(upstream)) {
		salt = append(salt, "pin="+name+"=="+upstream[name])
	}
	return c.hasher.ComputeInputHash(files, salt, c.project.Root)
}

// upToDate returns the existing manifest when its recorded fingerprints still hold.
func (c *Compiler) upToDate(manifestPath, inputHash string) (*domain.Manifest, bool) {
	info, err := c.store.Get(manifestPath)
	if err != nil || info == nil || info.InputHash != inputHash {
		return nil, false
	}
	exists, err := c.verifier.VerifyOutputs(c.project.Root, []string{manifestPath})
	if err != nil || !exists {
		return nil, false
	}
	target := c.project.Path(manifestPath)
	outputHash, err := c.hasher.ComputeFileHash(target)
	if err != nil || outputHash != info.OutputHash {
		return nil, false
	}
	manifest, err := readManifest(target, manifestPath)
	if err != nil {
		return nil, false
	}
	return manifest, true
}

// preferred returns the pins tried first: the existing manifest, then the
// fresh pins of included specs on top.
func (c *Compiler) preferred(manifestPath string, upstream map[string]string, opts Options) map[string]string {
	out := make(map[string]string)
	if !opts.Upgrade {
		if existing, err := readManifest(c.project.Path(manifestPath), manifestPath); err == nil {
			maps.Copy(out, existing.Pins())
		}
		for _, name := range opts.UpgradePackages {
			delete(out, domain.CanonicalName(name))
		}
	}
	maps.Copy(out, upstream)
	return out
}

func (c *Compiler) constraints(paths []string) ([]domain.Requirement, error) {
	var out []domain.Requirement
	for _, path := range paths {
		spec, err := c.load(path)
		if err != nil {
			return nil, err
		}
		out = append(out, spec.Requirements...)
	}
	return out, nil
}

func readManifest(path, source string) (*domain.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return domain.ParseManifest(source, bytes.NewReader(data))
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.Wrap(err, "failed to create manifest directory")
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return zerr.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.Wrap(err, "failed to write manifest")
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, "failed to close manifest")
	}
	//nolint:gosec // Manifests are committed and meant to be world readable.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return zerr.Wrap(err, "failed to set manifest permissions")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return zerr.Wrap(err, "failed to rename manifest")
	}
	return nil
}
