// Package syncer makes an environment's installed set match the locked manifests.
package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"slices"
	"strings"

	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/zerr"
)

// protected distributions are never removed from an environment.
var protected = []string{"pip", "setuptools", "wheel", "distribute", "pkg-resources"}

// Options controls one sync run.
type Options struct {
	// DryRun prints the plan to Out without touching the environment.
	DryRun bool
	Out    io.Writer
}

// Syncer applies locked manifests to an environment.
type Syncer struct {
	project *domain.Project
	env     ports.Environment
	logger  ports.Logger
}

// New creates a Syncer for the project's environment.
func New(project *domain.Project, env ports.Environment, logger ports.Logger) *Syncer {
	return &Syncer{project: project, env: env, logger: logger}
}

// Sync reads the given manifests, or every configured manifest when none are
// given, and applies the resulting plan.
func (s *Syncer) Sync(ctx context.Context, paths []string, opts Options) (domain.SyncPlan, error) {
	if len(paths) == 0 {
		paths = s.project.Manifests()
	}
	manifests := make([]*domain.Manifest, 0, len(paths))
	for _, path := range paths {
		m, err := s.readManifest(path)
		if err != nil {
			return domain.SyncPlan{}, err
		}
		manifests = append(manifests, m)
	}

	pins, err := Merge(manifests)
	if err != nil {
		return domain.SyncPlan{}, err
	}

	if !s.env.Exists() {
		return domain.SyncPlan{}, zerr.With(zerr.Wrap(domain.ErrEnvironmentMissing, "cannot sync"), "venv", s.project.Layout.Venv)
	}
	installed, err := s.env.Installed(ctx)
	if err != nil {
		return domain.SyncPlan{}, err
	}

	plan := Plan(pins, installed, s.keep())

	if opts.DryRun {
		out := opts.Out
		if out == nil {
			out = os.Stdout
		}
		if err := Print(out, plan); err != nil {
			return plan, zerr.Wrap(err, "failed to print sync plan")
		}
		return plan, nil
	}

	if plan.Empty() {
		s.logger.Info("Everything up-to-date")
		return plan, nil
	}
	if len(plan.Remove) > 0 {
		if err := s.env.Uninstall(ctx, plan.Remove); err != nil {
			return plan, err
		}
	}
	if targets := plan.Targets(); len(targets) > 0 {
		if err := s.env.Install(ctx, targets); err != nil {
			return plan, err
		}
	}
	s.logger.Info(fmt.Sprintf("Synced environment: %d installed, %d changed, %d removed",
		len(plan.Install), len(plan.Change), len(plan.Remove)))
	return plan, nil
}

func (s *Syncer) keep() []string {
	keep := slices.Clone(protected)
	if s.project.Name != "" {
		keep = append(keep, domain.CanonicalName(s.project.Name))
	}
	return keep
}

func (s *Syncer) readManifest(path string) (*domain.Manifest, error) {
	data, err := os.ReadFile(s.project.Path(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.New("manifest not found, run compile first"), "manifest", path)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read manifest"), "manifest", path)
	}
	return domain.ParseManifest(path, bytes.NewReader(data))
}

// Merge unions the pins of several manifests. The same package pinned to two
// different versions is an error.
func Merge(manifests []*domain.Manifest) ([]domain.PinnedPackage, error) {
	merged := make(map[string]domain.PinnedPackage)
	source := make(map[string]string)
	for _, m := range manifests {
		for _, p := range m.Packages {
			prev, ok := merged[p.Name]
			if !ok {
				merged[p.Name] = p
				source[p.Name] = m.Source
				continue
			}
			if prev.Version != p.Version {
				err := zerr.With(zerr.Wrap(domain.ErrConflictingPins, "manifests disagree"), "package", p.Name)
				err = zerr.With(err, "versions", prev.Version+" ("+source[p.Name]+"), "+p.Version+" ("+m.Source+")")
				return nil, err
			}
		}
	}
	out := make([]domain.PinnedPackage, 0, len(merged))
	for _, name := range slices.Sorted(maps.Keys(merged)) {
		out = append(out, merged[name])
	}
	return out, nil
}

// Plan diffs the desired pins against the installed set. Names in keep are
// never scheduled for removal.
func Plan(pins []domain.PinnedPackage, installed map[string]string, keep []string) domain.SyncPlan {
	var plan domain.SyncPlan
	wanted := make(map[string]bool, len(pins))
	for _, p := range pins {
		wanted[p.Name] = true
		current, ok := installed[p.Name]
		switch {
		case !ok:
			plan.Install = append(plan.Install, domain.PinnedPackage{Name: p.Name, Version: p.Version})
		case !sameVersion(current, p.Version):
			plan.Change = append(plan.Change, domain.Change{Name: p.Name, From: current, To: p.Version})
		}
	}
	for _, name := range slices.Sorted(maps.Keys(installed)) {
		if !wanted[name] && !slices.Contains(keep, name) {
			plan.Remove = append(plan.Remove, name)
		}
	}
	return plan
}

// sameVersion compares versions by PEP 440 equality, so "1.0" matches "1.0.0".
func sameVersion(a, b string) bool {
	if a == b {
		return true
	}
	va, err := domain.ParseVersion(a)
	if err != nil {
		return false
	}
	vb, err := domain.ParseVersion(b)
	if err != nil {
		return false
	}
	return va.Equal(vb)
}

// Print writes a human readable plan.
func Print(w io.Writer, plan domain.SyncPlan) error {
	if plan.Empty() {
		_, err := fmt.Fprintln(w, "Everything up-to-date")
		return err
	}
	var b strings.Builder
	for _, name := range plan.Remove {
		fmt.Fprintf(&b, "Would uninstall %s\n", name)
	}
	for _, c := range plan.Change {
		fmt.Fprintf(&b, "Would change %s %s -> %s\n", c.Name, c.From, c.To)
	}
	for _, p := range plan.Install {
		fmt.Fprintf(&b, "Would install %s\n", p)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
