package compiler

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"

	version "github.com/aquasecurity/go-pep440-version"
	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const prefetchLimit = 8

// ResolveOptions controls candidate selection.
type ResolveOptions struct {
	// Env is the marker environment of the target interpreter.
	Env domain.MarkerEnv
	// PythonVersion filters releases by requires_python.
	PythonVersion string
	// AllowPreReleases admits pre-releases for every package.
	AllowPreReleases bool
	// Preferred maps names to versions tried before any other candidate.
	Preferred map[string]string
	// MaxRounds bounds the number of candidate attempts.
	MaxRounds int
}

// Resolver finds one exact version per package such that every requirement is satisfied.
type Resolver struct {
	index ports.PackageIndex
	opts  ResolveOptions

	python version.Version

	mu       sync.Mutex
	releases map[string][]domain.Release
	deps     map[string][]domain.Requirement
}

// NewResolver creates a Resolver reading metadata from index.
func NewResolver(index ports.PackageIndex, opts ResolveOptions) (*Resolver, error) {
	python, err := domain.ParseVersion(opts.PythonVersion)
	if err != nil {
		return nil, err
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 2000
	}
	return &Resolver{
		index:    index,
		opts:     opts,
		python:   python,
		releases: make(map[string][]domain.Release),
		deps:     make(map[string][]domain.Requirement),
	}, nil
}

// resolution is the mutable state of one search branch.
type resolution struct {
	pins     map[string]string
	specs    map[string]string
	extras   map[string][]string
	pre      map[string]bool
	via      map[string][]string
	display  map[string]string
	queue    []string
	enqueued map[string]bool
}

func newResolution() *resolution {
	return &resolution{
		pins:     make(map[string]string),
		specs:    make(map[string]string),
		extras:   make(map[string][]string),
		pre:      make(map[string]bool),
		via:      make(map[string][]string),
		display:  make(map[string]string),
		enqueued: make(map[string]bool),
	}
}

func (s *resolution) clone() *resolution {
	out := &resolution{
		pins:     maps.Clone(s.pins),
		specs:    maps.Clone(s.specs),
		extras:   make(map[string][]string, len(s.extras)),
		pre:      maps.Clone(s.pre),
		via:      make(map[string][]string, len(s.via)),
		display:  maps.Clone(s.display),
		queue:    slices.Clone(s.queue),
		enqueued: maps.Clone(s.enqueued),
	}
	for k, v := range s.extras {
		out.extras[k] = slices.Clone(v)
	}
	for k, v := range s.via {
		out.via[k] = slices.Clone(v)
	}
	return out
}

// search carries the per-call budget.
type search struct {
	constraints map[string]string
	rounds      int
}

// Resolve pins the transitive closure of roots. Constraints restrict the versions
// of packages that are required by something else but never add packages.
func (r *Resolver) Resolve(ctx context.Context, roots, constraints []domain.Requirement) ([]domain.PinnedPackage, error) {
	s := &search{constraints: make(map[string]string)}
	for _, c := range constraints {
		ok, err := domain.EvaluateMarker(c.Marker, r.opts.Env, nil)
		if err != nil {
			return nil, err
		}
		if ok {
			s.constraints[c.Name] = domain.MergeSpecifiers(s.constraints[c.Name], c.Specifier)
		}
	}

	if err := r.prefetch(ctx, roots); err != nil {
		return nil, err
	}

	st := newResolution()
	var fresh []string
	for _, req := range roots {
		ok, err := domain.EvaluateMarker(req.Marker, r.opts.Env, nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		via := "-r " + req.Origin.File
		if req.Origin.File == "" {
			via = "-r <input>"
		}
		if err := st.require(req, via, &fresh); err != nil {
			return nil, err
		}
	}
	st.enqueue(fresh)

	final, err := r.solve(ctx, s, st)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PinnedPackage, 0, len(final.pins))
	for _, name := range slices.Sorted(maps.Keys(final.pins)) {
		out = append(out, domain.PinnedPackage{Name: name, Version: final.pins[name], Via: final.via[name]})
	}
	return out, nil
}

// require records req in the state. New names are appended to fresh.
// It fails with a conflict when req excludes an existing pin.
func (s *resolution) require(req domain.Requirement, via string, fresh *[]string) error {
	name := req.Name
	s.specs[name] = domain.MergeSpecifiers(s.specs[name], req.Specifier)
	if req.MentionsPreRelease() {
		s.pre[name] = true
	}
	if _, ok := s.display[name]; !ok {
		s.display[name] = req.Display
	}
	if !slices.Contains(s.via[name], via) {
		s.via[name] = append(s.via[name], via)
	}
	for _, extra := range req.Extras {
		if !slices.Contains(s.extras[name], extra) {
			s.extras[name] = append(s.extras[name], extra)
		}
	}
	slices.Sort(s.extras[name])

	if pin, ok := s.pins[name]; ok {
		v, err := domain.ParseVersion(pin)
		if err != nil {
			return err
		}
		match, err := domain.SpecifierContains(s.specs[name], v)
		if err != nil {
			return err
		}
		if !match {
			conflict := zerr.With(zerr.Wrap(domain.ErrUnsatisfiable, "requirement excludes selected version"), "package", name)
			conflict = zerr.With(conflict, "selected", pin)
			return zerr.With(zerr.With(conflict, "specifier", s.specs[name]), "required_by", via)
		}
		return nil
	}
	if !s.enqueued[name] {
		s.enqueued[name] = true
		*fresh = append(*fresh, name)
	}
	return nil
}

// enqueue appends newly discovered names in sorted order.
func (s *resolution) enqueue(fresh []string) {
	slices.Sort(fresh)
	s.queue = append(s.queue, fresh...)
}

func (r *Resolver) solve(ctx context.Context, s *search, st *resolution) (*resolution, error) {
	if len(st.queue) == 0 {
		return st, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := st.queue[0]
	candidates, err := r.candidates(ctx, s, st, name)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		spec := domain.MergeSpecifiers(st.specs[name], s.constraints[name])
		conflict := zerr.With(zerr.Wrap(domain.ErrUnsatisfiable, "no release satisfies every requirement"), "package", name)
		conflict = zerr.With(conflict, "specifier", spec)
		return nil, zerr.With(conflict, "required_by", strings.Join(st.via[name], ", "))
	}

	var lastConflict error
	for _, candidate := range candidates {
		s.rounds++
		if s.rounds > r.opts.MaxRounds {
			return nil, zerr.With(zerr.Wrap(domain.ErrResolutionTooDeep, "giving up"), "max_rounds", r.opts.MaxRounds)
		}

		next := st.clone()
		next.queue = next.queue[1:]
		next.pins[name] = candidate

		err := r.expand(ctx, next, name)
		if err == nil {
			var final *resolution
			final, err = r.solve(ctx, s, next)
			if err == nil {
				return final, nil
			}
		}
		if !isConflict(err) {
			return nil, err
		}
		lastConflict = err
	}
	return nil, lastConflict
}

// expand adds the dependencies of the pinned package to the state.
func (r *Resolver) expand(ctx context.Context, st *resolution, name string) error {
	deps, err := r.dependencies(ctx, name, st.pins[name])
	if err != nil {
		return err
	}

	var fresh []string
	for _, dep := range deps {
		ok, err := domain.EvaluateMarker(dep.Marker, r.opts.Env, st.extras[name])
		if err != nil {
			return zerr.With(zerr.With(err, "package", name), "version", st.pins[name])
		}
		if !ok {
			continue
		}
		before := slices.Clone(st.extras[dep.Name])
		if err := st.require(dep, name, &fresh); err != nil {
			return err
		}
		// New extras on an already pinned package pull in more dependencies.
		if _, pinned := st.pins[dep.Name]; pinned && !slices.Equal(before, st.extras[dep.Name]) {
			if err := r.expand(ctx, st, dep.Name); err != nil {
				return err
			}
		}
	}
	st.enqueue(fresh)
	return nil
}

// candidates returns the admissible versions of name, best first.
func (r *Resolver) candidates(ctx context.Context, s *search, st *resolution, name string) ([]string, error) {
	releases, err := r.releasesOf(ctx, name)
	if err != nil {
		return nil, err
	}

	spec := domain.MergeSpecifiers(st.specs[name], s.constraints[name])
	allowPre := r.opts.AllowPreReleases || st.pre[name]

	type candidate struct {
		raw string
		v   version.Version
	}
	var finals, pres []candidate
	for _, rel := range releases {
		v, err := version.Parse(rel.Version)
		if err != nil {
			continue
		}
		if rel.Yanked && !pinsExactly(spec, rel.Version) {
			continue
		}
		if !r.pythonSupported(rel.RequiresPython) {
			continue
		}
		match, err := domain.SpecifierContains(spec, v)
		if err != nil {
			return nil, zerr.With(err, "package", name)
		}
		if !match {
			continue
		}
		if v.IsPreRelease() {
			pres = append(pres, candidate{rel.Version, v})
			continue
		}
		finals = append(finals, candidate{rel.Version, v})
	}

	// Pre-releases are admitted when allowed, or when nothing else matches.
	pool := finals
	if allowPre || len(finals) == 0 {
		pool = append(pool, pres...)
	}
	slices.SortStableFunc(pool, func(a, b candidate) int { return b.v.Compare(a.v) })

	out := make([]string, 0, len(pool))
	preferred, hasPreferred := r.opts.Preferred[name]
	for _, c := range pool {
		if hasPreferred && c.raw == preferred {
			out = append([]string{c.raw}, out...)
			continue
		}
		out = append(out, c.raw)
	}
	return slices.Compact(out), nil
}

func (r *Resolver) pythonSupported(requiresPython string) bool {
	if requiresPython == "" {
		return true
	}
	spec, err := domain.NormalizeSpecifier(requiresPython)
	if err != nil {
		// Unparseable metadata does not exclude a release.
		return true
	}
	ok, err := domain.SpecifierContains(spec, r.python)
	return err != nil || ok
}

// pinsExactly reports whether spec selects raw with == or ===.
func pinsExactly(spec, raw string) bool {
	for _, clause := range strings.Split(spec, ",") {
		if clause == "=="+raw || clause == "==="+raw {
			return true
		}
	}
	return false
}

func isConflict(err error) bool {
	return errors.Is(err, domain.ErrUnsatisfiable)
}

func (r *Resolver) releasesOf(ctx context.Context, name string) ([]domain.Release, error) {
	r.mu.Lock()
	cached, ok := r.releases[name]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}
	releases, err := r.index.Releases(ctx, name)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.releases[name] = releases
	r.mu.Unlock()
	return releases, nil
}

func (r *Resolver) dependencies(ctx context.Context, name, ver string) ([]domain.Requirement, error) {
	key := name + "==" + ver
	r.mu.Lock()
	cached, ok := r.deps[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}
	deps, err := r.index.Dependencies(ctx, name, ver)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.deps[key] = deps
	r.mu.Unlock()
	return deps, nil
}

// prefetch loads the release lists of the roots concurrently.
// Results land in the memo, so resolution order stays deterministic.
func (r *Resolver) prefetch(ctx context.Context, roots []domain.Requirement) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchLimit)
	seen := make(map[string]bool)
	for _, req := range roots {
		if seen[req.Name] {
			continue
		}
		seen[req.Name] = true
		name := req.Name
		g.Go(func() error {
			_, err := r.releasesOf(gctx, name)
			return err
		})
	}
	return g.Wait()
}
