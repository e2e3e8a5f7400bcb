// Package domain contains the core domain models of the Python build pipeline:
// requirement specs, locked manifests, sync plans, artifacts and the target graph.
package domain

import (
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Graph represents a dependency graph of pipeline targets.
type Graph struct {
	targets        map[InternedString]Target
	executionOrder []InternedString
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		targets: make(map[InternedString]Target),
	}
}

// AddTarget adds a target to the graph.
// It returns an error if a target with the same name already exists.
func (g *Graph) AddTarget(t *Target) error {
	if _, exists := g.targets[t.Name]; exists {
		return zerr.With(zerr.Wrap(ErrTargetAlreadyExists, "cannot add target"), "target", t.Name.String())
	}
	g.targets[t.Name] = *t
	return nil
}

// TargetCount returns the number of targets in the graph.
func (g *Graph) TargetCount() int {
	return len(g.targets)
}

// Get returns the target with the given name.
func (g *Graph) Get(name string) (Target, bool) {
	t, ok := g.targets[NewInternedString(name)]
	return t, ok
}

// Names returns all target names in sorted order.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.targets))
	for name := range g.targets {
		names = append(names, name.String())
	}
	slices.Sort(names)
	return names
}

// Validate checks for cycles and missing dependencies using a topological sort.
// It populates the execution order used by Walk. Roots are visited in sorted
// order so the resulting order is stable between runs.
func (g *Graph) Validate() error {
	order, err := g.topo(g.Names())
	if err != nil {
		return err
	}
	g.executionOrder = order
	return nil
}

// Plan returns the requested targets and their transitive dependencies in execution order.
func (g *Graph) Plan(names []string) ([]Target, error) {
	if len(names) == 0 {
		return nil, ErrNoTargetsSpecified
	}
	for _, name := range names {
		if _, ok := g.targets[NewInternedString(name)]; !ok {
			return nil, zerr.With(zerr.Wrap(ErrTargetNotFound, "cannot plan run"), "target", name)
		}
	}

	order, err := g.topo(names)
	if err != nil {
		return nil, err
	}

	plan := make([]Target, 0, len(order))
	for _, name := range order {
		plan = append(plan, g.targets[name])
	}
	return plan, nil
}

func (g *Graph) topo(roots []string) ([]InternedString, error) {
	order := make([]InternedString, 0, len(g.targets))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		target, exists := g.targets[u]
		if !exists {
			return zerr.With(zerr.Wrap(ErrMissingDependency, "invalid target graph"), "dependency", u.String())
		}

		for _, dep := range target.Dependencies {
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		order = append(order, u)
		return nil
	}

	for _, name := range roots {
		u := NewInternedString(name)
		if visited[u] == 0 {
			if err := visit(u); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

// buildCycleError constructs an error with cycle path metadata.
func (g *Graph) buildCycleError(path []InternedString, dep InternedString) error {
	startIdx := slices.Index(path, dep)
	parts := make([]string, 0, len(path)-startIdx+1)
	for _, node := range path[startIdx:] {
		parts = append(parts, node.String())
	}
	parts = append(parts, dep.String())
	return zerr.With(zerr.Wrap(ErrCycleDetected, "invalid target graph"), "cycle", strings.Join(parts, " -> "))
}

// Walk returns an iterator that yields targets in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Target] {
	return func(yield func(Target) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.targets[name]) {
				return
			}
		}
	}
}
