// Package scheduler runs pipeline targets in dependency order.
package scheduler

import (
	"context"
	"sync"

	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/zerr"
)

// Action performs one target. It reports whether the target was already up to date.
type Action func(ctx context.Context) (cached bool, err error)

// Scheduler manages the execution of targets in the dependency graph.
type Scheduler struct {
	graph     *domain.Graph
	telemetry ports.Telemetry

	mu           sync.RWMutex
	targetStatus map[domain.InternedString]domain.VertexStatus
}

// NewScheduler creates a new Scheduler for graph.
// It validates the graph before proceeding and returns an error if validation fails.
func NewScheduler(graph *domain.Graph, telemetry ports.Telemetry) (*Scheduler, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{
		graph:        graph,
		telemetry:    telemetry,
		targetStatus: make(map[domain.InternedString]domain.VertexStatus),
	}, nil
}

// Graph returns the target graph.
func (s *Scheduler) Graph() *domain.Graph {
	return s.graph
}

func (s *Scheduler) updateStatus(name domain.InternedString, status domain.VertexStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetStatus[name] = status
}

// Status returns the status of a target in the current or last run.
func (s *Scheduler) Status(name string) domain.VertexStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targetStatus[domain.NewInternedString(name)]
}

// Statuses returns a copy of every target status of the last run.
func (s *Scheduler) Statuses() map[string]domain.VertexStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.VertexStatus, len(s.targetStatus))
	for name, status := range s.targetStatus {
		out[name.String()] = status
	}
	return out
}

// Run executes names and their transitive dependencies one at a time.
// The first failure stops the run; the remaining targets are marked skipped.
func (s *Scheduler) Run(ctx context.Context, names []string, actions map[string]Action) error {
	plan, err := s.graph.Plan(names)
	if err != nil {
		return err
	}
	for _, target := range plan {
		if _, ok := actions[target.Name.String()]; !ok {
			return zerr.With(zerr.New("no action for target"), "target", target.Name.String())
		}
	}

	s.mu.Lock()
	s.targetStatus = make(map[domain.InternedString]domain.VertexStatus, len(plan))
	for _, target := range plan {
		s.targetStatus[target.Name] = domain.VertexStatusPending
	}
	s.mu.Unlock()

	for i, target := range plan {
		if err := ctx.Err(); err != nil {
			s.skip(plan[i:])
			return err
		}
		if err := s.execute(ctx, target, actions[target.Name.String()]); err != nil {
			s.skip(plan[i+1:])
			return err
		}
	}
	return nil
}

func (s *Scheduler) execute(ctx context.Context, target domain.Target, action Action) error {
	name := target.Name.String()
	s.updateStatus(target.Name, domain.VertexStatusRunning)

	vctx, vertex := s.telemetry.Record(ctx, name)
	cached, err := action(vctx)
	if err != nil {
		vertex.Complete(err)
		s.updateStatus(target.Name, domain.VertexStatusFailed)
		return zerr.With(zerr.Wrap(err, "target failed"), "target", name)
	}

	if cached {
		vertex.Cached()
		s.updateStatus(target.Name, domain.VertexStatusCached)
	} else {
		s.updateStatus(target.Name, domain.VertexStatusCompleted)
	}
	vertex.Complete(nil)
	return nil
}

func (s *Scheduler) skip(rest []domain.Target) {
	for _, target := range rest {
		s.updateStatus(target.Name, domain.VertexStatusSkipped)
	}
}

// Targets returns the names of all targets in sorted order.
func (s *Scheduler) Targets() []string {
	return s.graph.Names()
}
