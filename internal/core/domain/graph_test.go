package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/zerr"
)

func names(targets []domain.Target) []string {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		out = append(out, t.Name.String())
	}
	return out
}

func TestGraph_AddTarget(t *testing.T) {
	g := domain.NewGraph()
	target := domain.Target{Name: domain.NewInternedString("wheel")}

	if err := g.AddTarget(&target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := g.AddTarget(&target)
	if err == nil {
		t.Fatal("expected error when adding duplicate target, got nil")
	}
	if !errors.Is(err, domain.ErrTargetAlreadyExists) {
		t.Errorf("expected ErrTargetAlreadyExists, got %v", err)
	}

	zErr, ok := err.(*zerr.Error)
	if !ok {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}
	if name, ok := zErr.Metadata()["target"].(string); !ok || name != "wheel" {
		t.Errorf("expected metadata target=wheel, got %v", zErr.Metadata()["target"])
	}
}

func TestGraph_Validate_Cycle(t *testing.T) {
	g := domain.NewGraph()
	a := domain.Target{
		Name:         domain.NewInternedString("A"),
		Dependencies: domain.NewInternedStrings([]string{"B"}),
	}
	b := domain.Target{
		Name:         domain.NewInternedString("B"),
		Dependencies: domain.NewInternedStrings([]string{"A"}),
	}
	require.NoError(t, g.AddTarget(&a))
	require.NoError(t, g.AddTarget(&b))

	err := g.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCycleDetected)

	zErr, ok := err.(*zerr.Error)
	require.True(t, ok, "expected *zerr.Error, got %T", err)
	assert.Equal(t, "A -> B -> A", zErr.Metadata()["cycle"])
}

func TestGraph_Validate_MissingDependency(t *testing.T) {
	g := domain.NewGraph()
	a := domain.Target{
		Name:         domain.NewInternedString("A"),
		Dependencies: domain.NewInternedStrings([]string{"ghost"}),
	}
	require.NoError(t, g.AddTarget(&a))

	assert.ErrorIs(t, g.Validate(), domain.ErrMissingDependency)
}

func TestGraph_Walk(t *testing.T) {
	g := domain.NewGraph()
	// A -> B -> C
	for _, target := range []domain.Target{
		{Name: domain.NewInternedString("A"), Dependencies: domain.NewInternedStrings([]string{"B"})},
		{Name: domain.NewInternedString("B"), Dependencies: domain.NewInternedStrings([]string{"C"})},
		{Name: domain.NewInternedString("C")},
	} {
		require.NoError(t, g.AddTarget(&target))
	}
	require.NoError(t, g.Validate())

	executed := make([]string, 0, 3)
	for target := range g.Walk() {
		executed = append(executed, target.Name.String())
	}
	assert.Equal(t, []string{"C", "B", "A"}, executed)
}

func TestDefaultTargets_Plan(t *testing.T) {
	g := domain.DefaultTargets()
	require.NoError(t, g.Validate())

	tests := []struct {
		name    string
		request []string
		want    []string
	}{
		{
			name:    "test runs the whole chain",
			request: []string{domain.TargetTest},
			want:    []string{"venv_dev", "requirements", "install_reqs", "test"},
		},
		{
			name:    "packaging syncs the environment once",
			request: []string{domain.TargetWheel, domain.TargetPex},
			want:    []string{"venv_dev", "requirements", "install_reqs", "wheel", "pex"},
		},
		{
			name:    "wheel syncs before the import check",
			request: []string{domain.TargetWheel},
			want:    []string{"venv_dev", "requirements", "install_reqs", "wheel"},
		},
		{
			name:    "clean cleans caches first",
			request: []string{domain.TargetClean},
			want:    []string{"cleancache", "clean"},
		},
		{
			name:    "init syncs before installing the hook",
			request: []string{domain.TargetInit},
			want:    []string{"venv_dev", "requirements", "install_reqs", "init"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := g.Plan(tt.request)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(plan))
		})
	}
}

func TestGraph_Plan_Errors(t *testing.T) {
	g := domain.DefaultTargets()

	_, err := g.Plan(nil)
	assert.ErrorIs(t, err, domain.ErrNoTargetsSpecified)

	_, err = g.Plan([]string{"deploy"})
	assert.ErrorIs(t, err, domain.ErrTargetNotFound)
}

func TestDefaultTargets_Names(t *testing.T) {
	g := domain.DefaultTargets()
	assert.Equal(t, 9, g.TargetCount())
	assert.Equal(t, []string{
		"clean", "cleancache", "init", "install_reqs", "pex", "requirements", "test", "venv_dev", "wheel",
	}, g.Names())
}
