package scheduler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/pyrig/internal/core/ports/mocks"
	"go.trai.ch/pyrig/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

// recordAll expects one vertex per started target and returns the shared vertex mock.
func recordAll(ctrl *gomock.Controller, telemetry *mocks.MockTelemetry) *mocks.MockVertex {
	vertex := mocks.NewMockVertex(ctrl)
	telemetry.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) (context.Context, ports.Vertex) {
			return ctx, vertex
		}).AnyTimes()
	return vertex
}

func actions(order *[]string, fail string, cached ...string) map[string]scheduler.Action {
	out := make(map[string]scheduler.Action)
	for _, name := range domain.DefaultTargets().Names() {
		out[name] = func(context.Context) (bool, error) {
			*order = append(*order, name)
			if name == fail {
				return false, errors.New("boom")
			}
			for _, c := range cached {
				if c == name {
					return true, nil
				}
			}
			return false, nil
		}
	}
	return out
}

func TestScheduler_Run_DependencyOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	telemetry := mocks.NewMockTelemetry(ctrl)
	vertex := recordAll(ctrl, telemetry)
	vertex.EXPECT().Complete(nil).Times(4)

	s, err := scheduler.NewScheduler(domain.DefaultTargets(), telemetry)
	require.NoError(t, err)

	var order []string
	require.NoError(t, s.Run(context.Background(), []string{"test"}, actions(&order, "")))

	assert.Equal(t, []string{"venv_dev", "requirements", "install_reqs", "test"}, order)
	assert.Equal(t, domain.VertexStatusCompleted, s.Status("test"))
	assert.Empty(t, s.Status("wheel"))
}

func TestScheduler_Run_Cached(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	telemetry := mocks.NewMockTelemetry(ctrl)
	vertex := recordAll(ctrl, telemetry)
	vertex.EXPECT().Cached().Times(1)
	vertex.EXPECT().Complete(nil).Times(4)

	s, err := scheduler.NewScheduler(domain.DefaultTargets(), telemetry)
	require.NoError(t, err)

	var order []string
	require.NoError(t, s.Run(context.Background(), []string{"wheel"}, actions(&order, "", "requirements")))

	assert.Equal(t, map[string]domain.VertexStatus{
		"venv_dev":     domain.VertexStatusCompleted,
		"requirements": domain.VertexStatusCached,
		"install_reqs": domain.VertexStatusCompleted,
		"wheel":        domain.VertexStatusCompleted,
	}, s.Statuses())
}

func TestScheduler_Run_StopsAtFirstFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	telemetry := mocks.NewMockTelemetry(ctrl)
	vertex := recordAll(ctrl, telemetry)
	vertex.EXPECT().Complete(nil).Times(1)
	vertex.EXPECT().Complete(gomock.Not(gomock.Nil())).Times(1)

	s, err := scheduler.NewScheduler(domain.DefaultTargets(), telemetry)
	require.NoError(t, err)

	var order []string
	err = s.Run(context.Background(), []string{"init"}, actions(&order, "requirements"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target failed")

	assert.Equal(t, []string{"venv_dev", "requirements"}, order)
	assert.Equal(t, domain.VertexStatusCompleted, s.Status("venv_dev"))
	assert.Equal(t, domain.VertexStatusFailed, s.Status("requirements"))
	assert.Equal(t, domain.VertexStatusSkipped, s.Status("install_reqs"))
	assert.Equal(t, domain.VertexStatusSkipped, s.Status("init"))
}

func TestScheduler_Run_SharedDependencyRunsOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	telemetry := mocks.NewMockTelemetry(ctrl)
	vertex := recordAll(ctrl, telemetry)
	vertex.EXPECT().Complete(nil).AnyTimes()

	s, err := scheduler.NewScheduler(domain.DefaultTargets(), telemetry)
	require.NoError(t, err)

	var order []string
	require.NoError(t, s.Run(context.Background(), []string{"wheel", "pex"}, actions(&order, "")))
	assert.Equal(t, []string{"venv_dev", "requirements", "install_reqs", "wheel", "pex"}, order)
}

func TestScheduler_Run_UnknownTarget(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, err := scheduler.NewScheduler(domain.DefaultTargets(), mocks.NewMockTelemetry(ctrl))
	require.NoError(t, err)

	var order []string
	err = s.Run(context.Background(), []string{"deploy"}, actions(&order, ""))
	assert.ErrorIs(t, err, domain.ErrTargetNotFound)
	assert.Empty(t, order)
}

func TestScheduler_Run_NoTargets(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, err := scheduler.NewScheduler(domain.DefaultTargets(), mocks.NewMockTelemetry(ctrl))
	require.NoError(t, err)

	err = s.Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, domain.ErrNoTargetsSpecified)
}

func TestScheduler_Run_MissingAction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, err := scheduler.NewScheduler(domain.DefaultTargets(), mocks.NewMockTelemetry(ctrl))
	require.NoError(t, err)

	err = s.Run(context.Background(), []string{"clean"}, map[string]scheduler.Action{
		"clean": func(context.Context) (bool, error) { return false, nil },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no action for target")
}

func TestScheduler_Run_Canceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, err := scheduler.NewScheduler(domain.DefaultTargets(), mocks.NewMockTelemetry(ctrl))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var order []string
	err = s.Run(ctx, []string{"requirements"}, actions(&order, ""))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, order)
	assert.Equal(t, domain.VertexStatusSkipped, s.Status("venv_dev"))
}

func TestNewScheduler_Cycle(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTarget(&domain.Target{
		Name:         domain.NewInternedString("a"),
		Dependencies: domain.NewInternedStrings([]string{"b"}),
	}))
	require.NoError(t, g.AddTarget(&domain.Target{
		Name:         domain.NewInternedString("b"),
		Dependencies: domain.NewInternedStrings([]string{"a"}),
	}))

	_, err := scheduler.NewScheduler(g, nil)
	assert.ErrorIs(t, err, domain.ErrCycleDetected)
}
