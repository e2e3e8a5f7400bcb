package gate_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports/mocks"
	"go.trai.ch/pyrig/internal/engine/gate"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	project  *domain.Project
	env      *mocks.MockEnvironment
	executor *mocks.MockExecutor
	vcs      *mocks.MockVCS
	logger   *mocks.MockLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "my_app"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tests"), 0o750))

	ctrl := gomock.NewController(t)
	f := &fixture{
		project: &domain.Project{
			Root:        root,
			Package:     "my_app",
			Python:      "python3",
			Layout:      domain.Layout{Venv: ".venv"},
			TestPattern: "test_*.py",
			Stages: []domain.Stage{
				{Name: "isort", Command: []string{"{python}", "-m", "isort", "{files}"}},
				{Name: "black", Command: []string{"{python}", "-m", "black", "{files}"}},
				{Name: "flake8", Command: []string{"{python}", "-m", "flake8", "{files}"}},
				{Name: "unittest", Command: []string{"{python}", "-m", "unittest", "discover", "-s", "tests", "-p", "{pattern}"}},
			},
		},
		env:      mocks.NewMockEnvironment(ctrl),
		executor: mocks.NewMockExecutor(ctrl),
		vcs:      mocks.NewMockVCS(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
	}
	f.env.EXPECT().Exists().Return(true).AnyTimes()
	f.env.EXPECT().Python().Return("/venv/bin/python").AnyTimes()
	f.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	return f
}

func (f *fixture) gate() *gate.Gate {
	return gate.New(f.project, f.env, f.executor, f.vcs, f.logger)
}

func (f *fixture) record(calls *[][]string, fail string) {
	f.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cmd *domain.Command) error {
			*calls = append(*calls, cmd.Args)
			if len(cmd.Args) > 2 && cmd.Args[2] == fail {
				return errors.New("exit status 1")
			}
			return nil
		}).AnyTimes()
}

func TestRun_AllStages(t *testing.T) {
	f := newFixture(t)
	var calls [][]string
	f.record(&calls, "")

	require.NoError(t, f.gate().Run(context.Background(), gate.Options{}))

	assert.Equal(t, [][]string{
		{"/venv/bin/python", "-m", "isort", "my_app", "tests"},
		{"/venv/bin/python", "-m", "black", "my_app", "tests"},
		{"/venv/bin/python", "-m", "flake8", "my_app", "tests"},
		{"/venv/bin/python", "-m", "unittest", "discover", "-s", "tests", "-p", "test_*.py"},
	}, calls)
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)
	var calls [][]string
	f.record(&calls, "black")

	err := f.gate().Run(context.Background(), gate.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStageFailed))

	var zErr *zerr.Error
	require.True(t, errors.As(err, &zErr))
	assert.Equal(t, "black", zErr.Metadata()["stage"])
	assert.Len(t, calls, 2)
}

func TestRun_Staged(t *testing.T) {
	f := newFixture(t)
	var calls [][]string
	f.record(&calls, "")
	f.vcs.EXPECT().StagedFiles(gomock.Any()).Return([]string{"my_app/cli.py", "README.md", "tests/test_cli.py"}, nil)
	f.vcs.EXPECT().Add(gomock.Any(), []string{"my_app/cli.py", "tests/test_cli.py"}).Return(nil)

	require.NoError(t, f.gate().Run(context.Background(), gate.Options{Staged: true}))
	assert.Equal(t, []string{"/venv/bin/python", "-m", "isort", "my_app/cli.py", "tests/test_cli.py"}, calls[0])
	assert.Len(t, calls, 4)
}

func TestRun_StagedFailureDoesNotRestage(t *testing.T) {
	f := newFixture(t)
	var calls [][]string
	f.record(&calls, "flake8")
	f.vcs.EXPECT().StagedFiles(gomock.Any()).Return([]string{"my_app/cli.py"}, nil)
	f.vcs.EXPECT().Add(gomock.Any(), gomock.Any()).Times(0)

	err := f.gate().Run(context.Background(), gate.Options{Staged: true})
	assert.ErrorIs(t, err, domain.ErrStageFailed)
}

func TestRun_StagedWithoutPythonFiles(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newFixture(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info("No Python files in commit, skipping formatting + linting")
	f.logger = logger
	f.vcs.EXPECT().StagedFiles(gomock.Any()).Return([]string{"README.md"}, nil)
	f.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).Times(0)

	require.NoError(t, f.gate().Run(context.Background(), gate.Options{Staged: true}))
}

func TestRun_Placeholders(t *testing.T) {
	f := newFixture(t)
	f.project.Stages = []domain.Stage{
		{Name: "mypy", Command: []string{"{venv}/bin/mypy", "--package", "{package}", "--files={files}"}},
	}
	var calls [][]string
	f.record(&calls, "")

	require.NoError(t, f.gate().Run(context.Background(), gate.Options{}))
	venv := filepath.Join(f.project.Root, ".venv")
	assert.Equal(t, []string{venv + "/bin/mypy", "--package", "my_app", "--files=my_app tests"}, calls[0])
}

func TestInstallHook(t *testing.T) {
	f := newFixture(t)
	hooks := filepath.Join(f.project.Root, ".git", "hooks")
	f.vcs.EXPECT().HooksDir(gomock.Any()).Return(hooks, nil).Times(2)

	path, err := f.gate().InstallHook(context.Background(), "pyrig.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(hooks, "pre-commit"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n# Installed by pyrig.\nexec pyrig -c 'pyrig.yaml' gate --staged\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	// Reinstalling over our own hook keeps no backup.
	_, err = f.gate().InstallHook(context.Background(), "pyrig.yaml")
	require.NoError(t, err)
	assert.NoFileExists(t, path+".bak")
}

func TestInstallHook_BacksUpForeignHook(t *testing.T) {
	f := newFixture(t)
	hooks := filepath.Join(f.project.Root, ".git", "hooks")
	require.NoError(t, os.MkdirAll(hooks, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(hooks, "pre-commit"), []byte("#!/bin/sh\nmake lint\n"), 0o600))
	f.vcs.EXPECT().HooksDir(gomock.Any()).Return(hooks, nil)
	f.logger.EXPECT().Warn(gomock.Any())

	_, err := f.gate().InstallHook(context.Background(), "")
	require.NoError(t, err)

	backup, err := os.ReadFile(filepath.Join(hooks, "pre-commit.bak"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\nmake lint\n", string(backup))
}
