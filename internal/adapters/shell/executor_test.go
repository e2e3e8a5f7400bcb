package shell_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/pyrig/internal/adapters/shell"
	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/pyrig/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func TestExecutor_Execute_MultiLineOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	gomock.InOrder(
		mockLogger.EXPECT().Info("line1").Times(1),
		mockLogger.EXPECT().Info("line2").Times(1),
	)

	executor := shell.NewExecutor(mockLogger)
	cmd := domain.NewCommand(t.TempDir(), "sh", "-c", "echo line1; echo line2")

	require.NoError(t, executor.Execute(context.Background(), cmd))
}

func TestExecutor_Execute_FragmentedOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	// Partial writes are buffered until the newline arrives.
	mockLogger.EXPECT().Info("part1part2").Times(1)

	executor := shell.NewExecutor(mockLogger)
	cmd := domain.NewCommand(t.TempDir(), "sh", "-c", "printf part1; sleep 0.1; echo part2")

	require.NoError(t, executor.Execute(context.Background(), cmd))
}

func TestExecutor_Execute_TrailingPartialLineFlushed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info("no newline").Times(1)

	executor := shell.NewExecutor(mockLogger)
	cmd := domain.NewCommand(t.TempDir(), "sh", "-c", "printf 'no newline'")

	require.NoError(t, executor.Execute(context.Background(), cmd))
}

func TestExecutor_Execute_StderrIsWarning(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn("oops").Times(1)

	executor := shell.NewExecutor(mockLogger)
	cmd := domain.NewCommand(t.TempDir(), "sh", "-c", "echo oops >&2")

	require.NoError(t, executor.Execute(context.Background(), cmd))
}

func TestExecutor_Execute_EnvironmentVariables(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info("test-value-123").Times(1)

	executor := shell.NewExecutor(mockLogger)
	cmd := domain.NewCommand(t.TempDir(), "sh", "-c", "echo $MY_TEST_VAR")
	cmd.Env = map[string]string{"MY_TEST_VAR": "test-value-123"}

	require.NoError(t, executor.Execute(context.Background(), cmd))
}

func TestExecutor_Execute_PathOverride(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info("success").Times(1)

	binDir := t.TempDir()
	//nolint:gosec // Test requires executable file
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "venv-tool"), []byte("#!/bin/sh\necho success\n"), 0o700))

	executor := shell.NewExecutor(mockLogger)
	cmd := domain.NewCommand(t.TempDir(), "venv-tool")
	cmd.Env = map[string]string{"PATH": binDir}

	require.NoError(t, executor.Execute(context.Background(), cmd))
}

func TestExecutor_Execute_InvalidCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)

	executor := shell.NewExecutor(mockLogger)
	cmd := domain.NewCommand(t.TempDir(), "nonexistent-command-xyz123")

	require.Error(t, executor.Execute(context.Background(), cmd))
}

func TestExecutor_Execute_CommandFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)

	executor := shell.NewExecutor(mockLogger)
	cmd := domain.NewCommand(t.TempDir(), "sh", "-c", "exit 42")

	err := executor.Execute(context.Background(), cmd)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "command failed"))

	var zErr *zerr.Error
	require.True(t, errors.As(err, &zErr))
	require.Equal(t, 42, zErr.Metadata()["exit_code"])
}

func TestExecutor_Execute_EmptyCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	executor := shell.NewExecutor(mocks.NewMockLogger(ctrl))
	require.NoError(t, executor.Execute(context.Background(), &domain.Command{}))
}

func TestExecutor_Output(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn("progress").Times(1)

	executor := shell.NewExecutor(mockLogger)
	cmd := domain.NewCommand(t.TempDir(), "sh", "-c", `echo progress >&2; echo '[{"name": "six"}]'`)

	out, err := executor.Output(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, "[{\"name\": \"six\"}]\n", string(out))
}

func TestExecutor_Execute_WithVertex(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	// The logger is bypassed when a vertex is present.
	mockLogger.EXPECT().Info(gomock.Any()).Times(0)
	mockLogger.EXPECT().Warn(gomock.Any()).Times(0)

	var stdoutBuf, stderrBuf bytes.Buffer
	mockVertex := mocks.NewMockVertex(ctrl)
	mockVertex.EXPECT().Stdout().Return(&stdoutBuf).AnyTimes()
	mockVertex.EXPECT().Stderr().Return(&stderrBuf).AnyTimes()

	executor := shell.NewExecutor(mockLogger)
	cmd := domain.NewCommand(t.TempDir(), "sh", "-c", "echo hello to stdout; echo hello to stderr >&2")

	ctx := ports.ContextWithVertex(context.Background(), mockVertex)
	require.NoError(t, executor.Execute(ctx, cmd))

	require.Contains(t, stdoutBuf.String(), "hello to stdout")
	require.Contains(t, stderrBuf.String(), "hello to stderr")
}
