package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `version: "1"
project:
  name: demo
`

func chdir(t *testing.T, dir string) {
	t.Helper()
	originalWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(originalWd)
	})
}

func setArgs(t *testing.T, args ...string) {
	t.Helper()
	originalArgs := os.Args
	os.Args = args
	t.Cleanup(func() {
		os.Args = originalArgs
	})
}

func TestRun(t *testing.T) {
	tests := []struct {
		name         string
		config       string
		args         []string
		expectedExit int
	}{
		{
			name:         "Version",
			args:         []string{"pyrig", "version"},
			expectedExit: 0,
		},
		{
			name:         "Clean with valid config",
			config:       minimalConfig,
			args:         []string{"pyrig", "run", "clean"},
			expectedExit: 0,
		},
		{
			name:         "Missing config",
			args:         []string{"pyrig", "run", "clean"},
			expectedExit: 1,
		},
		{
			name:         "Unknown target",
			config:       minimalConfig,
			args:         []string{"pyrig", "run", "deploy"},
			expectedExit: 1,
		},
		{
			name:         "Unknown artifact kind",
			config:       minimalConfig,
			args:         []string{"pyrig", "package", "sdist"},
			expectedExit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			if tt.config != "" {
				require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "pyrig.yaml"), []byte(tt.config), 0o600))
			}
			chdir(t, tmpDir)
			setArgs(t, tt.args...)

			assert.Equal(t, tt.expectedExit, run())
		})
	}
}

func TestRun_StoreInitError(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "pyrig.yaml"), []byte(minimalConfig), 0o600))

	// A file where the state directory belongs makes the build info store fail to open.
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".pyrig"), []byte("not a directory"), 0o600))

	chdir(t, tmpDir)
	setArgs(t, "pyrig", "run", "clean")

	assert.Equal(t, 1, run())
}
