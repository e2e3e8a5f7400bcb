package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pyrig/internal/adapters/fs"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestWalker_WalkFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, ".git/config", "git config")
	writeFile(t, tmpDir, "ignored/file", "ignored content")
	writeFile(t, tmpDir, "app_google_groups/__init__.py", "")
	writeFile(t, tmpDir, "app_google_groups/__pycache__/__init__.cpython-311.pyc", "")
	writeFile(t, tmpDir, "README.md", "# Readme")

	walker := fs.NewWalker()
	ignores := append([]string{"ignored"}, fs.DefaultIgnores...)

	var files []string
	for path, err := range walker.WalkFiles(tmpDir, ignores) {
		require.NoError(t, err)
		rel, err := filepath.Rel(tmpDir, path)
		require.NoError(t, err)
		files = append(files, filepath.ToSlash(rel))
	}

	assert.Equal(t, []string{"README.md", "app_google_groups/__init__.py"}, files)
}

func TestWalker_WalkFiles_StopEarly(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "a.py", "")
	writeFile(t, tmpDir, "b.py", "")

	count := 0
	for range fs.NewWalker().WalkFiles(tmpDir, nil) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestWalker_WalkFiles_UnreadableDirectory(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "a.py", "")
	writeFile(t, tmpDir, "locked/b.py", "")
	locked := filepath.Join(tmpDir, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o750) })

	var files []string
	var walkErr error
	for path, err := range fs.NewWalker().WalkFiles(tmpDir, nil) {
		if err != nil {
			walkErr = err
			continue
		}
		files = append(files, filepath.Base(path))
	}

	require.Error(t, walkErr)
	assert.ErrorIs(t, walkErr, os.ErrPermission)
	assert.Equal(t, []string{"a.py"}, files)
}

func TestWalker_WalkFiles_MissingRoot(t *testing.T) {
	var walkErr error
	for _, err := range fs.NewWalker().WalkFiles(filepath.Join(t.TempDir(), "missing"), nil) {
		walkErr = err
	}
	assert.ErrorIs(t, walkErr, os.ErrNotExist)
}

func newHasher() *fs.Hasher {
	return fs.NewHasher(fs.NewWalker(), fs.NewResolver())
}

func TestHasher_ComputeFileHash(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "prod.txt", "requests==2.31.0\n")
	hasher := newHasher()

	hash1, err := hasher.ComputeFileHash(filepath.Join(tmpDir, "prod.txt"))
	require.NoError(t, err)
	assert.Len(t, hash1, 16)

	hash2, err := hasher.ComputeFileHash(filepath.Join(tmpDir, "prod.txt"))
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)

	_, err = hasher.ComputeFileHash(filepath.Join(tmpDir, "missing.txt"))
	assert.Error(t, err)
}

func TestHasher_ComputeInputHash(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "requirements/prod.in", "requests\n")
	hasher := newHasher()

	files := []string{"requirements/prod.in"}
	salt := []string{"python=3.11", "upgrade=false"}

	hash1, err := hasher.ComputeInputHash(files, salt, tmpDir)
	require.NoError(t, err)

	again, err := hasher.ComputeInputHash(files, salt, tmpDir)
	require.NoError(t, err)
	assert.Equal(t, hash1, again)

	hash2, err := hasher.ComputeInputHash(files, []string{"python=3.12", "upgrade=false"}, tmpDir)
	require.NoError(t, err)
	assert.NotEqual(t, hash1, hash2, "salt must change the hash")

	writeFile(t, tmpDir, "requirements/prod.in", "requests>=2\n")
	hash3, err := hasher.ComputeInputHash(files, salt, tmpDir)
	require.NoError(t, err)
	assert.NotEqual(t, hash1, hash3, "content must change the hash")
}

func TestHasher_ComputeInputHash_PortableAcrossRoots(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeFile(t, rootA, "requirements/dev.in", "black\n")
	writeFile(t, rootB, "requirements/dev.in", "black\n")
	hasher := newHasher()

	hashA, err := hasher.ComputeInputHash([]string{"requirements"}, nil, rootA)
	require.NoError(t, err)
	hashB, err := hasher.ComputeInputHash([]string{"requirements"}, nil, rootB)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)
}

func TestHasher_ComputeInputHash_Globs(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "requirements/prod.in", "requests\n")
	writeFile(t, tmpDir, "requirements/dev.in", "-r prod.in\n")
	hasher := newHasher()

	_, err := hasher.ComputeInputHash([]string{"requirements/*.in"}, nil, tmpDir)
	require.NoError(t, err)

	_, err = hasher.ComputeInputHash([]string{"requirements/*.cfg"}, nil, tmpDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input not found")
}

func TestCleaner_CleanCaches(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "app/__pycache__/mod.cpython-311.pyc", "")
	writeFile(t, tmpDir, "app/legacy.pyc", "")
	writeFile(t, tmpDir, "app/mod.py", "")
	writeFile(t, tmpDir, ".coverage", "")
	writeFile(t, tmpDir, ".pytest_cache/v/cache", "")
	writeFile(t, tmpDir, ".venv/lib/__pycache__/site.pyc", "")
	writeFile(t, tmpDir, ".git/hooks/__pycache__/x.pyc", "")

	cleaner := fs.NewCleaner(fs.NewResolver())
	removed, err := cleaner.CleanCaches(tmpDir, []string{".venv"})
	require.NoError(t, err)

	assert.Equal(t, []string{".coverage", ".pytest_cache", "app/__pycache__", "app/legacy.pyc"}, removed)
	assert.FileExists(t, filepath.Join(tmpDir, "app/mod.py"))
	assert.FileExists(t, filepath.Join(tmpDir, ".venv/lib/__pycache__/site.pyc"))
	assert.FileExists(t, filepath.Join(tmpDir, ".git/hooks/__pycache__/x.pyc"))
}

func TestCleaner_RemoveAll(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "dist/app-1.0.pex", "")
	writeFile(t, tmpDir, "app_google_groups.egg-info/PKG-INFO", "")
	writeFile(t, tmpDir, "setup.py", "")

	cleaner := fs.NewCleaner(fs.NewResolver())
	removed, err := cleaner.RemoveAll(tmpDir, []string{"dist", "build", "*.egg-info"})
	require.NoError(t, err)

	assert.Equal(t, []string{"app_google_groups.egg-info", "dist"}, removed)
	assert.NoDirExists(t, filepath.Join(tmpDir, "dist"))
	assert.FileExists(t, filepath.Join(tmpDir, "setup.py"))
}
