// Package fs provides file system adapters for walking, hashing and cleaning project files.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"

	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Walker = (*Walker)(nil)

// DefaultIgnores are generated entries that never contribute to a fingerprint or an artifact.
var DefaultIgnores = []string{"__pycache__", "*.pyc", "*.pyo", ".pytest_cache", "*.egg-info"}

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields all files below root in lexical order, skipping VCS
// directories and entries whose base name matches one of ignores.
// Yielded paths include root. A walk error is yielded once and ends the walk.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				yield(path, zerr.With(zerr.Wrap(err, "failed to walk directory"), "path", path))
				return filepath.SkipAll
			}

			if path != root && matchesAny(d.Name(), ignores) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if isVCSDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}

			if !yield(path, nil) {
				return filepath.SkipAll
			}

			return nil
		})
	}
}

func isVCSDir(name string) bool {
	return name == ".git" || name == ".jj" || name == ".hg"
}

func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
