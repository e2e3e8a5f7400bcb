package fs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Cleaner = (*Cleaner)(nil)

var (
	cacheDirs  = []string{"__pycache__", ".pytest_cache", ".mypy_cache"}
	cacheFiles = []string{"*.pyc", "*.pyo", ".coverage", ".coverage.*"}
)

// Cleaner removes interpreter caches and build outputs.
type Cleaner struct {
	resolver *Resolver
}

// NewCleaner creates a new Cleaner.
func NewCleaner(resolver *Resolver) *Cleaner {
	return &Cleaner{resolver: resolver}
}

// CleanCaches removes bytecode, coverage and test caches below root.
// Directories listed in skip (relative to root) and VCS directories are not entered.
func (c *Cleaner) CleanCaches(root string, skip []string) ([]string, error) {
	skipped := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		skipped[filepath.Join(root, s)] = struct{}{}
	}

	var doomed []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if _, ok := skipped[path]; ok || isVCSDir(d.Name()) {
				return filepath.SkipDir
			}
			if matchesAny(d.Name(), cacheDirs) {
				doomed = append(doomed, path)
				return filepath.SkipDir
			}
			return nil
		}
		if matchesAny(d.Name(), cacheFiles) {
			doomed = append(doomed, path)
		}
		return nil
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to scan for caches"), "root", root)
	}

	return removePaths(root, doomed)
}

// RemoveAll removes every path matching patterns, relative to root.
// Missing paths are ignored.
func (c *Cleaner) RemoveAll(root string, patterns []string) ([]string, error) {
	matches, err := c.resolver.Resolve(patterns, root)
	if err != nil {
		return nil, err
	}
	return removePaths(root, matches)
}

func removePaths(root string, paths []string) ([]string, error) {
	removed := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			return removed, zerr.With(zerr.Wrap(err, "failed to remove path"), "path", path)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		removed = append(removed, filepath.ToSlash(rel))
	}
	slices.Sort(removed)
	return removed, nil
}
