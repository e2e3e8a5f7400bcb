package fs

import (
	"path/filepath"
	"slices"

	"go.trai.ch/zerr"
)

// Resolver expands glob patterns relative to a root directory.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the sorted, de-duplicated paths matching patterns.
// A pattern without matches contributes nothing.
func (r *Resolver) Resolve(patterns []string, root string) ([]string, error) {
	uniquePaths := make(map[string]struct{})

	for _, pattern := range patterns {
		path := pattern
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, pattern)
		}

		matches, err := filepath.Glob(path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to glob path"), "path", path)
		}

		for _, match := range matches {
			uniquePaths[match] = struct{}{}
		}
	}

	result := make([]string, 0, len(uniquePaths))
	for path := range uniquePaths {
		result = append(result, path)
	}
	slices.Sort(result)

	return result, nil
}
