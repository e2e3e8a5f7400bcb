package ports

import "iter"

// Walker enumerates files below a directory.
//
//go:generate go run go.uber.org/mock/mockgen -source=fs.go -destination=mocks/mock_fs.go -package=mocks
type Walker interface {
	// WalkFiles yields files below root, skipping VCS directories and entries matching ignores.
	// A non-nil error is the last value yielded.
	WalkFiles(root string, ignores []string) iter.Seq2[string, error]
}

// Verifier defines the interface for verifying file existence.
type Verifier interface {
	// VerifyOutputs checks if all output files exist in the given root directory.
	VerifyOutputs(root string, outputs []string) (bool, error)
}

// Cleaner removes generated files from the project tree.
type Cleaner interface {
	// CleanCaches removes bytecode and test caches below root, never descending into skip.
	// It returns the removed paths.
	CleanCaches(root string, skip []string) ([]string, error)
	// RemoveAll removes every path matching the glob patterns, relative to root.
	RemoveAll(root string, patterns []string) ([]string, error)
}
