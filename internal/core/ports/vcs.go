package ports

import "context"

// VCS is the version control system of the project.
//
//go:generate go run go.uber.org/mock/mockgen -source=vcs.go -destination=mocks/mock_vcs.go -package=mocks
type VCS interface {
	// StagedFiles lists staged files under the project root relative to it, excluding deletions.
	StagedFiles(ctx context.Context) ([]string, error)
	// Add stages the given files.
	Add(ctx context.Context, files []string) error
	// HooksDir returns the directory holding the repository hooks.
	HooksDir(ctx context.Context) (string, error)
}
