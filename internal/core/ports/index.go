package ports

import (
	"context"

	"go.trai.ch/pyrig/internal/core/domain"
)

// PackageIndex answers release and dependency queries for Python projects.
//
//go:generate go run go.uber.org/mock/mockgen -source=index.go -destination=mocks/mock_index.go -package=mocks
type PackageIndex interface {
	// Releases lists every published release of a project, in any order.
	// It returns domain.ErrPackageNotFound for unknown projects.
	Releases(ctx context.Context, name string) ([]domain.Release, error)

	// Dependencies returns the declared requirements of one release, markers included.
	Dependencies(ctx context.Context, name, version string) ([]domain.Requirement, error)
}

// IndexFactory opens package indexes.
type IndexFactory interface {
	// Open returns the index at url. An empty url selects the project's configured index.
	Open(url string) (PackageIndex, error)
}
