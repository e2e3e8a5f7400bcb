package ports

import (
	"context"

	"go.trai.ch/pyrig/internal/core/domain"
)

// Environment is the isolated interpreter installation of a project.
//
//go:generate go run go.uber.org/mock/mockgen -source=environment.go -destination=mocks/mock_environment.go -package=mocks
type Environment interface {
	// Exists reports whether the environment has been created.
	Exists() bool

	// Create creates the environment and installs the bootstrap packages.
	// With clear set, an existing environment is wiped and rebuilt.
	Create(ctx context.Context, bootstrap []string, clear bool) error

	// Python returns the path of the environment's interpreter.
	Python() string

	// Installed returns the installed distributions as canonical name to version.
	Installed(ctx context.Context) (map[string]string, error)

	// Install installs exact pins without resolving their dependencies.
	Install(ctx context.Context, pkgs []domain.PinnedPackage) error

	// Uninstall removes the named distributions.
	Uninstall(ctx context.Context, names []string) error

	// Download fetches binary distributions of the pins into dest.
	Download(ctx context.Context, pkgs []domain.PinnedPackage, dest string) error
}
