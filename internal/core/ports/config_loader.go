package ports

import "go.trai.ch/pyrig/internal/core/domain"

// ConfigLoader defines the interface for loading the project configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration file at path and returns the project with defaults applied.
	Load(path string) (*domain.Project, error)
}
