package ports

import "go.trai.ch/pyrig/internal/core/domain"

// Workspace bundles the adapters bound to one loaded project.
type Workspace struct {
	Environment Environment
	Indexes     IndexFactory
	Store       BuildInfoStore
	VCS         VCS
}

// WorkspaceFactory opens the project-scoped adapters once the configuration is known.
//
//go:generate go run go.uber.org/mock/mockgen -source=workspace.go -destination=mocks/mock_workspace.go -package=mocks
type WorkspaceFactory interface {
	Open(project *domain.Project) (*Workspace, error)
}
