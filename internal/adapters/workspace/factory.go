// Package workspace opens the project-scoped adapters once the configuration has been loaded.
package workspace

import (
	"path/filepath"

	"go.trai.ch/pyrig/internal/adapters/cas"
	"go.trai.ch/pyrig/internal/adapters/git"
	"go.trai.ch/pyrig/internal/adapters/index"
	"go.trai.ch/pyrig/internal/adapters/venv"
	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
)

var _ ports.WorkspaceFactory = (*Factory)(nil)

// Factory implements ports.WorkspaceFactory.
type Factory struct {
	executor ports.Executor
}

// NewFactory creates a new Factory.
func NewFactory(executor ports.Executor) *Factory {
	return &Factory{executor: executor}
}

// Open binds the environment, indexes, build info store and VCS to project.
func (f *Factory) Open(project *domain.Project) (*ports.Workspace, error) {
	store, err := cas.NewStore(filepath.Join(project.Path(project.Layout.State), cas.FileName))
	if err != nil {
		return nil, err
	}
	return &ports.Workspace{
		Environment: venv.New(project, f.executor),
		Indexes:     index.NewFactory(project, nil),
		Store:       store,
		VCS:         git.New(project.Root, f.executor),
	}, nil
}
