package workspace

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/pyrig/internal/adapters/shell"
	"go.trai.ch/pyrig/internal/core/ports"
)

const NodeID graft.ID = "adapter.workspace"

func init() {
	graft.Register(graft.Node[ports.WorkspaceFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID},
		Run: func(ctx context.Context) (ports.WorkspaceFactory, error) {
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			return NewFactory(executor), nil
		},
	})
}
