package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/pyrig/internal/adapters/config"              //nolint:depguard // Wired in app layer
	"go.trai.ch/pyrig/internal/adapters/fs"                  //nolint:depguard // Wired in app layer
	"go.trai.ch/pyrig/internal/adapters/logger"              //nolint:depguard // Wired in app layer
	"go.trai.ch/pyrig/internal/adapters/shell"               //nolint:depguard // Wired in app layer
	"go.trai.ch/pyrig/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in app layer
	"go.trai.ch/pyrig/internal/adapters/workspace"           //nolint:depguard // Wired in app layer
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/pyrig/internal/engine/scheduler"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			workspace.NodeID,
			shell.NodeID,
			fs.HasherNodeID,
			fs.VerifierNodeID,
			fs.WalkerNodeID,
			fs.CleanerNodeID,
			scheduler.NodeID,
			progrock.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			a, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewComponents(a, log), nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}
	workspaces, err := graft.Dep[ports.WorkspaceFactory](ctx)
	if err != nil {
		return nil, err
	}
	executor, err := graft.Dep[ports.Executor](ctx)
	if err != nil {
		return nil, err
	}
	hasher, err := graft.Dep[ports.Hasher](ctx)
	if err != nil {
		return nil, err
	}
	verifier, err := graft.Dep[ports.Verifier](ctx)
	if err != nil {
		return nil, err
	}
	walker, err := graft.Dep[ports.Walker](ctx)
	if err != nil {
		return nil, err
	}
	cleaner, err := graft.Dep[ports.Cleaner](ctx)
	if err != nil {
		return nil, err
	}
	sched, err := graft.Dep[*scheduler.Scheduler](ctx)
	if err != nil {
		return nil, err
	}
	telemetry, err := graft.Dep[ports.Telemetry](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, workspaces, executor, hasher, verifier, walker, cleaner, sched, telemetry, log), nil
}
