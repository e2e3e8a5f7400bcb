// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/pyrig/internal/adapters/config"
	_ "go.trai.ch/pyrig/internal/adapters/fs"
	_ "go.trai.ch/pyrig/internal/adapters/logger"
	_ "go.trai.ch/pyrig/internal/adapters/shell"
	_ "go.trai.ch/pyrig/internal/adapters/telemetry/progrock"
	_ "go.trai.ch/pyrig/internal/adapters/workspace"
	// Register app and engine nodes.
	_ "go.trai.ch/pyrig/internal/app"
	_ "go.trai.ch/pyrig/internal/engine/scheduler"
)
