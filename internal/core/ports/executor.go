// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/pyrig/internal/core/domain"
)

// Executor defines the interface for running external processes.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the command, streaming its output to the active vertex or the logger.
	//
	// It returns an error carrying the exit code if the process fails.
	Execute(ctx context.Context, cmd *domain.Command) error

	// Output runs the command and returns its standard output.
	// Standard error is streamed like Execute.
	Output(ctx context.Context, cmd *domain.Command) ([]byte, error)
}
