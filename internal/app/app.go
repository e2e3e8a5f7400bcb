// Package app implements the application layer for pyrig.
package app

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/pyrig/internal/engine/compiler"
	"go.trai.ch/pyrig/internal/engine/gate"
	"go.trai.ch/pyrig/internal/engine/packager"
	"go.trai.ch/pyrig/internal/engine/scheduler"
	"go.trai.ch/pyrig/internal/engine/syncer"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	workspaces   ports.WorkspaceFactory
	executor     ports.Executor
	hasher       ports.Hasher
	verifier     ports.Verifier
	walker       ports.Walker
	cleaner      ports.Cleaner
	scheduler    *scheduler.Scheduler
	telemetry    ports.Telemetry
	logger       ports.Logger
	out          io.Writer
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	workspaces ports.WorkspaceFactory,
	executor ports.Executor,
	hasher ports.Hasher,
	verifier ports.Verifier,
	walker ports.Walker,
	cleaner ports.Cleaner,
	sched *scheduler.Scheduler,
	telemetry ports.Telemetry,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		workspaces:   workspaces,
		executor:     executor,
		hasher:       hasher,
		verifier:     verifier,
		walker:       walker,
		cleaner:      cleaner,
		scheduler:    sched,
		telemetry:    telemetry,
		logger:       log,
		out:          os.Stdout,
	}
}

// WithOutput redirects command output such as dry-run plans.
// This is primarily used for testing.
func (a *App) WithOutput(w io.Writer) *App {
	a.out = w
	return a
}

// Options holds the global flags shared by every command.
type Options struct {
	// ConfigPath is the path of pyrig.yaml.
	ConfigPath string
	// Force bypasses up-to-date checks.
	Force bool
}

// session is a loaded project with its workspace adapters.
type session struct {
	app        *App
	opts       Options
	project    *domain.Project
	ws         *ports.Workspace
	configPath string
}

func (a *App) open(opts Options) (*session, error) {
	project, err := a.configLoader.Load(opts.ConfigPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	ws, err := a.workspaces.Open(project)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to open workspace")
	}

	configPath := opts.ConfigPath
	if abs, err := filepath.Abs(opts.ConfigPath); err == nil {
		if rel, err := filepath.Rel(project.Root, abs); err == nil {
			configPath = filepath.ToSlash(rel)
		}
	}
	return &session{app: a, opts: opts, project: project, ws: ws, configPath: configPath}, nil
}

func (s *session) compiler() *compiler.Compiler {
	return compiler.New(s.project, s.ws.Indexes, s.app.hasher, s.ws.Store, s.app.verifier, s.app.logger)
}

func (s *session) syncer() *syncer.Syncer {
	return syncer.New(s.project, s.ws.Environment, s.app.logger)
}

func (s *session) packager() *packager.Packager {
	return packager.New(s.project, s.ws.Environment, s.app.executor, s.app.walker, s.app.logger)
}

func (s *session) gate() *gate.Gate {
	return gate.New(s.project, s.ws.Environment, s.app.executor, s.ws.VCS, s.app.logger)
}

// Run executes the named targets and their dependencies.
func (a *App) Run(ctx context.Context, targetNames []string, opts Options) error {
	if len(targetNames) == 0 {
		return domain.ErrNoTargetsSpecified
	}
	s, err := a.open(opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.telemetry.Close()
	}()

	if err := a.scheduler.Run(ctx, targetNames, s.actions()); err != nil {
		return zerr.Wrap(err, "build execution failed")
	}
	return nil
}

// CompileOptions holds the flags of the compile command.
type CompileOptions struct {
	Upgrade         bool
	UpgradePackages []string
	DryRun          bool
}

// Compile regenerates the locked manifests.
func (a *App) Compile(ctx context.Context, opts Options, copts CompileOptions) error {
	s, err := a.open(opts)
	if err != nil {
		return err
	}
	_, err = s.compiler().Compile(ctx, compiler.Options{
		Upgrade:         copts.Upgrade,
		UpgradePackages: copts.UpgradePackages,
		DryRun:          copts.DryRun,
		Force:           opts.Force,
		Out:             a.out,
	})
	return err
}

// Sync makes the environment match the locked manifests.
func (a *App) Sync(ctx context.Context, opts Options, dryRun bool) error {
	s, err := a.open(opts)
	if err != nil {
		return err
	}
	_, err = s.syncer().Sync(ctx, nil, syncer.Options{DryRun: dryRun, Out: a.out})
	return err
}

// Package builds an artifact of the given kind.
func (a *App) Package(ctx context.Context, opts Options, kind string) (*domain.Artifact, error) {
	k, err := domain.ParseArtifactKind(kind)
	if err != nil {
		return nil, err
	}
	s, err := a.open(opts)
	if err != nil {
		return nil, err
	}
	return s.packager().Package(ctx, k)
}

// Gate runs the quality gate.
func (a *App) Gate(ctx context.Context, opts Options, staged bool) error {
	s, err := a.open(opts)
	if err != nil {
		return err
	}
	return s.gate().Run(ctx, gate.Options{Staged: staged})
}

// InstallHook writes the pre-commit hook.
func (a *App) InstallHook(ctx context.Context, opts Options) error {
	s, err := a.open(opts)
	if err != nil {
		return err
	}
	_, err = s.gate().InstallHook(ctx, s.configPath)
	return err
}

// Targets returns the names of the built-in targets.
func (a *App) Targets() []string {
	return a.scheduler.Targets()
}
