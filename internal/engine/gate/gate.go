// Package gate runs the quality gate: import ordering, formatting, linting and tests.
package gate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/zerr"
)

// hookMarker identifies hooks written by pyrig.
const hookMarker = "# Installed by pyrig."

// Options selects the files and stages of a gate run.
type Options struct {
	// Staged limits the gate to the Python files staged for commit and
	// re-stages them after every stage passed.
	Staged bool
}

// Gate runs the configured stages of a project.
type Gate struct {
	project  *domain.Project
	env      ports.Environment
	executor ports.Executor
	vcs      ports.VCS
	logger   ports.Logger
}

// New creates a Gate.
func New(
	project *domain.Project,
	env ports.Environment,
	executor ports.Executor,
	vcs ports.VCS,
	logger ports.Logger,
) *Gate {
	return &Gate{project: project, env: env, executor: executor, vcs: vcs, logger: logger}
}

// Run executes the stages in order and stops at the first failure.
func (g *Gate) Run(ctx context.Context, opts Options) error {
	files, err := g.files(ctx, opts.Staged)
	if err != nil {
		return err
	}
	if opts.Staged && len(files) == 0 {
		g.logger.Info("No Python files in commit, skipping formatting + linting")
		return nil
	}

	for _, stage := range g.project.Stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.logger.Info(fmt.Sprintf("Running %s", stage.Name))
		cmd := domain.NewCommand(g.project.Root, g.expand(stage.Command, files)...)
		cmd.Env = g.environ()
		if err := g.executor.Execute(ctx, cmd); err != nil {
			return zerr.With(zerr.With(zerr.Wrap(domain.ErrStageFailed, "quality gate failed"), "stage", stage.Name), "cause", err.Error())
		}
	}

	if opts.Staged {
		if err := g.vcs.Add(ctx, files); err != nil {
			return err
		}
	}
	return nil
}

// files returns the arguments substituted for {files}.
func (g *Gate) files(ctx context.Context, staged bool) ([]string, error) {
	if !staged {
		var out []string
		for _, dir := range []string{g.project.Package, "tests"} {
			if info, err := os.Stat(g.project.Path(dir)); err == nil && info.IsDir() {
				out = append(out, dir)
			}
		}
		return out, nil
	}

	all, err := g.vcs.StagedFiles(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range all {
		if strings.HasSuffix(f, ".py") {
			out = append(out, f)
		}
	}
	return out, nil
}

// expand substitutes placeholders. {files} as a whole argument expands to one argument per file.
func (g *Gate) expand(args, files []string) []string {
	python := g.project.Python
	if g.env.Exists() {
		python = g.env.Python()
	}
	replacer := strings.NewReplacer(
		"{python}", python,
		"{venv}", g.project.Path(g.project.Layout.Venv),
		"{pattern}", g.project.TestPattern,
		"{package}", g.project.Package,
		"{files}", strings.Join(files, " "),
	)

	out := make([]string, 0, len(args)+len(files))
	for _, arg := range args {
		if arg == "{files}" {
			out = append(out, files...)
			continue
		}
		out = append(out, replacer.Replace(arg))
	}
	return out
}

// environ activates the project environment for stage commands.
func (g *Gate) environ() map[string]string {
	venv := g.project.Path(g.project.Layout.Venv)
	bin := filepath.Join(venv, "bin")
	if runtime.GOOS == "windows" {
		bin = filepath.Join(venv, "Scripts")
	}
	return map[string]string{
		"VIRTUAL_ENV": venv,
		"PATH":        bin + string(os.PathListSeparator) + os.Getenv("PATH"),
	}
}

// InstallHook writes a pre-commit hook that runs the gate on staged files.
// A foreign hook is kept next to it with a .bak suffix.
func (g *Gate) InstallHook(ctx context.Context, configPath string) (string, error) {
	dir, err := g.vcs.HooksDir(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to create hooks directory"), "path", dir)
	}
	path := filepath.Join(dir, "pre-commit")

	existing, err := os.ReadFile(path)
	switch {
	case err == nil && !strings.Contains(string(existing), hookMarker):
		if err := os.Rename(path, path+".bak"); err != nil {
			return "", zerr.With(zerr.Wrap(err, "failed to back up existing hook"), "path", path)
		}
		g.logger.Warn(fmt.Sprintf("Existing pre-commit hook moved to %s.bak", path))
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return "", zerr.With(zerr.Wrap(err, "failed to read existing hook"), "path", path)
	}

	//nolint:gosec // Hooks must be executable.
	if err := os.WriteFile(path, []byte(hookScript(configPath)), 0o755); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to write hook"), "path", path)
	}
	//nolint:gosec // Hooks must be executable.
	if err := os.Chmod(path, 0o755); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to make hook executable"), "path", path)
	}
	g.logger.Info(fmt.Sprintf("Installed pre-commit hook at %s", path))
	return path, nil
}

func hookScript(configPath string) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString(hookMarker + "\n")
	b.WriteString("exec pyrig")
	if configPath != "" {
		b.WriteString(" -c '" + strings.ReplaceAll(configPath, "'", `'\''`) + "'")
	}
	b.WriteString(" gate --staged\n")
	return b.String()
}
