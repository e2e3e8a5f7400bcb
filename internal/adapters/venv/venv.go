// Package venv manages the project's isolated interpreter environment through the venv module and pip.
package venv

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/zerr"
)

const defaultIndexURL = "https://pypi.org"

var _ ports.Environment = (*Venv)(nil)

// Venv implements ports.Environment for a venv directory.
type Venv struct {
	dir         string
	root        string
	interpreter string
	indexURL    string
	executor    ports.Executor
}

// New returns the environment of project. Nothing is created until Create is called.
func New(project *domain.Project, executor ports.Executor) *Venv {
	v := &Venv{
		dir:         project.Path(project.Layout.Venv),
		root:        project.Root,
		interpreter: project.Python,
		executor:    executor,
	}
	if project.Index.Static == "" && project.Index.URL != defaultIndexURL {
		v.indexURL = project.Index.URL + "/simple"
	}
	return v
}

// Dir returns the environment directory.
func (v *Venv) Dir() string {
	return v.dir
}

// Python returns the path of the environment's interpreter.
func (v *Venv) Python() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(v.dir, "Scripts", "python.exe")
	}
	return filepath.Join(v.dir, "bin", "python")
}

// Exists reports whether the environment's interpreter is present.
func (v *Venv) Exists() bool {
	_, err := os.Stat(v.Python())
	return err == nil
}

// Create creates the environment with the configured interpreter and installs bootstrap.
// An existing environment is reused unless clear is set.
func (v *Venv) Create(ctx context.Context, bootstrap []string, clear bool) error {
	if clear || !v.Exists() {
		args := []string{v.interpreter, "-m", "venv"}
		if clear {
			args = append(args, "--clear")
		}
		cmd := domain.NewCommand(v.root, append(args, v.dir)...)
		if err := v.executor.Execute(ctx, cmd); err != nil {
			return v.commandFailed(err, "failed to create environment")
		}
	}
	if len(bootstrap) == 0 {
		return nil
	}
	args := append([]string{"install", "--upgrade"}, bootstrap...)
	if err := v.executor.Execute(ctx, v.pip(args...)); err != nil {
		return v.commandFailed(err, "failed to install bootstrap packages")
	}
	return nil
}

type pipListEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Installed returns the installed distributions keyed by canonical name.
func (v *Venv) Installed(ctx context.Context) (map[string]string, error) {
	if !v.Exists() {
		return nil, zerr.With(zerr.Wrap(domain.ErrEnvironmentMissing, "cannot list packages"), "venv", v.dir)
	}
	out, err := v.executor.Output(ctx, v.pip("list", "--format", "json"))
	if err != nil {
		return nil, v.commandFailed(err, "failed to list installed packages")
	}

	var entries []pipListEntry
	if err := json.Unmarshal(out, &entries); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrEnvironmentCommandFailed, "malformed pip list output"), "venv", v.dir)
	}
	installed := make(map[string]string, len(entries))
	for _, e := range entries {
		installed[domain.CanonicalName(e.Name)] = e.Version
	}
	return installed, nil
}

// Install installs exact pins without pulling in their dependencies.
func (v *Venv) Install(ctx context.Context, pkgs []domain.PinnedPackage) error {
	if len(pkgs) == 0 {
		return nil
	}
	args := append(v.indexArgs("install", "--no-deps"), pinArgs(pkgs)...)
	if err := v.executor.Execute(ctx, v.pip(args...)); err != nil {
		return v.commandFailed(err, "failed to install packages")
	}
	return nil
}

// Uninstall removes the named distributions.
func (v *Venv) Uninstall(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	args := append([]string{"uninstall", "-y"}, names...)
	if err := v.executor.Execute(ctx, v.pip(args...)); err != nil {
		return v.commandFailed(err, "failed to uninstall packages")
	}
	return nil
}

// Download fetches wheels for the pins into dest.
func (v *Venv) Download(ctx context.Context, pkgs []domain.PinnedPackage, dest string) error {
	if len(pkgs) == 0 {
		return nil
	}
	if !v.Exists() {
		return zerr.With(zerr.Wrap(domain.ErrEnvironmentMissing, "cannot download packages"), "venv", v.dir)
	}
	args := v.indexArgs("download", "--no-deps", "--only-binary", ":all:", "--dest", dest)
	if err := v.executor.Execute(ctx, v.pip(append(args, pinArgs(pkgs)...)...)); err != nil {
		return v.commandFailed(err, "failed to download packages")
	}
	return nil
}

func (v *Venv) pip(args ...string) *domain.Command {
	cmd := domain.NewCommand(v.root, append([]string{v.Python(), "-m", "pip"}, args...)...)
	cmd.Env = map[string]string{
		"VIRTUAL_ENV":                   v.dir,
		"PIP_DISABLE_PIP_VERSION_CHECK": "1",
	}
	return cmd
}

func (v *Venv) indexArgs(args ...string) []string {
	if v.indexURL != "" {
		return append(args, "--index-url", v.indexURL)
	}
	return args
}

func (v *Venv) commandFailed(err error, msg string) error {
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrEnvironmentCommandFailed, msg), "venv", v.dir), "cause", err.Error())
}

func pinArgs(pkgs []domain.PinnedPackage) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = p.String()
	}
	return out
}
