// Package git implements the VCS port with the git command line.
package git

import (
	"context"
	"path/filepath"
	"strings"

	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.VCS = (*Git)(nil)

// Git runs git in the project root.
type Git struct {
	root     string
	executor ports.Executor
}

// New creates a Git bound to root.
func New(root string, executor ports.Executor) *Git {
	return &Git{root: root, executor: executor}
}

// StagedFiles lists staged paths under the project root, relative to it, excluding deletions.
func (g *Git) StagedFiles(ctx context.Context) ([]string, error) {
	out, err := g.output(ctx, "diff", "--cached", "--name-only", "--relative", "--diff-filter", "d")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to list staged files")
	}
	return lines(out), nil
}

// Add stages files.
func (g *Git) Add(ctx context.Context, files []string) error {
	if len(files) == 0 {
		return nil
	}
	cmd := domain.NewCommand(g.root, append([]string{"git", "add", "--"}, files...)...)
	if err := g.executor.Execute(ctx, cmd); err != nil {
		return zerr.Wrap(err, "failed to stage files")
	}
	return nil
}

// HooksDir returns the absolute hooks directory, honoring core.hooksPath.
func (g *Git) HooksDir(ctx context.Context) (string, error) {
	out, err := g.output(ctx, "rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", zerr.Wrap(err, "failed to locate hooks directory")
	}
	dir := strings.TrimSpace(out)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(g.root, dir)
	}
	return dir, nil
}

func (g *Git) output(ctx context.Context, args ...string) (string, error) {
	out, err := g.executor.Output(ctx, domain.NewCommand(g.root, append([]string{"git"}, args...)...))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func lines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
