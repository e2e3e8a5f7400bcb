package app

import (
	"context"
	"fmt"

	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/engine/compiler"
	"go.trai.ch/pyrig/internal/engine/gate"
	"go.trai.ch/pyrig/internal/engine/scheduler"
	"go.trai.ch/pyrig/internal/engine/syncer"
)

// actions binds every built-in target to the session.
func (s *session) actions() map[string]scheduler.Action {
	return map[string]scheduler.Action{
		domain.TargetVenvDev:     s.venvDev,
		domain.TargetRequirement: s.requirements,
		domain.TargetInstallReqs: s.installReqs,
		domain.TargetWheel:       s.artifact(domain.ArtifactWheel),
		domain.TargetPex:         s.artifact(domain.ArtifactPex),
		domain.TargetTest:        s.test,
		domain.TargetCleanCache:  s.cleanCache,
		domain.TargetClean:       s.clean,
		domain.TargetInit:        s.init,
	}
}

func (s *session) venvDev(ctx context.Context) (bool, error) {
	env := s.ws.Environment
	if env.Exists() && !s.opts.Force {
		return true, nil
	}
	return false, env.Create(ctx, s.project.BootstrapPackages, s.opts.Force)
}

func (s *session) requirements(ctx context.Context) (bool, error) {
	results, err := s.compiler().Compile(ctx, compiler.Options{Force: s.opts.Force})
	if err != nil {
		return false, err
	}
	for _, res := range results {
		if !res.Cached {
			return false, nil
		}
	}
	return true, nil
}

func (s *session) installReqs(ctx context.Context) (bool, error) {
	plan, err := s.syncer().Sync(ctx, nil, syncer.Options{})
	if err != nil {
		return false, err
	}
	return plan.Empty(), nil
}

func (s *session) artifact(kind domain.ArtifactKind) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		_, err := s.packager().Package(ctx, kind)
		return false, err
	}
}

func (s *session) test(ctx context.Context) (bool, error) {
	return false, s.gate().Run(ctx, gate.Options{})
}

func (s *session) cleanCache(_ context.Context) (bool, error) {
	removed, err := s.app.cleaner.CleanCaches(s.project.Root, []string{s.project.Layout.Venv})
	if err != nil {
		return false, err
	}
	s.app.logger.Info(fmt.Sprintf("Removed %d cache entries", len(removed)))
	return len(removed) == 0, nil
}

func (s *session) clean(_ context.Context) (bool, error) {
	l := s.project.Layout
	removed, err := s.app.cleaner.RemoveAll(s.project.Root, []string{l.Venv, l.Dist, l.Build, l.State, "*.egg-info"})
	if err != nil {
		return false, err
	}
	for _, path := range removed {
		s.app.logger.Info(fmt.Sprintf("Removed %s", path))
	}
	return len(removed) == 0, nil
}

func (s *session) init(ctx context.Context) (bool, error) {
	_, err := s.gate().InstallHook(ctx, s.configPath)
	return false, err
}
