package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pyrig/internal/core/domain"
)

func TestParseArtifactKind(t *testing.T) {
	kind, err := domain.ParseArtifactKind("Wheel")
	require.NoError(t, err)
	assert.Equal(t, domain.ArtifactWheel, kind)

	kind, err = domain.ParseArtifactKind("pex")
	require.NoError(t, err)
	assert.Equal(t, domain.ArtifactPex, kind)

	_, err = domain.ParseArtifactKind("sdist")
	assert.ErrorIs(t, err, domain.ErrUnknownArtifactKind)
}

func TestArtifactFilename(t *testing.T) {
	assert.Equal(t, "app_google_groups-1.4.0-py3-none-any.whl",
		domain.ArtifactFilename(domain.ArtifactWheel, "app-google-groups", "1.4.0"))
	assert.Equal(t, "app_google_groups-1.4.0.pex",
		domain.ArtifactFilename(domain.ArtifactPex, "app_google_groups", "1.4.0"))
}

func TestSyncPlan(t *testing.T) {
	assert.True(t, domain.SyncPlan{}.Empty())

	plan := domain.SyncPlan{
		Install: []domain.PinnedPackage{{Name: "idna", Version: "3.6"}},
		Change:  []domain.Change{{Name: "requests", From: "2.30.0", To: "2.31.0"}},
	}
	assert.False(t, plan.Empty())
	assert.Equal(t, []domain.PinnedPackage{
		{Name: "idna", Version: "3.6"},
		{Name: "requests", Version: "2.31.0"},
	}, plan.Targets())
}

func TestProject_Paths(t *testing.T) {
	p := &domain.Project{
		Root:     "/src/app",
		Specs:    []string{"requirements/prod.in", "requirements/dev.in"},
		ProdSpec: "requirements/prod.in",
		EntryPoints: map[string]string{
			"zeta":  "app:zeta",
			"alpha": "app:main",
		},
	}
	assert.Equal(t, "/src/app/requirements/prod.txt", p.Path(p.ProdManifest()))
	assert.Equal(t, "/abs/path", p.Path("/abs/path"))
	assert.Equal(t, []string{"requirements/prod.txt", "requirements/dev.txt"}, p.Manifests())
	assert.Equal(t, []string{"alpha", "zeta"}, p.ConsoleScripts())
}
