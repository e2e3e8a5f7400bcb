package domain_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pyrig/internal/core/domain"
)

const renderedManifest = `#
# This file is autogenerated by pyrig.
# To update, run:
#
#    pyrig compile
#
certifi==2024.2.2
    # via requests
charset-normalizer==3.3.2
    # via requests
idna==3.6
    # via requests
requests==2.31.0
    # via -r requirements/prod.in
urllib3==2.2.1
    # via
    #   botocore
    #   requests
`

func sampleManifest() *domain.Manifest {
	return domain.NewManifest("requirements/prod.in", []domain.PinnedPackage{
		{Name: "urllib3", Version: "2.2.1", Via: []string{"requests", "botocore", "requests"}},
		{Name: "Requests", Version: "2.31.0", Via: []string{"-r requirements/prod.in"}},
		{Name: "idna", Version: "3.6", Via: []string{"requests"}},
		{Name: "charset_normalizer", Version: "3.3.2", Via: []string{"requests"}},
		{Name: "certifi", Version: "2024.2.2", Via: []string{"requests"}},
	})
}

func TestManifest_Render(t *testing.T) {
	got := string(sampleManifest().Render())
	if diff := cmp.Diff(renderedManifest, got); diff != "" {
		t.Errorf("Render() mismatch (-want +got):\n%s", diff)
	}
}

func TestManifest_Render_Deterministic(t *testing.T) {
	first := sampleManifest().Render()
	second := sampleManifest().Render()
	assert.True(t, bytes.Equal(first, second))
}

func TestParseManifest_RoundTrip(t *testing.T) {
	parsed, err := domain.ParseManifest("requirements/prod.in", strings.NewReader(renderedManifest))
	require.NoError(t, err)

	if diff := cmp.Diff(sampleManifest(), parsed, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("ParseManifest() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "2.31.0", parsed.Pins()["requests"])
}

func TestParseManifest_ForeignFormat(t *testing.T) {
	content := `--index-url https://pypi.org/simple
six==1.16.0 \
    --hash=sha256:abc
Flask==3.0.0 ; python_version >= "3.8"
`
	// Hash continuation lines start with "-" and are ignored.
	parsed, err := domain.ParseManifest("x.txt", strings.NewReader(strings.ReplaceAll(content, " \\\n", "\n")))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"six": "1.16.0", "flask": "3.0.0"}, parsed.Pins())
}

func TestParseManifest_RejectsRanges(t *testing.T) {
	_, err := domain.ParseManifest("requirements/prod.txt", strings.NewReader("requests>=2\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidManifest)
}
