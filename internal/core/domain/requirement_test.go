package domain_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pyrig/internal/core/domain"
)

func TestCanonicalName(t *testing.T) {
	tests := map[string]string{
		"Requests":           "requests",
		"zope.interface":     "zope-interface",
		"typing__extensions": "typing-extensions",
		"Flask-SQLAlchemy":   "flask-sqlalchemy",
		" google_api.Core ":  "google-api-core",
	}
	for in, want := range tests {
		assert.Equal(t, want, domain.CanonicalName(in), in)
	}
}

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want domain.Requirement
	}{
		{
			name: "bare name",
			in:   "slackclient",
			want: domain.Requirement{Name: "slackclient", Display: "slackclient"},
		},
		{
			name: "range with whitespace",
			in:   "requests >= 2.0, < 3",
			want: domain.Requirement{Name: "requests", Display: "requests", Specifier: "<3,>=2.0"},
		},
		{
			name: "extras and marker",
			in:   `Requests[Socks, security] >=2.8.1 ; python_version >= "3.7"`,
			want: domain.Requirement{
				Name:      "requests",
				Display:   "Requests",
				Extras:    []string{"security", "socks"},
				Specifier: ">=2.8.1",
				Marker:    `python_version >= "3.7"`,
			},
		},
		{
			name: "legacy parenthesized specifier",
			in:   "idna (<3,>=2.5)",
			want: domain.Requirement{Name: "idna", Display: "idna", Specifier: "<3,>=2.5"},
		},
		{
			name: "duplicate clauses collapse",
			in:   "six>=1.0,>=1.0",
			want: domain.Requirement{Name: "six", Display: "six", Specifier: ">=1.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseRequirement(tt.in)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("ParseRequirement() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRequirement_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		">=1.0",
		"requests[socks",
		"pkg @ https://example.com/pkg.whl",
		"requests >= banana",
		`requests; python_version >>> "3"`,
		`requests; unknown_var == "x"`,
	} {
		t.Run(in, func(t *testing.T) {
			_, err := domain.ParseRequirement(in)
			require.Error(t, err)
		})
	}
}

func TestRequirement_Contains(t *testing.T) {
	req, err := domain.ParseRequirement("requests >= 2.0, < 3")
	require.NoError(t, err)

	tests := map[string]bool{
		"2.0":      true,
		"2.31.0":   true,
		"1.9":      false,
		"3.0":      false,
		"2.32.0b1": true,
	}
	for raw, want := range tests {
		v, err := domain.ParseVersion(raw)
		require.NoError(t, err)
		got, err := req.Contains(v)
		require.NoError(t, err)
		assert.Equal(t, want, got, raw)
	}
}

func TestRequirement_MentionsPreRelease(t *testing.T) {
	pre, err := domain.ParseRequirement("black>=19.10b0")
	require.NoError(t, err)
	assert.True(t, pre.MentionsPreRelease())

	final, err := domain.ParseRequirement("black>=19.10")
	require.NoError(t, err)
	assert.False(t, final.MentionsPreRelease())
}

func TestMergeSpecifiers(t *testing.T) {
	assert.Equal(t, ">=1", domain.MergeSpecifiers("", ">=1"))
	assert.Equal(t, "<2", domain.MergeSpecifiers("<2", ""))
	assert.Equal(t, "<2,>=1", domain.MergeSpecifiers(">=1", "<2,>=1"))
}

func TestRequirement_String(t *testing.T) {
	req, err := domain.ParseRequirement(`requests[socks]>=2 ; sys_platform == "linux"`)
	require.NoError(t, err)
	assert.Equal(t, `requests[socks]>=2; sys_platform == "linux"`, req.String())
}

func TestParseVersion_Invalid(t *testing.T) {
	_, err := domain.ParseVersion("not-a-version")
	assert.ErrorIs(t, err, domain.ErrInvalidVersion)
}
