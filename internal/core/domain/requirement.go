package domain

import (
	"regexp"
	"slices"
	"strings"

	version "github.com/aquasecurity/go-pep440-version"
	"go.trai.ch/zerr"
)

var (
	nameRegexp      = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)
	separatorRegexp = regexp.MustCompile(`[-_.]+`)
)

// Origin locates the declaration of a requirement.
type Origin struct {
	File string
	Line int
}

// Requirement is a single PEP 508 dependency declaration: a name, optional extras,
// a PEP 440 specifier set and an optional environment marker.
type Requirement struct {
	// Name is the canonical (PEP 503) project name.
	Name string
	// Display is the name as written by the author.
	Display string
	// Extras are canonical extra names, sorted.
	Extras []string
	// Specifier is the normalized, comma separated specifier set. Empty means any version.
	Specifier string
	// Marker is the environment marker. Empty means always applicable.
	Marker string
	Origin Origin
}

// CanonicalName normalizes a project name as described in PEP 503.
func CanonicalName(name string) string {
	return strings.ToLower(separatorRegexp.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// ParseRequirement parses a PEP 508 requirement string such as
// `requests[socks] >= 2.0, < 3 ; python_version >= "3.7"`.
// The legacy parenthesized form `idna (<3,>=2.5)` found in index metadata is accepted.
func ParseRequirement(s string) (Requirement, error) {
	raw := strings.TrimSpace(s)
	body, marker, _ := strings.Cut(raw, ";")
	body = strings.TrimSpace(body)
	marker = strings.TrimSpace(marker)

	name := nameRegexp.FindString(body)
	if name == "" {
		return Requirement{}, invalidRequirement(raw, "missing project name")
	}
	rest := strings.TrimSpace(body[len(name):])

	var extras []string
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return Requirement{}, invalidRequirement(raw, "unterminated extras")
		}
		for _, extra := range strings.Split(rest[1:end], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				continue
			}
			if nameRegexp.FindString(extra) != extra {
				return Requirement{}, invalidRequirement(raw, "invalid extra name")
			}
			extras = append(extras, CanonicalName(extra))
		}
		slices.Sort(extras)
		extras = slices.Compact(extras)
		rest = strings.TrimSpace(rest[end+1:])
	}

	if strings.HasPrefix(rest, "@") {
		return Requirement{}, invalidRequirement(raw, "direct references are not supported")
	}
	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}

	spec, err := NormalizeSpecifier(rest)
	if err != nil {
		return Requirement{}, zerr.With(err, "requirement", raw)
	}

	if marker != "" {
		if _, err := ParseMarker(marker); err != nil {
			return Requirement{}, zerr.With(err, "requirement", raw)
		}
	}

	return Requirement{
		Name:      CanonicalName(name),
		Display:   name,
		Extras:    extras,
		Specifier: spec,
		Marker:    marker,
	}, nil
}

// NormalizeSpecifier validates a PEP 440 specifier set and returns its canonical
// form: clauses without whitespace, deduplicated, sorted and joined by commas.
func NormalizeSpecifier(spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", nil
	}

	var clauses []string
	for _, clause := range strings.Split(spec, ",") {
		clause = strings.Join(strings.Fields(clause), "")
		if clause == "" {
			return "", invalidRequirement(spec, "empty specifier clause")
		}
		clauses = append(clauses, clause)
	}
	slices.Sort(clauses)
	clauses = slices.Compact(clauses)
	joined := strings.Join(clauses, ",")

	if _, err := version.NewSpecifiers(joined); err != nil {
		return "", invalidRequirement(spec, err.Error())
	}
	return joined, nil
}

// MergeSpecifiers intersects two normalized specifier sets.
func MergeSpecifiers(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	clauses := append(strings.Split(a, ","), strings.Split(b, ",")...)
	slices.Sort(clauses)
	return strings.Join(slices.Compact(clauses), ",")
}

// Contains reports whether v satisfies the requirement's specifier set.
// Pre-release filtering is a resolution policy and is not applied here.
func (r Requirement) Contains(v version.Version) (bool, error) {
	return SpecifierContains(r.Specifier, v)
}

// SpecifierContains reports whether v satisfies a normalized specifier set.
func SpecifierContains(spec string, v version.Version) (bool, error) {
	if spec == "" {
		return true, nil
	}
	ss, err := version.NewSpecifiers(spec, version.WithPreRelease(true))
	if err != nil {
		return false, invalidRequirement(spec, err.Error())
	}
	return ss.Check(v), nil
}

// MentionsPreRelease reports whether any clause of the specifier names a
// pre-release, which opts the requirement into pre-release candidates.
func (r Requirement) MentionsPreRelease() bool {
	if r.Specifier == "" {
		return false
	}
	for _, clause := range strings.Split(r.Specifier, ",") {
		raw := strings.TrimLeft(clause, "=!<>~")
		raw = strings.TrimSuffix(raw, ".*")
		v, err := version.Parse(raw)
		if err == nil && v.IsPreRelease() {
			return true
		}
	}
	return false
}

// String renders the requirement in PEP 508 form.
func (r Requirement) String() string {
	var b strings.Builder
	if r.Display != "" {
		b.WriteString(r.Display)
	} else {
		b.WriteString(r.Name)
	}
	if len(r.Extras) > 0 {
		b.WriteString("[")
		b.WriteString(strings.Join(r.Extras, ","))
		b.WriteString("]")
	}
	b.WriteString(r.Specifier)
	if r.Marker != "" {
		b.WriteString("; ")
		b.WriteString(r.Marker)
	}
	return b.String()
}

// ParseVersion parses a PEP 440 version string.
func ParseVersion(s string) (version.Version, error) {
	v, err := version.Parse(strings.TrimSpace(s))
	if err != nil {
		return version.Version{}, zerr.With(zerr.Wrap(ErrInvalidVersion, err.Error()), "version", s)
	}
	return v, nil
}

func invalidRequirement(raw, reason string) error {
	return zerr.With(zerr.Wrap(ErrInvalidRequirement, reason), "input", raw)
}
