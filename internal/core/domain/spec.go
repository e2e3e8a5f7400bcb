package domain

import (
	"bufio"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// RequirementSpec is a developer-authored abstract requirement file (`*.in`).
type RequirementSpec struct {
	// Path is the slash separated path of the file relative to the project root.
	Path         string
	Requirements []Requirement
	// Includes are the paths of specs pulled in with -r, relative to the project root.
	Includes []string
	// Constraints are the paths of constraint files pulled in with -c, relative to the project root.
	Constraints []string
	IndexURL    string
}

// ComposedSpec is the flattened view of a spec and everything it includes.
type ComposedSpec struct {
	// Requirements holds included entries first, then the spec's own entries, in file order.
	Requirements []Requirement
	// Constraints holds the paths of all constraint files reachable from the spec.
	Constraints []string
	// Includes holds the paths of all transitively included specs in visit order.
	Includes []string
	IndexURL string
}

// SpecLookup returns a parsed spec by its project relative path.
type SpecLookup func(path string) (*RequirementSpec, error)

// ParseSpec reads an abstract requirement file. Include and constraint paths are
// resolved relative to the directory of path.
func ParseSpec(path string, r io.Reader) (*RequirementSpec, error) {
	spec := &RequirementSpec{Path: filepath.ToSlash(filepath.Clean(path))}
	dir := filepath.Dir(path)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	var pending strings.Builder
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		// Backslash continuations join physical lines.
		if strings.HasSuffix(line, `\`) {
			pending.WriteString(strings.TrimSuffix(line, `\`))
			continue
		}
		if pending.Len() > 0 {
			pending.WriteString(line)
			line = pending.String()
			pending.Reset()
		}

		line = stripComment(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "-") {
			if err := spec.parseOption(line, dir); err != nil {
				return nil, zerr.With(zerr.With(err, "file", spec.Path), "line", lineNo)
			}
			continue
		}

		req, err := ParseRequirement(line)
		if err != nil {
			return nil, zerr.With(zerr.With(err, "file", spec.Path), "line", lineNo)
		}
		req.Origin = Origin{File: spec.Path, Line: lineNo}
		spec.Requirements = append(spec.Requirements, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read requirement spec"), "file", spec.Path)
	}
	return spec, nil
}

func stripComment(line string) string {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") {
		return ""
	}
	// Inline comments must be preceded by whitespace.
	if idx := strings.Index(trimmed, " #"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if idx := strings.Index(trimmed, "\t#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func (s *RequirementSpec) parseOption(line, dir string) error {
	flag, value := splitOption(line)
	if value == "" {
		return zerr.With(zerr.Wrap(ErrInvalidRequirement, "option requires a value"), "option", flag)
	}

	switch flag {
	case "-r", "--requirement":
		s.Includes = append(s.Includes, joinSpecPath(dir, value))
	case "-c", "--constraint":
		s.Constraints = append(s.Constraints, joinSpecPath(dir, value))
	case "-i", "--index-url":
		s.IndexURL = value
	default:
		return zerr.With(zerr.Wrap(ErrInvalidRequirement, "unsupported option"), "option", flag)
	}
	return nil
}

// splitOption accepts "-r file", "-rfile", "--requirement file" and "--requirement=file".
func splitOption(line string) (string, string) {
	if strings.HasPrefix(line, "--") {
		if flag, value, ok := strings.Cut(line, "="); ok {
			return strings.TrimSpace(flag), strings.TrimSpace(value)
		}
		flag, value, _ := strings.Cut(line, " ")
		return flag, strings.TrimSpace(value)
	}
	if len(line) > 2 && line[2] != ' ' && line[2] != '\t' {
		return line[:2], strings.TrimSpace(line[2:])
	}
	flag, value, _ := strings.Cut(line, " ")
	return flag, strings.TrimSpace(value)
}

func joinSpecPath(dir, value string) string {
	if filepath.IsAbs(value) {
		return filepath.ToSlash(filepath.Clean(value))
	}
	return filepath.ToSlash(filepath.Clean(filepath.Join(dir, value)))
}

// Compose flattens the spec with every spec it includes. The constraint set of a
// spec is the union of its own entries and the entries of each included spec.
// It returns ErrIncludeCycle if a spec includes itself, directly or indirectly.
func (s *RequirementSpec) Compose(lookup SpecLookup) (*ComposedSpec, error) {
	out := &ComposedSpec{}
	visited := make(map[string]bool)
	if err := s.compose(lookup, out, visited, []string{s.Path}); err != nil {
		return nil, err
	}
	slices.Sort(out.Constraints)
	out.Constraints = slices.Compact(out.Constraints)
	return out, nil
}

func (s *RequirementSpec) compose(lookup SpecLookup, out *ComposedSpec, visited map[string]bool, stack []string) error {
	visited[s.Path] = true

	for _, inc := range s.Includes {
		if slices.Contains(stack, inc) {
			return zerr.With(zerr.Wrap(ErrIncludeCycle, "invalid requirement spec"), "cycle", strings.Join(append(stack, inc), " -> "))
		}
		if visited[inc] {
			continue
		}
		child, err := lookup(inc)
		if err != nil {
			return err
		}
		out.Includes = append(out.Includes, inc)
		if err := child.compose(lookup, out, visited, append(slices.Clone(stack), inc)); err != nil {
			return err
		}
	}

	out.Requirements = append(out.Requirements, s.Requirements...)
	out.Constraints = append(out.Constraints, s.Constraints...)
	if s.IndexURL != "" {
		out.IndexURL = s.IndexURL
	}
	return nil
}

// ManifestPath returns the locked manifest path for an abstract spec path.
func ManifestPath(specPath string) string {
	ext := filepath.Ext(specPath)
	return strings.TrimSuffix(specPath, ext) + ".txt"
}
