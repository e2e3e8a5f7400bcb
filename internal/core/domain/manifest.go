package domain

import (
	"bufio"
	"bytes"
	"io"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// manifestHeader is written at the top of every locked manifest. It carries no
// timestamp so that identical inputs render byte-identical files.
const manifestHeader = `#
# This file is autogenerated by pyrig.
# To update, run:
#
#    pyrig compile
#
`

// PinnedPackage is one exact version in a locked manifest.
type PinnedPackage struct {
	// Name is the canonical project name.
	Name    string
	Version string
	// Via lists what pulled the package in: parent package names or "-r <spec>".
	Via []string
}

// String renders the pin as "name==version".
func (p PinnedPackage) String() string {
	return p.Name + "==" + p.Version
}

// Manifest is the fully pinned, transitively complete dependency set derived from a spec.
type Manifest struct {
	// Source is the path of the abstract spec the manifest was compiled from.
	Source   string
	Packages []PinnedPackage
}

// NewManifest builds a manifest with its packages in canonical order.
func NewManifest(source string, packages []PinnedPackage) *Manifest {
	pkgs := make([]PinnedPackage, len(packages))
	for i, p := range packages {
		via := slices.Clone(p.Via)
		slices.Sort(via)
		pkgs[i] = PinnedPackage{Name: CanonicalName(p.Name), Version: p.Version, Via: slices.Compact(via)}
	}
	slices.SortFunc(pkgs, func(a, b PinnedPackage) int { return strings.Compare(a.Name, b.Name) })
	return &Manifest{Source: source, Packages: pkgs}
}

// Pins returns the manifest as a canonical name to version map.
func (m *Manifest) Pins() map[string]string {
	pins := make(map[string]string, len(m.Packages))
	for _, p := range m.Packages {
		pins[p.Name] = p.Version
	}
	return pins
}

// Render writes the manifest in pip-compatible form.
func (m *Manifest) Render() []byte {
	var buf bytes.Buffer
	buf.WriteString(manifestHeader)
	for _, p := range m.Packages {
		buf.WriteString(p.String())
		buf.WriteByte('\n')
		switch len(p.Via) {
		case 0:
		case 1:
			buf.WriteString("    # via " + p.Via[0] + "\n")
		default:
			buf.WriteString("    # via\n")
			for _, via := range p.Via {
				buf.WriteString("    #   " + via + "\n")
			}
		}
	}
	return buf.Bytes()
}

// ParseManifest reads a locked manifest. Only exact "name==version" pins are accepted.
func ParseManifest(source string, r io.Reader) (*Manifest, error) {
	var pkgs []PinnedPackage
	var current *PinnedPackage
	inViaBlock := false

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, "#") {
			comment := strings.TrimSpace(strings.TrimPrefix(line, "#"))
			switch {
			case current == nil:
			case comment == "via":
				inViaBlock = true
			case strings.HasPrefix(comment, "via "):
				current.Via = append(current.Via, strings.TrimSpace(strings.TrimPrefix(comment, "via ")))
				inViaBlock = false
			case inViaBlock && comment != "":
				current.Via = append(current.Via, comment)
			}
			continue
		}
		inViaBlock = false

		line = stripComment(line)
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}

		body, _, _ := strings.Cut(line, ";")
		name, ver, ok := strings.Cut(strings.TrimSpace(body), "==")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(ver) == "" {
			return nil, zerr.With(zerr.With(zerr.Wrap(ErrInvalidManifest, "expected name==version"), "file", source), "line", lineNo)
		}
		if idx := strings.Index(name, "["); idx >= 0 {
			name = name[:idx]
		}
		pkgs = append(pkgs, PinnedPackage{Name: CanonicalName(name), Version: strings.TrimSpace(ver)})
		current = &pkgs[len(pkgs)-1]
	}
	if err := scanner.Err(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read manifest"), "file", source)
	}
	return NewManifest(source, pkgs), nil
}
