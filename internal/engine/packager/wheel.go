package packager

import (
	"fmt"
	"os"
	"strings"

	"go.trai.ch/pyrig/internal/build"
	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/zerr"
)

func (p *Packager) distInfo(ver string) string {
	return domain.WheelDistName(p.project.Name) + "-" + ver + ".dist-info"
}

// writeWheel writes a py3-none-any wheel. RECORD is always the last entry.
func (p *Packager) writeWheel(path, ver string, reqs []string, app []entry) error {
	meta, err := p.metadata(ver, reqs)
	if err != nil {
		return err
	}
	info := p.distInfo(ver)

	entries := append([]entry(nil), app...)
	entries = append(entries,
		entry{name: info + "/METADATA", data: meta},
		entry{name: info + "/WHEEL", data: wheelFile()},
		entry{name: info + "/top_level.txt", data: []byte(topLevel(p.project.Package) + "\n")},
	)
	if eps := p.entryPoints(); len(eps) > 0 {
		entries = append(entries, entry{name: info + "/entry_points.txt", data: eps})
	}
	sortEntries(entries)
	entries = append(entries, entry{name: info + "/RECORD", data: record(info+"/RECORD", entries)})

	return writeZip(path, nil, entries)
}

func topLevel(pkg string) string {
	top, _, _ := strings.Cut(strings.ReplaceAll(pkg, "/", "."), ".")
	return top
}

// metadata renders the core metadata file.
func (p *Packager) metadata(ver string, reqs []string) ([]byte, error) {
	var b strings.Builder
	b.WriteString("Metadata-Version: 2.1\n")
	fmt.Fprintf(&b, "Name: %s\n", p.project.Name)
	fmt.Fprintf(&b, "Version: %s\n", ver)
	if p.project.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", p.project.Summary)
	}
	if p.project.URL != "" {
		fmt.Fprintf(&b, "Home-page: %s\n", p.project.URL)
	}
	if p.project.PythonRequires != "" {
		fmt.Fprintf(&b, "Requires-Python: %s\n", p.project.PythonRequires)
	}
	for _, req := range reqs {
		fmt.Fprintf(&b, "Requires-Dist: %s\n", req)
	}

	if p.project.Readme == "" {
		return []byte(b.String()), nil
	}
	readme, err := os.ReadFile(p.project.Path(p.project.Readme))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read readme"), "path", p.project.Readme)
	}
	b.WriteString("Description-Content-Type: text/markdown\n\n")
	b.Write(readme)
	return []byte(b.String()), nil
}

func wheelFile() []byte {
	return []byte("Wheel-Version: 1.0\n" +
		"Generator: pyrig (" + build.Version + ")\n" +
		"Root-Is-Purelib: true\n" +
		"Tag: py3-none-any\n")
}

func (p *Packager) entryPoints() []byte {
	scripts := p.project.ConsoleScripts()
	if len(scripts) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("[console_scripts]\n")
	for _, name := range scripts {
		fmt.Fprintf(&b, "%s = %s\n", name, p.project.EntryPoints[name])
	}
	return []byte(b.String())
}

// record renders RECORD for entries plus its own unhashed line.
func record(self string, entries []entry) []byte {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s,%s,%d\n", e.name, recordDigest(e.data), len(e.data))
	}
	b.WriteString(self + ",,\n")
	return []byte(b.String())
}
