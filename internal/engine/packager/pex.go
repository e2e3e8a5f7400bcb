package packager

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/pyrig/internal/build"
	"go.trai.ch/zerr"
)

const pexShebang = "#!/usr/bin/env python3\n"

// pexBootstrap extracts the bundled dependencies once into a content-addressed
// cache below PEX_ROOT, puts them on sys.path and runs the entry point.
// Extension modules cannot be imported from inside a zip, hence the extraction.
// With PEX_INTERPRETER set the archive behaves like the interpreter instead.
const pexBootstrap = `import json
import os
import runpy
import shutil
import sys
import tempfile
import zipfile

__archive = os.path.dirname(os.path.abspath(__file__))
with zipfile.ZipFile(__archive) as __zf:
    __info = json.loads(__zf.read("PEX-INFO").decode("utf-8"))
    __root = os.path.join(os.path.expanduser(os.environ.get("PEX_ROOT") or "~/.pex"), "deps")
    __cache = os.path.join(__root, __info["deps_hash"])
    if __info["deps"] and not os.path.isdir(__cache):
        os.makedirs(__root, exist_ok=True)
        __tmp = tempfile.mkdtemp(prefix=".tmp-", dir=__root)
        try:
            for __member in __zf.namelist():
                if __member.startswith(".deps/") and not __member.endswith("/"):
                    __zf.extract(__member, __tmp)
            os.rename(os.path.join(__tmp, ".deps"), __cache)
        except OSError:
            if not os.path.isdir(__cache):
                raise
        finally:
            shutil.rmtree(__tmp, ignore_errors=True)
for __dep in reversed(__info["deps"]):
    sys.path.insert(1, os.path.join(__cache, __dep))

if os.environ.get("PEX_INTERPRETER"):
    __args = sys.argv[1:]
    if len(__args) > 1 and __args[0] == "-c":
        sys.argv = ["-c"] + __args[2:]
        exec(compile(__args[1], "<string>", "exec"), {"__name__": "__main__"})
    elif __args:
        sys.argv = __args
        runpy.run_path(__args[0], run_name="__main__")
    else:
        import code
        code.interact()
    sys.exit(0)

__entry = os.environ.get("PEX_MODULE") or __info.get("entry_point") or ""
if ":" in __entry:
    __module, _, __func = __entry.partition(":")
    __target = __import__(__module, fromlist=[__func])
    for __attr in __func.split("."):
        __target = getattr(__target, __attr)
    sys.exit(__target())
runpy.run_module(__entry or __info["package"], run_name="__main__", alter_sys=True)
`

// pexInfo is the PEX-INFO document of a zipapp.
type pexInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Package      string   `json:"package"`
	EntryPoint   string   `json:"entry_point,omitempty"`
	Requirements []string `json:"requirements"`
	Deps         []string `json:"deps"`
	DepsHash     string   `json:"deps_hash"`
	BuiltBy      string   `json:"built_by"`
}

// writePex writes a zipapp with the application package at the root and every
// dependency wheel unpacked below .deps/.
func (p *Packager) writePex(ctx context.Context, path, ver string, reqs []string, app []entry) error {
	manifest, err := p.prodManifest()
	if err != nil {
		return err
	}
	if manifest == nil {
		return zerr.With(zerr.New("pex requires a locked prod manifest, run compile first"), "manifest", p.project.ProdManifest())
	}

	scratch := filepath.Join(p.project.Path(p.project.Layout.Build), "pex-deps")
	if err := os.RemoveAll(scratch); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to clear scratch directory"), "path", scratch)
	}
	if err := os.MkdirAll(scratch, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create scratch directory"), "path", scratch)
	}
	if err := p.env.Download(ctx, manifest.Packages, scratch); err != nil {
		return err
	}

	wheels, err := filepath.Glob(filepath.Join(scratch, "*.whl"))
	if err != nil {
		return zerr.Wrap(err, "failed to list downloaded wheels")
	}
	slices.Sort(wheels)

	entries := append([]entry(nil), app...)
	deps := make([]string, 0, len(wheels))
	digester := digest.Canonical.Digester()
	for _, whl := range wheels {
		name := filepath.Base(whl)
		files, err := readZip(whl)
		if err != nil {
			return err
		}
		sortEntries(files)
		for _, f := range files {
			e := entry{name: ".deps/" + name + "/" + f.name, data: f.data}
			_, _ = digester.Hash().Write([]byte(e.name + "\x00"))
			_, _ = digester.Hash().Write([]byte(recordDigest(e.data) + "\x00"))
			entries = append(entries, e)
		}
		deps = append(deps, name)
	}

	info, err := json.MarshalIndent(pexInfo{
		Name:         p.project.Name,
		Version:      ver,
		Package:      strings.ReplaceAll(p.project.Package, "/", "."),
		EntryPoint:   p.project.PexEntryPoint,
		Requirements: reqs,
		Deps:         deps,
		DepsHash:     digester.Digest().Encoded(),
		BuiltBy:      "pyrig " + build.Version,
	}, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to encode PEX-INFO")
	}

	entries = append(entries,
		entry{name: "__main__.py", data: []byte(pexBootstrap)},
		entry{name: "PEX-INFO", data: append(info, '\n')},
	)
	sortEntries(entries)
	return writeZip(path, []byte(pexShebang), entries)
}
