package packager

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

type entry struct {
	name string
	data []byte
}

// epoch is the timestamp written for every archive entry.
// SOURCE_DATE_EPOCH overrides it; zip cannot encode anything before 1980.
func epoch() time.Time {
	floor := time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)
	raw := os.Getenv("SOURCE_DATE_EPOCH")
	if raw == "" {
		return floor
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return floor
	}
	t := time.Unix(secs, 0).UTC()
	if t.Before(floor) {
		return floor
	}
	return t
}

func sortEntries(entries []entry) {
	slices.SortStableFunc(entries, func(a, b entry) int { return strings.Compare(a.name, b.name) })
}

// writeZip writes entries in the given order. prefix is emitted before the
// archive and accounted for in the central directory offsets.
func writeZip(path string, prefix []byte, entries []entry) error {
	//nolint:gosec // path is a temp file created by the packager
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create archive"), "path", path)
	}
	if err := writeArchive(f, prefix, entries); err != nil {
		_ = f.Close()
		return zerr.With(err, "path", path)
	}
	if err := f.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to close archive"), "path", path)
	}
	return nil
}

func writeArchive(w io.Writer, prefix []byte, entries []entry) error {
	if len(prefix) > 0 {
		if _, err := w.Write(prefix); err != nil {
			return zerr.Wrap(err, "failed to write archive prefix")
		}
	}
	zw := zip.NewWriter(w)
	zw.SetOffset(int64(len(prefix)))

	modified := epoch()
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: modified}
		hdr.SetMode(0o644)
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to add archive entry"), "entry", e.name)
		}
		if _, err := fw.Write(e.data); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to write archive entry"), "entry", e.name)
		}
	}
	if err := zw.Close(); err != nil {
		return zerr.Wrap(err, "failed to finish archive")
	}
	return nil
}

// recordDigest renders a RECORD hash field.
func recordDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256=" + base64.RawURLEncoding.EncodeToString(sum[:])
}

// readZip returns the regular file entries of a zip archive.
func readZip(path string) ([]entry, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open archive"), "path", path)
	}
	defer func() { _ = zr.Close() }()

	var out []entry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to open archive entry"), "entry", f.Name)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to read archive entry"), "entry", f.Name)
		}
		out = append(out, entry{name: f.Name, data: data})
	}
	return out, nil
}
