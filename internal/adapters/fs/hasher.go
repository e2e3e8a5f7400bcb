package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher fingerprints requirement specs and generated manifests.
type Hasher struct {
	walker   ports.Walker
	resolver *Resolver
}

// NewHasher creates a new Hasher.
func NewHasher(walker ports.Walker, resolver *Resolver) *Hasher {
	return &Hasher{walker: walker, resolver: resolver}
}

// ComputeFileHash computes the XXHash of a file's content as a hex string.
func (h *Hasher) ComputeFileHash(path string) (string, error) {
	sum, err := h.fileSum(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", sum), nil
}

func (h *Hasher) fileSum(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return hasher.Sum64(), nil
}

// ComputeInputHash computes a single hash over the salt values followed by the
// given files. Files may be globs or directories and are resolved relative to root.
// A file that does not exist is an error.
func (h *Hasher) ComputeInputHash(files, salt []string, root string) (string, error) {
	hasher := xxhash.New()

	for _, s := range salt {
		_, _ = hasher.WriteString(s)
		_, _ = hasher.Write([]byte{0})
	}
	_, _ = hasher.Write([]byte{0}) // Section separator

	for _, input := range files {
		if err := h.hashInput(input, root, hasher); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

func (h *Hasher) hashInput(input, root string, hasher io.Writer) error {
	path := input
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, input)
	}

	if _, err := os.Stat(path); err == nil {
		return h.hashPath(path, root, hasher)
	}

	matches, err := h.resolver.Resolve([]string{input}, root)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return zerr.With(zerr.New("input not found"), "path", path)
	}
	for _, match := range matches {
		if err := h.hashPath(match, root, hasher); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hasher) hashPath(path, root string, mainHasher io.Writer) error {
	info, err := os.Stat(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to stat path"), "path", path)
	}

	if !info.IsDir() {
		return h.hashFile(path, root, mainHasher)
	}
	for filePath, err := range h.walker.WalkFiles(path, DefaultIgnores) {
		if err != nil {
			return err
		}
		if err := h.hashFile(filePath, root, mainHasher); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hasher) hashFile(path, root string, mainHasher io.Writer) error {
	// Relative paths keep the fingerprint stable when the checkout moves.
	name := path
	if rel, err := filepath.Rel(root, path); err == nil {
		name = filepath.ToSlash(rel)
	}
	_, _ = mainHasher.Write([]byte(name))
	_, _ = mainHasher.Write([]byte{0})

	sum, err := h.fileSum(path)
	if err != nil {
		return err
	}

	if err := binary.Write(mainHasher, binary.LittleEndian, sum); err != nil {
		return zerr.Wrap(err, "failed to write hash to digest")
	}
	return nil
}
