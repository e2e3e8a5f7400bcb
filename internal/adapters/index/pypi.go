// Package index implements the PackageIndex port against the PyPI JSON API and static YAML files.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
	"go.trai.ch/zerr"
)

const httpClientTimeout = 30 * time.Second

var _ ports.PackageIndex = (*PyPI)(nil)

type projectResponse struct {
	Info     projectInfo                `json:"info"`
	Releases map[string][]distribution `json:"releases"`
}

type projectInfo struct {
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	RequiresPython string   `json:"requires_python"`
	RequiresDist   []string `json:"requires_dist"`
	Yanked         bool     `json:"yanked"`
}

type distribution struct {
	Filename       string `json:"filename"`
	PackageType    string `json:"packagetype"`
	RequiresPython string `json:"requires_python"`
	Yanked         bool   `json:"yanked"`
}

// cacheEntry is the on-disk form of a release's dependency metadata.
// Published metadata never changes, so entries do not expire.
type cacheEntry struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	RequiresDist []string  `json:"requires_dist"`
	Timestamp    time.Time `json:"timestamp"`
}

// PyPI implements ports.PackageIndex using the PyPI JSON API.
// Release lists are memoized for the lifetime of the value. Per-release
// dependency metadata is also cached on disk below cacheDir.
type PyPI struct {
	baseURL    string
	cacheDir   string
	httpClient *http.Client

	mu       sync.Mutex
	releases map[string][]domain.Release
}

// NewPyPI creates a client for the JSON API rooted at baseURL.
// An empty cacheDir disables the disk cache.
func NewPyPI(baseURL, cacheDir string) *PyPI {
	return NewPyPIWithClient(baseURL, cacheDir, &http.Client{Timeout: httpClientTimeout})
}

// NewPyPIWithClient creates a client that sends requests through client.
func NewPyPIWithClient(baseURL, cacheDir string, client *http.Client) *PyPI {
	if cacheDir != "" {
		cacheDir = filepath.Clean(cacheDir)
	}
	return &PyPI{
		baseURL:    baseURL,
		cacheDir:   cacheDir,
		httpClient: client,
		releases:   make(map[string][]domain.Release),
	}
}

// Releases lists every release that has at least one distribution file.
// A release is yanked only when all of its files are.
func (p *PyPI) Releases(ctx context.Context, name string) ([]domain.Release, error) {
	name = domain.CanonicalName(name)

	p.mu.Lock()
	cached, ok := p.releases[name]
	p.mu.Unlock()
	if ok {
		return cached, nil
	}

	resp, err := p.fetch(ctx, name, "/pypi/"+url.PathEscape(name)+"/json")
	if err != nil {
		return nil, err
	}

	out := make([]domain.Release, 0, len(resp.Releases))
	for v, files := range resp.Releases {
		if len(files) == 0 {
			continue
		}
		rel := domain.Release{Version: v, Yanked: true}
		for _, f := range files {
			if !f.Yanked {
				rel.Yanked = false
			}
			if rel.RequiresPython == "" {
				rel.RequiresPython = f.RequiresPython
			}
		}
		out = append(out, rel)
	}

	p.mu.Lock()
	p.releases[name] = out
	p.mu.Unlock()
	return out, nil
}

// Dependencies returns the requires_dist entries of one release.
func (p *PyPI) Dependencies(ctx context.Context, name, version string) ([]domain.Requirement, error) {
	name = domain.CanonicalName(name)
	cachePath := p.cachePath(name, version)

	entry, err := p.loadFromCache(cachePath)
	if err != nil {
		resp, fetchErr := p.fetch(ctx, name, "/pypi/"+url.PathEscape(name)+"/"+url.PathEscape(version)+"/json")
		if fetchErr != nil {
			return nil, zerr.With(fetchErr, "version", version)
		}
		entry = &cacheEntry{
			Name:         name,
			Version:      version,
			RequiresDist: resp.Info.RequiresDist,
			Timestamp:    time.Now(),
		}
		// A failed cache write only costs a refetch next time.
		_ = p.saveToCache(cachePath, entry)
	}

	return parseRequiresDist(name, version, entry.RequiresDist)
}

func parseRequiresDist(name, version string, lines []string) ([]domain.Requirement, error) {
	reqs := make([]domain.Requirement, 0, len(lines))
	for _, line := range lines {
		req, err := domain.ParseRequirement(line)
		if err != nil {
			return nil, zerr.With(zerr.With(err, "package", name), "version", version)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func (p *PyPI) fetch(ctx context.Context, name, path string) (*projectResponse, error) {
	endpoint := p.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrIndexUnavailable, err.Error()), "url", endpoint)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrIndexUnavailable, err.Error()), "url", endpoint)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close in defer

	if resp.StatusCode == http.StatusNotFound {
		return nil, zerr.With(zerr.Wrap(domain.ErrPackageNotFound, "no such project"), "package", name)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := zerr.With(zerr.Wrap(domain.ErrIndexUnavailable, "unexpected status"), "status_code", resp.StatusCode)
		return nil, zerr.With(apiErr, "url", endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrIndexUnavailable, err.Error()), "url", endpoint)
	}

	var out projectResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrIndexUnavailable, "malformed response"), "url", endpoint)
	}
	return &out, nil
}

// cachePath returns the file path for a release's metadata, or "" when caching is off.
func (p *PyPI) cachePath(name, version string) string {
	if p.cacheDir == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(p.baseURL + "\x00" + name + "@" + version))
	return filepath.Join(p.cacheDir, hex.EncodeToString(sum[:])+".json")
}

func (p *PyPI) loadFromCache(path string) (*cacheEntry, error) {
	if path == "" {
		return nil, fs.ErrNotExist
	}
	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, zerr.Wrap(err, "failed to unmarshal index cache entry")
	}
	return &entry, nil
}

func (p *PyPI) saveToCache(path string, entry *cacheEntry) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal index cache entry")
	}
	return atomicWriteFile(path, data)
}

// atomicWriteFile writes data to a file atomically by writing to a temp file and renaming it.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, "index-cache-*.json")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()

	// Clean up temp file on error
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	return nil
}
