package index

import (
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"go.trai.ch/pyrig/internal/core/domain"
	"go.trai.ch/pyrig/internal/core/ports"
)

// CacheDir is the directory below the project state directory that holds index metadata.
const CacheDir = "index"

var _ ports.IndexFactory = (*Factory)(nil)

// Factory opens the indexes a project refers to and reuses them per location.
type Factory struct {
	project *domain.Project
	client  *http.Client

	mu      sync.Mutex
	indexes map[string]ports.PackageIndex
}

// NewFactory creates a Factory for project. A nil client selects a default HTTP client.
func NewFactory(project *domain.Project, client *http.Client) *Factory {
	if client == nil {
		client = &http.Client{Timeout: httpClientTimeout}
	}
	return &Factory{
		project: project,
		client:  client,
		indexes: make(map[string]ports.PackageIndex),
	}
}

// Open returns the index at location. Locations ending in .yaml or .yml are static
// index files relative to the project root; anything else is a JSON API base URL.
// A pip style ".../simple" URL is mapped to its JSON API base.
// An empty location selects the configured index.
func (f *Factory) Open(location string) (ports.PackageIndex, error) {
	if location == "" {
		location = f.project.Index.Static
		if location == "" {
			location = f.project.Index.URL
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if idx, ok := f.indexes[location]; ok {
		return idx, nil
	}

	var idx ports.PackageIndex
	if isStatic(location) {
		static, err := LoadStatic(f.project.Path(location))
		if err != nil {
			return nil, err
		}
		idx = static
	} else {
		base := strings.TrimSuffix(strings.TrimSuffix(location, "/"), "/simple")
		cacheDir := filepath.Join(f.project.Path(f.project.Layout.State), CacheDir)
		idx = NewPyPIWithClient(base, cacheDir, f.client)
	}

	f.indexes[location] = idx
	return idx, nil
}

func isStatic(location string) bool {
	if strings.Contains(location, "://") {
		return false
	}
	ext := filepath.Ext(location)
	return ext == ".yaml" || ext == ".yml"
}
