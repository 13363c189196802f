package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/agentdeck/agentdeck/pkg/logger"
)

const cacheFileName = "skill-catalog.json"

// DefaultCachePath returns the catalog cache location under the user config
// directory.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".agentdeck", cacheFileName)
	}
	return filepath.Join(home, ".agentdeck", cacheFileName)
}

func (f *Fetcher) saveCache(catalog *Catalog) error {
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize catalog")
	}
	if err := os.MkdirAll(filepath.Dir(f.cachePath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create cache directory")
	}
	return os.WriteFile(f.cachePath, append(data, '\n'), 0o644)
}

// LoadCached returns the cached catalog if it exists, parses, and is younger
// than ttl. Missing, corrupt, or stale caches yield nil without error.
func (f *Fetcher) LoadCached(ctx context.Context, ttl time.Duration) *Catalog {
	data, err := os.ReadFile(f.cachePath)
	if err != nil {
		return nil
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		logger.G(ctx).WithError(err).WithField("path", f.cachePath).Debug("ignoring corrupt catalog cache")
		return nil
	}

	if time.Since(catalog.LastFetched) > ttl {
		return nil
	}
	return &catalog
}

// Get returns the cached catalog when it is fresh and refresh is not forced,
// else fetches from the repository (refreshing the cache as a side effect).
func (f *Fetcher) Get(ctx context.Context, forceRefresh bool, repoURL string, ttl time.Duration) (*Catalog, error) {
	if !forceRefresh {
		if cached := f.LoadCached(ctx, ttl); cached != nil {
			return cached, nil
		}
	}
	return f.Fetch(ctx, repoURL)
}
