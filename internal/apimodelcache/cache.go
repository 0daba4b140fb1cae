// Package apimodelcache implements the stale-while-revalidate cache of
// upstream model lists for API aliases.
package apimodelcache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	gateway "github.com/bodhi-gateway/core/internal"
)

// freshness is how long a cached model list is served without a
// background refresh.
const freshness = 24 * time.Hour

// Fetcher fetches the live model list for an API alias from its upstream
// {base_url}/models endpoint.
type Fetcher interface {
	FetchModels(ctx context.Context, alias gateway.Alias) ([]string, error)
}

type entry struct {
	models    []string
	fetchedAt time.Time
}

// Cache implements the stale-while-revalidate policy keyed by alias name.
// The entry map is guarded by an internal mutex; the background refresh
// goroutine never holds that lock across the network round-trip, only
// while installing its result.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	fetcher Fetcher
	group   singleflight.Group
}

// New returns an empty Cache backed by fetcher.
func New(fetcher Fetcher) *Cache {
	return &Cache{entries: make(map[string]entry), fetcher: fetcher}
}

// GetModels returns the model list for alias. A fresh cache entry is
// returned immediately. A stale entry is returned immediately too, with a
// background refresh spawned (fire-and-forget; at most one refresh per
// alias runs concurrently via singleflight). A miss fetches synchronously.
func (c *Cache) GetModels(ctx context.Context, alias gateway.Alias) ([]string, error) {
	c.mu.RLock()
	e, ok := c.entries[alias.Name]
	c.mu.RUnlock()

	if ok {
		if time.Since(e.fetchedAt) <= freshness {
			return e.models, nil
		}
		c.spawnRefresh(alias)
		return e.models, nil
	}

	models, err := c.fetchAndStore(ctx, alias)
	if err != nil {
		return nil, err
	}
	return models, nil
}

// Invalidate drops the cached entry for alias, e.g. on alias delete.
func (c *Cache) Invalidate(aliasName string) {
	c.mu.Lock()
	delete(c.entries, aliasName)
	c.mu.Unlock()
}

func (c *Cache) fetchAndStore(ctx context.Context, alias gateway.Alias) ([]string, error) {
	models, err := c.fetcher.FetchModels(ctx, alias)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[alias.Name] = entry{models: models, fetchedAt: time.Now()}
	c.mu.Unlock()
	return models, nil
}

// spawnRefresh runs a background refresh for alias. Request latency is
// never gated on it; failures are logged only, leaving stale data in place.
func (c *Cache) spawnRefresh(alias gateway.Alias) {
	go func() {
		_, _, _ = c.group.Do(alias.Name, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := c.fetchAndStore(ctx, alias); err != nil {
				slog.Warn("apimodelcache: background refresh failed", "alias", alias.Name, "error", err)
				return nil, err
			}
			return nil, nil
		})
	}()
}
