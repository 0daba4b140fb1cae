// Package modelrouter resolves a model name string to a routing
// destination: a local alias served by the shared inference context, or a
// remote alias served by an upstream API.
package modelrouter

import (
	"context"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"

	gateway "github.com/bodhi-gateway/core/internal"
	"github.com/bodhi-gateway/core/internal/storage"
)

// resolveCacheTTL is how long a resolved Alias stays cached before the
// store is consulted again. Short enough to pick up alias edits quickly,
// long enough to eliminate per-request store round trips on the hot path.
const resolveCacheTTL = 10 * time.Second

// Router resolves model names to aliases with User > Model > API priority.
// Resolution is otherwise read-only: it never mutates alias state.
type Router struct {
	aliases    storage.AliasStore
	apiAliases storage.ApiAliasStore
	cache      *otter.Cache[string, gateway.Alias]
}

// New returns a Router backed by the given alias stores.
func New(aliases storage.AliasStore, apiAliases storage.ApiAliasStore) *Router {
	cache := otter.Must(&otter.Options[string, gateway.Alias]{
		MaximumSize:      1024,
		ExpiryCalculator: otter.ExpiryWriting[string, gateway.Alias](resolveCacheTTL),
	})
	return &Router{aliases: aliases, apiAliases: apiAliases, cache: cache}
}

// Route resolves model to an Alias, checking in priority order: user alias,
// model alias, then remote API alias. The AliasStore itself is responsible
// for the User-before-Model ordering when both exist under the same name
// (it is the single source of truth for local aliases); Route adds the
// third, lowest-priority tier by falling back to the remote API store.
// Returns gateway.ErrAliasNotFound if nothing matches.
func (r *Router) Route(ctx context.Context, model string) (gateway.Alias, error) {
	if cached, ok := r.cache.GetIfPresent(model); ok {
		return cached, nil
	}

	if alias, err := r.aliases.GetAlias(ctx, model); err == nil {
		r.cache.Set(model, *alias)
		return *alias, nil
	}

	if apiAlias, err := r.apiAliases.FindApiAliasForModel(ctx, model); err == nil {
		r.cache.Set(model, *apiAlias)
		return *apiAlias, nil
	}

	return gateway.Alias{}, fmt.Errorf("route %q: %w", model, gateway.ErrAliasNotFound)
}

// Invalidate drops model from the resolution cache. Call after any alias
// create/update/delete so the next request re-reads the store.
func (r *Router) Invalidate(model string) { r.cache.Invalidate(model) }

// ListLocal returns every stored alias of the given local source kind
// (AliasUser or AliasModel), for model-listing endpoints.
func (r *Router) ListLocal(ctx context.Context, source gateway.AliasSource) ([]*gateway.Alias, error) {
	return r.aliases.ListAliases(ctx, source)
}

// ListRemote returns every stored remote (AliasAPI) alias.
func (r *Router) ListRemote(ctx context.Context) ([]*gateway.Alias, error) {
	return r.apiAliases.ListApiAliases(ctx)
}
