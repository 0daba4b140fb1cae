package modelrouter

import (
	"context"
	"errors"
	"testing"

	gateway "github.com/bodhi-gateway/core/internal"
)

type fakeAliasStore struct {
	byName map[string]*gateway.Alias
}

func (f *fakeAliasStore) CreateAlias(context.Context, *gateway.Alias) error { return nil }
func (f *fakeAliasStore) GetAlias(ctx context.Context, name string) (*gateway.Alias, error) {
	if a, ok := f.byName[name]; ok {
		return a, nil
	}
	return nil, gateway.ErrAliasNotFound
}
func (f *fakeAliasStore) ListAliases(context.Context, gateway.AliasSource) ([]*gateway.Alias, error) {
	return nil, nil
}
func (f *fakeAliasStore) UpdateAlias(context.Context, *gateway.Alias) error { return nil }
func (f *fakeAliasStore) DeleteAlias(context.Context, string) error        { return nil }

type fakeApiAliasStore struct {
	byName map[string]*gateway.Alias
}

func (f *fakeApiAliasStore) CreateApiAlias(context.Context, *gateway.Alias) error { return nil }
func (f *fakeApiAliasStore) GetApiAlias(ctx context.Context, name string) (*gateway.Alias, error) {
	if a, ok := f.byName[name]; ok {
		return a, nil
	}
	return nil, gateway.ErrAliasNotFound
}
func (f *fakeApiAliasStore) FindApiAliasForModel(ctx context.Context, modelID string) (*gateway.Alias, error) {
	if a, ok := f.byName[modelID]; ok {
		return a, nil
	}
	for _, a := range f.byName {
		if a.MatchesModel(modelID) {
			return a, nil
		}
	}
	return nil, gateway.ErrAliasNotFound
}
func (f *fakeApiAliasStore) ListApiAliases(context.Context) ([]*gateway.Alias, error) { return nil, nil }
func (f *fakeApiAliasStore) UpdateApiAlias(context.Context, *gateway.Alias) error      { return nil }
func (f *fakeApiAliasStore) DeleteApiAlias(context.Context, string) error             { return nil }

func TestRouteUserAliasFirstPriority(t *testing.T) {
	t.Parallel()
	aliases := &fakeAliasStore{byName: map[string]*gateway.Alias{
		"llama3": {Name: "llama3", Source: gateway.AliasUser},
	}}
	apiAliases := &fakeApiAliasStore{byName: map[string]*gateway.Alias{}}
	r := New(aliases, apiAliases)

	got, err := r.Route(context.Background(), "llama3")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if got.Source != gateway.AliasUser {
		t.Errorf("Source = %v, want AliasUser", got.Source)
	}
}

func TestRouteModelAliasSecondPriority(t *testing.T) {
	t.Parallel()
	aliases := &fakeAliasStore{byName: map[string]*gateway.Alias{
		"llama3": {Name: "llama3", Source: gateway.AliasModel},
	}}
	apiAliases := &fakeApiAliasStore{byName: map[string]*gateway.Alias{
		"llama3": {Name: "llama3", Source: gateway.AliasAPI},
	}}
	r := New(aliases, apiAliases)

	got, err := r.Route(context.Background(), "llama3")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if got.Source != gateway.AliasModel {
		t.Errorf("Source = %v, want AliasModel (local must win over remote)", got.Source)
	}
}

func TestRouteAPIAliasThirdPriority(t *testing.T) {
	t.Parallel()
	aliases := &fakeAliasStore{byName: map[string]*gateway.Alias{}}
	apiAliases := &fakeApiAliasStore{byName: map[string]*gateway.Alias{
		"gpt-4": {Name: "gpt-4", Source: gateway.AliasAPI, Provider: "openai"},
	}}
	r := New(aliases, apiAliases)

	got, err := r.Route(context.Background(), "gpt-4")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if got.Source != gateway.AliasAPI || got.Provider != "openai" {
		t.Errorf("got %+v, want AliasAPI/openai", got)
	}
}

func TestRouteNotFound(t *testing.T) {
	t.Parallel()
	r := New(&fakeAliasStore{byName: map[string]*gateway.Alias{}}, &fakeApiAliasStore{byName: map[string]*gateway.Alias{}})

	_, err := r.Route(context.Background(), "unknown-model")
	if !errors.Is(err, gateway.ErrAliasNotFound) {
		t.Errorf("Route() error = %v, want ErrAliasNotFound", err)
	}
}

func TestRouteCachesResolution(t *testing.T) {
	t.Parallel()
	aliases := &fakeAliasStore{byName: map[string]*gateway.Alias{
		"llama3": {Name: "llama3", Source: gateway.AliasUser},
	}}
	r := New(aliases, &fakeApiAliasStore{byName: map[string]*gateway.Alias{}})

	if _, err := r.Route(context.Background(), "llama3"); err != nil {
		t.Fatal(err)
	}
	// Remove from the store entirely; a cached result should still resolve.
	delete(aliases.byName, "llama3")
	got, err := r.Route(context.Background(), "llama3")
	if err != nil {
		t.Fatalf("expected cached hit, got error: %v", err)
	}
	if got.Name != "llama3" {
		t.Errorf("got %+v", got)
	}
}

func TestInvalidateDropsCache(t *testing.T) {
	t.Parallel()
	aliases := &fakeAliasStore{byName: map[string]*gateway.Alias{
		"llama3": {Name: "llama3", Source: gateway.AliasUser},
	}}
	r := New(aliases, &fakeApiAliasStore{byName: map[string]*gateway.Alias{}})

	if _, err := r.Route(context.Background(), "llama3"); err != nil {
		t.Fatal(err)
	}
	delete(aliases.byName, "llama3")
	r.Invalidate("llama3")

	_, err := r.Route(context.Background(), "llama3")
	if !errors.Is(err, gateway.ErrAliasNotFound) {
		t.Errorf("expected ErrAliasNotFound after invalidate, got %v", err)
	}
}
