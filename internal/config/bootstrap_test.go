package config

import (
	"context"
	"testing"

	gateway "github.com/bodhi-gateway/core/internal"
	"github.com/bodhi-gateway/core/internal/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	path := t.TempDir() + "/test.db"
	s, err := sqlite.New(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBootstrap(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	cfg := &Config{
		Auth: AuthConfig{EncryptionSecret: "test-secret"},
		Aliases: []AliasEntry{
			{Name: "llama3", Repo: "meta/llama-3", Filename: "llama3.gguf", ModelPath: "/models/llama3.gguf"},
		},
		APIAliases: []APIAliasEntry{
			{Name: "openai-gpt4o", Provider: "openai", BaseURL: "https://api.openai.com/v1", APIKey: "sk-test", Models: []string{"gpt-4o"}},
		},
	}

	// First call seeds everything.
	if err := Bootstrap(ctx, cfg, store); err != nil {
		t.Fatal("bootstrap:", err)
	}

	a, err := store.GetAlias(ctx, "llama3")
	if err != nil {
		t.Fatal("get alias:", err)
	}
	if a.Source != gateway.AliasUser {
		t.Errorf("alias source = %q, want %q", a.Source, gateway.AliasUser)
	}

	api, err := store.GetApiAlias(ctx, "openai-gpt4o")
	if err != nil {
		t.Fatal("get api alias:", err)
	}
	if api.Provider != "openai" {
		t.Errorf("api alias provider = %q, want %q", api.Provider, "openai")
	}
	if len(api.APIKeyEnc) == 0 {
		t.Error("api alias key was not encrypted")
	}

	// Second call is idempotent -- no errors, no duplicates.
	if err := Bootstrap(ctx, cfg, store); err != nil {
		t.Fatal("idempotent bootstrap:", err)
	}

	aliases, err := store.ListAliases(ctx, gateway.AliasUser)
	if err != nil {
		t.Fatal("list aliases:", err)
	}
	if len(aliases) != 1 {
		t.Errorf("alias count after second bootstrap = %d, want 1", len(aliases))
	}

	apiAliases, err := store.ListApiAliases(ctx)
	if err != nil {
		t.Fatal("list api aliases:", err)
	}
	if len(apiAliases) != 1 {
		t.Errorf("api alias count after second bootstrap = %d, want 1", len(apiAliases))
	}
}

func TestBootstrapSkipsEmptyAPIKey(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	cfg := &Config{
		APIAliases: []APIAliasEntry{
			{Name: "no-key", Provider: "custom", BaseURL: "https://example.com/v1"},
		},
	}

	if err := Bootstrap(ctx, cfg, store); err != nil {
		t.Fatal("bootstrap:", err)
	}

	a, err := store.GetApiAlias(ctx, "no-key")
	if err != nil {
		t.Fatal("get api alias:", err)
	}
	if len(a.APIKeyEnc) != 0 {
		t.Errorf("api key enc = %q, want empty (no key supplied)", a.APIKeyEnc)
	}
}
