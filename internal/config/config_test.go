package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	yaml := `
server:
  addr: ":9090"
  read_timeout: 10s
database:
  dsn: ":memory:"
aliases:
  - name: llama3
    repo: meta/llama-3
    filename: llama3.gguf
    model_path: /models/llama3.gguf
api_aliases:
  - name: openai-gpt4o
    provider: openai
    base_url: https://api.openai.com/v1
    api_key: sk-test
    models: [gpt-4o]
`
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q, want %q", cfg.Server.Addr, ":9090")
	}
	if cfg.Database.DSN != ":memory:" {
		t.Errorf("dsn = %q, want %q", cfg.Database.DSN, ":memory:")
	}
	if len(cfg.Aliases) != 1 {
		t.Fatalf("aliases count = %d, want 1", len(cfg.Aliases))
	}
	if cfg.Aliases[0].Name != "llama3" {
		t.Errorf("alias name = %q, want %q", cfg.Aliases[0].Name, "llama3")
	}
	if len(cfg.APIAliases) != 1 {
		t.Fatalf("api_aliases count = %d, want 1", len(cfg.APIAliases))
	}
	if cfg.APIAliases[0].APIKey != "sk-test" {
		t.Errorf("api alias key = %q, want %q", cfg.APIAliases[0].APIKey, "sk-test")
	}
}

func TestExpandEnv(t *testing.T) {
	// Cannot use t.Parallel() with t.Setenv
	t.Setenv("TEST_API_KEY", "sk-secret-123")

	yaml := `api_aliases:
  - name: a
    api_key: ${TEST_API_KEY}
`
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(cfg.APIAliases) != 1 || cfg.APIAliases[0].APIKey != "sk-secret-123" {
		t.Fatalf("api alias key not expanded: %+v", cfg.APIAliases)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	yaml := `{}`
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr = %q, want %q", cfg.Server.Addr, ":8080")
	}
	if cfg.Database.DSN != "bodhi.db" {
		t.Errorf("default dsn = %q, want %q", cfg.Database.DSN, "bodhi.db")
	}
}
