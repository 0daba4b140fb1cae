package modelcache

import (
	"os"
	"path/filepath"
	"testing"

	gateway "github.com/bodhi-gateway/core/internal"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanFindsSnapshotFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "models--meta--llama-3", "snapshots", "abc123", "llama-3-8b.gguf"))
	writeFile(t, filepath.Join(root, "models--meta--llama-3", "snapshots", "abc123", "README.md")) // ignored, not .gguf

	entries, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1: %+v", len(entries), entries)
	}
	e := entries[0]
	if e.Repo != "meta/llama-3" {
		t.Errorf("repo = %q, want %q", e.Repo, "meta/llama-3")
	}
	if e.Filename != "llama-3-8b.gguf" {
		t.Errorf("filename = %q, want %q", e.Filename, "llama-3-8b.gguf")
	}
	if e.Commit != "abc123" {
		t.Errorf("commit = %q, want %q", e.Commit, "abc123")
	}
	if e.ModelID() != "meta/llama-3:llama-3-8b.gguf" {
		t.Errorf("model id = %q", e.ModelID())
	}
}

func TestScanMissingRootReturnsEmpty(t *testing.T) {
	entries, err := Scan(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestToAliases(t *testing.T) {
	entries := []Entry{{Repo: "meta/llama-3", Filename: "llama-3-8b.gguf", Path: "/cache/x.gguf"}}
	aliases := ToAliases(entries)
	if len(aliases) != 1 {
		t.Fatalf("aliases = %d, want 1", len(aliases))
	}
	a := aliases[0]
	if a.Source != gateway.AliasModel {
		t.Errorf("source = %q, want %q", a.Source, gateway.AliasModel)
	}
	if a.Name != "meta/llama-3:llama-3-8b.gguf" {
		t.Errorf("name = %q", a.Name)
	}
}
