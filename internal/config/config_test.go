package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("default backend: got %q", cfg.Storage.Backend)
	}
	if cfg.Chunking.TokensPerChunk != 1000 || cfg.Chunking.LineSeparator != "\n" {
		t.Errorf("default chunking: %+v", cfg.Chunking)
	}
	if cfg.Matcher.MaxQueryTokens != 8000 || cfg.Matcher.MaxTotalTokens != 8000 {
		t.Errorf("default matcher budgets: %+v", cfg.Matcher)
	}
	if cfg.Embedder.Model != "text-embedding-3-small" {
		t.Errorf("default embedder model: %q", cfg.Embedder.Model)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docgrep.yaml")
	content := `
storage:
  backend: sqlite
  data_dir: /tmp/docgrep-test
  qdrant:
    host: qdrant.internal
matcher:
  max_total_tokens: 4000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.DataDir != "/tmp/docgrep-test" {
		t.Errorf("storage: %+v", cfg.Storage)
	}
	if cfg.Storage.Qdrant == nil || cfg.Storage.Qdrant.Host != "qdrant.internal" {
		t.Fatalf("qdrant: %+v", cfg.Storage.Qdrant)
	}
	// Unset qdrant fields still get their defaults.
	if cfg.Storage.Qdrant.Port != 6334 || cfg.Storage.Qdrant.Collection != "embeddings" {
		t.Errorf("qdrant defaults: %+v", cfg.Storage.Qdrant)
	}
	if cfg.Matcher.MaxTotalTokens != 4000 {
		t.Errorf("max_total_tokens: got %d", cfg.Matcher.MaxTotalTokens)
	}
	if cfg.Matcher.MaxQueryTokens != 8000 {
		t.Errorf("unset max_query_tokens should default: got %d", cfg.Matcher.MaxQueryTokens)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("storage: ["), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
