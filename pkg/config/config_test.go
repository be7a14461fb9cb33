package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Listen != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Listen)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("expected 1h TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.Retrieval.TopK != 8 {
		t.Errorf("expected top_k 8, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("expected 1536 dimensions, got %d", cfg.Embedding.Dimensions)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-test-123")

	content := `
listen: ":9090"
db_path: "test.db"
llm:
  api_key: ${TEST_API_KEY}
  model: gpt-4o
  fallback_models: [gpt-4o-mini]
cache:
  enabled: true
  provider: redis
  ttl: 30m
  redis:
    url: redis://localhost:6379/0
content_store:
  provider: memory
retrieval:
  top_k: 4
`
	dir := t.TempDir()
	path := filepath.Join(dir, "folio.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.Listen)
	}
	if cfg.LLM.APIKey != "sk-test-123" {
		t.Errorf("env var not expanded: got %s", cfg.LLM.APIKey)
	}
	if cfg.Embedding.APIKey != "sk-test-123" {
		t.Errorf("embedding key should default to llm key, got %q", cfg.Embedding.APIKey)
	}
	if cfg.LLM.RewriteModel != "gpt-4o" {
		t.Errorf("rewrite model should default to llm model, got %q", cfg.LLM.RewriteModel)
	}
	if cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("expected 30m TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.Retrieval.TopK != 4 {
		t.Errorf("expected top_k 4, got %d", cfg.Retrieval.TopK)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("expected default embedding model, got %s", cfg.Embedding.Model)
	}
	if len(cfg.LLM.FallbackModels) != 1 || cfg.LLM.FallbackModels[0] != "gpt-4o-mini" {
		t.Errorf("unexpected fallback models: %v", cfg.LLM.FallbackModels)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/folio.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadOrDefaultMissing(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("expected key from OPENAI_API_KEY, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.local")
	if err := os.WriteFile(envPath, []byte("FOLIO_TEST_DOTENV=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("FOLIO_TEST_DOTENV") })

	if err := LoadEnv(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("FOLIO_TEST_DOTENV"); got != "from-file" {
		t.Errorf("expected from-file, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad cache provider", func(c *Config) { c.Cache.Provider = "memcached" }, "cache.provider"},
		{"redis without address", func(c *Config) { c.Cache.Provider = "redis" }, "cache.redis"},
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }, "retrieval.top_k"},
		{"overlap too large", func(c *Config) { c.Ingest.ChunkOverlap = 1000 }, "ingest.chunk_overlap"},
		{"milvus without address", func(c *Config) { c.ContentStore.Provider = "milvus" }, "content_store.milvus.address"},
		{"bad temperature", func(c *Config) { c.LLM.Temperature = 3 }, "llm.temperature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.field, verrs)
			}
		})
	}
}

func TestValidateCacheDisabled(t *testing.T) {
	cfg := Default()
	cfg.Cache.Enabled = false
	cfg.Cache.Provider = "bogus"
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled cache should skip provider checks: %v", err)
	}
}
