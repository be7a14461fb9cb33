package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pario-ai/folio/pkg/cache/memory"
	cachesqlite "github.com/pario-ai/folio/pkg/cache/sqlite"
	"github.com/pario-ai/folio/pkg/config"
	"github.com/pario-ai/folio/pkg/embedding"
	"github.com/pario-ai/folio/pkg/models"
	vsmemory "github.com/pario-ai/folio/pkg/vectorstore/memory"
	"github.com/pario-ai/folio/pkg/vectorstore/qdrant"
	vssqlite "github.com/pario-ai/folio/pkg/vectorstore/sqlite"
)

func TestOpenCache(t *testing.T) {
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "folio.db")

	c, err := openCache(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, ok := c.(*cachesqlite.Cache); !ok {
		t.Errorf("default cache = %T, want sqlite", c)
	}
	if _, ok := c.(expiryClearer); !ok {
		t.Error("sqlite cache should support clearing expired entries")
	}

	cfg.Cache.Provider = "memory"
	c, err = openCache(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*memory.Cache); !ok {
		t.Errorf("cache = %T, want memory", c)
	}

	for _, p := range []string{"none", ""} {
		cfg.Cache.Provider = p
		if c, err := openCache(cfg); err != nil || c != nil {
			t.Errorf("provider %q: got %v, %v; want nil, nil", p, c, err)
		}
	}

	cfg.Cache.Provider = "memory"
	cfg.Cache.Enabled = false
	if c, err := openCache(cfg); err != nil || c != nil {
		t.Errorf("disabled cache: got %v, %v; want nil, nil", c, err)
	}

	cfg.Cache.Enabled = true
	cfg.Cache.Provider = "memcached"
	if _, err := openCache(cfg); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestOpenContentStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "folio.db")

	s, err := openContentStore(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok := s.(*vssqlite.Store); !ok {
		t.Errorf("default store = %T, want sqlite", s)
	}

	cfg.ContentStore.Provider = "memory"
	if s, _ := openContentStore(ctx, cfg); s == nil {
		t.Error("expected memory store")
	} else if _, ok := s.(*vsmemory.Store); !ok {
		t.Errorf("store = %T, want memory", s)
	}

	cfg.ContentStore.Provider = "qdrant"
	cfg.ContentStore.Qdrant.URL = "http://localhost:6333"
	if s, _ := openContentStore(ctx, cfg); s == nil {
		t.Error("expected qdrant store")
	} else if _, ok := s.(*qdrant.Store); !ok {
		t.Errorf("store = %T, want qdrant", s)
	}

	cfg.ContentStore.Provider = "astra"
	if _, err := openContentStore(ctx, cfg); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewEmbedder(t *testing.T) {
	cfg := config.Default()
	if _, ok := newEmbedder(cfg).(*embedding.OpenAI); !ok {
		t.Error("default embedder should be openai")
	}

	cfg.Embedding.Provider = "hash"
	cfg.Embedding.Dimensions = 32
	e := newEmbedder(cfg)
	if _, ok := e.(*embedding.Hash); !ok {
		t.Fatalf("embedder = %T, want hash", e)
	}
	if e.Dimensions() != 32 {
		t.Errorf("dimensions = %d, want 32", e.Dimensions())
	}
}

func TestFormatAuditEntries(t *testing.T) {
	if got := formatAuditEntries(nil); got != "No audit entries found.\n" {
		t.Errorf("empty output = %q", got)
	}

	out := formatAuditEntries([]models.AuditEntry{{
		RequestID:  "req-1",
		StatusCode: 200,
		CacheHit:   true,
		Question:   "What\nis your main skill? I would really like to know a lot more",
		LatencyMs:  12,
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}})
	if !strings.Contains(out, "req-1") || !strings.Contains(out, "hit") || !strings.Contains(out, "2026-01-02 03:04:05") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "What\nis") {
		t.Error("question newlines should be flattened")
	}
	if !strings.Contains(out, "...") {
		t.Error("long question should be truncated")
	}
}

func TestFormatAuditStats(t *testing.T) {
	out := formatAuditStats([]models.AuditStat{{Day: "2026-01-02", Requests: 4, CacheHits: 1, Errors: 1, AvgLatencyMs: 250}})
	if !strings.Contains(out, "2026-01-02") || !strings.Contains(out, "250ms") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestEnsureCollection(t *testing.T) {
	ctx := context.Background()
	store, err := vssqlite.New(filepath.Join(t.TempDir(), "folio.db"), "portfolio")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	d := &deps{store: store, embedder: embedding.NewHash(8)}
	for i := 0; i < 2; i++ {
		if err := d.ensureCollection(ctx); err != nil {
			t.Fatalf("ensure #%d: %v", i+1, err)
		}
	}
	if n, err := store.Count(ctx); err != nil || n != 0 {
		t.Errorf("fresh collection: got %d, %v; want 0, nil", n, err)
	}

	d.embedder = embedding.NewHash(16)
	if err := d.ensureCollection(ctx); err == nil {
		t.Error("expected a dimension mismatch error")
	}
}
