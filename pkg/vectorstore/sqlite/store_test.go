package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pario-ai/folio/pkg/models"
	"github.com/pario-ai/folio/pkg/vectorstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "content.db"), "portfolio")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(id, url, text string, vec ...float32) models.Record {
	return models.Record{ID: id, Text: text, Vector: vec, Metadata: map[string]string{"url": url, "source": "page"}}
}

func TestEnsureCollection(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Search(ctx, []float32{1, 0, 0}, 8); !errors.Is(err, vectorstore.ErrNoCollection) {
		t.Errorf("expected ErrNoCollection before creation, got %v", err)
	}
	if err := s.EnsureCollection(ctx, 3); err != nil {
		t.Fatal(err)
	}
	// Idempotent for the same dimension.
	if err := s.EnsureCollection(ctx, 3); err != nil {
		t.Fatal(err)
	}
	var de *vectorstore.DimensionError
	if err := s.EnsureCollection(ctx, 4); !errors.As(err, &de) {
		t.Errorf("expected dimension error, got %v", err)
	}
}

func TestUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.EnsureCollection(ctx, 3); err != nil {
		t.Fatal(err)
	}

	err := s.Upsert(ctx, []models.Record{
		record("about-0", "/about", "I am a front-end developer.", 1, 0, 0),
		record("projects-0", "/projects", "Flow Blog, a Next.js blog.", 0, 1, 0),
		record("resume-0", "/resume", "Experience at Acme.", 0, 0, 1),
	})
	if err != nil {
		t.Fatal(err)
	}

	docs, err := s.Search(ctx, []float32{0.8, 0.2, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].URL != "/about" || docs[1].URL != "/projects" {
		t.Errorf("unexpected order: %s, %s", docs[0].URL, docs[1].URL)
	}
	if docs[0].Metadata["source"] != "page" {
		t.Errorf("metadata not round-tripped: %v", docs[0].Metadata)
	}
	if docs[0].Score <= docs[1].Score {
		t.Errorf("expected descending scores, got %v then %v", docs[0].Score, docs[1].Score)
	}
}

func TestTieBreakIsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_ = s.EnsureCollection(ctx, 2)

	_ = s.Upsert(ctx, []models.Record{
		record("z", "/z", "z", 1, 0),
		record("a", "/a", "a", 1, 0),
	})
	// Replacing z must not move it behind a.
	_ = s.Upsert(ctx, []models.Record{record("z", "/z", "z2", 1, 0)})

	for i := 0; i < 5; i++ {
		docs, err := s.Search(ctx, []float32{1, 0}, 2)
		if err != nil {
			t.Fatal(err)
		}
		if docs[0].URL != "/z" || docs[1].URL != "/a" {
			t.Fatalf("tie order changed: %s, %s", docs[0].URL, docs[1].URL)
		}
		if docs[0].Content != "z2" {
			t.Errorf("expected replaced text, got %q", docs[0].Content)
		}
	}
}

func TestClearAndCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_ = s.EnsureCollection(ctx, 1)
	_ = s.Upsert(ctx, []models.Record{record("a", "/a", "a", 1), record("b", "/b", "b", 1)})

	n, err := s.Count(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	docs, err := s.Search(ctx, []float32{1}, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no docs after clear, got %d", len(docs))
	}
}

func TestVectorCodec(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out := decodeVector(encodeVector(in))
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("index %d: %v != %v", i, in[i], out[i])
		}
	}
}
