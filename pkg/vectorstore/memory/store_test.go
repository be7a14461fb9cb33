package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/pario-ai/folio/pkg/models"
	"github.com/pario-ai/folio/pkg/vectorstore"
)

func TestUpsertSearch(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.Search(ctx, []float32{1, 0}, 1); !errors.Is(err, vectorstore.ErrNoCollection) {
		t.Errorf("expected ErrNoCollection, got %v", err)
	}

	if err := s.EnsureCollection(ctx, 2); err != nil {
		t.Fatal(err)
	}
	err := s.Upsert(ctx, []models.Record{
		{ID: "1", Text: "about me", Vector: []float32{1, 0}, Metadata: map[string]string{"url": "/about"}},
		{ID: "2", Text: "projects", Vector: []float32{0, 1}, Metadata: map[string]string{"url": "/projects"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	docs, err := s.Search(ctx, []float32{0.9, 0.1}, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].URL != "/about" {
		t.Fatalf("unexpected docs: %+v", docs)
	}

	// Replacing keeps the count.
	_ = s.Upsert(ctx, []models.Record{{ID: "1", Text: "about me v2", Vector: []float32{1, 0}, Metadata: map[string]string{"url": "/about"}}})
	n, _ := s.Count(ctx)
	if n != 2 {
		t.Errorf("expected 2 records, got %d", n)
	}
	docs, _ = s.Search(ctx, []float32{1, 0}, 1)
	if docs[0].Content != "about me v2" {
		t.Errorf("expected replaced content, got %q", docs[0].Content)
	}
}

func TestDimensionChecks(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.EnsureCollection(ctx, 3)

	var de *vectorstore.DimensionError
	if err := s.Upsert(ctx, []models.Record{{ID: "x", Vector: []float32{1}}}); !errors.As(err, &de) {
		t.Errorf("expected dimension error on upsert, got %v", err)
	}
	if _, err := s.Search(ctx, []float32{1}, 1); !errors.As(err, &de) {
		t.Errorf("expected dimension error on search, got %v", err)
	}
	if err := s.EnsureCollection(ctx, 4); !errors.As(err, &de) {
		t.Errorf("expected dimension error on re-create, got %v", err)
	}
}

func TestClearKeepsCollection(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.EnsureCollection(ctx, 1)
	_ = s.Upsert(ctx, []models.Record{{ID: "x", Vector: []float32{1}}})
	_ = s.Clear(ctx)

	docs, err := s.Search(ctx, []float32{1}, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("expected empty result, got %d", len(docs))
	}
}
