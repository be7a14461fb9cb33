package vectorstore

import (
	"errors"
	"math"
	"testing"

	"github.com/pario-ai/folio/pkg/models"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func rec(id, url string, vec ...float32) models.Record {
	return models.Record{ID: id, Text: "text " + id, Vector: vec, Metadata: map[string]string{"url": url}}
}

func TestRankOrderAndTies(t *testing.T) {
	records := []models.Record{
		rec("a", "/a", 0, 1),
		rec("b", "/b", 1, 0), // tie with d, inserted first
		rec("c", "/c", 1, 1),
		rec("d", "/d", 2, 0),
	}
	docs := Rank([]float32{1, 0}, records, 3)
	if len(docs) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(docs))
	}
	want := []string{"/b", "/d", "/c"}
	for i, w := range want {
		if docs[i].URL != w {
			t.Errorf("docs[%d].URL = %s, want %s", i, docs[i].URL, w)
		}
	}
	if docs[0].Content != "text b" {
		t.Errorf("unexpected content %q", docs[0].Content)
	}
}

func TestRankKLargerThanSet(t *testing.T) {
	docs := Rank([]float32{1}, []models.Record{rec("a", "/a", 1)}, 8)
	if len(docs) != 1 {
		t.Errorf("expected 1 doc, got %d", len(docs))
	}
	if docs := Rank([]float32{1}, nil, 8); len(docs) != 0 {
		t.Errorf("expected no docs, got %d", len(docs))
	}
}

func TestCheckDims(t *testing.T) {
	err := CheckDims([]models.Record{rec("a", "/a", 1, 2)}, 3)
	var de *DimensionError
	if !errors.As(err, &de) || de.Got != 2 || de.Want != 3 {
		t.Errorf("expected dimension error, got %v", err)
	}
	if err := CheckDims([]models.Record{rec("a", "/a", 1, 2, 3)}, 3); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
