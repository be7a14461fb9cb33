// Package vectorstore defines the Content Store: a collection of text
// chunks with embedding vectors, searchable by cosine similarity.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/pario-ai/folio/pkg/models"
)

// ErrNoCollection is returned by Search on a store whose collection has not
// been created.
var ErrNoCollection = errors.New("collection does not exist")

// Store is a vector-indexed document collection.
//
// Search returns at most k documents ordered by descending cosine
// similarity. Backends that do the ranking locally break ties by insertion
// order.
type Store interface {
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, records []models.Record) error
	Search(ctx context.Context, vector []float32, k int) ([]models.RetrievedDocument, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

// DimensionError reports a vector whose length does not match the collection.
type DimensionError struct {
	Got, Want int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vector has %d dimensions, collection expects %d", e.Got, e.Want)
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank scores records against query and returns the best k as documents.
// Records must be supplied in insertion order; equal scores keep that order.
func Rank(query []float32, records []models.Record, k int) []models.RetrievedDocument {
	type scored struct {
		rec   models.Record
		score float64
	}
	all := make([]scored, len(records))
	for i, r := range records {
		all[i] = scored{rec: r, score: Cosine(query, r.Vector)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	if k > len(all) {
		k = len(all)
	}
	docs := make([]models.RetrievedDocument, 0, k)
	for _, s := range all[:k] {
		docs = append(docs, ToDocument(s.rec, s.score))
	}
	return docs
}

// ToDocument converts a stored record into a retrieval result.
func ToDocument(r models.Record, score float64) models.RetrievedDocument {
	return models.RetrievedDocument{
		Content:  r.Text,
		URL:      r.URL(),
		Score:    score,
		Metadata: r.Metadata,
	}
}

// CheckDims validates every record vector against dim.
func CheckDims(records []models.Record, dim int) error {
	if dim <= 0 {
		return nil
	}
	for _, r := range records {
		if len(r.Vector) != dim {
			return &DimensionError{Got: len(r.Vector), Want: dim}
		}
	}
	return nil
}
