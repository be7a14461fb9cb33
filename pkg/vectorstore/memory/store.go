// Package memory is an in-process Content Store.
package memory

import (
	"context"
	"sync"

	"github.com/pario-ai/folio/pkg/models"
	"github.com/pario-ai/folio/pkg/vectorstore"
)

// Store keeps records in insertion order. Upserting an existing ID
// replaces the record in place.
type Store struct {
	mu      sync.RWMutex
	dim     int
	created bool
	records []models.Record
	index   map[string]int
}

// New creates an empty store.
func New() *Store {
	return &Store{index: make(map[string]int)}
}

func (s *Store) EnsureCollection(_ context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created && s.dim != dim {
		return &vectorstore.DimensionError{Got: dim, Want: s.dim}
	}
	s.dim = dim
	s.created = true
	return nil
}

func (s *Store) Upsert(_ context.Context, records []models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := vectorstore.CheckDims(records, s.dim); err != nil {
		return err
	}
	s.created = true
	for _, r := range records {
		if i, ok := s.index[r.ID]; ok && r.ID != "" {
			s.records[i] = r
			continue
		}
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
	return nil
}

func (s *Store) Search(_ context.Context, vector []float32, k int) ([]models.RetrievedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.created {
		return nil, vectorstore.ErrNoCollection
	}
	if s.dim > 0 && len(vector) != s.dim {
		return nil, &vectorstore.DimensionError{Got: len(vector), Want: s.dim}
	}
	return vectorstore.Rank(vector, s.records, k), nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.index = make(map[string]int)
	return nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

func (s *Store) Close() error { return nil }
