package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/pario-ai/folio/pkg/embedding"
	"github.com/pario-ai/folio/pkg/models"
	"github.com/pario-ai/folio/pkg/vectorstore"
)

// DefaultTopK is the number of documents retrieved per query.
const DefaultTopK = 8

// ErrRetrieval marks failures of the embedder or the content store.
var ErrRetrieval = errors.New("retrieval failed")

// Retriever finds the documents most similar to a query.
type Retriever struct {
	embedder embedding.Embedder
	store    vectorstore.Store
	topK     int
	minScore float64
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithTopK overrides DefaultTopK.
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithMinScore drops documents scoring below s. Zero disables the filter.
func WithMinScore(s float64) RetrieverOption {
	return func(r *Retriever) { r.minScore = s }
}

// NewRetriever creates a retriever over store.
func NewRetriever(e embedding.Embedder, store vectorstore.Store, opts ...RetrieverOption) *Retriever {
	r := &Retriever{embedder: e, store: store, topK: DefaultTopK}
	for _, o := range opts {
		o(r)
	}
	return r
}

// TopK returns the configured result count.
func (r *Retriever) TopK() int { return r.topK }

// Retrieve embeds query and returns up to TopK documents, best first.
// No matches, or a collection that does not exist yet, yields an empty
// slice.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.RetrievedDocument, error) {
	vec, err := embedding.EmbedOne(ctx, r.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", ErrRetrieval, err)
	}
	docs, err := r.store.Search(ctx, vec, r.topK)
	if errors.Is(err, vectorstore.ErrNoCollection) {
		// Nothing has been ingested yet.
		return []models.RetrievedDocument{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: searching content store: %w", ErrRetrieval, err)
	}
	if r.minScore > 0 {
		kept := docs[:0]
		for _, d := range docs {
			if d.Score >= r.minScore {
				kept = append(kept, d)
			}
		}
		docs = kept
	}
	if docs == nil {
		docs = []models.RetrievedDocument{}
	}
	return docs, nil
}
