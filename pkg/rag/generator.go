package rag

import (
	"context"
	"fmt"

	"github.com/pario-ai/folio/pkg/llm"
	"github.com/pario-ai/folio/pkg/models"
	"github.com/pario-ai/folio/pkg/prompt"
)

// Generator streams answers grounded in retrieved documents.
type Generator struct {
	provider llm.Provider
	cfg      prompt.Config
}

// NewGenerator creates a generator using the given prompt configuration.
func NewGenerator(provider llm.Provider, cfg prompt.Config) *Generator {
	return &Generator{provider: provider, cfg: cfg}
}

// Generate builds the answer prompt and starts a streamed completion.
func (g *Generator) Generate(ctx context.Context, docs []models.RetrievedDocument, history []models.ChatMessage, input string) (<-chan llm.Chunk, error) {
	stream, err := g.provider.Stream(ctx, prompt.Build(g.cfg, docs, history, input))
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}
	return stream, nil
}
