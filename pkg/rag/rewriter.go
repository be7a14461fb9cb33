// Package rag holds the retrieval-augmented generation stages used by the
// chat orchestrator: query rewriting, retrieval and answer generation.
package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pario-ai/folio/pkg/llm"
	"github.com/pario-ai/folio/pkg/logging"
	"github.com/pario-ai/folio/pkg/models"
	"github.com/pario-ai/folio/pkg/prompt"
)

// Rewriter turns a follow-up question into a standalone search query.
type Rewriter struct {
	provider llm.Provider
	log      *zap.Logger
}

// NewRewriter creates a rewriter backed by provider.
func NewRewriter(provider llm.Provider, log *zap.Logger) *Rewriter {
	return &Rewriter{provider: provider, log: logging.OrNop(log)}
}

// Rewrite returns input unchanged when history is empty. Otherwise it asks
// the model for a query that stands on its own. A blank answer falls back
// to input.
func (r *Rewriter) Rewrite(ctx context.Context, history []models.ChatMessage, input string) (string, error) {
	if len(history) == 0 {
		return input, nil
	}
	out, err := r.provider.Complete(ctx, prompt.BuildRewrite(history, input))
	if err != nil {
		return "", fmt.Errorf("rewriting query: %w", err)
	}
	query := strings.TrimSpace(out)
	if query == "" {
		r.log.Debug("rewrite returned blank query, using input")
		return input, nil
	}
	r.log.Debug("query rewritten", zap.String("query", query), zap.Int("history_turns", len(history)))
	return query, nil
}
