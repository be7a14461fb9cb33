// Package chat answers portfolio questions: cache lookup, query rewrite,
// retrieval and streamed generation, with the answer written back to the
// cache once the stream completes.
package chat

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pario-ai/folio/pkg/cache"
	"github.com/pario-ai/folio/pkg/llm"
	"github.com/pario-ai/folio/pkg/logging"
	"github.com/pario-ai/folio/pkg/models"
)

// Rewriter produces a standalone search query from a conversation.
type Rewriter interface {
	Rewrite(ctx context.Context, history []models.ChatMessage, input string) (string, error)
}

// Retriever finds documents relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]models.RetrievedDocument, error)
}

// Generator streams an answer grounded in documents.
type Generator interface {
	Generate(ctx context.Context, docs []models.RetrievedDocument, history []models.ChatMessage, input string) (<-chan llm.Chunk, error)
}

// Cache call bounds. A read that times out is treated as a cache failure.
const (
	DefaultReadTimeout  = 2 * time.Second
	DefaultWriteTimeout = 5 * time.Second
)

// Options holds the orchestrator's dependencies. Cache may be nil.
type Options struct {
	Cache        cache.Store
	Rewriter     Rewriter
	Retriever    Retriever
	Generator    Generator
	TTL          time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *zap.Logger
}

// Reply is the outcome of a chat request. Stream must be consumed to the
// end or the request context cancelled.
type Reply struct {
	Key       string
	Cached    bool
	Query     string
	Documents []models.RetrievedDocument
	Stream    <-chan llm.Chunk

	settled <-chan struct{}
}

// Wait blocks until the cache write that follows a completed stream has
// finished or been skipped. It returns immediately for cached replies.
func (r *Reply) Wait() {
	if r.settled != nil {
		<-r.settled
	}
}

// Orchestrator runs the chat pipeline.
type Orchestrator struct {
	opts Options
	log  *zap.Logger
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	if opts.TTL <= 0 {
		opts.TTL = cache.DefaultTTL
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return &Orchestrator{opts: opts, log: logging.OrNop(opts.Logger)}
}

// Chat answers the last message of msgs. Errors are *Error.
func (o *Orchestrator) Chat(ctx context.Context, msgs []models.ChatMessage) (*Reply, error) {
	if err := Validate(msgs); err != nil {
		return nil, err
	}
	last := msgs[len(msgs)-1]
	key := cache.Fingerprint(last.Content)
	log := o.log.With(zap.String("cache_key", key))

	writable := o.opts.Cache != nil
	if o.opts.Cache != nil {
		rctx, cancel := context.WithTimeout(ctx, o.opts.ReadTimeout)
		value, ok, err := o.opts.Cache.Get(rctx, key)
		cancel()
		switch {
		case err != nil:
			log.Warn("cache read failed, continuing without cache", zap.Error(err))
			writable = false
		case ok && value != "":
			log.Debug("cache hit")
			return &Reply{Key: key, Cached: true, Stream: llm.FromSlice(value)}, nil
		}
	}

	history := msgs[:len(msgs)-1]
	input := strings.TrimSpace(last.Content)

	query, err := o.opts.Rewriter.Rewrite(ctx, history, input)
	if err != nil {
		return nil, classify("rewrite", err)
	}
	docs, err := o.opts.Retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, classify("retrieve", err)
	}
	stream, err := o.opts.Generator.Generate(ctx, docs, history, input)
	if err != nil {
		return nil, classify("generate", err)
	}
	log.Debug("generating answer", zap.String("query", query), zap.Int("documents", len(docs)))

	var onComplete func(string)
	if writable {
		onComplete = func(answer string) { o.store(ctx, log, key, answer) }
	}
	out, settled := Tee(ctx, stream, onComplete)
	return &Reply{
		Key:       key,
		Query:     query,
		Documents: docs,
		Stream:    out,
		settled:   settled,
	}, nil
}

func (o *Orchestrator) store(ctx context.Context, log *zap.Logger, key, answer string) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.WriteTimeout)
	defer cancel()
	if err := o.opts.Cache.Set(wctx, key, answer, o.opts.TTL); err != nil {
		log.Warn("cache write failed", zap.Error(err))
		return
	}
	log.Debug("answer cached", zap.Int("bytes", len(answer)))
}
