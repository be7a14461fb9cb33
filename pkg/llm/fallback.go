package llm

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Fallback tries providers in order. A provider is skipped when it fails
// with a retryable Kind before producing any output; once a fragment has
// been delivered the stream is committed to that provider.
type Fallback struct {
	providers []Provider
	log       *zap.Logger
}

// NewFallback chains providers. With a single provider it is returned as is.
func NewFallback(log *zap.Logger, providers ...Provider) Provider {
	if len(providers) == 1 {
		return providers[0]
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fallback{providers: providers, log: log}
}

func (f *Fallback) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, ",")
}

func (f *Fallback) Complete(ctx context.Context, msgs []Message) (string, error) {
	var lastErr error
	for _, p := range f.providers {
		out, err := p.Complete(ctx, msgs)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !KindOf(err).Retryable() {
			return "", err
		}
		f.log.Warn("provider failed, trying next", zap.String("provider", p.Name()), zap.Error(err))
	}
	if lastErr == nil {
		lastErr = &Error{Kind: KindUnavailable, Provider: "fallback", Err: errors.New("no providers configured")}
	}
	return "", lastErr
}

func (f *Fallback) Stream(ctx context.Context, msgs []Message) (<-chan Chunk, error) {
	var lastErr error
	for _, p := range f.providers {
		ch, err := p.Stream(ctx, msgs)
		if err != nil {
			lastErr = err
			if !KindOf(err).Retryable() {
				return nil, err
			}
			f.log.Warn("provider failed, trying next", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}

		first, ok := <-ch
		if !ok {
			return FromSlice(), nil
		}
		if first.Err != nil && KindOf(first.Err).Retryable() {
			lastErr = first.Err
			f.log.Warn("provider stream failed before output, trying next", zap.String("provider", p.Name()), zap.Error(first.Err))
			continue
		}
		return prepend(ctx, first, ch), nil
	}
	if lastErr == nil {
		lastErr = &Error{Kind: KindUnavailable, Provider: "fallback", Err: errors.New("no providers configured")}
	}
	return nil, lastErr
}

func prepend(ctx context.Context, first Chunk, rest <-chan Chunk) <-chan Chunk {
	out := make(chan Chunk)
	go func() {
		defer close(out)
		select {
		case out <- first:
		case <-ctx.Done():
			return
		}
		for c := range rest {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
