// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/pario-ai/folio/pkg/llm"
)

// Provider replies with fixed text and records every prompt it receives.
type Provider struct {
	// Reply is returned by Complete.
	Reply string
	// Fragments are streamed in order by Stream.
	Fragments []string
	// Err fails Complete and Stream before any output.
	Err error
	// StreamErr is sent as the final chunk after Fragments.
	StreamErr error
	// Block makes Stream wait for context cancellation after the fragments.
	Block bool

	mu            sync.Mutex
	completeCalls [][]llm.Message
	streamCalls   [][]llm.Message
}

func (p *Provider) Name() string { return "scripted" }

func (p *Provider) Complete(_ context.Context, msgs []llm.Message) (string, error) {
	p.mu.Lock()
	p.completeCalls = append(p.completeCalls, msgs)
	p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	return p.Reply, nil
}

func (p *Provider) Stream(ctx context.Context, msgs []llm.Message) (<-chan llm.Chunk, error) {
	p.mu.Lock()
	p.streamCalls = append(p.streamCalls, msgs)
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	ch := make(chan llm.Chunk)
	go func() {
		defer close(ch)
		for _, f := range p.Fragments {
			select {
			case ch <- llm.Chunk{Text: f}:
			case <-ctx.Done():
				return
			}
		}
		if p.Block {
			<-ctx.Done()
			select {
			case ch <- llm.Chunk{Err: ctx.Err()}:
			default:
			}
			return
		}
		if p.StreamErr != nil {
			select {
			case ch <- llm.Chunk{Err: p.StreamErr}:
			case <-ctx.Done():
			}
		}
	}()
	return ch, nil
}

// CompleteCalls returns the prompts passed to Complete.
func (p *Provider) CompleteCalls() [][]llm.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]llm.Message(nil), p.completeCalls...)
}

// StreamCalls returns the prompts passed to Stream.
func (p *Provider) StreamCalls() [][]llm.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]llm.Message(nil), p.streamCalls...)
}
