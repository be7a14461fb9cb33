// Package llm abstracts the chat model behind a small streaming interface.
package llm

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a model prompt.
type Message struct {
	Role    string
	Content string
}

// Chunk is one streamed fragment. A chunk carrying Err is always the last
// value sent before the channel is closed.
type Chunk struct {
	Text string
	Err  error
}

// Provider generates text from a prompt.
//
// Stream returns a channel that the provider closes when generation ends.
// Errors that occur before any output is produced are returned directly so
// callers can classify them before committing to a response.
type Provider interface {
	Name() string
	Complete(ctx context.Context, msgs []Message) (string, error)
	Stream(ctx context.Context, msgs []Message) (<-chan Chunk, error)
}

// FromSlice returns a closed stream yielding the given fragments in order.
func FromSlice(fragments ...string) <-chan Chunk {
	ch := make(chan Chunk, len(fragments))
	for _, f := range fragments {
		ch <- Chunk{Text: f}
	}
	close(ch)
	return ch
}
