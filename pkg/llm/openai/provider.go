// Package openai implements llm.Provider on the OpenAI chat completions API
// or any server compatible with it.
package openai

import (
	"context"
	"errors"
	"time"

	oai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/pario-ai/folio/pkg/llm"
)

// Config describes one chat model endpoint.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	// Timeout bounds non-streamed completions. Streams are bounded by the
	// caller's context only.
	Timeout    time.Duration
	MaxRetries int
}

// Provider talks to a single model.
type Provider struct {
	client oai.Client
	cfg    Config
}

// New creates a Provider.
func New(cfg Config) *Provider {
	return &Provider{client: oai.NewClient(ClientOptions(cfg.APIKey, cfg.BaseURL, cfg.MaxRetries)...), cfg: cfg}
}

// ClientOptions builds the request options shared by chat and embeddings.
func ClientOptions(apiKey, baseURL string, maxRetries int) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(maxRetries),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return opts
}

func (p *Provider) Name() string { return "openai:" + p.cfg.Model }

func (p *Provider) params(msgs []llm.Message) oai.ChatCompletionNewParams {
	out := make([]oai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			out = append(out, oai.SystemMessage(m.Content))
		case llm.RoleAssistant:
			out = append(out, oai.AssistantMessage(m.Content))
		default:
			out = append(out, oai.UserMessage(m.Content))
		}
	}
	params := oai.ChatCompletionNewParams{
		Model:       oai.ChatModel(p.cfg.Model),
		Messages:    out,
		Temperature: oai.Float(p.cfg.Temperature),
	}
	if p.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = oai.Int(int64(p.cfg.MaxTokens))
	}
	return params
}

func (p *Provider) Complete(ctx context.Context, msgs []llm.Message) (string, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	resp, err := p.client.Chat.Completions.New(ctx, p.params(msgs))
	if err != nil {
		return "", Classify(p.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return "", &llm.Error{Kind: llm.KindUnknown, Provider: p.Name(), Err: errors.New("response has no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream starts a streamed completion. The first event is read before
// returning so that connection, auth and quota failures surface as errors
// rather than as the first chunk.
func (p *Provider) Stream(ctx context.Context, msgs []llm.Message) (<-chan llm.Chunk, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, p.params(msgs))
	if !stream.Next() {
		err := stream.Err()
		_ = stream.Close()
		if err != nil {
			return nil, Classify(p.Name(), err)
		}
		return llm.FromSlice(), nil
	}
	first := stream.Current()

	out := make(chan llm.Chunk)
	go func() {
		defer close(out)
		defer stream.Close()

		send := func(c llm.Chunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}
		emit := func(chunk oai.ChatCompletionChunk) bool {
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				return true
			}
			return send(llm.Chunk{Text: chunk.Choices[0].Delta.Content})
		}

		if !emit(first) {
			return
		}
		for stream.Next() {
			if !emit(stream.Current()) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			send(llm.Chunk{Err: Classify(p.Name(), err)})
		}
	}()
	return out, nil
}

// Classify converts an SDK error into an *llm.Error using the typed API
// error's status code, falling back to transport classification.
func Classify(provider string, err error) error {
	e := &llm.Error{Provider: provider, Err: err}
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		e.StatusCode = apiErr.StatusCode
		e.Kind = llm.KindFromStatus(apiErr.StatusCode)
		if apiErr.Code == "insufficient_quota" {
			e.Kind = llm.KindRateLimited
		}
		return e
	}
	e.Kind = llm.KindFromTransport(err)
	return e
}
