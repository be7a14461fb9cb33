// Package embedding turns text into similarity vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	oai "github.com/openai/openai-go/v2"

	"github.com/pario-ai/folio/pkg/llm"
	openaillm "github.com/pario-ai/folio/pkg/llm/openai"
)

// Embedder computes fixed-length vectors for texts. The returned slice is
// index-aligned with the input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Config configures the OpenAI embedder.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	BatchSize  int
	MaxRetries int
}

// OpenAI embeds through the OpenAI embeddings endpoint.
type OpenAI struct {
	client oai.Client
	cfg    Config
}

// NewOpenAI creates an embedder. Retries are handled here rather than by
// the SDK so that only classified transient failures are retried.
func NewOpenAI(cfg Config) *OpenAI {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &OpenAI{
		client: oai.NewClient(openaillm.ClientOptions(cfg.APIKey, cfg.BaseURL, 0)...),
		cfg:    cfg,
	}
}

func (e *OpenAI) Dimensions() int { return e.cfg.Dimensions }

func (e *OpenAI) name() string { return "openai:" + e.cfg.Model }

func (e *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(texts))
		batch := texts[start:end]

		var resp *oai.CreateEmbeddingResponse
		err := retry.Do(
			func() error {
				r, err := e.client.Embeddings.New(ctx, e.params(batch))
				if err != nil {
					return openaillm.Classify(e.name(), err)
				}
				resp = r
				return nil
			},
			retry.Context(ctx),
			retry.Attempts(uint(e.cfg.MaxRetries)+1),
			retry.Delay(250*time.Millisecond),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool { return llm.KindOf(err).Retryable() }),
		)
		if err != nil {
			return nil, err
		}

		for _, d := range resp.Data {
			i := int(d.Index)
			if i < 0 || i >= len(batch) {
				return nil, fmt.Errorf("embedding index %d out of range", i)
			}
			out[start+i] = toFloat32(d.Embedding)
		}
	}

	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("no embedding returned for input %d", i)
		}
		if e.cfg.Dimensions > 0 && len(v) != e.cfg.Dimensions {
			return nil, fmt.Errorf("embedding %d has %d dimensions, want %d", i, len(v), e.cfg.Dimensions)
		}
	}
	return out, nil
}

func (e *OpenAI) params(batch []string) oai.EmbeddingNewParams {
	p := oai.EmbeddingNewParams{
		Input: oai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
		Model: oai.EmbeddingModel(e.cfg.Model),
	}
	// Only the text-embedding-3 family accepts a dimensions override.
	if e.cfg.Dimensions > 0 && strings.HasPrefix(e.cfg.Model, "text-embedding-3") {
		p.Dimensions = oai.Int(int64(e.cfg.Dimensions))
	}
	return p
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, errors.New("embedder returned no vector")
	}
	return vecs[0], nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
