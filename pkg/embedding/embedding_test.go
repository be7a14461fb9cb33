package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/folio/pkg/llm"
)

func embeddingServer(t *testing.T, dims int, failures int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= failures {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error","param":null,"code":null}}`)
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			vec := make([]float64, dims)
			vec[i%dims] = 1
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": vec}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOpenAIEmbedBatches(t *testing.T) {
	srv, calls := embeddingServer(t, 4, 0)
	e := NewOpenAI(Config{APIKey: "sk", BaseURL: srv.URL + "/", Model: "text-embedding-3-small", Dimensions: 4, BatchSize: 2})

	vecs, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{1, 0, 0, 0}, vecs[0])
	assert.Equal(t, []float32{0, 1, 0, 0}, vecs[1])
	// Third text is index 0 of the second batch.
	assert.Equal(t, []float32{1, 0, 0, 0}, vecs[2])
	assert.EqualValues(t, 2, calls.Load())
}

func TestOpenAIEmbedRetries(t *testing.T) {
	srv, calls := embeddingServer(t, 4, 1)
	e := NewOpenAI(Config{APIKey: "sk", BaseURL: srv.URL + "/", Model: "text-embedding-3-small", Dimensions: 4, MaxRetries: 2})

	_, err := e.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestOpenAIEmbedGivesUp(t *testing.T) {
	srv, _ := embeddingServer(t, 4, 10)
	e := NewOpenAI(Config{APIKey: "sk", BaseURL: srv.URL + "/", Model: "text-embedding-3-small", Dimensions: 4, MaxRetries: 1})

	_, err := e.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, llm.KindUnavailable, llm.KindOf(err))
}

func TestOpenAIDimensionMismatch(t *testing.T) {
	srv, _ := embeddingServer(t, 3, 0)
	e := NewOpenAI(Config{APIKey: "sk", BaseURL: srv.URL + "/", Model: "text-embedding-3-small", Dimensions: 4})

	_, err := e.Embed(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestHash(t *testing.T) {
	h := NewHash(64)
	vecs, err := h.Embed(context.Background(), []string{
		"front-end developer react",
		"React front-end developer!",
		"gardening tips",
	})
	require.NoError(t, err)
	assert.Len(t, vecs[0], 64)
	assert.Equal(t, vecs[0], vecs[1])
	assert.NotEqual(t, vecs[0], vecs[2])

	v, err := EmbedOne(context.Background(), h, "")
	require.NoError(t, err)
	assert.Len(t, v, 64)
}
