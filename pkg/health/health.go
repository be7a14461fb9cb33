// Package health probes the services a folio deployment depends on.
package health

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/pario-ai/folio/pkg/cache"
	"github.com/pario-ai/folio/pkg/chat"
	"github.com/pario-ai/folio/pkg/embedding"
	"github.com/pario-ai/folio/pkg/models"
	"github.com/pario-ai/folio/pkg/vectorstore"
)

// ChatProbeMessage is sent through the chat pipeline.
const ChatProbeMessage = "Hello, this is a health check test."

// CacheProbeKey is written with a one minute TTL by the cache probe.
const CacheProbeKey = "health-check"

// Result is the outcome of one probe.
type Result struct {
	Name    string
	Latency time.Duration
	Err     error
}

// OK reports whether the probe passed.
func (r Result) OK() bool { return r.Err == nil }

// Probe checks one dependency.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Run executes probes in order. The returned error aggregates every
// failure and is nil when all probes pass.
func Run(ctx context.Context, probes []Probe) ([]Result, error) {
	results := make([]Result, 0, len(probes))
	var merr *multierror.Error
	for _, p := range probes {
		start := time.Now()
		err := p.Check(ctx)
		results = append(results, Result{Name: p.Name, Latency: time.Since(start), Err: err})
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", p.Name, err))
		}
	}
	return results, merr.ErrorOrNil()
}

// Embeddings embeds a short text.
func Embeddings(e embedding.Embedder) Probe {
	return Probe{Name: "embeddings", Check: func(ctx context.Context) error {
		vec, err := embedding.EmbedOne(ctx, e, "health check")
		if err != nil {
			return err
		}
		if len(vec) == 0 {
			return errors.New("empty embedding")
		}
		return nil
	}}
}

// Cache writes and reads back a probe value.
func Cache(c cache.Store) Probe {
	return Probe{Name: "cache", Check: func(ctx context.Context) error {
		want := time.Now().UTC().Format(time.RFC3339Nano)
		if err := c.Set(ctx, CacheProbeKey, want, time.Minute); err != nil {
			return err
		}
		got, ok, err := c.Get(ctx, CacheProbeKey)
		if err != nil {
			return err
		}
		if !ok || got != want {
			return errors.New("data mismatch")
		}
		return nil
	}}
}

// ContentStore counts the stored records. An empty store fails the probe.
func ContentStore(s vectorstore.Store) Probe {
	return Probe{Name: "content_store", Check: func(ctx context.Context) error {
		n, err := s.Count(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.New("no documents ingested")
		}
		return nil
	}}
}

// Chatter answers a conversation.
type Chatter interface {
	Chat(ctx context.Context, msgs []models.ChatMessage) (*chat.Reply, error)
}

// Chat sends the probe message through an in-process orchestrator.
func Chat(c Chatter) Probe {
	return Probe{Name: "chat", Check: func(ctx context.Context) error {
		reply, err := c.Chat(ctx, []models.ChatMessage{{Role: models.RoleUser, Content: ChatProbeMessage}})
		if err != nil {
			return err
		}
		answer, err := chat.Collect(ctx, reply)
		if err != nil {
			return err
		}
		if strings.TrimSpace(answer) == "" {
			return errors.New("empty answer")
		}
		return nil
	}}
}

// RemoteChat posts the probe message to a running server's chat endpoint.
func RemoteChat(client *http.Client, baseURL string) Probe {
	if client == nil {
		client = http.DefaultClient
	}
	return Probe{Name: "chat_api", Check: func(ctx context.Context) error {
		body, _ := json.Marshal(models.ChatRequest{Messages: []models.ChatMessage{
			{Role: models.RoleUser, Content: ChatProbeMessage},
		}})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/chat", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return nil
	}}
}
