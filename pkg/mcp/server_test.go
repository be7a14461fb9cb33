package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pario-ai/folio/pkg/chat"
	"github.com/pario-ai/folio/pkg/llm"
	"github.com/pario-ai/folio/pkg/models"
)

type fakeSearcher struct {
	docs  []models.RetrievedDocument
	err   error
	query string
}

func (f *fakeSearcher) Retrieve(_ context.Context, query string) ([]models.RetrievedDocument, error) {
	f.query = query
	return f.docs, f.err
}

type fakeChatter struct {
	answer string
	cached bool
	docs   []models.RetrievedDocument
	err    error
	msgs   []models.ChatMessage
}

func (f *fakeChatter) Chat(_ context.Context, msgs []models.ChatMessage) (*chat.Reply, error) {
	f.msgs = msgs
	if f.err != nil {
		return nil, f.err
	}
	return &chat.Reply{Cached: f.cached, Documents: f.docs, Stream: llm.FromSlice(f.answer)}, nil
}

// fakeCache implements CacheStatter for testing.
type fakeCache struct {
	stats models.CacheStats
}

func (f *fakeCache) Stats(context.Context) (models.CacheStats, error) { return f.stats, nil }

type fakeAuditor struct {
	entries []models.AuditEntry
	opts    models.AuditQueryOpts
}

func (f *fakeAuditor) Query(_ context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, error) {
	f.opts = opts
	return f.entries, nil
}

func sendAndReceive(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	line, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	line = append(line, '\n')

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, out.String())
	}
	return resp
}

func callTool(t *testing.T, srv *Server, name, args string) ToolCallResult {
	t.Helper()
	params, _ := json.Marshal(ToolCallParams{Name: name, Arguments: json.RawMessage(args)})
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`3`),
		Method:  "tools/call",
		Params:  params,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolCallResult
	json.Unmarshal(data, &result)
	if len(result.Content) == 0 {
		t.Fatal("expected content")
	}
	return result
}

func TestInitialize(t *testing.T) {
	srv := New(nil, nil, nil, nil, "test", nil)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "initialize",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result InitializeResult
	json.Unmarshal(data, &result)

	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocol version = %s, want 2024-11-05", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "folio" {
		t.Errorf("server name = %s, want folio", result.ServerInfo.Name)
	}
	if result.Capabilities.Tools == nil {
		t.Error("expected tools capability")
	}
}

func TestToolsList(t *testing.T) {
	srv := New(nil, nil, nil, nil, "test", nil)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`2`),
		Method:  "tools/list",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolsListResult
	json.Unmarshal(data, &result)

	if len(result.Tools) != 4 {
		t.Errorf("got %d tools, want 4", len(result.Tools))
	}

	names := make(map[string]bool)
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"folio_search", "folio_ask", "folio_cache_stats", "folio_audit_search"} {
		if !names[want] {
			t.Errorf("missing tool: %s", want)
		}
	}
}

func TestToolCallSearch(t *testing.T) {
	s := &fakeSearcher{docs: []models.RetrievedDocument{
		{URL: "/about", Content: "Front-end developer.", Score: 0.91},
	}}
	srv := New(s, nil, nil, nil, "test", nil)

	result := callTool(t, srv, "folio_search", `{"query":"skills"}`)
	text := result.Content[0].Text
	if !strings.Contains(text, "/about") || !strings.Contains(text, "0.910") {
		t.Errorf("unexpected search output: %s", text)
	}
	if s.query != "skills" {
		t.Errorf("query = %q, want skills", s.query)
	}
}

func TestToolCallSearchMissingQuery(t *testing.T) {
	srv := New(&fakeSearcher{}, nil, nil, nil, "test", nil)
	result := callTool(t, srv, "folio_search", `{}`)
	if !result.IsError {
		t.Error("expected isError=true for missing query")
	}
}

func TestToolCallSearchFailure(t *testing.T) {
	srv := New(&fakeSearcher{err: errors.New("store down")}, nil, nil, nil, "test", nil)
	result := callTool(t, srv, "folio_search", `{"query":"x"}`)
	if !result.IsError || !strings.Contains(result.Content[0].Text, "store down") {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestToolCallAsk(t *testing.T) {
	c := &fakeChatter{
		answer: "I build web apps.",
		docs: []models.RetrievedDocument{
			{URL: "/about"}, {URL: "/about"}, {URL: "/resume"},
		},
	}
	srv := New(nil, c, nil, nil, "test", nil)

	result := callTool(t, srv, "folio_ask",
		`{"question":"And now?","history":[{"role":"user","content":"Hi"},{"role":"assistant","content":"Hello"}]}`)
	text := result.Content[0].Text
	if !strings.Contains(text, "I build web apps.") {
		t.Errorf("missing answer: %s", text)
	}
	if !strings.Contains(text, "Sources: /about, /resume") {
		t.Errorf("expected deduplicated sources, got: %s", text)
	}
	if len(c.msgs) != 3 || c.msgs[2].Content != "And now?" || c.msgs[2].Role != models.RoleUser {
		t.Errorf("unexpected messages: %+v", c.msgs)
	}
}

func TestToolCallAskCached(t *testing.T) {
	srv := New(nil, &fakeChatter{answer: "cached text", cached: true}, nil, nil, "test", nil)
	result := callTool(t, srv, "folio_ask", `{"question":"q"}`)
	if !strings.Contains(result.Content[0].Text, "(cached answer)") {
		t.Errorf("unexpected output: %s", result.Content[0].Text)
	}
}

func TestToolCallAskError(t *testing.T) {
	err := &chat.Error{Kind: chat.KindModelUnavailable, Stage: "generate", Err: errors.New("secret upstream detail")}
	srv := New(nil, &fakeChatter{err: err}, nil, nil, "test", nil)

	result := callTool(t, srv, "folio_ask", `{"question":"q"}`)
	if !result.IsError {
		t.Fatal("expected isError=true")
	}
	if strings.Contains(result.Content[0].Text, "secret upstream detail") {
		t.Errorf("upstream detail leaked: %s", result.Content[0].Text)
	}
}

func TestToolCallNotConfigured(t *testing.T) {
	srv := New(nil, nil, nil, nil, "test", nil)
	for _, name := range []string{"folio_search", "folio_ask", "folio_cache_stats", "folio_audit_search"} {
		result := callTool(t, srv, name, `{}`)
		if !strings.Contains(result.Content[0].Text, "not configured") {
			t.Errorf("%s: expected 'not configured', got: %s", name, result.Content[0].Text)
		}
	}
}

func TestToolCallCacheStats(t *testing.T) {
	cache := &fakeCache{stats: models.CacheStats{Entries: 42, Hits: 10, Misses: 5}}
	srv := New(nil, nil, cache, nil, "test", nil)

	result := callTool(t, srv, "folio_cache_stats", ``)
	text := result.Content[0].Text
	if !strings.Contains(text, "42") || !strings.Contains(text, "66.7%") {
		t.Errorf("unexpected cache stats output: %s", text)
	}
}

func TestToolCallAuditSearch(t *testing.T) {
	a := &fakeAuditor{entries: []models.AuditEntry{{
		RequestID:     "req-1",
		Question:      "What is your main skill?",
		StatusCode:    200,
		DocumentCount: 4,
		LatencyMs:     120,
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}}}
	srv := New(nil, nil, nil, a, "test", nil)

	result := callTool(t, srv, "folio_audit_search", `{"since":"2026-03-01","errors_only":true}`)
	text := result.Content[0].Text
	if !strings.Contains(text, "req-1") || !strings.Contains(text, "120ms") {
		t.Errorf("unexpected audit output: %s", text)
	}
	if !a.opts.ErrorsOnly || a.opts.Limit != 50 || a.opts.Since.IsZero() {
		t.Errorf("unexpected query opts: %+v", a.opts)
	}
}

func TestToolCallAuditSearchBadDate(t *testing.T) {
	srv := New(nil, nil, nil, &fakeAuditor{}, "test", nil)
	result := callTool(t, srv, "folio_audit_search", `{"since":"March"}`)
	if !result.IsError {
		t.Error("expected isError=true for bad date")
	}
}

func TestNotificationNoResponse(t *testing.T) {
	srv := New(nil, nil, nil, nil, "test", nil)

	line, _ := json.Marshal(Request{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	})
	line = append(line, '\n')

	var out bytes.Buffer
	_ = srv.Run(context.Background(), bytes.NewReader(line), &out)

	if out.Len() != 0 {
		t.Errorf("expected no output for notification, got: %s", out.String())
	}
}

func TestUnknownMethod(t *testing.T) {
	srv := New(nil, nil, nil, nil, "test", nil)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`9`),
		Method:  "unknown/method",
	})

	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeMethodNotFound)
	}
}
