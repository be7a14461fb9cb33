package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/pario-ai/folio/pkg/chat"
	"github.com/pario-ai/folio/pkg/models"
)

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"folio_search":       handleSearch,
	"folio_ask":          handleAsk,
	"folio_cache_stats":  handleCacheStats,
	"folio_audit_search": handleAuditSearch,
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "folio_search",
		Description: "Search the portfolio content store and return the most similar page chunks with their URLs and scores.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"query"},
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search text",
				},
			},
		},
	},
	{
		Name:        "folio_ask",
		Description: "Ask the portfolio chatbot a question and return its full answer. Prior turns may be passed as history.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"question"},
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question to answer",
				},
				"history": map[string]any{
					"type":        "array",
					"description": "Earlier conversation turns, oldest first (optional)",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"role":    map[string]any{"type": "string", "enum": []string{"user", "assistant"}},
							"content": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
	},
	{
		Name:        "folio_cache_stats",
		Description: "Show answer cache statistics (entries, hits, misses, hit rate).",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "folio_audit_search",
		Description: "Search the chat audit log with optional filters.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"since": map[string]any{
					"type":        "string",
					"description": "Start date in YYYY-MM-DD format (optional)",
				},
				"cache_key": map[string]any{
					"type":        "string",
					"description": "Filter by question fingerprint (optional)",
				},
				"errors_only": map[string]any{
					"type":        "boolean",
					"description": "Only failed requests (optional)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum entries to return (default 50)",
				},
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

type searchArgs struct {
	Query string `json:"query"`
}

func handleSearch(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.search == nil {
		return textResult("Search is not configured.")
	}
	var args searchArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("query is required")
	}
	docs, err := s.search.Retrieve(ctx, args.Query)
	if err != nil {
		return errorResult("Error searching content: " + err.Error())
	}
	return textResult(formatDocuments(docs))
}

type askArgs struct {
	Question string               `json:"question"`
	History  []models.ChatMessage `json:"history"`
}

func handleAsk(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.chat == nil {
		return textResult("Chat is not configured.")
	}
	var args askArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	msgs := append(append([]models.ChatMessage(nil), args.History...),
		models.ChatMessage{Role: models.RoleUser, Content: args.Question})

	reply, err := s.chat.Chat(ctx, msgs)
	if err != nil {
		return errorResult("Error answering question: " + chatError(err))
	}
	answer, err := chat.Collect(ctx, reply)
	if err != nil {
		return errorResult("Error answering question: " + chatError(err))
	}
	reply.Wait()
	return textResult(formatAnswer(answer, reply))
}

func chatError(err error) string {
	var ce *chat.Error
	if errors.As(err, &ce) {
		return ce.Message()
	}
	return err.Error()
}

type auditSearchArgs struct {
	Since      string `json:"since"`
	CacheKey   string `json:"cache_key"`
	ErrorsOnly bool   `json:"errors_only"`
	Limit      int    `json:"limit"`
}

func handleAuditSearch(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.auditor == nil {
		return textResult("Audit logging is not configured.")
	}
	var args auditSearchArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}

	opts := models.AuditQueryOpts{
		CacheKey:   args.CacheKey,
		ErrorsOnly: args.ErrorsOnly,
		Limit:      args.Limit,
	}
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if args.Since != "" {
		t, err := time.Parse("2006-01-02", args.Since)
		if err != nil {
			return errorResult("Invalid since date (use YYYY-MM-DD): " + err.Error())
		}
		opts.Since = t
	}

	entries, err := s.auditor.Query(ctx, opts)
	if err != nil {
		return errorResult("Error searching audit log: " + err.Error())
	}
	return textResult(formatAuditEntries(entries))
}

func handleCacheStats(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.cache == nil {
		return textResult("Cache is not configured.")
	}
	stats, err := s.cache.Stats(ctx)
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}
