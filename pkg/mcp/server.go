// Package mcp serves folio's search, ask and admin tools to MCP clients
// over stdio.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pario-ai/folio/pkg/chat"
	"github.com/pario-ai/folio/pkg/logging"
	"github.com/pario-ai/folio/pkg/models"
)

// Searcher retrieves documents for a query.
type Searcher interface {
	Retrieve(ctx context.Context, query string) ([]models.RetrievedDocument, error)
}

// Chatter answers a conversation.
type Chatter interface {
	Chat(ctx context.Context, msgs []models.ChatMessage) (*chat.Reply, error)
}

// CacheStatter provides cache statistics without coupling to a concrete cache implementation.
type CacheStatter interface {
	Stats(ctx context.Context) (models.CacheStats, error)
}

// AuditQuerier searches the chat audit log.
type AuditQuerier interface {
	Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, error)
}

// Server is a minimal MCP server that communicates over stdio using JSON-RPC 2.0.
type Server struct {
	search  Searcher
	chat    Chatter
	cache   CacheStatter
	auditor AuditQuerier
	version string
	log     *zap.Logger
}

// New creates a new MCP Server. Any dependency may be nil; the tools that
// need it then report that it is not configured.
func New(search Searcher, c Chatter, cache CacheStatter, auditor AuditQuerier, version string, log *zap.Logger) *Server {
	return &Server{
		search:  search,
		chat:    c,
		cache:   cache,
		auditor: auditor,
		version: version,
		log:     logging.OrNop(log),
	}
}

// Run reads JSON-RPC requests from r line-by-line and writes responses to w.
// It blocks until r is closed or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, errorResponse(nil, CodeParseError, "parse error"))
			continue
		}

		if resp := s.dispatch(ctx, &req); resp != nil {
			s.writeResponse(w, resp)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      ServerInfo{Name: "folio", Version: s.version},
			Capabilities:    ServerCapabilities{Tools: &ToolsCapability{}},
			Instructions:    "Answers questions about the portfolio site using its indexed pages and resume.",
		})
	case "ping":
		return resultResponse(req.ID, struct{}{})
	case "tools/list":
		return resultResponse(req.ID, ToolsListResult{Tools: allTools})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	}
	if req.IsNotification() {
		return nil
	}
	return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method))
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, CodeInvalidParams, "invalid params")
	}

	handler, ok := toolHandlers[params.Name]
	if !ok {
		return resultResponse(req.ID, errorResult(fmt.Sprintf("unknown tool: %s", params.Name)))
	}
	s.log.Debug("tool call", zap.String("tool", params.Name))
	return resultResponse(req.ID, handler(ctx, s, params.Arguments))
}

func (s *Server) writeResponse(w io.Writer, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("mcp marshal error", zap.Error(err))
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.log.Error("mcp write error", zap.Error(err))
	}
}
