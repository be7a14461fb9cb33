// Package server exposes the chat orchestrator over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pario-ai/folio/pkg/cache"
	"github.com/pario-ai/folio/pkg/chat"
	"github.com/pario-ai/folio/pkg/config"
	"github.com/pario-ai/folio/pkg/logging"
	"github.com/pario-ai/folio/pkg/models"
	"github.com/pario-ai/folio/pkg/vectorstore"
)

// Chatter answers a conversation.
type Chatter interface {
	Chat(ctx context.Context, msgs []models.ChatMessage) (*chat.Reply, error)
}

// Auditor records completed chat requests.
type Auditor interface {
	Log(ctx context.Context, entry models.AuditEntry) error
}

// Server is the folio HTTP API.
type Server struct {
	cfg     *config.Config
	chat    Chatter
	cache   cache.Store
	store   vectorstore.Store
	auditor Auditor
	limiter *RateLimiter
	log     *zap.Logger
	mux     *http.ServeMux
	handler http.Handler
}

// New creates a Server. Cache, store and auditor may be nil.
func New(cfg *config.Config, c Chatter, cs cache.Store, vs vectorstore.Store, a Auditor, log *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		chat:    c,
		cache:   cs,
		store:   vs,
		auditor: a,
		log:     logging.OrNop(log),
		mux:     http.NewServeMux(),
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	}

	chatHandler := http.Handler(http.HandlerFunc(s.handleChat))
	if s.limiter != nil {
		chatHandler = RateLimitMiddleware(s.limiter)(chatHandler)
	}
	s.mux.Handle("/api/chat", chatHandler)
	s.mux.HandleFunc("/api/cache/stats", s.handleCacheStats)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/readyz", s.handleReadyz)

	s.handler = Chain(s.mux,
		RequestIDMiddleware,
		LoggingMiddleware(s.log),
		RecoverMiddleware(s.log),
		CORSMiddleware(cfg.Server.CORSOrigins),
	)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the server and shuts it down gracefully when ctx
// is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("folio listening", zap.String("addr", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entry := models.AuditEntry{
		RequestID:  RequestIDFrom(r.Context()),
		RemoteAddr: ClientIP(r),
	}

	limit := s.cfg.Server.MaxBodyBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	var req models.ChatRequest
	body := http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		code, msg := http.StatusBadRequest, "invalid request body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code, msg = http.StatusRequestEntityTooLarge, "request body too large"
		}
		writeJSONError(w, code, msg)
		entry.StatusCode = code
		entry.ErrorKind = chat.KindInvalidInput.String()
		s.audit(entry, start)
		return
	}
	if n := len(req.Messages); n > 0 {
		entry.Question = req.Messages[n-1].Content
		entry.HistoryTurns = n - 1
	}

	reply, err := s.chat.Chat(r.Context(), req.Messages)
	if err != nil {
		code := chat.StatusCode(err)
		s.logChatError(r, err)
		writeJSONError(w, code, publicMessage(err))
		entry.StatusCode = code
		entry.ErrorKind = chat.KindOf(err).String()
		s.audit(entry, start)
		return
	}

	entry.CacheKey = reply.Key
	entry.CacheHit = reply.Cached
	entry.RewrittenQuery = reply.Query
	entry.DocumentCount = len(reply.Documents)
	entry.StatusCode = http.StatusOK
	if reply.Cached {
		w.Header().Set("X-Folio-Cache", "hit")
	} else {
		w.Header().Set("X-Folio-Cache", "miss")
	}

	var answer string
	if r.URL.Query().Get("format") == "text" {
		answer, err = streamText(r.Context(), w, reply)
	} else {
		answer, err = streamSSE(r.Context(), w, reply)
	}
	entry.Answer = answer
	if err != nil {
		s.logChatError(r, err)
		entry.ErrorKind = chat.KindOf(err).String()
	} else {
		// The stream is drained; hold the request until the answer is cached.
		reply.Wait()
	}
	s.audit(entry, start)
}

func (s *Server) logChatError(r *http.Request, err error) {
	fields := []zap.Field{
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("kind", chat.KindOf(err).String()),
		zap.Error(err),
	}
	switch chat.KindOf(err) {
	case chat.KindInvalidInput, chat.KindCanceled:
		s.log.Info("chat request rejected", fields...)
	default:
		s.log.Error("chat request failed", fields...)
	}
}

func (s *Server) audit(entry models.AuditEntry, start time.Time) {
	if s.auditor == nil {
		return
	}
	entry.LatencyMs = time.Since(start).Milliseconds()
	entry.CreatedAt = time.Now().UTC()
	go func() {
		if err := s.auditor.Log(context.Background(), entry); err != nil {
			s.log.Warn("audit log error", zap.Error(err))
		}
	}()
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.cache == nil {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	st, err := s.cache.Stats(r.Context())
	if err != nil {
		s.log.Warn("cache stats failed", zap.Error(err))
		writeJSONError(w, http.StatusServiceUnavailable, "cache unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled": true,
		"entries": st.Entries,
		"hits":    st.Hits,
		"misses":  st.Misses,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	ready := true
	if s.cache != nil {
		if _, err := s.cache.Stats(ctx); err != nil {
			checks["cache"] = err.Error()
			ready = false
		} else {
			checks["cache"] = "ok"
		}
	}
	if s.store != nil {
		if _, err := s.store.Count(ctx); err != nil {
			checks["content_store"] = err.Error()
			ready = false
		} else {
			checks["content_store"] = "ok"
		}
	}

	status, code := "ok", http.StatusOK
	if !ready {
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}

func publicMessage(err error) string {
	var ce *chat.Error
	if errors.As(err, &ce) {
		return ce.Message()
	}
	return "internal error"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"message":%q,"type":"folio_error","code":%d}}`, message, code)
}
