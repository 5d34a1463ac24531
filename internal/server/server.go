// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/rigmark/internal/config"
	"github.com/jeranaias/rigmark/internal/markup"
	"github.com/jeranaias/rigmark/internal/ollama"
	"github.com/jeranaias/rigmark/internal/sanitize"
	"github.com/jeranaias/rigmark/internal/storage"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxTextLength is the maximum length of text to render or send to the model.
	MaxTextLength = 100000

	// MaxHistoryMessages bounds the stored turns replayed to the model.
	MaxHistoryMessages = 20

	// Version is the server version.
	Version = "0.3.0"
)

// ErrMalformedOutput is returned in strict mode when rendered markup fails validation.
var ErrMalformedOutput = errors.New("rendered markup failed validation")

// ============================================================================
// COLLABORATORS
// ============================================================================

// ChatBackend is the model backend used by the chat endpoint.
// *ollama.Client satisfies it.
type ChatBackend interface {
	Chat(ctx context.Context, model string, messages []ollama.Message) (*ollama.ChatResponse, error)
	CheckRunning(ctx context.Context) error
}

// ConversationStore persists chat turns. *storage.Store satisfies it.
type ConversationStore interface {
	Create(ctx context.Context, model, language string) (string, error)
	AppendMessage(ctx context.Context, conversationID string, msg storage.StoredMessage) (storage.StoredMessage, error)
	Load(ctx context.Context, id string) (*storage.StoredConversation, error)
}

// ============================================================================
// SERVER STATS
// ============================================================================

// ServerStats tracks server usage statistics.
type ServerStats struct {
	RenderRequests atomic.Int64
	ChatRequests   atomic.Int64
	ChatErrors     atomic.Int64
	BytesRendered  atomic.Int64
	TotalTokens    atomic.Int64
	StyleReloads   atomic.Int64
	StartTime      time.Time
}

// NewServerStats creates a new ServerStats instance.
func NewServerStats() *ServerStats {
	return &ServerStats{StartTime: time.Now()}
}

// Uptime returns the server uptime duration.
func (s *ServerStats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the rigmark HTTP service.
type Server struct {
	cfg          config.ServerConfig
	model        string
	systemPrompt string
	sanitize     bool

	mux      *http.ServeMux
	server   *http.Server
	limiter  *RateLimiter
	renderer atomic.Pointer[markup.Renderer]
	stats    *ServerStats
	logger   *log.Logger

	mu      sync.RWMutex
	backend ChatBackend
	store   ConversationStore
}

// NewServer creates a Server from configuration. A nil renderer uses markup.New().
func NewServer(cfg *config.Config, renderer *markup.Renderer) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if renderer == nil {
		renderer = markup.New()
	}

	s := &Server{
		cfg:          cfg.Server,
		model:        cfg.Ollama.Model,
		systemPrompt: cfg.Ollama.SystemPrompt,
		sanitize:     cfg.Render.Sanitize,
		mux:          http.NewServeMux(),
		stats:        NewServerStats(),
		logger:       log.Default(),
	}
	if s.systemPrompt == "" {
		s.systemPrompt = DefaultSystemPrompt
	}
	if s.cfg.RateLimit > 0 {
		s.limiter = NewRateLimiter(s.cfg.RateLimit, s.cfg.RateBurst)
	}
	s.renderer.Store(renderer)

	s.setupRoutes()
	return s
}

// WithBackend sets the model backend used by /api/chat.
func (s *Server) WithBackend(backend ChatBackend) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backend = backend
	return s
}

// WithStore sets the conversation store. Without one, chat turns are not persisted.
func (s *Server) WithStore(store ConversationStore) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
	return s
}

// WithLogger sets the request logger.
func (s *Server) WithLogger(logger *log.Logger) *Server {
	s.logger = logger
	return s
}

// SetRenderer swaps the renderer used by new requests. In-flight requests
// finish with the renderer they started with.
func (s *Server) SetRenderer(r *markup.Renderer) {
	if r == nil {
		return
	}
	s.renderer.Store(r)
	s.stats.StyleReloads.Add(1)
}

// Renderer returns the current renderer.
func (s *Server) Renderer() *markup.Renderer {
	return s.renderer.Load()
}

// Stats returns the live statistics.
func (s *Server) Stats() *ServerStats {
	return s.stats
}

func (s *Server) collaborators() (ChatBackend, ConversationStore) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend, s.store
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /v1/render", s.handleRender)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("GET /api/conversations/{id}", s.handleConversation)
	s.mux.HandleFunc("GET /api/languages", s.handleLanguages)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /stats", s.handleStats)
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(),
		RequestIDMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(s.logger),
	}
	if s.limiter != nil {
		middlewares = append(middlewares, RateLimitMiddleware(s.limiter))
	}
	middlewares = append(middlewares, CORSMiddleware(DefaultCORSConfig(s.cfg.CORSOrigins)))

	return Chain(middlewares...)(s.mux)
}

// ============================================================================
// RENDERING
// ============================================================================

// renderText renders model text with the current renderer, then applies the
// sanitizer and, in strict mode, validation.
func (s *Server) renderText(text string) (string, error) {
	out := s.renderer.Load().Render(text)
	if s.sanitize {
		out = sanitize.HTML(out)
	}
	if s.cfg.Strict {
		if err := markup.Validate(out); err != nil {
			return "", errors.Join(ErrMalformedOutput, err)
		}
	}
	s.stats.BytesRendered.Add(int64(len(out)))
	return out, nil
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Model        string `json:"model"`
	OllamaStatus string `json:"ollama_status"`
	Storage      bool   `json:"storage"`
	Highlighting bool   `json:"highlighting"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	backend, store := s.collaborators()

	health := HealthResponse{
		Status:       "ok",
		Version:      Version,
		Model:        s.model,
		Storage:      store != nil,
		Highlighting: s.renderer.Load().Highlighting(),
	}

	if backend != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := backend.CheckRunning(ctx); err == nil {
			health.OllamaStatus = "ok"
		} else {
			health.OllamaStatus = "unavailable"
			health.Status = "degraded"
		}
	} else {
		health.OllamaStatus = "not_configured"
	}

	writeJSON(w, http.StatusOK, health)
}

// ============================================================================
// STATS HANDLER
// ============================================================================

// StatsResponse represents the usage statistics response.
type StatsResponse struct {
	RenderRequests int64 `json:"render_requests"`
	ChatRequests   int64 `json:"chat_requests"`
	ChatErrors     int64 `json:"chat_errors"`
	BytesRendered  int64 `json:"bytes_rendered"`
	TotalTokens    int64 `json:"total_tokens"`
	StyleReloads   int64 `json:"style_reloads"`
	RateLimited    int   `json:"tracked_clients"`
	UptimeSeconds  int64 `json:"uptime_seconds"`
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		RenderRequests: s.stats.RenderRequests.Load(),
		ChatRequests:   s.stats.ChatRequests.Load(),
		ChatErrors:     s.stats.ChatErrors.Load(),
		BytesRendered:  s.stats.BytesRendered.Load(),
		TotalTokens:    s.stats.TotalTokens.Load(),
		StyleReloads:   s.stats.StyleReloads.Load(),
		UptimeSeconds:  int64(s.stats.Uptime().Seconds()),
	}
	if s.limiter != nil {
		resp.RateLimited = s.limiter.Visitors()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	log.Printf("SERVER_START | addr=%s version=%s rate=%s strict=%v",
		ln.Addr(), Version, describeLimit(s.cfg.RateLimit, s.cfg.RateBurst), s.cfg.Strict)

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Close()
	}

	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}

	log.Printf("SERVER_SHUTDOWN | renders=%d chats=%d", s.stats.RenderRequests.Load(), s.stats.ChatRequests.Load())
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("RESPONSE_WRITE_FAILED | error=%v", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// decodeBody decodes a JSON request body capped at limit bytes. It writes the
// error reply itself and reports whether decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		// Log full details internally, return a generic message to the client.
		log.Printf("INVALID_REQUEST | path=%s error=%v", r.URL.Path, err)
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return false
	}
	return true
}
