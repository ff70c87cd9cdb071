package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jaimegago/toolrouter/internal/llm"
	"github.com/jaimegago/toolrouter/internal/pipeline"
	"github.com/jaimegago/toolrouter/internal/router"
)

// Version is reported by the status endpoint
const Version = "0.1.0"

// Server handles HTTP API requests for routerd
type Server struct {
	router     *router.Router
	translator *pipeline.Translator
	summarizer *pipeline.Summarizer
	stats      func() llm.Stats
	metrics    http.Handler
	logger     *slog.Logger
	maxHistory int
	started    time.Time
}

// Option configures optional Server dependencies
type Option func(*Server)

// WithPipelines enables the translate and summarize endpoints
func WithPipelines(t *pipeline.Translator, s *pipeline.Summarizer) Option {
	return func(srv *Server) {
		srv.translator = t
		srv.summarizer = s
	}
}

// WithStats reports LLM usage on the status endpoint
func WithStats(f func() llm.Stats) Option {
	return func(s *Server) { s.stats = f }
}

// WithMetricsHandler serves h on /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMaxHistory bounds websocket conversation history
func WithMaxHistory(n int) Option {
	return func(s *Server) { s.maxHistory = n }
}

// New creates a new API server
func New(r *router.Router, opts ...Option) *Server {
	s := &Server{
		router:  r,
		logger:  slog.Default(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRoutes registers all API routes on the given mux
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Status
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/tools", s.handleTools)

	// Chat
	mux.HandleFunc("POST /api/v1/chat", s.handleChat)
	mux.HandleFunc("GET /api/v1/chat/ws", s.handleChatWS)

	// Pipelines
	mux.HandleFunc("POST /api/v1/translate", s.handleTranslate)
	mux.HandleFunc("POST /api/v1/summarize", s.handleSummarize)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
}

// Handler returns a mux with all routes registered
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// Status represents the status response
type Status struct {
	Status        string     `json:"status"`
	Version       string     `json:"version"`
	Time          string     `json:"time"`
	UptimeSec     int64      `json:"uptime_sec"`
	Model         string     `json:"model,omitempty"`
	MaxIterations int        `json:"max_iterations"`
	Tools         []string   `json:"tools"`
	LLM           *llm.Stats `json:"llm,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := Status{
		Status:        "ok",
		Version:       Version,
		Time:          time.Now().UTC().Format(time.RFC3339),
		UptimeSec:     int64(time.Since(s.started).Seconds()),
		Model:         s.router.CurrentModelName(),
		MaxIterations: s.router.MaxIterations(),
		Tools:         s.router.Registry().Names(),
	}
	if s.stats != nil {
		st := s.stats()
		status.LLM = &st
	}
	writeJSON(w, http.StatusOK, status)
}

// ToolInfo describes a registered tool
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	defs := s.router.Registry().ToDefinitions()
	out := make([]ToolInfo, len(defs))
	for i, def := range defs {
		out[i] = ToolInfo{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters.JSONSchema(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
