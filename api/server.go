// Package api exposes the answering pipeline as a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern-ai/lectern/internal/rag"
	"github.com/lectern-ai/lectern/internal/tools"
)

// defaultQueryTimeout bounds one full answer, tool rounds included.
const defaultQueryTimeout = 2 * time.Minute

// QuerySystem is the slice of the pipeline the handlers need.
type QuerySystem interface {
	Query(ctx context.Context, query, sessionID string) (*rag.QueryResponse, error)
	Stats(ctx context.Context) (*rag.Stats, error)
	ClearSession(sessionID string)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       *slog.Logger
	System       QuerySystem     // Required
	Registry     *tools.Registry // Optional: nil disables GET /api/tools
	Pool         *pgxpool.Pool   // Optional: nil disables pool checks in /ready
	QueryTimeout time.Duration   // Zero uses the default
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.System == nil {
		return nil, errors.New("query system is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}

	qh := &queryHandler{system: cfg.System, timeout: timeout, logger: logger}
	ch := &coursesHandler{system: cfg.System, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/query", qh.query)
	mux.HandleFunc("DELETE /api/sessions/{id}", qh.clearSession)
	mux.HandleFunc("GET /api/courses", ch.courses)
	if cfg.Registry != nil {
		th := &toolsHandler{registry: cfg.Registry, logger: logger}
		mux.HandleFunc("GET /api/tools", th.schemas)
	}

	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes stay outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
