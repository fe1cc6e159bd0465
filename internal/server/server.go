// Package server provides the HTTP API for visearch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charpstar/visearch/internal/config"
	"github.com/charpstar/visearch/internal/search"
)

// Server is the HTTP server for the visearch API.
type Server struct {
	engine  *search.Engine
	config  *config.ServerConfig
	logger  *zap.Logger
	version string
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(engine *search.Engine, cfg *config.ServerConfig, logger *zap.Logger, version string) *Server {
	return &Server{
		engine:  engine,
		config:  cfg,
		logger:  logger,
		version: version,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/embed/text", s.handleEmbedText)
	r.Post("/api/v1/embed/image", s.handleEmbedImage)
	r.Get("/api/v1/lookup", s.handleLookup)
	r.Get("/api/v1/index-info", s.handleIndexInfo)
	r.Get("/api/v1/model-info", s.handleModelInfo)
	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleRoot)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

type ctxKey int

const requestIDKey ctxKey = 0

// requestID assigns each request a UUID, exposed in the response header and
// request context.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFrom returns the request ID assigned by the middleware, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
