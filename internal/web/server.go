// Package web provides the HTTP API that triggers ingestion passes.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/tsvingest/internal/config"
	"github.com/JonMunkholm/tsvingest/internal/core"
	"github.com/JonMunkholm/tsvingest/internal/web/middleware"
)

// Server is the HTTP server for the ingestion API.
type Server struct {
	ingestor *core.Ingestor
	limiter  *passLimiter
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server around ingestor.
func NewServer(ingestor *core.Ingestor, cfg *config.Config) *Server {
	s := &Server{
		ingestor: ingestor,
		limiter:  newPassLimiter(cfg.Ingest.MaxPending, cfg.Ingest.QueueWait),
		cfg:      cfg,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Server.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes. handleIngest applies the ingest
// timeout itself; everything else runs under the request timeout.
func (s *Server) setupRoutes() {
	s.router.With(chimw.Timeout(s.cfg.Server.RequestTimeout)).Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Server.RequireAPIKey, s.cfg.Server.APIKeys))

		r.With(chimw.Timeout(s.cfg.Server.RequestTimeout)).Get("/mappings", s.handleListMappings)
		r.Post("/ingest", s.handleIngest)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for a running pass to return.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error",
			"path", r.URL.Path,
			"error", err,
			"request_id", chimw.GetReqID(r.Context()),
		)
	}
}
