// Package web provides the HTTP surface the import wizard UI drives.
// All responses are JSON; rendering is the host application's problem.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fieldline/fieldline/internal/config"
	"github.com/fieldline/fieldline/internal/importer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP server for the import API.
type Server struct {
	service *importer.Service
	cfg     *config.Config
	metrics http.Handler
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server instance. metricsHandler may be nil.
func NewServer(service *importer.Service, cfg *config.Config, metricsHandler http.Handler) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		metrics: metricsHandler,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/entities", s.handleListEntities)

		r.Post("/imports", s.handleCreateImport)
		r.Route("/imports/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetImport)
			r.Put("/mapping", s.handleSetMapping)
			r.Get("/preview", s.handlePreview)
			r.Post("/confirm", s.handleConfirm)
			r.Get("/progress", s.handleProgress)
			r.Get("/result", s.handleResult)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout, // 0 keeps SSE alive
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
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

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
