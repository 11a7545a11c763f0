// Package web provides the HTTP server and JSON handlers for the import
// pipeline and sales data API.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tigerops/salesops/internal/config"
	"github.com/tigerops/salesops/internal/core"
	"github.com/tigerops/salesops/internal/web/middleware"
)

// Server is the HTTP server for the sales import application.
type Server struct {
	service  *core.Service
	cfg      *config.Config
	resolver middleware.Resolver
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server wired to the given service and identity
// resolver.
func NewServer(service *core.Service, cfg *config.Config, resolver middleware.Resolver) *Server {
	s := &Server{
		service:  service,
		cfg:      cfg,
		resolver: resolver,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, requestWindow)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/api/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(s.resolver))
		r.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleSalesManager))

		// Wizard sessions
		r.Route("/api/import/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleSessionSnapshot)
				r.Delete("/", s.handleCloseSession)
				r.Post("/file", s.handleSessionFile)
				r.Put("/mapping", s.handleSessionMapping)
				r.Post("/apply", s.handleSessionApply)
				r.Post("/back", s.handleSessionBack)
				r.Post("/reset", s.handleSessionReset)
				r.Put("/rows/{rowNumber}", s.handleSessionEditRow)
				r.Delete("/rows/{rowNumber}", s.handleSessionRemoveRow)
				r.Post("/commit", s.handleSessionCommit)
			})
		})

		// Stateless sales API
		r.Post("/api/sales/import", s.handleSalesImport)
		r.Post("/api/sales/entry", s.handleSalesEntry)
		r.Get("/api/sales/report", s.handleSalesReport)
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

	slog.Info("http server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handleHealth reports liveness plus a couple of cheap gauges.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"open_sessions": s.service.OpenSessions(),
	})
}

// securityHeaders sets defensive response headers on every route.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
