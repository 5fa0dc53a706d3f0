// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/animeids/internal/access"
	"github.com/taibuivan/animeids/internal/mapping"
	"github.com/taibuivan/animeids/internal/platform/apperr"
	"github.com/taibuivan/animeids/internal/platform/config"
	"github.com/taibuivan/animeids/internal/platform/constants"
	"github.com/taibuivan/animeids/internal/platform/metrics"
	"github.com/taibuivan/animeids/internal/platform/middleware"
	"github.com/taibuivan/animeids/internal/platform/respond"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	port       string
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all HTTP handler sets.
type Handlers struct {
	// Health serves health checks, status, schema and other public documents.
	Health *HealthHandler

	// Mapping serves lookups, redirects and the legacy archive routes.
	Mapping *mapping.Handler

	// Access serves API-key management.
	Access *access.Handler
}

// Guards groups the admission components of the middleware chain.
type Guards struct {
	// Lookup authenticates lookup and redirect requests. A public-scope
	// authenticator leaves them open.
	Lookup middleware.Authenticator

	// Session authenticates API-key management requests.
	Session middleware.Authenticator

	// Limiter enforces the per-principal fixed window.
	Limiter middleware.RateChecker

	// IP is the coarse per-address bucket applied to every request.
	IP *middleware.IPGuard
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(cfg *config.Config, log *slog.Logger, guards Guards, h Handlers) *Server {
	return &Server{
		router: newRouter(cfg, log, guards, h),
		port:   cfg.ServerPort,
		log:    log,
	}
}

// newRouter builds the routing tree; split out so tests can drive it directly.
func newRouter(cfg *config.Config, log *slog.Logger, guards Guards, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.PanicRecovery())
	r.Use(middleware.CORS(cfg))
	if guards.IP != nil {
		r.Use(guards.IP.Middleware)
	}
	r.Use(middleware.ReadOnly("/apikey/regenerate"))
	r.Use(chimw.CleanPath)

	r.MethodNotAllowed(func(writer http.ResponseWriter, request *http.Request) {
		respond.Error(writer, request, apperr.MethodNotAllowed("Only GET requests are allowed"))
	})
	r.NotFound(func(writer http.ResponseWriter, request *http.Request) {
		respond.Error(writer, request, apperr.NotFound("Endpoint not found"))
	})

	// # Infrastructure Endpoints
	// Unauthenticated health checks and documents.
	h.Health.Routes(r)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// # Key Management
	// Session tokens only.
	r.Group(func(session chi.Router) {
		session.Use(middleware.Authenticate(guards.Session, guards.Limiter))
		h.Access.Routes(session)
	})

	// # Resolution API
	// Static routes win over the catch-all platform patterns in chi.
	r.Group(func(lookup chi.Router) {
		lookup.Use(middleware.Authenticate(guards.Lookup, guards.Limiter))
		h.Mapping.Routes(lookup)
	})

	return r
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server on the configured port.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router,
		ReadTimeout:       constants.DefaultReadTimeout,
		WriteTimeout:      constants.DefaultWriteTimeout,
		IdleTimeout:       constants.DefaultIdleTimeout,
		ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
	}

	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
