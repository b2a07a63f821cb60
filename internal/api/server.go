// Copyright (c) 2026 Yomira. All rights reserved.
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
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/taibuivan/shiftsphere/internal/platform/apperr"
	"github.com/taibuivan/shiftsphere/internal/platform/config"
	"github.com/taibuivan/shiftsphere/internal/platform/constants"
	"github.com/taibuivan/shiftsphere/internal/platform/metrics"
	"github.com/taibuivan/shiftsphere/internal/platform/middleware"
	"github.com/taibuivan/shiftsphere/internal/platform/respond"
	"github.com/taibuivan/shiftsphere/internal/users/account"
	"github.com/taibuivan/shiftsphere/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        zerolog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler. It returns 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. It returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Metrics exposes the Prometheus registry.
	Metrics http.Handler

	// Realtime is the websocket endpoint, already wrapped by the access guard.
	Realtime http.Handler

	// Auth handles registration, sign-in and session routes.
	Auth *auth.Handler

	// Account handles profile upkeep and administration.
	Account *account.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups. ctx bounds the rate limiter janitors.
func NewServer(ctx context.Context, cfg *config.Config, log zerolog.Logger, recorder *metrics.Metrics, h Handlers) *Server {
	r := chi.NewRouter()

	generalLimiter := middleware.NewLimiter(ctx, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst)
	credentialLimiter := middleware.NewLimiter(ctx, constants.CredentialRateLimitRPS, constants.CredentialRateLimitBurst)

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.PanicRecovery())
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)
	r.Use(recorder.Instrument)

	r.NotFound(routeNotFound)
	r.MethodNotAllowed(methodNotAllowed)

	// # Infrastructure Endpoints
	// Unauthenticated probes for container orchestration and scraping.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}

	// Long-lived upgrade; kept outside the request timeout.
	if h.Realtime != nil {
		r.Handle("/ws", h.Realtime)
	}

	// # Application API
	r.Route("/api", func(api chi.Router) {
		api.Use(chimw.Timeout(constants.GlobalRequestTimeout))
		api.Use(middleware.RateLimit(generalLimiter))

		api.Get("/health", h.Liveness)

		api.Group(func(credentials chi.Router) {
			credentials.Use(middleware.RateLimit(credentialLimiter))
			credentials.Mount("/auth", h.Auth.Routes())
		})
		api.Mount("/users", h.Account.Routes())
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the assembled router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func routeNotFound(writer http.ResponseWriter, request *http.Request) {
	respond.Error(writer, request, apperr.NotFound(fmt.Sprintf("Route %s not found", request.URL.Path)))
}

func methodNotAllowed(writer http.ResponseWriter, request *http.Request) {
	respond.Error(writer, request, apperr.MethodNotAllowed(fmt.Sprintf("Method %s not allowed on %s", request.Method, request.URL.Path)))
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("server_starting")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
