// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/nova-telemetry/nova/internal/middleware"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// Router wires handlers and middleware into the served route tree.
type Router struct {
	handler *Handler
	mw      *ChiMiddleware
}

// NewRouter builds a router over the given handler set.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	return &Router{handler: handler, mw: mw}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	// Applied to ALL routes in order
	r.Use(RequestIDWithLogging())         // Add X-Request-ID header with logging context
	r.Use(chimiddleware.RealIP)           // Extract real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer)        // Recover from panics
	r.Use(router.mw.CORS())               // CORS must be global to handle OPTIONS preflight
	r.Use(chiMiddleware(middleware.Compression))

	// ========================
	// Health Endpoints
	// ========================
	// Permissive rate limiting so monitors can poll freely. /health is
	// the flat alias for probes that only take a path.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.mw.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})
	r.With(router.mw.RateLimitHealth(), APISecurityHeaders()).
		Get("/health", router.handler.Health)

	// ========================
	// Authentication Endpoints
	// ========================
	// Strict rate limiting against brute force; login strictest of all.
	r.Route("/auth", func(r chi.Router) {
		r.Use(router.mw.RateLimitAuth())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.With(router.mw.RateLimitLogin()).Post("/login", router.handler.Login)
		r.Post("/logout", router.handler.Logout)
		r.Post("/register", router.handler.Register)

		r.Get("/oidc/login", router.handler.OIDCLogin)
		r.Get("/oidc/callback", router.handler.OIDCCallback)

		r.Group(func(r chi.Router) {
			r.Use(router.mw.Authenticate())
			r.Get("/me", router.handler.Me)
		})
	})

	// ========================
	// Node Configuration
	// ========================
	r.Route("/config", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(router.mw.Authenticate())
		r.Get("/", router.handler.Config)
	})

	// ========================
	// Client WebSocket
	// ========================
	// The upgrade authenticates from the session cookie; everything
	// after that rides the socket protocol.
	r.Route("/ws", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(router.mw.Authenticate())
		r.Get("/", router.handler.WebSocket)
	})

	// ========================
	// Stream Definitions
	// ========================
	r.Route("/api/streams", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.mw.Authenticate())
		r.Use(router.mw.RequireCapability(models.CapabilityRead))

		r.Get("/", router.handler.ListStreams)
		r.Get("/{streamId}", router.handler.GetStream)
		r.Get("/{streamId}/status", router.handler.StreamStatus)

		// Writes need the command capability on top of read.
		r.Group(func(r chi.Router) {
			r.Use(router.mw.RequireCapability(models.CapabilityCommand))

			r.Post("/", router.handler.CreateStream)
			r.Put("/{streamId}", router.handler.UpdateStream)
			r.Delete("/{streamId}", router.handler.DeleteStream)
			r.Post("/{streamId}/enable", router.handler.EnableStream)
			r.Post("/{streamId}/disable", router.handler.DisableStream)
			r.Post("/{streamId}/bind", router.handler.BindStream)
			r.Post("/{streamId}/unbind", router.handler.UnbindStream)
		})
	})

	// ========================
	// Runs
	// ========================
	r.Route("/api/runs", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.mw.Authenticate())
		r.Use(router.mw.RequireCapability(models.CapabilityRead))

		r.Get("/", router.handler.ListRuns)
		r.Post("/", router.handler.CreateRun)
		r.Get("/{runNumber}", router.handler.GetRun)
		r.Patch("/{runNumber}", router.handler.UpdateRun)
		r.Delete("/{runNumber}", router.handler.DeleteRun)

		// Bundle generation drives an export through the Core, so it
		// takes the command capability and the export rate limit.
		r.With(router.mw.RequireCapability(models.CapabilityCommand), router.mw.RateLimitExport()).
			Post("/{runNumber}/bundle", router.handler.CreateRunBundle)
	})

	// ========================
	// Presentation Layers
	// ========================
	r.Route("/api/presentation", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.mw.Authenticate())
		r.Use(router.mw.RequireCapability(models.CapabilityRead))

		r.Get("/", router.handler.GetPresentation)
		r.Put("/", router.handler.SetPresentation)
		r.Post("/resolve", router.handler.ResolvePresentation)

		r.Get("/defaults", router.handler.GetPresentationDefaults)
		r.With(router.mw.RequireCapability(models.CapabilityAdmin)).
			Put("/defaults", router.handler.SetPresentationDefaults)
	})

	// ========================
	// Admin Endpoints
	// ========================
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.mw.Authenticate())
		r.Use(router.mw.RequireCapability(models.CapabilityAdmin))

		r.Get("/users", router.handler.ListUsers)
		r.Post("/users", router.handler.CreateUser)
		r.Delete("/users/{username}", router.handler.DeleteUser)
		r.Post("/users/{username}/approve", router.handler.ApproveUser)
		r.Put("/users/{username}/role", router.handler.UpdateUserRole)
		r.Put("/users/{username}/scopes", router.handler.UpdateUserScopes)
		r.Put("/users/{username}/password", router.handler.UpdateUserPassword)

		r.Get("/scopes", router.handler.ListScopes)
	})

	// ========================
	// Export Downloads
	// ========================
	r.Route("/exports", func(r chi.Router) {
		r.Use(router.mw.RateLimitExport())
		r.Use(router.mw.Authenticate())
		r.Use(router.mw.RequireCapability(models.CapabilityRead))
		r.Get("/{exportFile}", router.handler.DownloadExport)
	})

	// ========================
	// Output Stream Consumers
	// ========================
	// The WebSocket flavor of the output feeds. TCP and UDP feeds carry
	// no session either, so this surface stays open; rate limited per IP.
	r.Route("/streams/ws", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Get("/{path}", router.handler.StreamWS)
	})

	// ========================
	// Observability
	// ========================
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	// Unmatched routes answer in the same envelope as everything else.
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondCode(w, http.StatusNotFound, string(nverr.KindNotFound), "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondCode(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	})

	return r
}
