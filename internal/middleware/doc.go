// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

/*
Package middleware provides HTTP middleware components for the server edge.

This package implements infrastructure middleware for compression, performance
monitoring, request ID tracking, and Prometheus metrics integration. These
components work alongside the chi built-ins (RealIP, Recoverer) and the auth
middleware to form the complete request processing stack.

Key Components:

  - Compression: Gzip compression for API responses
  - Performance Monitor: Request latency tracking with percentile calculations
  - Request ID: UUID-based request tracking wired into the logging context
  - Prometheus Metrics: HTTP request/response instrumentation

Middleware Stack:

The router applies middleware in this order:

	r.Use(chiMiddleware(middleware.RequestID))      // X-Request-ID + log context
	r.Use(chimiddleware.RealIP)                     // X-Forwarded-For resolution
	r.Use(chimiddleware.Recoverer)                  // Panic recovery
	r.Use(cors.Handler(corsOptions))                // CORS headers
	r.Use(httprate.LimitByIP(limit, window))        // Rate limiting
	r.Use(chiMiddleware(middleware.PrometheusMetrics))
	r.Use(chiMiddleware(middleware.Compression))

Usage Example - Request ID:

	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := middleware.GetRequestID(r.Context())
	    logging.Ctx(r.Context()).Info().Msg("Processing request")
	    _ = requestID
	}

The logging context carries both the request ID and a fresh correlation ID,
so log lines from any package invoked during the request can be joined back
to the originating HTTP call.

Usage Example - Performance Monitoring:

	perfMon := middleware.NewPerformanceMonitor(1000)
	handler := perfMon.Middleware(mux)

	// Later, from the admin surface:
	stats := perfMon.GetStats()
	for _, s := range stats {
	    fmt.Printf("%s p95=%dms\n", s.Path, s.P95Duration)
	}

Compression Details:

The compression middleware:
  - Supports gzip encoding (Accept-Encoding: gzip)
  - Skips WebSocket upgrade requests
  - Skips /exports/ archive downloads (zip payloads are already compressed)
  - Pools gzip writers to avoid per-request allocations

Thread Safety:

All middleware components are thread-safe:
  - Compression uses pooled writers handed to one request at a time
  - Performance monitor uses sync.RWMutex
  - Request ID uses context.Context (immutable)
  - Prometheus metrics use atomic operations

See Also:

  - internal/api: router assembly and auth middleware
  - internal/metrics: Prometheus metrics definitions
  - internal/logging: request/correlation ID context helpers
*/
package middleware
