// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package api

import (
	"context"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/nova-telemetry/nova/internal/auth"
	"github.com/nova-telemetry/nova/internal/authz"
	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// RateLimitConfig is one endpoint-class rate limit tier.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Per-class tiers. Login is strictest: five attempts per five minutes
// before the limiter answers, independent of the account lockout.
var (
	RateLimitLogin  = RateLimitConfig{Requests: 5, Window: 5 * time.Minute}
	RateLimitAuth   = RateLimitConfig{Requests: 20, Window: time.Minute}
	RateLimitExport = RateLimitConfig{Requests: 10, Window: time.Minute}
	RateLimitHealth = RateLimitConfig{Requests: 1000, Window: time.Minute}
)

// ChiMiddleware builds the chi-compatible middleware stack from the
// security configuration: CORS, tiered rate limits, and the session
// and capability gates.
type ChiMiddleware struct {
	cfg      *config.SecurityConfig
	jwt      *auth.JWTManager
	enforcer *authz.Enforcer
	cors     func(http.Handler) http.Handler
}

// NewChiMiddleware wires the middleware factory. The CORS handler is
// built once; limiters are built per route group so each keeps its own
// counters.
func NewChiMiddleware(cfg *config.SecurityConfig, jwt *auth.JWTManager, enforcer *authz.Enforcer) *ChiMiddleware {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	})

	return &ChiMiddleware{
		cfg:      cfg,
		jwt:      jwt,
		enforcer: enforcer,
		cors:     corsHandler,
	}
}

// CORS returns the global CORS middleware. It must run on every route
// so OPTIONS preflights are answered before anything else rejects them.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns the standard per-IP API limiter from the security
// configuration.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.rateLimit(RateLimitConfig{
		Requests: m.cfg.RateLimitReqs,
		Window:   m.cfg.RateLimitWindow,
	})
}

// RateLimitLogin is the strictest tier, for credential guessing.
func (m *ChiMiddleware) RateLimitLogin() func(http.Handler) http.Handler {
	return m.rateLimit(RateLimitLogin)
}

// RateLimitAuth covers the remaining auth endpoints.
func (m *ChiMiddleware) RateLimitAuth() func(http.Handler) http.Handler {
	return m.rateLimit(RateLimitAuth)
}

// RateLimitExport limits archive downloads and bundle generation,
// which hold disk and IPC resources far longer than ordinary requests.
func (m *ChiMiddleware) RateLimitExport() func(http.Handler) http.Handler {
	return m.rateLimit(RateLimitExport)
}

// RateLimitHealth is permissive so monitoring can poll frequently
// while still bounding abuse.
func (m *ChiMiddleware) RateLimitHealth() func(http.Handler) http.Handler {
	return m.rateLimit(RateLimitHealth)
}

func (m *ChiMiddleware) rateLimit(tier RateLimitConfig) func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.Limit(
		tier.Requests,
		tier.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordRateLimitHit(r.URL.Path)
			respondCode(w, http.StatusTooManyRequests, "RateLimited", "too many requests")
		}),
	)
}

// Authenticate validates the session cookie and stores the claims in
// the request context. Routes behind it can rely on claimsFrom
// returning non-nil.
func (m *ChiMiddleware) Authenticate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromRequest(r)
			if token == "" {
				respondCode(w, http.StatusUnauthorized, string(nverr.KindUnauthenticated), "authentication required")
				return
			}
			claims, err := m.jwt.ValidateToken(token)
			if err != nil {
				respondCode(w, http.StatusUnauthorized, string(nverr.KindUnauthenticated), "invalid or expired session")
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// RequireCapability gates a route group on one capability of the
// caller's role. Runs after Authenticate.
func (m *ChiMiddleware) RequireCapability(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFrom(r.Context())
			if claims == nil {
				respondCode(w, http.StatusUnauthorized, string(nverr.KindUnauthenticated), "authentication required")
				return
			}
			if err := m.enforcer.Require(claims.Role, capability); err != nil {
				respondErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type claimsContextKey struct{}

func withClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, c)
}

// claimsFrom returns the authenticated claims, or nil outside an
// authenticated route group.
func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsContextKey{}).(*auth.Claims)
	return c
}

// RequestIDWithLogging assigns (or propagates) the X-Request-ID header
// and threads request and correlation IDs through the logging context
// before handing off to chi's RequestID middleware.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		chiRequestID := chimiddleware.RequestID(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
				r.Header.Set("X-Request-ID", requestID)
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			ctx = logging.ContextWithNewCorrelationID(ctx)
			chiRequestID.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APISecurityHeaders hardens JSON endpoints. Content-Security-Policy
// is omitted: these routes never serve HTML. HSTS is added only when
// the request arrived over TLS, directly or behind a terminating
// proxy.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Cache-Control", "no-store")

			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// chiMiddleware adapts http.HandlerFunc middleware (the shared
// internal/middleware package) to chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}
