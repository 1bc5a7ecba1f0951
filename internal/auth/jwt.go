// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/models"
)

// SessionCookie is the cookie the edge issues on login and reads on
// every request, HTTP and WebSocket upgrade alike.
const SessionCookie = "nova_session"

// minSecretLength guards against trivially brute-forceable HMAC keys.
const minSecretLength = 32

// Claims are the session claims. Scopes travel in the token so the
// edge can authorize without a user-store read per request; a scope
// grant change therefore takes effect on next login.
type Claims struct {
	Username string   `json:"username"`
	Role     string   `json:"role"`
	Scopes   []string `json:"scopes"`
	jwt.RegisteredClaims
}

// HasScope mirrors models.User.HasScope over token claims.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == models.ScopeAll || s == scope {
			return true
		}
	}
	return false
}

// SingleScope returns the only concrete scope when exactly one is
// held. The wildcard never infers.
func (c *Claims) SingleScope() (string, bool) {
	if len(c.Scopes) == 1 && c.Scopes[0] != models.ScopeAll {
		return c.Scopes[0], true
	}
	return "", false
}

// JWTManager signs and validates session tokens with HMAC-SHA256.
type JWTManager struct {
	secret  []byte
	timeout time.Duration
}

// NewJWTManager builds the manager from security configuration. The
// secret must be at least 32 bytes.
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if len(cfg.JWTSecret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLength)
	}
	timeout := cfg.SessionTimeout
	if timeout <= 0 {
		timeout = 24 * time.Hour
	}
	return &JWTManager{
		secret:  []byte(cfg.JWTSecret),
		timeout: timeout,
	}, nil
}

// Timeout is the session lifetime, also used as the cookie max age.
func (m *JWTManager) Timeout() time.Duration {
	return m.timeout
}

// GenerateToken signs a session token for an authenticated user.
func (m *JWTManager) GenerateToken(u *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: u.Username,
		Role:     u.Role,
		Scopes:   append([]string(nil), u.AllowedScopes...),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token, rejecting any signing
// method other than HMAC to prevent algorithm confusion.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// SetSessionCookie issues the session cookie on a login response.
func (m *JWTManager) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.timeout.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie expires the session cookie on logout.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// TokenFromRequest extracts the session token from the cookie, or ""
// when none is present.
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}
