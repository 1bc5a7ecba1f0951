// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// stateTTL bounds how long a login attempt may sit between redirect
// and callback.
const stateTTL = 10 * time.Minute

var (
	defaultOIDCScopes     = []string{"openid", "profile", "email"}
	defaultUsernameClaims = []string{"preferred_username", "name", "email"}
)

// Identity is what a completed OIDC login yields. The caller maps it
// onto a local account; the provider never touches the user store.
type Identity struct {
	Subject  string
	Username string
	Email    string
	Redirect string
}

type oidcState struct {
	nonce     string
	redirect  string
	expiresAt time.Time
}

// OIDCProvider runs the authorization code flow against a single
// OpenID provider. State and nonce live in memory; a restart simply
// voids in-flight logins.
type OIDCProvider struct {
	rp             rp.RelyingParty
	usernameClaims []string
	log            zerolog.Logger

	mu     sync.Mutex
	states map[string]*oidcState

	now func() time.Time
}

// NewOIDCProvider discovers the issuer and builds the relying party.
// Returns (nil, nil) when no issuer is configured, which disables SSO
// without disabling local login.
func NewOIDCProvider(ctx context.Context, cfg *config.OIDCConfig, log zerolog.Logger) (*OIDCProvider, error) {
	if cfg == nil || cfg.IssuerURL == "" {
		return nil, nil
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("oidc: client_id is required")
	}
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("oidc: redirect_url is required")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultOIDCScopes
	}
	usernameClaims := cfg.UsernameClaims
	if len(usernameClaims) == 0 {
		usernameClaims = defaultUsernameClaims
	}

	relyingParty, err := rp.NewRelyingPartyOIDC(ctx,
		cfg.IssuerURL,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.RedirectURL,
		scopes,
		rp.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	return &OIDCProvider{
		rp:             relyingParty,
		usernameClaims: append([]string(nil), usernameClaims...),
		log:            log.With().Str("component", "oidc").Logger(),
		states:         make(map[string]*oidcState),
		now:            time.Now,
	}, nil
}

// AuthURL generates the provider redirect for a new login attempt and
// registers its one-time state.
func (p *OIDCProvider) AuthURL(redirect string) (string, error) {
	state, err := randomToken(32)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomToken(32)
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	authURL := rp.AuthURL(state, p.rp)
	parsed, err := url.Parse(authURL)
	if err != nil {
		return "", fmt.Errorf("parse auth url: %w", err)
	}
	q := parsed.Query()
	q.Set("nonce", nonce)
	parsed.RawQuery = q.Encode()

	p.mu.Lock()
	p.pruneLocked()
	p.states[state] = &oidcState{
		nonce:     nonce,
		redirect:  redirect,
		expiresAt: p.now().Add(stateTTL),
	}
	p.mu.Unlock()

	return parsed.String(), nil
}

// Exchange completes the callback: it consumes the state, trades the
// code for tokens, checks the nonce, and extracts the identity.
func (p *OIDCProvider) Exchange(ctx context.Context, code, state string) (*Identity, error) {
	entry, err := p.consumeState(state)
	if err != nil {
		return nil, err
	}

	tokens, err := rp.CodeExchange[*oidc.IDTokenClaims](ctx, code, p.rp)
	if err != nil {
		p.log.Warn().Err(err).Msg("oidc code exchange failed")
		return nil, nverr.New(nverr.KindUnauthenticated, "login failed")
	}
	claims := tokens.IDTokenClaims
	if claims == nil {
		return nil, nverr.New(nverr.KindUnauthenticated, "provider returned no identity")
	}
	if claims.Nonce != entry.nonce {
		p.log.Warn().Msg("oidc nonce mismatch")
		return nil, nverr.New(nverr.KindUnauthenticated, "login failed")
	}

	id := &Identity{
		Subject:  claims.Subject,
		Username: p.extractUsername(claims),
		Email:    claims.Email,
		Redirect: entry.redirect,
	}
	if id.Username == "" {
		id.Username = claims.Subject
	}

	p.log.Info().Str("username", id.Username).Msg("oidc login completed")
	return id, nil
}

// consumeState validates the state parameter and deletes it so a
// replayed callback fails.
func (p *OIDCProvider) consumeState(state string) (*oidcState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.states[state]
	if !ok {
		return nil, nverr.New(nverr.KindUnauthenticated, "unknown or expired login state")
	}
	delete(p.states, state)
	if p.now().After(entry.expiresAt) {
		return nil, nverr.New(nverr.KindUnauthenticated, "unknown or expired login state")
	}
	return entry, nil
}

func (p *OIDCProvider) pruneLocked() {
	now := p.now()
	for key, entry := range p.states {
		if now.After(entry.expiresAt) {
			delete(p.states, key)
		}
	}
}

// extractUsername picks the local username from the configured claim
// priority, falling back through raw claims for provider-specific
// names.
func (p *OIDCProvider) extractUsername(claims *oidc.IDTokenClaims) string {
	for _, name := range p.usernameClaims {
		switch name {
		case "preferred_username":
			if claims.PreferredUsername != "" {
				return claims.PreferredUsername
			}
		case "name":
			if claims.Name != "" {
				return claims.Name
			}
		case "email":
			if claims.Email != "" {
				return claims.Email
			}
		default:
			if claims.Claims != nil {
				if v, ok := claims.Claims[name].(string); ok && v != "" {
					return v
				}
			}
		}
	}
	return ""
}

// randomToken returns a base64url-encoded cryptographically random
// string.
func randomToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
