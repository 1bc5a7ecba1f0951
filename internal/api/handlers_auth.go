// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package api

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/nova-telemetry/nova/internal/auth"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=256"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=256"`
}

// sessionInfo is the /auth/login and /auth/me payload.
type sessionInfo struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login authenticates a local account
//
// @Summary Log in with username and password
// @Description Verifies credentials and issues the session cookie. Repeated failures for a username+IP pair trip a temporary lockout.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body loginRequest true "Credentials"
// @Success 200 {object} models.APIResponse{data=sessionInfo}
// @Failure 400 {object} models.APIResponse "Malformed request"
// @Failure 401 {object} models.APIResponse "Invalid credentials"
// @Failure 429 {object} models.APIResponse "Locked out"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondErr(w, r, err)
		return
	}

	ip := clientIP(r)
	agent := r.UserAgent()

	if locked, retry := h.lockout.Locked(req.Username, ip); locked {
		h.seclog.LogLoginFailure(req.Username, "local", ip, agent, "locked out")
		w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
		respondCode(w, http.StatusTooManyRequests, "Locked", "too many failed logins, try again later")
		return
	}

	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		h.lockout.RecordFailure(req.Username, ip)
		h.seclog.LogLoginFailure(req.Username, "local", ip, agent, "invalid credentials")
		respondErr(w, r, err)
		return
	}
	h.lockout.RecordSuccess(req.Username, ip)

	if err := h.issueSession(w, user); err != nil {
		respondErr(w, r, err)
		return
	}
	h.seclog.LogLoginSuccess(user.Username, "local", ip, agent)

	respondData(w, http.StatusOK, sessionInfo{
		Username:  user.Username,
		Role:      user.Role,
		Scopes:    user.AllowedScopes,
		ExpiresAt: time.Now().Add(h.jwt.Timeout()).UTC(),
	})
}

// issueSession generates a token for the user and sets the cookie.
func (h *Handler) issueSession(w http.ResponseWriter, user *models.User) error {
	token, err := h.jwt.GenerateToken(user)
	if err != nil {
		return nverr.Wrap(nverr.KindInternal, "failed to issue session", err)
	}
	h.jwt.SetSessionCookie(w, token)
	return nil
}

// Logout ends the session
//
// @Summary Log out
// @Description Expires the session cookie. Tokens are stateless, so the cookie clearing is the whole logout.
// @Tags Auth
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		if claims, err := h.jwt.ValidateToken(token); err == nil {
			h.seclog.LogLogout(claims.Username, clientIP(r))
		}
	}
	auth.ClearSessionCookie(w)
	respondData(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

// Register creates a pending account
//
// @Summary Register a new account
// @Description Creates a viewer account in the pending state. An admin approves it with a role and scope grant before it can log in.
// @Tags Auth
// @Accept json
// @Produce json
// @Param account body registerRequest true "Desired account"
// @Success 201 {object} models.APIResponse{data=models.User}
// @Failure 400 {object} models.APIResponse "Malformed request"
// @Failure 409 {object} models.APIResponse "Username taken"
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondErr(w, r, err)
		return
	}

	user, err := h.users.Register(req.Username, req.Password)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, user)
}

// Me reports the current session
//
// @Summary Describe the authenticated session
// @Tags Auth
// @Produce json
// @Success 200 {object} models.APIResponse{data=sessionInfo}
// @Failure 401 {object} models.APIResponse
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	info := sessionInfo{
		Username: claims.Username,
		Role:     claims.Role,
		Scopes:   claims.Scopes,
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	respondData(w, http.StatusOK, info)
}

// OIDCLogin starts the SSO flow
//
// @Summary Redirect to the OpenID provider
// @Description Begins the authorization code flow. The optional redirect parameter is replayed after the callback completes.
// @Tags Auth
// @Param redirect query string false "Post-login redirect path"
// @Success 302 {string} string "Provider redirect"
// @Router /auth/oidc/login [get]
func (h *Handler) OIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		respondCode(w, http.StatusNotFound, string(nverr.KindNotFound), "single sign-on is not configured")
		return
	}
	target, err := h.oidc.AuthURL(r.URL.Query().Get("redirect"))
	if err != nil {
		respondErr(w, r, nverr.Wrap(nverr.KindInternal, "failed to start login", err))
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// OIDCCallback completes the SSO flow
//
// @Summary Exchange the provider callback for a session
// @Description Trades the authorization code for an identity, maps it onto a local account and issues the session cookie. Unknown identities are registered pending approval.
// @Tags Auth
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "Flow state"
// @Success 302 {string} string "Logged in, redirecting"
// @Failure 401 {object} models.APIResponse "Exchange failed"
// @Failure 403 {object} models.APIResponse "Account pending approval"
// @Router /auth/oidc/callback [get]
func (h *Handler) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		respondCode(w, http.StatusNotFound, string(nverr.KindNotFound), "single sign-on is not configured")
		return
	}

	q := r.URL.Query()
	identity, err := h.oidc.Exchange(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	ip := clientIP(r)
	agent := r.UserAgent()

	user, err := h.users.Get(identity.Username)
	if nverr.KindOf(err) == nverr.KindNotFound {
		// First SSO login: register pending with a throwaway local
		// password. The provider owns the real credential.
		if _, rerr := h.users.Register(identity.Username, randomPassword()); rerr != nil {
			respondErr(w, r, rerr)
			return
		}
		h.seclog.LogLoginFailure(identity.Username, "oidc", ip, agent, "account pending approval")
		respondCode(w, http.StatusForbidden, string(nverr.KindPermissionDenied), "account created, pending admin approval")
		return
	}
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if user.Pending {
		h.seclog.LogLoginFailure(identity.Username, "oidc", ip, agent, "account pending approval")
		respondCode(w, http.StatusForbidden, string(nverr.KindPermissionDenied), "account pending admin approval")
		return
	}

	if err := h.issueSession(w, user); err != nil {
		respondErr(w, r, err)
		return
	}
	h.seclog.LogLoginSuccess(user.Username, "oidc", ip, agent)

	redirect := identity.Redirect
	if redirect == "" || redirect[0] != '/' {
		redirect = "/"
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

// randomPassword fills the password slot of provider-owned accounts.
// It is never told to anyone, so logging in locally with it is not
// possible in practice.
func randomPassword() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b) //nolint:errcheck // crypto/rand never fails on supported platforms
	return base64.RawURLEncoding.EncodeToString(b)
}
