// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/nova-telemetry/nova/internal/models"
)

type adminCreateUserRequest struct {
	Username string   `json:"username" validate:"required,max=64"`
	Password string   `json:"password" validate:"required,max=256"`
	Role     string   `json:"role" validate:"required"`
	Scopes   []string `json:"scopes"`
}

type approveUserRequest struct {
	Role   string   `json:"role" validate:"required"`
	Scopes []string `json:"scopes"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type updateScopesRequest struct {
	Scopes []string `json:"scopes" validate:"required"`
}

type updatePasswordRequest struct {
	Password string `json:"password" validate:"required,max=256"`
}

// ListUsers lists all accounts
//
// @Summary List users
// @Description Returns every account, pending ones included. Password hashes never serialize.
// @Tags Admin
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]models.User}
// @Failure 403 {object} models.APIResponse
// @Router /api/admin/users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.users.List())
}

// CreateUser creates an active account
//
// @Summary Create a user
// @Description Creates an account that is immediately active, bypassing the pending-approval flow.
// @Tags Admin
// @Accept json
// @Produce json
// @Param user body adminCreateUserRequest true "Account"
// @Success 201 {object} models.APIResponse{data=models.User}
// @Failure 400 {object} models.APIResponse "Bad username, password or role"
// @Failure 409 {object} models.APIResponse "Username taken"
// @Router /api/admin/users [post]
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req adminCreateUserRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondErr(w, r, err)
		return
	}
	user, err := h.users.Create(req.Username, req.Password, req.Role, req.Scopes)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.seclog.LogUserChange(claimsFrom(r.Context()).Username, req.Username, "created")
	respondData(w, http.StatusCreated, user)
}

// ApproveUser activates a pending account
//
// @Summary Approve a pending user
// @Description Activates a self-registered account with the given role and scope grant. Approving an active account updates its grant.
// @Tags Admin
// @Accept json
// @Produce json
// @Param username path string true "Username"
// @Param grant body approveUserRequest true "Role and scopes"
// @Success 200 {object} models.APIResponse{data=models.User}
// @Failure 404 {object} models.APIResponse
// @Router /api/admin/users/{username}/approve [post]
func (h *Handler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	var req approveUserRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondErr(w, r, err)
		return
	}
	user, err := h.users.Approve(chi.URLParam(r, "username"), req.Role, req.Scopes)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.seclog.LogUserChange(claimsFrom(r.Context()).Username, user.Username, "approved")
	respondData(w, http.StatusOK, user)
}

// UpdateUserRole changes an account's role
//
// @Summary Update a user's role
// @Description Changes the role. Demoting the last admin is refused.
// @Tags Admin
// @Accept json
// @Produce json
// @Param username path string true "Username"
// @Param role body updateRoleRequest true "New role"
// @Success 200 {object} models.APIResponse{data=models.User}
// @Failure 404 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse "Would leave no admin"
// @Router /api/admin/users/{username}/role [put]
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondErr(w, r, err)
		return
	}
	user, err := h.users.UpdateRole(chi.URLParam(r, "username"), req.Role)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.seclog.LogUserChange(claimsFrom(r.Context()).Username, user.Username, "role changed to "+req.Role)
	respondData(w, http.StatusOK, user)
}

// UpdateUserScopes changes an account's scope grant
//
// @Summary Update a user's scopes
// @Tags Admin
// @Accept json
// @Produce json
// @Param username path string true "Username"
// @Param scopes body updateScopesRequest true "New scope grant"
// @Success 200 {object} models.APIResponse{data=models.User}
// @Failure 404 {object} models.APIResponse
// @Router /api/admin/users/{username}/scopes [put]
func (h *Handler) UpdateUserScopes(w http.ResponseWriter, r *http.Request) {
	var req updateScopesRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondErr(w, r, err)
		return
	}
	user, err := h.users.UpdateScopes(chi.URLParam(r, "username"), req.Scopes)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.seclog.LogUserChange(claimsFrom(r.Context()).Username, user.Username, "scopes changed")
	respondData(w, http.StatusOK, user)
}

// UpdateUserPassword resets an account's password
//
// @Summary Reset a user's password
// @Tags Admin
// @Accept json
// @Produce json
// @Param username path string true "Username"
// @Param password body updatePasswordRequest true "New password"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Password too weak"
// @Failure 404 {object} models.APIResponse
// @Router /api/admin/users/{username}/password [put]
func (h *Handler) UpdateUserPassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondErr(w, r, err)
		return
	}
	username := chi.URLParam(r, "username")
	if err := h.users.UpdatePassword(username, req.Password); err != nil {
		respondErr(w, r, err)
		return
	}
	h.seclog.LogUserChange(claimsFrom(r.Context()).Username, username, "password reset")
	respondData(w, http.StatusOK, map[string]string{"updated": username})
}

// DeleteUser removes an account
//
// @Summary Delete a user
// @Description Removes the account. Deleting the last admin is refused. Run and presentation files stay on disk.
// @Tags Admin
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse "Would leave no admin"
// @Router /api/admin/users/{username} [delete]
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if err := h.users.Delete(username); err != nil {
		respondErr(w, r, err)
		return
	}
	h.seclog.LogUserChange(claimsFrom(r.Context()).Username, username, "deleted")
	respondData(w, http.StatusOK, map[string]string{"deleted": username})
}

// ListScopes lists scope ids known to this edge
//
// @Summary List known scopes
// @Description Returns the union of scopes granted to any user and scopes referenced by stream definitions, for building grants. The ALL wildcard is not itself a scope and is excluded.
// @Tags Admin
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]string}
// @Failure 403 {object} models.APIResponse
// @Router /api/admin/scopes [get]
func (h *Handler) ListScopes(w http.ResponseWriter, r *http.Request) {
	seen := make(map[string]struct{})
	for _, u := range h.users.List() {
		for _, s := range u.AllowedScopes {
			if s != models.ScopeAll {
				seen[s] = struct{}{}
			}
		}
	}
	if defs, err := h.streams.List(); err == nil {
		for _, def := range defs {
			if def.ScopeID != "" {
				seen[def.ScopeID] = struct{}{}
			}
		}
	}

	scopes := make([]string, 0, len(seen))
	for s := range seen {
		scopes = append(scopes, s)
	}
	sort.Strings(scopes)
	respondData(w, http.StatusOK, scopes)
}
