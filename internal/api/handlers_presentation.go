// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package api

import (
	"net/http"

	"github.com/nova-telemetry/nova/internal/models"
)

// presentationWrite is the body for override and default writes. Keys
// are entity uniqueIds; invalid fields inside are dropped, not rejected.
type presentationWrite struct {
	Entities map[string]models.PresentationFields `json:"entities" validate:"required"`
}

type presentationResolve struct {
	UniqueIDs []string `json:"uniqueIds" validate:"required,min=1,max=4096"`
}

// presentationChange is the fan-out payload for presentation writes.
// User-layer changes carry the username so other users' clients can
// skip the refresh.
type presentationChange struct {
	ScopeID  string                               `json:"scopeId"`
	Layer    string                               `json:"layer"`
	Username string                               `json:"username,omitempty"`
	Entities map[string]models.PresentationFields `json:"entities"`
}

// GetPresentation reads the caller's overrides
//
// @Summary Get user presentation overrides
// @Description Returns the caller's own override layer for one scope, without admin or factory defaults merged in.
// @Tags Presentation
// @Produce json
// @Param scope query string false "Scope, when the caller holds more than one"
// @Success 200 {object} models.APIResponse{data=map[string]models.PresentationFields}
// @Failure 400 {object} models.APIResponse "Scope required"
// @Router /api/presentation [get]
func (h *Handler) GetPresentation(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	scope, err := resolveScope(claims, r.URL.Query().Get("scope"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	entities, err := h.pres.UserOverrides(claims.Username, scope)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, entities)
}

// SetPresentation writes the caller's overrides
//
// @Summary Set user presentation overrides
// @Description Merges the given entities into the caller's override layer for one scope. Unknown keys and out-of-range color or scale values are dropped silently. The change is broadcast to connected clients.
// @Tags Presentation
// @Accept json
// @Produce json
// @Param scope query string false "Scope, when the caller holds more than one"
// @Param overrides body presentationWrite true "Entity overrides"
// @Success 200 {object} models.APIResponse{data=map[string]models.PresentationFields}
// @Failure 400 {object} models.APIResponse "Scope required"
// @Router /api/presentation [put]
func (h *Handler) SetPresentation(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	scope, err := resolveScope(claims, r.URL.Query().Get("scope"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req presentationWrite
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondErr(w, r, err)
		return
	}
	stored, err := h.pres.SetUserOverrides(claims.Username, scope, req.Entities)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.hub.BroadcastPresentationUpdate(&presentationChange{
		ScopeID:  scope,
		Layer:    "user",
		Username: claims.Username,
		Entities: stored,
	})
	respondData(w, http.StatusOK, stored)
}

// GetPresentationDefaults reads the admin defaults
//
// @Summary Get admin presentation defaults
// @Description Returns the per-scope admin default layer.
// @Tags Presentation
// @Produce json
// @Param scope query string false "Scope, when the caller holds more than one"
// @Success 200 {object} models.APIResponse{data=map[string]models.PresentationFields}
// @Failure 400 {object} models.APIResponse "Scope required"
// @Router /api/presentation/defaults [get]
func (h *Handler) GetPresentationDefaults(w http.ResponseWriter, r *http.Request) {
	scope, err := resolveScope(claimsFrom(r.Context()), r.URL.Query().Get("scope"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	entities, err := h.pres.AdminDefaults(scope)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, entities)
}

// SetPresentationDefaults writes the admin defaults
//
// @Summary Set admin presentation defaults
// @Description Merges the given entities into the scope's admin default layer. Requires the admin capability. The change is broadcast to connected clients.
// @Tags Presentation
// @Accept json
// @Produce json
// @Param scope query string false "Scope, when the caller holds more than one"
// @Param defaults body presentationWrite true "Entity defaults"
// @Success 200 {object} models.APIResponse{data=map[string]models.PresentationFields}
// @Failure 400 {object} models.APIResponse "Scope required"
// @Failure 403 {object} models.APIResponse
// @Router /api/presentation/defaults [put]
func (h *Handler) SetPresentationDefaults(w http.ResponseWriter, r *http.Request) {
	scope, err := resolveScope(claimsFrom(r.Context()), r.URL.Query().Get("scope"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req presentationWrite
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondErr(w, r, err)
		return
	}
	stored, err := h.pres.SetAdminDefaults(scope, req.Entities)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.hub.BroadcastPresentationUpdate(&presentationChange{
		ScopeID:  scope,
		Layer:    "admin",
		Entities: stored,
	})
	respondData(w, http.StatusOK, stored)
}

// ResolvePresentation bulk-resolves entities
//
// @Summary Resolve presentation for many entities
// @Description Merges user override > admin default > factory default per key for each requested uniqueId, in one pass over the layer files.
// @Tags Presentation
// @Accept json
// @Produce json
// @Param scope query string false "Scope, when the caller holds more than one"
// @Param request body presentationResolve true "Entity ids to resolve"
// @Success 200 {object} models.APIResponse{data=map[string]models.PresentationFields}
// @Failure 400 {object} models.APIResponse "Scope required"
// @Router /api/presentation/resolve [post]
func (h *Handler) ResolvePresentation(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	scope, err := resolveScope(claims, r.URL.Query().Get("scope"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req presentationResolve
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondErr(w, r, err)
		return
	}
	resolved, err := h.pres.Resolve(claims.Username, scope, req.UniqueIDs)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, resolved)
}
