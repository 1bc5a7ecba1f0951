// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nova-telemetry/nova/internal/auth"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// streamCreated is the create/update payload: the stored definition
// plus a warning when the endpoint probe failed. A failed probe does
// not reject the definition; the endpoint may free up before the
// stream is enabled.
type streamCreated struct {
	Stream  *models.StreamDefinition `json:"stream"`
	Warning string                   `json:"warning,omitempty"`
}

type bindRequest struct {
	ConnID string `json:"connId" validate:"required,max=128"`
}

// canSee reports whether the caller may observe a definition. Private
// streams exist only for their owner and admins.
func canSee(def *models.StreamDefinition, claims *auth.Claims) bool {
	if def.Visibility != models.VisibilityPrivate {
		return true
	}
	return def.Owner == claims.Username || claims.Role == models.RoleAdmin
}

// getVisibleStream resolves {streamId} and applies the visibility
// rule. A hidden stream answers NotFound, not PermissionDenied, so
// private endpoints are not enumerable.
func (h *Handler) getVisibleStream(r *http.Request) (*models.StreamDefinition, error) {
	id := chi.URLParam(r, "streamId")
	def, err := h.streams.Get(id)
	if err != nil {
		return nil, err
	}
	if !canSee(def, claimsFrom(r.Context())) {
		return nil, nverr.Newf(nverr.KindNotFound, "stream %s not found", id)
	}
	return def, nil
}

// ListStreams lists output stream definitions
//
// @Summary List output streams
// @Description Returns every definition the caller may see. Private streams belong to their owner.
// @Tags Streams
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]models.StreamDefinition}
// @Router /api/streams [get]
func (h *Handler) ListStreams(w http.ResponseWriter, r *http.Request) {
	defs, err := h.streams.List()
	if err != nil {
		respondErr(w, r, err)
		return
	}
	claims := claimsFrom(r.Context())
	visible := make([]*models.StreamDefinition, 0, len(defs))
	for _, def := range defs {
		if canSee(def, claims) {
			visible = append(visible, def)
		}
	}
	respondData(w, http.StatusOK, visible)
}

// CreateStream persists a new output stream definition
//
// @Summary Create an output stream
// @Description Validates and stores the definition, probes the endpoint, and starts the runtime when enabled. (protocol, endpoint) is unique across all definitions.
// @Tags Streams
// @Accept json
// @Produce json
// @Param definition body models.StreamDefinition true "Definition"
// @Success 201 {object} models.APIResponse{data=streamCreated}
// @Failure 400 {object} models.APIResponse "Invalid definition"
// @Failure 409 {object} models.APIResponse "Endpoint already claimed"
// @Router /api/streams [post]
func (h *Handler) CreateStream(w http.ResponseWriter, r *http.Request) {
	var def models.StreamDefinition
	if err := decodeBody(r, &def); err != nil {
		respondErr(w, r, err)
		return
	}

	claims := claimsFrom(r.Context())
	def.Owner = claims.Username
	if !claims.HasScope(def.ScopeID) {
		respondErr(w, r, nverr.Newf(nverr.KindScopeForbidden, "scope %q is outside the caller's grant", def.ScopeID))
		return
	}

	stored, err := h.streams.Create(&def)
	if stored == nil {
		respondErr(w, r, err)
		return
	}
	out := streamCreated{Stream: stored}
	if err != nil {
		out.Warning = err.Error()
	}
	respondData(w, http.StatusCreated, out)
}

// GetStream fetches one definition
//
// @Summary Get an output stream
// @Tags Streams
// @Produce json
// @Param streamId path string true "Stream id"
// @Success 200 {object} models.APIResponse{data=models.StreamDefinition}
// @Failure 404 {object} models.APIResponse
// @Router /api/streams/{streamId} [get]
func (h *Handler) GetStream(w http.ResponseWriter, r *http.Request) {
	def, err := h.getVisibleStream(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, def)
}

// UpdateStream replaces a definition
//
// @Summary Update an output stream
// @Description Replaces the definition and restarts the runtime when it was enabled. Moving the endpoint re-probes the new one.
// @Tags Streams
// @Accept json
// @Produce json
// @Param streamId path string true "Stream id"
// @Param definition body models.StreamDefinition true "New definition"
// @Success 200 {object} models.APIResponse{data=streamCreated}
// @Failure 404 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse "Endpoint already claimed"
// @Router /api/streams/{streamId} [put]
func (h *Handler) UpdateStream(w http.ResponseWriter, r *http.Request) {
	prev, err := h.getVisibleStream(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	var def models.StreamDefinition
	if err := decodeBody(r, &def); err != nil {
		respondErr(w, r, err)
		return
	}

	claims := claimsFrom(r.Context())
	if def.ScopeID != "" && !claims.HasScope(def.ScopeID) {
		respondErr(w, r, nverr.Newf(nverr.KindScopeForbidden, "scope %q is outside the caller's grant", def.ScopeID))
		return
	}

	stored, err := h.streams.Update(prev.StreamID, &def)
	if stored == nil {
		respondErr(w, r, err)
		return
	}
	out := streamCreated{Stream: stored}
	if err != nil {
		out.Warning = err.Error()
	}
	respondData(w, http.StatusOK, out)
}

// DeleteStream removes a definition
//
// @Summary Delete an output stream
// @Description Stops the runtime if started, releases the endpoint claim and deletes the definition.
// @Tags Streams
// @Produce json
// @Param streamId path string true "Stream id"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /api/streams/{streamId} [delete]
func (h *Handler) DeleteStream(w http.ResponseWriter, r *http.Request) {
	def, err := h.getVisibleStream(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.streams.Delete(def.StreamID); err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"deleted": def.StreamID})
}

// EnableStream starts a stream's runtime
//
// @Summary Enable an output stream
// @Tags Streams
// @Produce json
// @Param streamId path string true "Stream id"
// @Success 200 {object} models.APIResponse{data=models.StreamDefinition}
// @Failure 404 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse "Listener failed to start"
// @Router /api/streams/{streamId}/enable [post]
func (h *Handler) EnableStream(w http.ResponseWriter, r *http.Request) {
	h.setStreamEnabled(w, r, true)
}

// DisableStream stops a stream's runtime
//
// @Summary Disable an output stream
// @Tags Streams
// @Produce json
// @Param streamId path string true "Stream id"
// @Success 200 {object} models.APIResponse{data=models.StreamDefinition}
// @Failure 404 {object} models.APIResponse
// @Router /api/streams/{streamId}/disable [post]
func (h *Handler) DisableStream(w http.ResponseWriter, r *http.Request) {
	h.setStreamEnabled(w, r, false)
}

func (h *Handler) setStreamEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	def, err := h.getVisibleStream(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	updated, err := h.streams.SetEnabled(def.StreamID, enabled)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, updated)
}

// StreamStatus reports runtime state
//
// @Summary Get output stream status
// @Description Returns live client count, throughput, binding and the last error. A stopped stream reports running=false.
// @Tags Streams
// @Produce json
// @Param streamId path string true "Stream id"
// @Success 200 {object} models.APIResponse{data=models.StreamStatus}
// @Failure 404 {object} models.APIResponse
// @Router /api/streams/{streamId}/status [get]
func (h *Handler) StreamStatus(w http.ResponseWriter, r *http.Request) {
	def, err := h.getVisibleStream(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	status, err := h.streams.Status(def.StreamID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, status)
}

// BindStream pins a stream to one client's timeline
//
// @Summary Bind a stream to a playback instance
// @Description Rebinds the stream's feed to the given connection's playback timeline. The last binder wins; the binding drops when that connection closes.
// @Tags Streams
// @Accept json
// @Produce json
// @Param streamId path string true "Stream id"
// @Param binding body bindRequest true "Connection id"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse "Stream not running"
// @Router /api/streams/{streamId}/bind [post]
func (h *Handler) BindStream(w http.ResponseWriter, r *http.Request) {
	def, err := h.getVisibleStream(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req bindRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.streams.Bind(def.StreamID, req.ConnID); err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"streamId": def.StreamID, "boundTo": req.ConnID})
}

// UnbindStream releases a stream's timeline binding
//
// @Summary Unbind a stream from its playback instance
// @Description Returns the stream's feed to the shared live timeline. Unbinding an unbound stream is a no-op.
// @Tags Streams
// @Produce json
// @Param streamId path string true "Stream id"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /api/streams/{streamId}/unbind [post]
func (h *Handler) UnbindStream(w http.ResponseWriter, r *http.Request) {
	def, err := h.getVisibleStream(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.streams.Unbind(def.StreamID); err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"streamId": def.StreamID})
}

// StreamWS serves a WebSocket output stream endpoint
//
// @Summary Consume a WebSocket output stream
// @Description Upgrades and joins the named WebSocket output stream. The path segment is the stream definition's endpoint.
// @Tags Streams
// @Param path path string true "Endpoint path"
// @Success 101 {string} string "Switching Protocols"
// @Failure 404 {object} models.APIResponse "No running stream on this path"
// @Router /streams/ws/{path} [get]
func (h *Handler) StreamWS(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")
	if err := h.streams.ServeWS(path, w, r); err != nil {
		respondErr(w, r, err)
		return
	}
}
