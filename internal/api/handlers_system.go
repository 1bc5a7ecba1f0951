// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// healthStatus is the health summary body.
type healthStatus struct {
	Status        string  `json:"status"`
	Mode          string  `json:"mode"`
	Version       string  `json:"version"`
	CoreConnected bool    `json:"coreConnected"`
	Clients       int     `json:"clients"`
	UptimeSec     float64 `json:"uptimeSec"`
}

// configInfo is the node configuration surface clients boot from.
type configInfo struct {
	Mode            string             `json:"mode"`
	DefaultTimebase models.Timebase    `json:"defaultTimebase"`
	Manifests       []*models.Manifest `json:"manifests"`
}

// coreUp reports whether the IPC link to the Core is usable.
func (h *Handler) coreUp() bool {
	return h.ready != nil && h.ready()
}

// Health reports overall health
//
// @Summary Get system health status
// @Description Returns node mode, Core IPC connectivity, connected client count and uptime. Degraded while the Core link is down; HTTP status stays 200 so dashboards can read the body.
// @Tags System
// @Produce json
// @Success 200 {object} models.APIResponse{data=healthStatus}
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	coreUp := h.coreUp()
	status := "healthy"
	if !coreUp {
		status = "degraded"
	}
	respondData(w, http.StatusOK, healthStatus{
		Status:        status,
		Mode:          h.cfg.Core.Mode,
		Version:       "1.0.0",
		CoreConnected: coreUp,
		Clients:       h.hub.ClientCount(),
		UptimeSec:     time.Since(h.started).Seconds(),
	})
}

// HealthLive is the liveness probe
//
// @Summary Liveness probe
// @Description Returns 200 whenever the process is alive, regardless of the Core link.
// @Tags System
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /api/v1/health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]any{
		"alive":  true,
		"uptime": time.Since(h.started).Seconds(),
	})
}

// HealthReady is the readiness probe
//
// @Summary Readiness probe
// @Description Returns 200 only while the Core IPC link is connected; 503 otherwise so load balancers drain the node.
// @Tags System
// @Produce json
// @Success 200 {object} models.APIResponse
// @Failure 503 {object} models.APIResponse
// @Router /api/v1/health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	coreUp := h.coreUp()
	status := http.StatusOK
	if !coreUp {
		status = http.StatusServiceUnavailable
	}
	respondData(w, status, map[string]any{
		"coreConnected": coreUp,
		"readyToServe":  coreUp,
		"uptime":        time.Since(h.started).Seconds(),
	})
}

// Config returns the node configuration surface
//
// @Summary Get node configuration
// @Description Returns the node mode, the timebase runs are stamped with, and the manifest catalog so clients can build views before any telemetry arrives.
// @Tags System
// @Produce json
// @Success 200 {object} models.APIResponse{data=configInfo}
// @Router /config [get]
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	catalog := make([]*models.Manifest, 0)
	if h.manifests != nil {
		catalog = h.manifests.List()
	}
	respondData(w, http.StatusOK, configInfo{
		Mode:            h.cfg.Core.Mode,
		DefaultTimebase: h.runs.Timebase(),
		Manifests:       catalog,
	})
}

// DownloadExport serves a finished export archive
//
// @Summary Download an export archive
// @Description Streams the finished zip for an export id previously returned by an export request.
// @Tags Exports
// @Produce application/zip
// @Param exportId path string true "Export id"
// @Success 200 {file} file "Archive"
// @Failure 404 {object} models.APIResponse
// @Router /exports/{exportId}.zip [get]
func (h *Handler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "exportFile")
	if !strings.HasSuffix(file, ".zip") {
		respondErr(w, r, nverr.Newf(nverr.KindNotFound, "unknown export %q", file))
		return
	}
	id := strings.TrimSuffix(file, ".zip")

	path, _, err := h.exports.Resolve(id)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.zip"`)
	http.ServeFile(w, r, path)
}
