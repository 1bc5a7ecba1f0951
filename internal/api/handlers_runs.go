// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
	"github.com/nova-telemetry/nova/internal/runs"
)

// bundleTimeout bounds one bundle regeneration end to end: the Core
// export plus copying the archive into the run folder.
const bundleTimeout = 5 * time.Minute

// runNumber parses the {runNumber} path parameter.
func runNumber(r *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "runNumber"))
	if err != nil || n < 1 {
		return 0, nverr.Newf(nverr.KindSchema, "invalid run number %q", chi.URLParam(r, "runNumber"))
	}
	return n, nil
}

// ListRuns lists the caller's runs
//
// @Summary List runs
// @Description Returns the caller's runs ordered by run number. Runs are per-user artifacts; nobody sees anyone else's.
// @Tags Runs
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]models.Run}
// @Router /api/runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	list, err := h.runs.List(claimsFrom(r.Context()).Username)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, list)
}

// CreateRun creates a run
//
// @Summary Create a run
// @Description Stores a new run for the caller. A taken or absent run number falls forward to the next free one; the timebase is forced from the node mode.
// @Tags Runs
// @Accept json
// @Produce json
// @Param run body models.Run true "Run"
// @Success 201 {object} models.APIResponse{data=models.Run}
// @Failure 400 {object} models.APIResponse "Inverted window or bad name"
// @Router /api/runs [post]
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var run models.Run
	if err := decodeBody(r, &run); err != nil {
		respondErr(w, r, err)
		return
	}
	stored, err := h.runs.Create(claimsFrom(r.Context()).Username, &run)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, stored)
}

// GetRun fetches one run
//
// @Summary Get a run
// @Tags Runs
// @Produce json
// @Param runNumber path int true "Run number"
// @Success 200 {object} models.APIResponse{data=models.Run}
// @Failure 404 {object} models.APIResponse
// @Router /api/runs/{runNumber} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	n, err := runNumber(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	run, err := h.runs.Get(claimsFrom(r.Context()).Username, n)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, run)
}

// UpdateRun merges a patch into a run
//
// @Summary Update a run
// @Description Merges the patch: absent fields keep their value, fields entries merge per key. Renames move the run folder, bundle included. Number and timebase are immutable.
// @Tags Runs
// @Accept json
// @Produce json
// @Param runNumber path int true "Run number"
// @Param patch body runs.Patch true "Patch"
// @Success 200 {object} models.APIResponse{data=models.Run}
// @Failure 400 {object} models.APIResponse "Inverted window"
// @Failure 404 {object} models.APIResponse
// @Router /api/runs/{runNumber} [patch]
func (h *Handler) UpdateRun(w http.ResponseWriter, r *http.Request) {
	n, err := runNumber(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var patch runs.Patch
	if err := decodeBody(r, &patch); err != nil {
		respondErr(w, r, err)
		return
	}
	updated, err := h.runs.Update(claimsFrom(r.Context()).Username, n, &patch)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, updated)
}

// DeleteRun removes a run
//
// @Summary Delete a run
// @Description Removes the run folder including any bundle.
// @Tags Runs
// @Produce json
// @Param runNumber path int true "Run number"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /api/runs/{runNumber} [delete]
func (h *Handler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	n, err := runNumber(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.runs.Delete(claimsFrom(r.Context()).Username, n); err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]int{"deleted": n})
}

// CreateRunBundle regenerates and downloads a run bundle
//
// @Summary Export a run bundle
// @Description Exports the run's window through the Core pipeline, writes the archive into the run folder as bundle.zip with run.json injected, and returns the zip. Always regenerates; a previous bundle is replaced.
// @Tags Runs
// @Produce application/zip
// @Param runNumber path int true "Run number"
// @Param scope query string false "Scope, when the caller holds more than one"
// @Success 200 {file} file "Bundle archive"
// @Failure 400 {object} models.APIResponse "Scope required"
// @Failure 404 {object} models.APIResponse
// @Failure 504 {object} models.APIResponse "Export timed out"
// @Router /api/runs/{runNumber}/bundle [post]
func (h *Handler) CreateRunBundle(w http.ResponseWriter, r *http.Request) {
	n, err := runNumber(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	claims := claimsFrom(r.Context())

	run, err := h.runs.Get(claims.Username, n)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	scope, err := resolveScope(claims, r.URL.Query().Get("scope"))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bundleTimeout)
	defer cancel()

	start, stop := run.Window()
	record, err := h.core.Export(ctx, &models.ExportRequest{
		ScopeID:   scope,
		Timebase:  run.Timebase,
		StartTime: start,
		StopTime:  stop,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	archivePath, _, err := h.exports.Resolve(record.ExportID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	bundlePath, err := h.runs.WriteBundle(claims.Username, n, archivePath)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+bundleName(run)+`"`)
	http.ServeFile(w, r, bundlePath)
}

// bundleName builds the download filename from the run, mirroring the
// on-disk folder naming.
func bundleName(run *models.Run) string {
	return strconv.Itoa(run.RunNumber) + ". " + models.SanitizeRunName(run.RunName) + ".zip"
}
