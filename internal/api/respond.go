// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package api

import (
	"errors"
	"net"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/nova-telemetry/nova/internal/auth"
	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
	"github.com/nova-telemetry/nova/internal/validation"
)

// respondJSON writes one response envelope. Write failures are logged
// rather than surfaced; by then the status line is on the wire.
func respondJSON(w http.ResponseWriter, status int, resp *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write response")
	}
}

// respondData wraps a payload in the success envelope.
func respondData(w http.ResponseWriter, status int, data any) {
	resp := models.NewSuccessResponse(data)
	respondJSON(w, status, &resp)
}

// respondErr maps an error onto its HTTP status and error envelope.
// Classified errors keep their kind as the code and their message as
// the body; anything unclassified is logged and reported as Internal
// without leaking the cause.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := nverr.HTTPStatus(err)
	kind := nverr.KindOf(err)

	message := "internal error"
	var nve *nverr.Error
	if errors.As(err, &nve) && nve.Message != "" {
		message = nve.Message
	}

	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}

	resp := models.NewErrorResponse(string(kind), message)
	respondJSON(w, status, &resp)
}

// respondCode writes an error envelope with an explicit status and
// code, for conditions outside the classified taxonomy (rate limits,
// unmatched routes).
func respondCode(w http.ResponseWriter, status int, code, message string) {
	resp := models.NewErrorResponse(code, message)
	respondJSON(w, status, &resp)
}

// decodeBody reads a JSON request body into v. A body that does not
// parse is a schema error.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return nverr.Wrap(nverr.KindSchema, "invalid request body", err)
	}
	return nil
}

// validateRequest runs struct validation and converts failures into
// schema errors carrying the field-level message.
func validateRequest(v any) error {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return nil
	}
	return nverr.New(nverr.KindSchema, verr.ToAPIError().Message)
}

// resolveScope picks the single scope a write applies to: an explicit
// scope parameter wins, else a caller holding exactly one concrete
// scope infers it. The chosen scope must be inside the caller's grant.
func resolveScope(c *auth.Claims, explicit string) (string, error) {
	scope := strings.TrimSpace(explicit)
	if scope == "" {
		single, ok := c.SingleScope()
		if !ok {
			return "", nverr.New(nverr.KindScopeRequired, "write resolves to no single scope")
		}
		scope = single
	}
	if !c.HasScope(scope) {
		return "", nverr.Newf(nverr.KindScopeForbidden, "scope %q is outside the caller's grant", scope)
	}
	return scope, nil
}

// clientIP extracts the caller address for lockout accounting. RealIP
// middleware has already folded proxy headers into RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
