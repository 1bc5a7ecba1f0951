// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package api

import (
	"net/http"
	"strings"
	"time"
	"unicode"

	gws "github.com/gorilla/websocket"

	"github.com/nova-telemetry/nova/internal/logging"
)

// getUpgrader builds the WebSocket upgrader with origin checking and a
// handshake timeout against slow-client attacks.
func (h *Handler) getUpgrader() gws.Upgrader {
	return gws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates the Origin header against the CORS
// allow list. Browsers always send Origin on WebSocket handshakes; an
// absent header is something else trying to ride the session cookie.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("websocket rejected: missing Origin header")
		return false
	}
	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("websocket rejected: origin not allowed")
	return false
}

// WebSocket upgrades the connection into the gateway
//
// @Summary Open the realtime session
// @Description Upgrades to WebSocket and attaches the connection to the gateway. All queries, playback streams, commands, chat and exports run over this socket.
// @Tags Realtime
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} models.APIResponse
// @Router /ws [get]
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	upgrader := h.getUpgrader()
	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the handshake failure.
		logging.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.gateway.Attach(sock, claims)
}

// sanitizeLogValue strips control characters from attacker-supplied
// header values before they reach a log line.
func sanitizeLogValue(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
