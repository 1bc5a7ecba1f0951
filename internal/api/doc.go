// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package api is the Server edge's HTTP surface: the chi route tree,
// the middleware stack (CORS, rate limits, security headers, request
// IDs, metrics, gzip) and the handlers for auth, streams, runs,
// presentation, administration and export downloads.
//
// The package holds no truth of its own. Reads and writes against the
// truth log travel over IPC to the Core; everything served here is
// either edge-owned state (users, runs, presentation, output stream
// definitions) or a pass-through (export archives, the WebSocket
// upgrade into the gateway).
//
// Every JSON endpoint answers with the same envelope: a status, an
// optional data payload on success, and a structured error with a
// machine-readable code on failure. Error codes and HTTP statuses
// derive from the error kind taxonomy in internal/nverr.
package api
