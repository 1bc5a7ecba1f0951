// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package websocket is the UI-facing realtime surface of the Server
// edge. Each browser connection gets a Conn with a read/write pump
// pair, a bounded send queue, a per-connection inbound rate limiter,
// and ephemeral session state: connId, the authenticated claims, the
// active playbackRequestId and the current timeline mode.
//
// The Gateway translates typed client frames into Core IPC calls and
// enforces the edge rules: capability checks per operation, scope
// resolution against the user's grant, REPLAY command rejection, and
// playback fencing — the edge mints a new playbackRequestId before
// issuing startStream, so chunks carrying any other id are stale by
// definition and dropped without a race against the ACK.
//
// The Hub fans chat and presentation updates out to every connection;
// everything else is answered on the requesting connection only,
// correlated by requestId.
package websocket
