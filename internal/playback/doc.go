// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package playback streams truth-store events to connected clients.
//
// A session is one stream to one connection, identified by a minted
// playbackRequestId that tags every chunk. Starting a new session for
// a connection cancels the old one; the Server edge discards late
// chunks whose id no longer matches (fencing), so cancellation can be
// fire-and-forget.
//
// LIVE sessions tail the store: a scan-from-cursor loop is woken by
// the store's append notifier and emits whatever accumulated since the
// last scan, up to the chunk size. The default starting cursor is the
// scope head at subscription, so a fresh tail sees only new events.
//
// REPLAY sessions page a bounded range through wall-clock pacing: an
// event with truth time t is released at t0_wall + (t - t0_truth)/rate,
// with the base pinned to the first event of the range. Rate 0 means
// unpaced. Exhausting the range emits a terminal chunk with Complete
// set.
//
// Every session's chunks pass through a bounded queue between the
// producer and the sender. Live tails never block on it: the catchUp
// policy drops the oldest queued chunk on overflow, disconnect ends
// the session. Replay producers simply block, since pacing already
// owns their cadence and history must not be dropped.
//
// Raw sessions feed output streams from the raw lane. One may bind to
// a UI connection, in which case the engine retimes its feed whenever
// that connection starts a session and reverts it to the live tail
// when the session is cancelled.
package playback
