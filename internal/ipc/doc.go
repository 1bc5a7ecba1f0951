// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package ipc carries requests between the two NOVA processes over
// NATS core subjects.
//
// The Server edge publishes request envelopes to nova.ipc.req, which
// the Core consumes in a queue group and answers on nova.ipc.resp,
// correlated by requestId. Stream chunks bypass the request channel
// entirely: the Core publishes them to nova.ipc.chunk.<connId> and
// nova.ipc.raw.<connId>, and the Server routes them to per-connection
// handlers, so a slow query can never head-of-line-block a live tail.
//
// The Server side holds one awaiter per outstanding request with a
// per-operation deadline, behind a circuit breaker that fails fast
// once the Core stops answering. Fire-and-forget operations (the
// cancels and rate changes) are published without an awaiter and never
// produce a response.
//
// The broker itself is embedded in the Core process; the Server dials
// it like any external NATS client, so the two processes can also run
// against a shared external deployment.
package ipc
