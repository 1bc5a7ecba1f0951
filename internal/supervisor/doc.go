// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

/*
Package supervisor provides process supervision for NOVA using suture v4.

Both NOVA binaries run their long-lived components under a hierarchical
supervisor tree with Erlang/OTP-style restart semantics: crashed
services restart with exponential backoff, failures are isolated per
layer, and shutdown is an orderly context cancellation.

# Trees

The Core process:

	nova-core
	├── data-layer
	│   ├── IngestPipelineService   (JetStream consumer → normalizer)
	│   └── TruthWriterService      (truth store → lane driver files)
	├── messaging-layer
	│   ├── DispatcherService       (NATS IPC request handling)
	│   └── CatalogWatcherService   (manifest directory watcher)
	└── api-layer
	    └── HTTPServerService       (metrics listener)

The Server process:

	nova-server
	├── messaging-layer
	│   ├── HubService              (client WebSocket sessions)
	│   ├── OutstreamService        (TCP/UDP/WS output stream feeds)
	│   └── CatalogWatcherService   (manifest directory watcher)
	└── api-layer
	    └── HTTPServerService       (REST + WebSocket listener)

Both processes watch the manifest catalog: the Core publishes straight
through its normalizer, the Server through the metadata ingest IPC
path. Publication events carry version-derived ids, so whichever side
lands second is a duplicate at the store.

The layering keeps failure domains apart: an output stream listener
crash-looping on a bad port cycles inside the messaging layer while the
HTTP server keeps answering, and an ingest stall in the Core never
takes the IPC dispatcher down with it.

# Restart Policy

Each supervisor tracks a failure counter with exponential decay.
A service failure increments it; when it exceeds FailureThreshold the
supervisor waits FailureBackoff before the next restart. Defaults match
suture's own (threshold 5, decay 30s, backoff 15s, shutdown timeout 10s).

# Service Wrappers

The services subpackage adapts each component's native lifecycle to
suture's Serve(ctx) contract. Components whose run loop already blocks
on a context (the hub) are wrapped directly; Start/Stop components (the
ingest pipeline, the truth writer, the dispatcher) get the standard
start, wait for cancellation, stop translation.

Return behavior under suture:
  - return error: the service crashed and will be restarted
  - return ctx.Err() after cancellation: orderly shutdown
  - return suture.ErrDoNotRestart: permanent stop

# Debugging Shutdown

If the tree does not stop within the timeout, UnstoppedServiceReport
names the stuck services. Both binaries log the report before exiting.
*/
package supervisor
