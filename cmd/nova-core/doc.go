// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

/*
Package main is the entry point for the NOVA Core process.

The Core is the truth half of a NOVA node: it hosts the embedded NATS
broker, consumes producer telemetry from the ingest subjects, assigns
canonical times through the single-writer normalizer, appends to the
DuckDB truth store, mirrors live lanes into driver files, runs playback
sessions, and answers the Server process over NATS IPC. It has no HTTP
surface beyond the Prometheus metrics listener.

# Application Architecture

The core runs its long-lived components under a Suture v4 supervisor
tree:

	nova-core
	├── data-layer
	│   ├── ingest-pipeline   (JetStream consumer → normalizer → truth store)
	│   └── truth-writer      (truth store → per-lane driver files)
	├── messaging-layer
	│   ├── ipc-dispatcher    (Server request handling over NATS)
	│   └── manifest-watcher  (catalog directory publisher)
	└── api-layer
	    └── metrics-server    (Prometheus exposition)

Component initialization order:

 1. Configuration: Koanf v2 layering environment variables over an
    optional config.yaml over built-in defaults
 2. Truth store: DuckDB with the append-only event schema
 3. Broker: embedded nats-server with JetStream (or an external URL)
 4. Manifest registry: rebuilt from ManifestPublished history, then
    kept current by the catalog watcher
 5. Normalizer: per-(scope, lane) clocks warm-started from lane heads
 6. Ingest pipeline: Watermill router over the JetStream subjects,
    streams provisioned before anything consumes
 7. Driver writer, playback engine, export pipeline
 8. IPC dispatcher wiring them all to the Server process

# Configuration

The variables every deployment touches:

  - NOVA_MODE: node mode, "live" or "replay" (default: live)
  - NOVA_DATA_DIR: root for all persistent state (default: /data/nova)
  - NOVA_DB_PATH: DuckDB file (default: <data_dir>/truth.duckdb)
  - NOVA_DB_MAX_MEMORY: DuckDB memory limit (default: 2GB)
  - NOVA_NATS_URL: broker bind/connect URL (default: nats://127.0.0.1:4222)
  - NOVA_NATS_EMBEDDED: host the broker in-process (default: true)
  - NOVA_METRICS_ADDR: Prometheus listener (default: :9100)
  - LOG_LEVEL / LOG_FORMAT: zerolog level and json|console output

The full catalog is documented on the structs in internal/config.

# Signal Handling

The core shuts down gracefully on SIGINT and SIGTERM:

 1. The supervisor tree drains: the ingest pipeline closes its router
    and subscriber before stopping the normalizer, so nothing is
    consumed that cannot be appended
 2. The dispatcher stops accepting IPC requests; in-flight ones finish
 3. The playback engine cancels its sessions
 4. The broker shuts down, then the store checkpoints its WAL and closes

# Example Usage

Single-node development:

	export NOVA_DATA_DIR=/tmp/nova
	./nova-core &
	./nova-server

Against an external NATS deployment:

	export NOVA_NATS_EMBEDDED=false
	export NOVA_NATS_URL=nats://broker.example.org:4222
	./nova-core

# See Also

  - cmd/nova-server: the HTTP edge of the node
  - internal/ingest: normalizer and pipeline
  - internal/truth: the DuckDB store
  - internal/ipc: broker, client and dispatcher
*/
package main
