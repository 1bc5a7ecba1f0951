// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

/*
Package metrics provides Prometheus metrics collection and export for observability.

All metrics are registered through promauto at package load and recorded via
small helper functions, so call sites never touch label plumbing directly.

# Overview

The package instruments:
  - Truth store query and append performance (DuckDB)
  - Ingest normalization throughput, deduplication, and consumer lag
  - Playback session lifecycle, chunk delivery, and backpressure outcomes
  - Command submission and replay-mode rejections
  - IPC request latency and circuit breaker state
  - WebSocket and output stream connections
  - Export archive builds and output driver writes

# Metrics Endpoint

Metrics are exposed at /metrics in Prometheus text format on both the Core
and Server processes:

	curl http://localhost:9100/metrics

# Key Metrics

Truth store:
  - nova_truth_query_duration_seconds: store operation latency (histogram)
    Labels: operation (append, range, head, scan, exists)
  - nova_truth_rows: stored events by lane (gauge)

Ingest:
  - nova_ingest_events_total: accepted events (counter)
    Labels: scope, lane
  - nova_ingest_duplicates_total: suppressed duplicates (counter)
    Labels: path (cache, store)
  - nova_ingest_clock_reassignments_total: monotonic clock bumps (counter)
  - nova_ingest_lag: pending consumer messages (gauge)

Playback:
  - nova_playback_sessions: active sessions (gauge)
    Labels: mode (live, replay)
  - nova_playback_chunks_sent_total / nova_playback_events_streamed_total
  - nova_playback_catchups_total / nova_playback_disconnects_total

IPC:
  - nova_ipc_request_duration_seconds: request latency (histogram)
    Labels: op
  - nova_circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)
    Labels: name

HTTP API:
  - nova_api_requests_total: requests by method, endpoint and status (counter)
  - nova_api_request_duration_seconds: handler latency (histogram)
  - nova_api_active_requests: in-flight requests (gauge)

# Usage Example

	import (
	    "github.com/nova-telemetry/nova/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    http.Handle("/metrics", promhttp.Handler())

	    metrics.RecordIngestEvent("mission-7", "parsed")
	    metrics.RecordIPCRequest("query", "ok", 12*time.Millisecond)
	    metrics.TrackPlaybackSession("replay", true)
	}

Example PromQL queries:

	# Ingest rate by lane
	sum by (lane) (rate(nova_ingest_events_total[5m]))

	# IPC p95 latency per operation
	histogram_quantile(0.95, rate(nova_ipc_request_duration_seconds_bucket[5m]))

	# Duplicate ratio
	sum(rate(nova_ingest_duplicates_total[5m]))
	  / sum(rate(nova_ingest_events_total[5m]))

	# Breaker alert
	nova_circuit_breaker_state > 0

# Thread Safety

All recording functions are safe for concurrent use; the Prometheus client
library synchronizes internally.

# Cardinality

Label values are drawn from small fixed sets (lanes, operations, protocols,
breaker names). Scope IDs appear only on ingest and command counters where
deployments bound the scope count; event IDs, connection IDs, and request IDs
never become labels.

# See Also

  - internal/middleware: HTTP middleware recording request metrics
  - internal/ingest: normalizer instrumentation
  - internal/ipc: breaker state wiring
  - https://prometheus.io/docs/practices/naming/: metric naming conventions
*/
package metrics
