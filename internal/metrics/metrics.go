// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for production observability. Covers:
// - Truth store query and append performance (DuckDB)
// - Ingest normalization throughput and deduplication
// - Playback session lifecycle and chunk delivery
// - IPC request latency and circuit breaker state
// - WebSocket and output stream connections
// - Export and driver write activity

var (
	// Truth Store Metrics
	TruthQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nova_truth_query_duration_seconds",
			Help:    "Duration of truth store queries in seconds",
			Buckets: prometheus.DefBuckets, // 0.005s up to 10s
		},
		[]string{"operation"},
	)

	TruthQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_truth_query_errors_total",
			Help: "Total number of truth store query errors",
		},
		[]string{"operation"},
	)

	TruthRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nova_truth_rows",
			Help: "Current number of truth events stored, by lane",
		},
		[]string{"lane"},
	)

	TruthAppendBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nova_truth_append_batch_size",
			Help:    "Number of events per truth store append batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// Ingest Metrics
	IngestEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_ingest_events_total",
			Help: "Total number of events accepted into the truth store",
		},
		[]string{"scope", "lane"},
	)

	IngestDuplicates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_ingest_duplicates_total",
			Help: "Total number of duplicate events suppressed",
		},
		[]string{"path"}, // "cache" (LRU fast path), "store" (unique index)
	)

	IngestParseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_ingest_parse_failures_total",
			Help: "Total number of ingest envelopes that failed to decode",
		},
		[]string{"lane"},
	)

	IngestPoisoned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_ingest_poisoned_total",
			Help: "Total number of messages routed to the poison queue",
		},
	)

	IngestClockReassignments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_ingest_clock_reassignments_total",
			Help: "Total number of events whose proposed truth time was behind the lane clock and was reassigned",
		},
	)

	IngestLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nova_ingest_lag",
			Help: "Number of pending messages in the ingest consumer",
		},
	)

	IngestProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nova_ingest_processing_duration_seconds",
			Help:    "Duration of per-message ingest normalization in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Playback Metrics
	PlaybackSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nova_playback_sessions",
			Help: "Current number of active playback sessions, by mode",
		},
		[]string{"mode"}, // "live", "replay"
	)

	PlaybackChunksSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_playback_chunks_sent_total",
			Help: "Total number of playback chunks delivered",
		},
	)

	PlaybackEventsStreamed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_playback_events_streamed_total",
			Help: "Total number of events delivered through playback sessions",
		},
	)

	PlaybackChunkSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nova_playback_chunk_size",
			Help:    "Number of events per playback chunk",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	PlaybackCatchUps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_playback_catchups_total",
			Help: "Total number of backlog drops for sessions under the catchUp policy",
		},
	)

	PlaybackDisconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_playback_disconnects_total",
			Help: "Total number of sessions dropped under the disconnect backpressure policy",
		},
	)

	PlaybackRateChanges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_playback_rate_changes_total",
			Help: "Total number of mid-session playback rate changes",
		},
	)

	// Command Metrics
	CommandsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_commands_submitted_total",
			Help: "Total number of commands accepted for dispatch",
		},
		[]string{"scope"},
	)

	CommandsDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_commands_duplicate_total",
			Help: "Total number of command submissions suppressed as requestId replays",
		},
	)

	CommandsRejectedReplay = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_commands_rejected_replay_total",
			Help: "Total number of commands refused because the node is in replay mode",
		},
	)

	// IPC Metrics
	IPCRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nova_ipc_request_duration_seconds",
			Help:    "IPC request duration in seconds, by operation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op"},
	)

	IPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_ipc_requests_total",
			Help: "Total number of IPC requests, by operation and outcome",
		},
		[]string{"op", "status"}, // status: "ok", "error", "timeout"
	)

	IPCChunksRouted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_ipc_chunks_routed_total",
			Help: "Total number of stream chunks routed to per-connection subjects",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nova_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nova_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Output Stream Metrics
	OutstreamClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nova_outstream_clients",
			Help: "Current number of connected output stream clients, by protocol",
		},
		[]string{"protocol"}, // "tcp", "udp", "unix"
	)

	OutstreamBytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_outstream_bytes_written_total",
			Help: "Total bytes written to output stream clients",
		},
		[]string{"protocol"},
	)

	OutstreamEventsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_outstream_events_written_total",
			Help: "Total events written to output stream clients",
		},
		[]string{"protocol"},
	)

	OutstreamSlowClients = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_outstream_slow_clients_total",
			Help: "Total number of output stream clients dropped for not keeping up",
		},
	)

	OutstreamDefinitions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nova_outstream_definitions",
			Help: "Current number of stored output stream definitions",
		},
	)

	// Export Metrics
	ExportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nova_export_duration_seconds",
			Help:    "Duration of export archive builds in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_exports_total",
			Help: "Total number of export operations, by outcome",
		},
		[]string{"status"}, // "ok", "error", "timeout"
	)

	ExportArchiveBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nova_export_archive_bytes",
			Help:    "Size of produced export archives in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB .. 256MiB
		},
	)

	// Driver Metrics
	DriverWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_driver_writes_total",
			Help: "Total number of events written by output drivers",
		},
		[]string{"driver"},
	)

	DriverWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_driver_write_errors_total",
			Help: "Total number of output driver write errors",
		},
		[]string{"driver"},
	)

	DriverBytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_driver_bytes_written_total",
			Help: "Total bytes written by output drivers",
		},
		[]string{"driver"},
	)

	// HTTP API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_api_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nova_api_request_duration_seconds",
			Help:    "HTTP API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nova_api_active_requests",
			Help: "Current number of in-flight HTTP API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	AuthzDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_authz_denials_total",
			Help: "Total number of authorization denials, by role and capability",
		},
		[]string{"role", "capability"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nova_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version", "mode"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nova_app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordTruthQuery records a truth store operation and its outcome.
func RecordTruthQuery(operation string, duration time.Duration, err error) {
	TruthQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		TruthQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordIngestEvent records an event accepted into the truth store.
func RecordIngestEvent(scope, lane string) {
	IngestEvents.WithLabelValues(scope, lane).Inc()
}

// RecordIngestDuplicate records a suppressed duplicate. path is "cache" when
// the LRU fast path caught it, "store" when the unique index did.
func RecordIngestDuplicate(path string) {
	IngestDuplicates.WithLabelValues(path).Inc()
}

// RecordIngestParseFailure records an envelope that failed to decode.
func RecordIngestParseFailure(lane string) {
	IngestParseFailures.WithLabelValues(lane).Inc()
}

// RecordIngestProcessing records the duration of one normalization pass.
func RecordIngestProcessing(duration time.Duration) {
	IngestProcessingDuration.Observe(duration.Seconds())
}

// UpdateIngestLag updates the pending-message gauge for the ingest consumer.
func UpdateIngestLag(lag int64) {
	IngestLag.Set(float64(lag))
}

// TrackPlaybackSession adjusts the active session gauge for a mode.
func TrackPlaybackSession(mode string, active bool) {
	if active {
		PlaybackSessions.WithLabelValues(mode).Inc()
	} else {
		PlaybackSessions.WithLabelValues(mode).Dec()
	}
}

// RecordPlaybackChunk records a delivered chunk and its event count.
func RecordPlaybackChunk(events int) {
	PlaybackChunksSent.Inc()
	PlaybackEventsStreamed.Add(float64(events))
	PlaybackChunkSize.Observe(float64(events))
}

// RecordCommand records an accepted command submission.
func RecordCommand(scope string) {
	CommandsSubmitted.WithLabelValues(scope).Inc()
}

// RecordIPCRequest records an IPC request, its operation, outcome and latency.
func RecordIPCRequest(op, status string, duration time.Duration) {
	IPCRequestsTotal.WithLabelValues(op, status).Inc()
	IPCRequestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// UpdateBreakerState sets the state gauge for a named circuit breaker.
// State values follow gobreaker: 0=closed, 1=half-open, 2=open.
func UpdateBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordBreakerTransition records a state change on a named breaker.
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// TrackWSConnection adjusts the WebSocket connection gauge.
func TrackWSConnection(connected bool) {
	if connected {
		WSConnections.Inc()
	} else {
		WSConnections.Dec()
	}
}

// TrackOutstreamClient adjusts the per-protocol output stream client gauge.
func TrackOutstreamClient(protocol string, connected bool) {
	if connected {
		OutstreamClients.WithLabelValues(protocol).Inc()
	} else {
		OutstreamClients.WithLabelValues(protocol).Dec()
	}
}

// RecordOutstreamWrite records a successful write to an output stream client.
func RecordOutstreamWrite(protocol string, events, bytes int) {
	OutstreamEventsWritten.WithLabelValues(protocol).Add(float64(events))
	OutstreamBytesWritten.WithLabelValues(protocol).Add(float64(bytes))
}

// RecordExport records an export operation, its outcome, duration and size.
func RecordExport(status string, duration time.Duration, archiveBytes int64) {
	ExportsTotal.WithLabelValues(status).Inc()
	ExportDuration.Observe(duration.Seconds())
	if archiveBytes > 0 {
		ExportArchiveBytes.Observe(float64(archiveBytes))
	}
}

// RecordDriverWrite records an event written by an output driver.
func RecordDriverWrite(driver string, bytes int, err error) {
	if err != nil {
		DriverWriteErrors.WithLabelValues(driver).Inc()
		return
	}
	DriverWrites.WithLabelValues(driver).Inc()
	DriverBytesWritten.WithLabelValues(driver).Add(float64(bytes))
}

// RecordAPIRequest records an HTTP API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight HTTP request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit records a request rejected by the rate limiter.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordAuthzDenial records a rejected authorization check.
func RecordAuthzDenial(role, capability string) {
	AuthzDenials.WithLabelValues(role, capability).Inc()
}

// SetAppInfo publishes build information as a constant gauge.
func SetAppInfo(version, goVersion, mode string) {
	AppInfo.WithLabelValues(version, goVersion, mode).Set(1)
}
