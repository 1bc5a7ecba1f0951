// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package config

import (
	"path/filepath"
	"time"
)

// Config holds all configuration for both NOVA processes, loaded from
// defaults, an optional YAML file, and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every optional setting
//  2. Config File: optional YAML file (config.yaml) for persistent settings
//  3. Environment Variables: override any setting
//
// Configuration Categories:
//
//  1. Node:
//     - Core: node mode (live/replay) and the data directory root
//
//  2. Storage and transport:
//     - Database: DuckDB truth store (path, memory, threads)
//     - NATS: embedded JetStream broker and the ingest router
//     - IPC: Server↔Core request timeouts and circuit breaker
//
//  3. Pipeline:
//     - Playback: chunk sizing and backpressure for event streams
//     - Ingest: normalizer dedupe cache
//     - Drivers, Export: on-disk driver output and export bundles
//
//  4. Edge:
//     - Server: HTTP bind address and timeouts
//     - Security: sessions, admin bootstrap, rate limits, CORS, OIDC
//     - Outstream: output stream manager store and queues
//
//  5. Observability:
//     - Logging: level and output format
//     - Metrics: Prometheus listener on the Core process
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Core      CoreConfig      `koanf:"core"`
	Database  DatabaseConfig  `koanf:"database"`
	NATS      NATSConfig      `koanf:"nats"`
	IPC       IPCConfig       `koanf:"ipc"`
	Playback  PlaybackConfig  `koanf:"playback"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Drivers   DriversConfig   `koanf:"drivers"`
	Export    ExportConfig    `koanf:"export"`
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Outstream OutstreamConfig `koanf:"outstream"`
	Logging   LoggingConfig   `koanf:"logging"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// Node modes. A live node ingests from producers and allows commands; a
// replay node serves recorded ranges and refuses commands at the edge.
const (
	ModeLive   = "live"
	ModeReplay = "replay"
)

// CoreConfig holds node-level settings shared by both processes.
//
// Environment Variables:
//   - NOVA_MODE: node mode, "live" or "replay" (default: live)
//   - NOVA_DATA_DIR: root directory for all persistent state (default: /data/nova)
type CoreConfig struct {
	// Mode selects live or replay operation for the whole node.
	Mode string `koanf:"mode"`

	// DataDir is the root for everything NOVA persists: the truth store,
	// JetStream state, driver output, manifests, users, runs and exports.
	// Sub-paths left empty elsewhere in the config derive from it.
	DataDir string `koanf:"data_dir"`
}

// DatabaseConfig holds DuckDB truth store settings.
//
// Environment Variables:
//   - NOVA_DB_PATH: database file path (default: <data_dir>/truth.duckdb)
//   - NOVA_DB_MAX_MEMORY: DuckDB memory limit, e.g. "2GB"
//   - NOVA_DB_THREADS: DuckDB thread count (0 = runtime.NumCPU())
type DatabaseConfig struct {
	// Path is the DuckDB database file. ":memory:" is accepted for tests.
	Path string `koanf:"path"`

	// MaxMemory is the DuckDB memory limit ("2GB", "512MB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 uses all cores.
	Threads int `koanf:"threads"`

	// PreserveInsertionOrder keeps DuckDB's default scan order stable.
	// Append order matters less than the canonical-time index, but keeping
	// it on makes unindexed inspection queries predictable.
	PreserveInsertionOrder bool `koanf:"preserve_insertion_order"`
}

// NATSConfig holds the embedded JetStream broker and ingest router settings.
//
// The Core process embeds a nats-server with JetStream enabled; producers
// publish telemetry to nova.ingest.<scope>.<lane> subjects and the Server
// process dials the same broker for IPC. Point URL at an external broker and
// set EmbeddedServer=false to run against an existing NATS deployment.
//
// Environment Variables:
//   - NOVA_NATS_URL: connection URL (default: nats://127.0.0.1:4222)
//   - NOVA_NATS_EMBEDDED: run the embedded broker (default: true)
//   - NOVA_NATS_STORE_DIR: JetStream storage dir (default: <data_dir>/nats)
//   - NOVA_NATS_MAX_MEMORY / NOVA_NATS_MAX_STORE: JetStream limits in bytes
//   - NOVA_NATS_RETENTION_DAYS: ingest stream retention (default: 7)
type NATSConfig struct {
	// URL is the NATS connection URL used by both processes.
	URL string `koanf:"url"`

	// EmbeddedServer runs the broker inside nova-core.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory is the maximum memory for JetStream in bytes.
	MaxMemory int64 `koanf:"max_memory"`

	// MaxStore is the maximum disk storage for JetStream in bytes.
	MaxStore int64 `koanf:"max_store"`

	// StreamRetentionDays is how long the NOVA_INGEST stream keeps events.
	// The truth store is the durable record; the stream is a buffer.
	StreamRetentionDays int `koanf:"stream_retention_days"`

	// DuplicateWindow is the JetStream Nats-Msg-Id dedupe window. Broker-side
	// dedupe is the first of three layers (broker, LRU, store unique index).
	DuplicateWindow time.Duration `koanf:"duplicate_window"`

	// SubscribersCount is the number of concurrent ingest decoders feeding
	// the single-writer normalizer.
	SubscribersCount int `koanf:"subscribers_count"`

	// DurableName is the JetStream consumer durable name.
	DurableName string `koanf:"durable_name"`

	// QueueGroup is the queue group for ingest load balancing.
	QueueGroup string `koanf:"queue_group"`

	// Router configuration (Watermill Router middleware stack).

	// RouterRetryCount is the maximum number of retries for failed messages.
	RouterRetryCount int `koanf:"router_retry_count"`

	// RouterRetryInitialInterval is the initial backoff interval for retries.
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval"`

	// RouterPoisonQueueEnabled routes permanently failed messages to a
	// poison topic instead of blocking the stream.
	RouterPoisonQueueEnabled bool `koanf:"router_poison_queue_enabled"`

	// RouterPoisonQueueTopic is the topic for permanently failed messages.
	RouterPoisonQueueTopic string `koanf:"router_poison_queue_topic"`

	// RouterCloseTimeout is the maximum time to wait for graceful router shutdown.
	RouterCloseTimeout time.Duration `koanf:"router_close_timeout"`
}

// IPCConfig holds Server↔Core request/response settings.
//
// Each operation class has its own deadline; a request that misses its
// deadline surfaces Timeout to the caller and counts against the circuit
// breaker guarding dispatch.
//
// Environment Variables:
//   - NOVA_IPC_QUERY_TIMEOUT (default: 30s)
//   - NOVA_IPC_STREAM_ACK_TIMEOUT (default: 5s)
//   - NOVA_IPC_COMMAND_TIMEOUT (default: 10s)
//   - NOVA_IPC_INGEST_TIMEOUT (default: 5s)
//   - NOVA_IPC_EXPORT_TIMEOUT (default: 5m)
type IPCConfig struct {
	// QueryTimeout bounds historical range queries.
	QueryTimeout time.Duration `koanf:"query_timeout"`

	// StreamAckTimeout bounds the startStream/cancelStream acknowledgment.
	// Chunks themselves are unbounded; only the ACK is awaited.
	StreamAckTimeout time.Duration `koanf:"stream_ack_timeout"`

	// CommandTimeout bounds submitCommand, which covers the truth append and
	// the dispatch publish. CommandProgress/CommandResult are never awaited.
	CommandTimeout time.Duration `koanf:"command_timeout"`

	// IngestTimeout bounds ingestMetadata appends.
	IngestTimeout time.Duration `koanf:"ingest_timeout"`

	// ExportTimeout bounds the full export pipeline run.
	ExportTimeout time.Duration `koanf:"export_timeout"`

	// BreakerMaxFailures is the consecutive-failure count that opens the
	// request circuit breaker.
	BreakerMaxFailures uint32 `koanf:"breaker_max_failures"`

	// BreakerOpenDuration is how long the breaker stays open before probing.
	BreakerOpenDuration time.Duration `koanf:"breaker_open_duration"`
}

// PlaybackConfig holds playback engine chunking and backpressure settings.
//
// Environment Variables:
//   - NOVA_PLAYBACK_CHUNK_SIZE (default: 500)
//   - NOVA_PLAYBACK_CHUNK_INTERVAL (default: 10ms)
//   - NOVA_PLAYBACK_QUEUE_CAPACITY (default: 64)
type PlaybackConfig struct {
	// ChunkSize is the maximum events per stream chunk.
	ChunkSize int `koanf:"chunk_size"`

	// ChunkInterval is the flush deadline for a partially filled chunk.
	ChunkInterval time.Duration `koanf:"chunk_interval"`

	// QueueCapacity is the per-session outbound chunk queue length. When the
	// queue is full the session's backpressure policy decides what happens.
	QueueCapacity int `koanf:"queue_capacity"`

	// DefaultBackpressure is applied when a stream request names no policy:
	// "catchUp" drops the oldest queued chunk, "disconnect" ends the session.
	DefaultBackpressure string `koanf:"default_backpressure"`
}

// IngestConfig holds normalizer settings.
//
// Environment Variables:
//   - NOVA_INGEST_DEDUPE_CACHE_SIZE (default: 100000)
//   - NOVA_INGEST_DEDUPE_CACHE_TTL (default: 10m)
type IngestConfig struct {
	// DedupeCacheSize is the eventId LRU capacity in front of the store.
	DedupeCacheSize int `koanf:"dedupe_cache_size"`

	// DedupeCacheTTL is how long a seen eventId suppresses the store query.
	DedupeCacheTTL time.Duration `koanf:"dedupe_cache_ttl"`
}

// DriversConfig holds the live driver writer settings.
type DriversConfig struct {
	// Root is the directory the process-lifetime driver registry writes
	// under (default: <data_dir>/drivers).
	Root string `koanf:"root"`
}

// ExportConfig holds export pipeline settings.
type ExportConfig struct {
	// Dir is where finished export archives land (default: <data_dir>/exports).
	Dir string `koanf:"dir"`

	// Timeout bounds a single export run end to end.
	Timeout time.Duration `koanf:"timeout"`
}

// ServerConfig holds the HTTP server settings for the edge process.
//
// Environment Variables:
//   - NOVA_HTTP_HOST (default: 0.0.0.0)
//   - NOVA_HTTP_PORT (default: 8080)
//   - NOVA_HTTP_TIMEOUT (default: 30s)
//   - NOVA_ENVIRONMENT: "development" or "production" (default: development)
type ServerConfig struct {
	// Host is the bind address.
	Host string `koanf:"host"`

	// Port is the listen port.
	Port int `koanf:"port"`

	// Timeout is the read/write timeout for HTTP requests. WebSocket and
	// output-stream connections are exempt once upgraded.
	Timeout time.Duration `koanf:"timeout"`

	// Environment gates production-only validation (secret strength,
	// admin bootstrap requirements).
	Environment string `koanf:"environment"`
}

// SecurityConfig holds authentication, authorization and edge-protection
// settings.
//
// Environment Variables:
//   - NOVA_JWT_SECRET: HMAC secret for session tokens (required in production)
//   - NOVA_SESSION_TIMEOUT (default: 24h)
//   - NOVA_ADMIN_USERNAME / NOVA_ADMIN_PASSWORD: bootstrap admin account
//   - NOVA_RATE_LIMIT_REQUESTS / NOVA_RATE_LIMIT_WINDOW / NOVA_DISABLE_RATE_LIMIT
//   - NOVA_CORS_ORIGINS: comma-separated allowed origins
//   - NOVA_TRUSTED_PROXIES: comma-separated CIDRs for RealIP
//   - NOVA_LOCKOUT_THRESHOLD / NOVA_LOCKOUT_DURATION: login lockout tuning
//   - OIDC_ISSUER_URL etc.: optional SSO (see OIDCConfig)
type SecurityConfig struct {
	// JWTSecret signs session tokens (HS256). Minimum 32 bytes in
	// production.
	JWTSecret string `koanf:"jwt_secret"`

	// SessionTimeout is the JWT expiry and cookie max age.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// AdminUsername/AdminPassword create or update the bootstrap admin on
	// startup. Optional in development; required on a fresh production node.
	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`

	// RateLimitReqs / RateLimitWindow configure the standard API limiter.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// RateLimitDisabled turns limiting off entirely (load tests only).
	RateLimitDisabled bool `koanf:"rate_limit_disabled"`

	// CORSOrigins lists allowed origins. "*" is rejected in production.
	CORSOrigins []string `koanf:"cors_origins"`

	// TrustedProxies lists proxies whose X-Forwarded-For is honored.
	TrustedProxies []string `koanf:"trusted_proxies"`

	// LockoutThreshold is the failed-login count that locks a
	// username+IP pair; LockoutDuration is how long the lock holds.
	LockoutThreshold int           `koanf:"lockout_threshold"`
	LockoutDuration  time.Duration `koanf:"lockout_duration"`

	// OIDC enables single sign-on when IssuerURL is set.
	OIDC OIDCConfig `koanf:"oidc"`

	// Casbin points at external model/policy files; empty paths use the
	// embedded role model.
	Casbin CasbinConfig `koanf:"casbin"`
}

// OIDCConfig holds optional OpenID Connect relying-party settings. SSO is
// active only when IssuerURL is non-empty; local username/password login
// keeps working alongside it.
type OIDCConfig struct {
	// IssuerURL is the OpenID provider, e.g. https://login.example.org.
	IssuerURL string `koanf:"issuer_url"`

	// ClientID / ClientSecret identify NOVA at the provider.
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`

	// RedirectURL is the callback, usually
	// https://<nova-host>/auth/oidc/callback.
	RedirectURL string `koanf:"redirect_url"`

	// Scopes requested during the code flow.
	Scopes []string `koanf:"scopes"`

	// DefaultRole is assigned to first-seen OIDC users.
	DefaultRole string `koanf:"default_role"`

	// UsernameClaims are tried in order to derive the local username.
	UsernameClaims []string `koanf:"username_claims"`
}

// CasbinConfig points the enforcer at external model/policy files. Both
// empty means the embedded RBAC model and seeded policies are used.
type CasbinConfig struct {
	ModelPath  string `koanf:"model_path"`
	PolicyPath string `koanf:"policy_path"`
}

// OutstreamConfig holds Output Stream Manager settings.
//
// Environment Variables:
//   - NOVA_OUTSTREAM_STORE_PATH (default: <data_dir>/outstream)
//   - NOVA_OUTSTREAM_QUEUE_CAPACITY (default: 256)
//   - NOVA_OUTSTREAM_THROUGHPUT_LOG_INTERVAL (default: 30s)
type OutstreamConfig struct {
	// StorePath is the Badger directory holding stream definitions.
	StorePath string `koanf:"store_path"`

	// WriteQueueCapacity is the per-client bounded send queue length.
	WriteQueueCapacity int `koanf:"write_queue_capacity"`

	// ThroughputLogInterval is how often running streams log events/sec.
	ThroughputLogInterval time.Duration `koanf:"throughput_log_interval"`

	// ProbeTimeout bounds the endpoint availability probe on create/update.
	ProbeTimeout time.Duration `koanf:"probe_timeout"`
}

// LoggingConfig holds log output settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace|debug|info|warn|error (default: info)
//   - LOG_FORMAT: json|console (default: json)
//   - LOG_CALLER: include file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// MetricsConfig holds the Prometheus exposition settings. The Server edge
// serves /metrics on its main router; the Core runs a dedicated listener.
type MetricsConfig struct {
	// Enabled turns metric collection and the Core listener on.
	Enabled bool `koanf:"enabled"`

	// Addr is the Core metrics listen address, e.g. ":9100".
	Addr string `koanf:"addr"`
}

// IsReplay reports whether the node runs in replay mode.
func (c *Config) IsReplay() bool {
	return c.Core.Mode == ModeReplay
}

// UsersFile returns the path of the user store JSON file.
func (c *Config) UsersFile() string {
	return filepath.Join(c.Core.DataDir, "users.json")
}

// UserDir returns the per-user state directory (runs, presentation).
func (c *Config) UserDir(username string) string {
	return filepath.Join(c.Core.DataDir, "users", username)
}

// ManifestsDir returns the manifest catalog directory watched by the Core.
func (c *Config) ManifestsDir() string {
	return filepath.Join(c.Core.DataDir, "manifests")
}

// PresentationDefaultsDir returns the admin/factory presentation layer dir.
func (c *Config) PresentationDefaultsDir() string {
	return filepath.Join(c.Core.DataDir, "presentation", "defaults")
}

// applyDerivedPaths fills path fields that default relative to DataDir.
// Called after all layers are loaded so an explicit value always wins.
func (c *Config) applyDerivedPaths() {
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(c.Core.DataDir, "truth.duckdb")
	}
	if c.NATS.StoreDir == "" {
		c.NATS.StoreDir = filepath.Join(c.Core.DataDir, "nats")
	}
	if c.Drivers.Root == "" {
		c.Drivers.Root = filepath.Join(c.Core.DataDir, "drivers")
	}
	if c.Export.Dir == "" {
		c.Export.Dir = filepath.Join(c.Core.DataDir, "exports")
	}
	if c.Outstream.StorePath == "" {
		c.Outstream.StorePath = filepath.Join(c.Core.DataDir, "outstream")
	}
}
