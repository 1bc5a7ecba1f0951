// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

/*
Package config provides centralized configuration management for NOVA.

This package handles loading, layering, and validation of configuration for
every NOVA component. Configuration is built with koanf from three layers,
each overriding the one below it:

 1. Built-in defaults (defaultConfig)
 2. YAML config file (config.yaml, or CONFIG_PATH)
 3. Environment variables (NOVA_*, OIDC_*, LOG_*, CASBIN_*)

# Configuration Structure

The Config struct organizes settings into logical groups:

  - CoreConfig: node mode (live/replay) and the data directory root
  - DatabaseConfig: DuckDB truth store path and performance tuning
  - NATSConfig: embedded NATS server, JetStream, and router settings
  - IPCConfig: per-operation IPC timeouts and circuit breaker thresholds
  - PlaybackConfig: chunk sizing, queue capacity, backpressure policy
  - IngestConfig: dedupe cache sizing for the ingest fast path
  - DriversConfig: driver output root directory
  - ExportConfig: export staging directory and timeout
  - ServerConfig: HTTP server bind address and environment
  - SecurityConfig: JWT, admin bootstrap, rate limits, OIDC, Casbin
  - OutstreamConfig: outstream definition store and write queues
  - LoggingConfig: zerolog level, format, caller reporting
  - MetricsConfig: Prometheus exposition

# Environment Variables

Every setting can be supplied through the environment. The most commonly
used variables:

Core:
  - NOVA_MODE: node mode, "live" or "replay" (default: live)
  - NOVA_DATA_DIR: root for all persistent state (default: /data/nova)

Database:
  - NOVA_DB_PATH: DuckDB file path (default: <data_dir>/truth.duckdb)
  - NOVA_DB_MAX_MEMORY: DuckDB memory limit (default: 2GB)
  - NOVA_DB_THREADS: DuckDB thread count (default: 0 = CPU count)

NATS / JetStream:
  - NOVA_NATS_URL: broker URL (default: nats://127.0.0.1:4222)
  - NOVA_NATS_EMBEDDED: run the embedded server (default: true)
  - NOVA_NATS_RETENTION_DAYS: ingest stream retention (default: 7)
  - NOVA_NATS_SUBSCRIBERS: normalizer subscriber count (default: 4)

IPC:
  - NOVA_IPC_QUERY_TIMEOUT: query deadline (default: 30s)
  - NOVA_IPC_COMMAND_TIMEOUT: command deadline (default: 10s)
  - NOVA_IPC_EXPORT_TIMEOUT: export deadline (default: 5m)

Playback:
  - NOVA_PLAYBACK_CHUNK_SIZE: max events per chunk (default: 500)
  - NOVA_PLAYBACK_CHUNK_INTERVAL: max chunk latency (default: 10ms)
  - NOVA_PLAYBACK_BACKPRESSURE: catchUp or disconnect (default: catchUp)

Server and security:
  - NOVA_HTTP_HOST / NOVA_HTTP_PORT: bind address (default: 0.0.0.0:8080)
  - ENVIRONMENT: development or production (default: development)
  - NOVA_JWT_SECRET: JWT signing secret (min 32 chars, required in production)
  - NOVA_ADMIN_USERNAME / NOVA_ADMIN_PASSWORD: admin bootstrap credentials
  - NOVA_CORS_ORIGINS: comma-separated allowed origins
  - OIDC_ISSUER_URL / OIDC_CLIENT_ID / OIDC_REDIRECT_URL: optional SSO

Logging and metrics:
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json or console (default: json)
  - NOVA_METRICS_ADDR: Prometheus listen address (default: :9100)

See envTransformFunc in koanf.go for the complete mapping.

# Usage Example

	import "github.com/nova-telemetry/nova/internal/config"

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatalf("failed to load config: %v", err)
	}

	fmt.Printf("mode=%s data=%s\n", cfg.Core.Mode, cfg.Core.DataDir)
	fmt.Printf("listening on %s:%d\n", cfg.Server.Host, cfg.Server.Port)

Overriding values for tests:

	t.Setenv("NOVA_MODE", "replay")
	t.Setenv("NOVA_DATA_DIR", t.TempDir())

	cfg, err := config.LoadWithKoanf()

# Derived Paths

Path settings left empty are derived from NOVA_DATA_DIR after unmarshalling,
so a single variable is enough to relocate all state:

  - Database.Path:      <data_dir>/truth.duckdb
  - NATS.StoreDir:      <data_dir>/nats
  - Drivers.Root:       <data_dir>/drivers
  - Export.Dir:         <data_dir>/exports
  - Outstream.StorePath: <data_dir>/outstream

Explicitly configured paths always win over derivation.

# Validation

Validate runs after loading and rejects configurations that cannot work:

  - NOVA_MODE must be live or replay
  - NATS memory/store limits have floor values (64MB / 100MB)
  - IPC timeouts must fall within [100ms, 1h]
  - Playback chunk size 1-100000, interval 1ms-1s
  - HTTP port 1-65535
  - JWT secret ≥32 chars; placeholder values are rejected
  - Wildcard CORS origins are rejected in production
  - Admin bootstrap requires username and password together, and the
    password must pass the active PasswordPolicy

Validation is strict in production (ENVIRONMENT=production) and forgiving
in development, where a missing JWT secret is tolerated because one is
generated at startup.

# Hot Reload

WatchConfigFile registers a koanf file watcher and invokes a callback when
the config file changes on disk. Only a subset of settings (log level,
rate limits) are safe to apply at runtime; the callback decides what to
pick up.

# Docker Deployment

For Docker deployments, use environment variables or docker-compose.yml:

	services:
	  nova:
	    image: ghcr.io/nova-telemetry/nova:latest
	    environment:
	      NOVA_MODE: live
	      NOVA_DATA_DIR: /data/nova
	      NOVA_JWT_SECRET: ${NOVA_JWT_SECRET}
	      ENVIRONMENT: production
	    volumes:
	      - nova-data:/data/nova
	    ports:
	      - "8080:8080"

# Thread Safety

The Config struct is immutable after LoadWithKoanf returns, making it safe
for concurrent reads from multiple goroutines without synchronization.

# See Also

  - config.yaml.example: annotated configuration template
  - internal/logging: consumes LoggingConfig at startup
  - internal/ipc: consumes IPCConfig timeouts and breaker settings
*/
package config
