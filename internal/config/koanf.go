// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/nova/config.yaml",
	"/etc/nova/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			Mode:    ModeLive,
			DataDir: "/data/nova",
		},
		Database: DatabaseConfig{
			Path:                   "", // derived: <data_dir>/truth.duckdb
			MaxMemory:              "2GB",
			Threads:                0, // 0 = use runtime.NumCPU()
			PreserveInsertionOrder: true,
		},
		NATS: NATSConfig{
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			StoreDir:            "",       // derived: <data_dir>/nats
			MaxMemory:           1 << 30,  // 1GB
			MaxStore:            10 << 30, // 10GB
			StreamRetentionDays: 7,
			DuplicateWindow:     2 * time.Minute,
			SubscribersCount:    4,
			DurableName:         "nova-normalizer",
			QueueGroup:          "normalizers",
			// Router defaults (Watermill Router middleware)
			RouterRetryCount:           3,
			RouterRetryInitialInterval: 100 * time.Millisecond,
			RouterPoisonQueueEnabled: true,
			// Outside the nova.ingest.> wildcard so poisoned envelopes
			// are never re-consumed.
			RouterPoisonQueueTopic: "nova.dlq.ingest",
			RouterCloseTimeout:         30 * time.Second,
		},
		IPC: IPCConfig{
			QueryTimeout:        30 * time.Second,
			StreamAckTimeout:    5 * time.Second,
			CommandTimeout:      10 * time.Second,
			IngestTimeout:       5 * time.Second,
			ExportTimeout:       5 * time.Minute,
			BreakerMaxFailures:  5,
			BreakerOpenDuration: 10 * time.Second,
		},
		Playback: PlaybackConfig{
			ChunkSize:           500,
			ChunkInterval:       10 * time.Millisecond,
			QueueCapacity:       64,
			DefaultBackpressure: "catchUp",
		},
		Ingest: IngestConfig{
			DedupeCacheSize: 100000,
			DedupeCacheTTL:  10 * time.Minute,
		},
		Drivers: DriversConfig{
			Root: "", // derived: <data_dir>/drivers
		},
		Export: ExportConfig{
			Dir:     "", // derived: <data_dir>/exports
			Timeout: 5 * time.Minute,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			JWTSecret:         "",
			SessionTimeout:    24 * time.Hour,
			AdminUsername:     "",
			AdminPassword:     "",
			RateLimitReqs:     100,
			RateLimitWindow:   1 * time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			TrustedProxies:    []string{},
			LockoutThreshold:  5,
			LockoutDuration:   15 * time.Minute,
			OIDC: OIDCConfig{
				IssuerURL:      "",
				ClientID:       "",
				ClientSecret:   "",
				RedirectURL:    "",
				Scopes:         []string{"openid", "profile", "email"},
				DefaultRole:    "viewer",
				UsernameClaims: []string{"preferred_username", "name", "email"},
			},
			Casbin: CasbinConfig{
				ModelPath:  "",
				PolicyPath: "",
			},
		},
		Outstream: OutstreamConfig{
			StorePath:             "", // derived: <data_dir>/outstream
			WriteQueueCapacity:    256,
			ThroughputLogInterval: 30 * time.Second,
			ProbeTimeout:          2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9100",
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config File: optional YAML config file (if exists)
//  3. Environment Variables: override any setting
//
// This function is the only way configuration enters the process and provides:
//   - Type-safe configuration unmarshaling
//   - Clear precedence: ENV > File > Defaults
//   - Support for nested configuration via koanf struct tags
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// NOVA_MODE -> core.mode
	// NOVA_NATS_STORE_DIR -> nats.store_dir
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	// Unmarshal into Config struct
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.applyDerivedPaths()

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
	"security.oidc.scopes",
	"security.oidc.username_claims",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// If it's already a slice (from YAML file), skip
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		// If it's a string, split by comma
		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - NOVA_MODE -> core.mode
//   - NOVA_DB_PATH -> database.path
//   - NOVA_NATS_STORE_DIR -> nats.store_dir
//   - NOVA_HTTP_PORT -> server.port
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Node mappings
		"nova_mode":     "core.mode",
		"nova_data_dir": "core.data_dir",

		// Database mappings
		"nova_db_path":       "database.path",
		"nova_db_max_memory": "database.max_memory",
		"nova_db_threads":    "database.threads",

		// NATS mappings
		"nova_nats_url":             "nats.url",
		"nova_nats_embedded":        "nats.embedded_server",
		"nova_nats_store_dir":       "nats.store_dir",
		"nova_nats_max_memory":      "nats.max_memory",
		"nova_nats_max_store":       "nats.max_store",
		"nova_nats_retention_days":  "nats.stream_retention_days",
		"nova_nats_dup_window":      "nats.duplicate_window",
		"nova_nats_subscribers":     "nats.subscribers_count",
		"nova_nats_durable_name":    "nats.durable_name",
		"nova_nats_queue_group":     "nats.queue_group",
		"nova_router_retry_count":   "nats.router_retry_count",
		"nova_router_retry_initial": "nats.router_retry_initial_interval",
		"nova_router_poison":        "nats.router_poison_queue_enabled",
		"nova_router_poison_topic":  "nats.router_poison_queue_topic",
		"nova_router_close_timeout": "nats.router_close_timeout",

		// IPC mappings
		"nova_ipc_query_timeout":      "ipc.query_timeout",
		"nova_ipc_stream_ack_timeout": "ipc.stream_ack_timeout",
		"nova_ipc_command_timeout":    "ipc.command_timeout",
		"nova_ipc_ingest_timeout":     "ipc.ingest_timeout",
		"nova_ipc_export_timeout":     "ipc.export_timeout",
		"nova_ipc_breaker_failures":   "ipc.breaker_max_failures",
		"nova_ipc_breaker_open":       "ipc.breaker_open_duration",

		// Playback mappings
		"nova_playback_chunk_size":     "playback.chunk_size",
		"nova_playback_chunk_interval": "playback.chunk_interval",
		"nova_playback_queue_capacity": "playback.queue_capacity",
		"nova_playback_backpressure":   "playback.default_backpressure",

		// Ingest mappings
		"nova_ingest_dedupe_cache_size": "ingest.dedupe_cache_size",
		"nova_ingest_dedupe_cache_ttl":  "ingest.dedupe_cache_ttl",

		// Drivers / export mappings
		"nova_drivers_root":   "drivers.root",
		"nova_export_dir":     "export.dir",
		"nova_export_timeout": "export.timeout",

		// Server mappings
		"nova_http_host":    "server.host",
		"nova_http_port":    "server.port",
		"nova_http_timeout": "server.timeout",
		"environment":       "server.environment",

		// Security mappings
		"nova_jwt_secret":          "security.jwt_secret",
		"nova_session_timeout":     "security.session_timeout",
		"nova_admin_username":      "security.admin_username",
		"nova_admin_password":      "security.admin_password",
		"nova_rate_limit_requests": "security.rate_limit_reqs",
		"nova_rate_limit_window":   "security.rate_limit_window",
		"nova_disable_rate_limit":  "security.rate_limit_disabled",
		"nova_cors_origins":        "security.cors_origins",
		"nova_trusted_proxies":     "security.trusted_proxies",
		"nova_lockout_threshold":   "security.lockout_threshold",
		"nova_lockout_duration":    "security.lockout_duration",

		// OIDC mappings (SSO optional; active when issuer set)
		"oidc_issuer_url":      "security.oidc.issuer_url",
		"oidc_client_id":       "security.oidc.client_id",
		"oidc_client_secret":   "security.oidc.client_secret",
		"oidc_redirect_url":    "security.oidc.redirect_url",
		"oidc_scopes":          "security.oidc.scopes",
		"oidc_default_role":    "security.oidc.default_role",
		"oidc_username_claims": "security.oidc.username_claims",

		// Casbin mappings
		"casbin_model_path":  "security.casbin.model_path",
		"casbin_policy_path": "security.casbin.policy_path",

		// Outstream mappings
		"nova_outstream_store_path":              "outstream.store_path",
		"nova_outstream_queue_capacity":          "outstream.write_queue_capacity",
		"nova_outstream_throughput_log_interval": "outstream.throughput_log_interval",
		"nova_outstream_probe_timeout":           "outstream.probe_timeout",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Metrics mappings
		"nova_metrics_enabled": "metrics.enabled",
		"nova_metrics_addr":    "metrics.addr",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them.
	// This prevents random environment variables from polluting config.
	return ""
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
// Note: The caller is responsible for mutex protection when accessing
// configuration during reloads.
//
// Example usage:
//
//	var cfgMu sync.RWMutex
//	var cfg *Config
//
//	err := WatchConfigFile(configPath, func() {
//	    cfgMu.Lock()
//	    defer cfgMu.Unlock()
//	    newCfg, err := LoadWithKoanf()
//	    if err != nil {
//	        log.Printf("Config reload failed: %v", err)
//	        return
//	    }
//	    cfg = newCfg
//	})
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
