// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

/*
Package main is the entry point for the NOVA Server process.

The Server is the edge of a NOVA node: it terminates HTTP and WebSocket
traffic, owns accounts and sessions, serves run and presentation state
from per-user folders, and forwards every telemetry operation over NATS
IPC to the Core process. It holds no truth of its own; if the Core link
drops, the Server keeps answering auth and state requests while
readiness reports the node as draining.

# Application Architecture

The server runs its long-lived components under a Suture v4 supervisor
tree:

	nova-server
	├── messaging-layer
	│   ├── client-hub        (WebSocket session registry and pumps)
	│   ├── output-streams    (TCP/UDP/WebSocket output stream listeners)
	│   └── manifest-watcher  (catalog directory publisher)
	└── api-layer
	    └── api-server        (REST + WebSocket + swagger listener)

Component initialization order:

 1. Configuration: Koanf v2 layering environment variables over an
    optional config.yaml over built-in defaults
 2. User store: users.json with bcrypt hashes, admin bootstrap
 3. Authentication: JWT session manager, login lockout tracker, and
    optional OIDC single sign-on
 4. Authorization: Casbin RBAC enforcer (viewer, operator, admin)
 5. Core IPC: NATS client to the Core process; the readiness probe
    follows this link
 6. WebSocket hub and gateway for the client socket protocol
 7. Output stream manager over the BadgerDB definition store
 8. Run store, presentation store, export catalog, manifest watcher
 9. HTTP server: chi route tree with per-group rate limits

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest
priority wins): environment variables, then config.yaml, then defaults.
The variables every deployment touches:

  - NOVA_MODE: node mode, "live" or "replay" (default: live)
  - NOVA_DATA_DIR: root for all persistent state (default: /data/nova)
  - NOVA_HTTP_HOST / NOVA_HTTP_PORT: bind address (default: 0.0.0.0:8080)
  - NOVA_NATS_URL: broker hosted by nova-core (default: nats://127.0.0.1:4222)
  - NOVA_JWT_SECRET: session signing secret, 32+ bytes in production
  - NOVA_ADMIN_USERNAME / NOVA_ADMIN_PASSWORD: bootstrap admin account
  - LOG_LEVEL / LOG_FORMAT: zerolog level and json|console output

The full catalog, including OIDC, CORS, rate limit and lockout tuning,
is documented on the structs in internal/config.

# Two-Process Deployment

A node is one nova-core plus one nova-server sharing NOVA_DATA_DIR.
Start the Core first so its embedded broker is listening; the Server's
IPC client retries forever, so the opposite order merely delays
readiness. Both processes read the same configuration sources.

# Signal Handling

The server shuts down gracefully on SIGINT and SIGTERM:

 1. The root context is canceled and the supervisor tree drains,
    giving each service its shutdown timeout (10s)
 2. The HTTP listener stops accepting and waits out in-flight requests
 3. Output stream listeners close their client connections
 4. The IPC client and the stream definition store close last

Services still running after their timeout are named in the final log
report.

# Example Usage

Development against a local Core:

	export NOVA_ENVIRONMENT=development
	export NOVA_ADMIN_USERNAME=admin
	export NOVA_ADMIN_PASSWORD=admin-dev-password
	./nova-server

Production:

	export NOVA_ENVIRONMENT=production
	export NOVA_JWT_SECRET=$(openssl rand -base64 32)
	export NOVA_ADMIN_USERNAME=admin
	export NOVA_ADMIN_PASSWORD=secure-password
	export NOVA_CORS_ORIGINS=https://nova.example.org
	./nova-server

Replay node serving a copied data directory:

	export NOVA_MODE=replay
	export NOVA_DATA_DIR=/data/nova-replay
	./nova-server

# API Documentation

Interactive Swagger UI is served at /swagger/index.html. The OpenAPI
document is generated from the annotations in this package and the
handlers:

	swag init -g cmd/nova-server/docs.go -o docs

# See Also

  - cmd/nova-core: the truth store half of the node
  - internal/api: route tree and handlers
  - internal/websocket: the client socket protocol
  - internal/outstream: output stream listeners and formats
*/
package main
