// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package main provides the NOVA Server HTTP and WebSocket surface
//
// NOVA Server is the client-facing half of a NOVA node. It authenticates
// operators, exposes runs, presentation and output stream management over
// REST, and relays telemetry queries, playback and commands to the Core
// process over NATS IPC.
//
// @title NOVA API
// @version 1.0
// @description Telemetry truth store and playback system.
// @description
// @description ## Surfaces
// @description
// @description - **REST**: session, run, presentation, output stream and admin management (this document)
// @description - **Realtime WebSocket** (`/ws`): telemetry queries, playback instances, commands, chat and exports
// @description - **Output streams**: raw TCP/UDP/WebSocket feeds published at operator-defined endpoints
// @description
// @description ## Authentication
// @description
// @description Most endpoints require a session JWT issued by `/auth/login`, carried as an
// @description HTTP-only cookie or an `Authorization: Bearer` header. Self-registered
// @description accounts stay pending until an admin approves them with a role and scope grant.
// @description
// @description ## Scopes
// @description
// @description Telemetry is partitioned by scope. Requests that operate on scoped data take an
// @description optional `scope` query parameter; it may be omitted only when the caller's grant
// @description names exactly one scope.
// @description
// @description ## Rate Limiting
// @description
// @description Login, registration and export endpoints are rate limited per IP.
// @description Limit headers are included in responses: `X-RateLimit-Limit`, `X-RateLimit-Remaining`, `X-RateLimit-Reset`.
// @description
// @description ## Error Responses
// @description
// @description All error responses follow this format:
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {
// @description     "code": "SchemaError",
// @description     "message": "Human-readable error message",
// @description     "details": {}
// @description   },
// @description   "metadata": {
// @description     "timestamp": "2026-08-25T12:34:56Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/nova-telemetry/nova/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8080
// @BasePath /
// @schemes http https
//
// @securityDefinitions.apikey SessionAuth
// @in cookie
// @name nova_session
// @description Session JWT issued by /auth/login, carried as an HTTP-only cookie or an Authorization: Bearer header.
//
// @tag.name System
// @tag.description Health probes and the node configuration surface
//
// @tag.name Auth
// @tag.description Session management: login, logout, registration and OIDC
//
// @tag.name Realtime
// @tag.description The client WebSocket carrying queries, playback, commands, chat and exports
//
// @tag.name Streams
// @tag.description Output stream definitions and their TCP/UDP/WebSocket feeds
//
// @tag.name Runs
// @tag.description Per-user named export windows and bundle downloads
//
// @tag.name Presentation
// @tag.description Layered display customization: user overrides, admin defaults, factory baseline
//
// @tag.name Admin
// @tag.description Account management and scope administration
//
// @tag.name Exports
// @tag.description Finished export archive downloads
package main
