// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package auth issues and validates the edge's stateless sessions.
//
// A session is an HS256 JWT carrying username, role and allowed
// scopes, delivered in an HttpOnly SameSite=Strict cookie; WebSocket
// upgrades authenticate from the same cookie. There is no server-side
// session state, so tokens cannot be revoked before expiry — the
// timeout is the revocation horizon.
//
// Login is guarded by an in-memory lockout tracker keyed by
// username+IP. Optional OIDC single sign-on (enabled when an issuer
// URL is configured) exchanges the authorization code through the
// certified zitadel relying party and then issues the same local
// cookie, so downstream authorization never distinguishes SSO users.
package auth
