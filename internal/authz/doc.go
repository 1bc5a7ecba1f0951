// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package authz decides what a role may do. The model is Casbin RBAC
// over three capabilities: read gates every data surface, command
// gates command submission and exports, admin gates user and scope
// management. Operator inherits viewer, admin inherits operator.
//
// Scope visibility is not a policy concern: which systems a user may
// see comes from the account's scope grant and is checked where
// requests are resolved. The enforcer only answers "may this role
// perform this class of action".
//
// Model and policy ship embedded; deployments can override both with
// files via the casbin configuration section.
package authz
