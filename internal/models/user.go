// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package models

import "time"

// Role constants define the standard roles in the system. These align
// with the Casbin policy definitions in internal/authz.
const (
	// RoleViewer is the default role: read-only access to truth.
	RoleViewer = "viewer"

	// RoleOperator can submit commands and exports, inheriting viewer.
	RoleOperator = "operator"

	// RoleAdmin has full access including user and scope management.
	RoleAdmin = "admin"
)

// ValidRoles contains all valid role names for validation.
var ValidRoles = []string{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole checks if a role name is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Capability names used by the authorization layer.
const (
	CapabilityRead    = "read"
	CapabilityCommand = "command"
	CapabilityAdmin   = "admin"
)

// ScopeAll is the wildcard entry in AllowedScopes granting access to
// every scope.
const ScopeAll = "ALL"

// User is one account record as persisted in users.json. PasswordHash
// is the bcrypt hash and must never leave the process; API responses
// go through Sanitized.
type User struct {
	Username      string    `json:"username"`
	PasswordHash  string    `json:"passwordHash,omitempty"`
	Role          string    `json:"role"`
	AllowedScopes []string  `json:"allowedScopes"`
	Pending       bool      `json:"pending,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Sanitized returns a copy safe for API responses: the password hash
// is stripped.
func (u *User) Sanitized() *User {
	out := *u
	out.PasswordHash = ""
	out.AllowedScopes = append([]string(nil), u.AllowedScopes...)
	return &out
}

// HasScope reports whether the user may access the given scope,
// honoring the ALL wildcard.
func (u *User) HasScope(scope string) bool {
	for _, s := range u.AllowedScopes {
		if s == ScopeAll || s == scope {
			return true
		}
	}
	return false
}

// SingleScope returns the user's only concrete scope when exactly one
// is held, enabling scope inference for writes. The wildcard never
// infers.
func (u *User) SingleScope() (string, bool) {
	if len(u.AllowedScopes) == 1 && u.AllowedScopes[0] != ScopeAll {
		return u.AllowedScopes[0], true
	}
	return "", false
}
