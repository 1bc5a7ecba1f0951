// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package api

import (
	"net/http"
	"testing"

	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// TestAdminGate verifies the admin surface is closed to everyone below
// the admin capability.
func TestAdminGate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	t.Run("anonymous", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/admin/users", nil)
		wantError(t, w, http.StatusUnauthorized, string(nverr.KindUnauthenticated))
	})

	for _, account := range []struct{ username, password string }{
		{"viewer", viewerPassword},
		{"operator", operatorPassword},
	} {
		t.Run(account.username, func(t *testing.T) {
			cookie := env.login(t, account.username, account.password)
			w := env.do(t, http.MethodGet, "/api/admin/users", nil, cookie)
			wantError(t, w, http.StatusForbidden, string(nverr.KindPermissionDenied))
		})
	}
}

// TestAdminCreateUser verifies admin-created accounts are active
// immediately and that hashes never serialize.
func TestAdminCreateUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.login(t, "admin", adminPassword)

	w := env.do(t, http.MethodPost, "/api/admin/users", adminCreateUserRequest{
		Username: "analyst",
		Password: "analyst-pass-1",
		Role:     models.RoleViewer,
		Scopes:   []string{"alpha"},
	}, admin)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", w.Code, w.Body.String())
	}
	data := dataMap(t, w)
	if data["username"] != "analyst" || data["role"] != models.RoleViewer {
		t.Errorf("created user = %v", data)
	}
	if pending, present := data["pending"]; present && pending != false {
		t.Errorf("admin-created account is pending: %v", pending)
	}
	if _, present := data["passwordHash"]; present {
		t.Error("response leaks passwordHash")
	}

	// Active right away: no approval step.
	env.login(t, "analyst", "analyst-pass-1")

	tests := []struct {
		name   string
		req    adminCreateUserRequest
		status int
		code   string
	}{
		{
			"duplicate username",
			adminCreateUserRequest{Username: "analyst", Password: "analyst-pass-1", Role: models.RoleViewer},
			http.StatusConflict, string(nverr.KindConflict),
		},
		{
			"unknown role",
			adminCreateUserRequest{Username: "other", Password: "other-pass-12", Role: "superuser"},
			http.StatusBadRequest, string(nverr.KindSchema),
		},
		{
			"short password",
			adminCreateUserRequest{Username: "other", Password: "short", Role: models.RoleViewer},
			http.StatusBadRequest, string(nverr.KindSchema),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/admin/users", tt.req, admin)
			wantError(t, w, tt.status, tt.code)
		})
	}
}

// TestApproveUser verifies the register-approve-login flow.
func TestApproveUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.login(t, "admin", adminPassword)

	if _, err := env.users.Register("recruit", "recruit-pass-1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Pending accounts cannot log in yet.
	w := env.do(t, http.MethodPost, "/auth/login", loginRequest{
		Username: "recruit", Password: "recruit-pass-1",
	})
	wantError(t, w, http.StatusUnauthorized, string(nverr.KindUnauthenticated))

	approved := env.do(t, http.MethodPost, "/api/admin/users/recruit/approve", approveUserRequest{
		Role:   models.RoleOperator,
		Scopes: []string{"beta"},
	}, admin)
	if approved.Code != http.StatusOK {
		t.Fatalf("approve: status = %d, body %s", approved.Code, approved.Body.String())
	}
	data := dataMap(t, approved)
	if data["role"] != models.RoleOperator {
		t.Errorf("role = %v, want operator", data["role"])
	}
	if pending, present := data["pending"]; present && pending != false {
		t.Errorf("approved account still pending: %v", pending)
	}

	env.login(t, "recruit", "recruit-pass-1")

	t.Run("unknown user", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/admin/users/ghost/approve", approveUserRequest{
			Role: models.RoleViewer,
		}, admin)
		wantError(t, w, http.StatusNotFound, string(nverr.KindNotFound))
	})
}

// TestAdminUserUpdates covers role, scope and password changes.
func TestAdminUserUpdates(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.login(t, "admin", adminPassword)

	role := env.do(t, http.MethodPut, "/api/admin/users/viewer/role", updateRoleRequest{
		Role: models.RoleOperator,
	}, admin)
	if role.Code != http.StatusOK {
		t.Fatalf("role: status = %d, body %s", role.Code, role.Body.String())
	}
	if got := dataMap(t, role)["role"]; got != models.RoleOperator {
		t.Errorf("role = %v, want operator", got)
	}

	scopes := env.do(t, http.MethodPut, "/api/admin/users/viewer/scopes", updateScopesRequest{
		Scopes: []string{"beta", "alpha", "beta", ""},
	}, admin)
	if scopes.Code != http.StatusOK {
		t.Fatalf("scopes: status = %d", scopes.Code)
	}
	granted, _ := dataMap(t, scopes)["allowedScopes"].([]interface{})
	if len(granted) != 2 || granted[0] != "beta" || granted[1] != "alpha" {
		t.Errorf("allowedScopes = %v, want deduplicated [beta alpha]", granted)
	}

	pw := env.do(t, http.MethodPut, "/api/admin/users/viewer/password", updatePasswordRequest{
		Password: "fresh-password-1",
	}, admin)
	if pw.Code != http.StatusOK {
		t.Fatalf("password: status = %d", pw.Code)
	}

	old := env.do(t, http.MethodPost, "/auth/login", loginRequest{
		Username: "viewer", Password: viewerPassword,
	})
	wantError(t, old, http.StatusUnauthorized, string(nverr.KindUnauthenticated))
	env.login(t, "viewer", "fresh-password-1")

	t.Run("weak password rejected", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/admin/users/viewer/password", updatePasswordRequest{
			Password: "short",
		}, admin)
		wantError(t, w, http.StatusBadRequest, string(nverr.KindSchema))
	})

	t.Run("unknown user", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/admin/users/ghost/role", updateRoleRequest{
			Role: models.RoleViewer,
		}, admin)
		wantError(t, w, http.StatusNotFound, string(nverr.KindNotFound))
	})
}

// TestAdminDeleteUser verifies delete and the repeat answering
// NotFound.
func TestAdminDeleteUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.login(t, "admin", adminPassword)

	del := env.do(t, http.MethodDelete, "/api/admin/users/viewer", nil, admin)
	if del.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", del.Code)
	}
	if got := dataMap(t, del)["deleted"]; got != "viewer" {
		t.Errorf("deleted = %v, want viewer", got)
	}

	w := env.do(t, http.MethodPost, "/auth/login", loginRequest{
		Username: "viewer", Password: viewerPassword,
	})
	wantError(t, w, http.StatusUnauthorized, string(nverr.KindUnauthenticated))

	again := env.do(t, http.MethodDelete, "/api/admin/users/viewer", nil, admin)
	wantError(t, again, http.StatusNotFound, string(nverr.KindNotFound))
}

// TestLastAdminGuard verifies the node cannot lose its last admin.
func TestLastAdminGuard(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.login(t, "admin", adminPassword)

	demote := env.do(t, http.MethodPut, "/api/admin/users/admin/role", updateRoleRequest{
		Role: models.RoleViewer,
	}, admin)
	wantError(t, demote, http.StatusConflict, string(nverr.KindConflict))

	del := env.do(t, http.MethodDelete, "/api/admin/users/admin", nil, admin)
	wantError(t, del, http.StatusConflict, string(nverr.KindConflict))

	// With a second admin the demotion goes through.
	if w := env.do(t, http.MethodPost, "/api/admin/users", adminCreateUserRequest{
		Username: "admin2", Password: "admin2-pass-12", Role: models.RoleAdmin,
		Scopes: []string{models.ScopeAll},
	}, admin); w.Code != http.StatusCreated {
		t.Fatalf("second admin: status = %d", w.Code)
	}
	demote = env.do(t, http.MethodPut, "/api/admin/users/admin/role", updateRoleRequest{
		Role: models.RoleViewer,
	}, admin)
	if demote.Code != http.StatusOK {
		t.Errorf("demote with backup admin: status = %d", demote.Code)
	}
}

// TestListScopes verifies the scope union excludes the wildcard and
// includes scopes only referenced by stream definitions.
func TestListScopes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.login(t, "admin", adminPassword)

	// gamma exists only on a stream definition, granted to no user.
	if w := env.do(t, http.MethodPost, "/api/streams", models.StreamDefinition{
		Name:     "Gamma Feed",
		Protocol: models.ProtocolWebSocket,
		Endpoint: "gamma-feed",
		ScopeID:  "gamma",
		Lane:     models.LaneParsed,
	}, admin); w.Code != http.StatusCreated {
		t.Fatalf("seed stream: status = %d, body %s", w.Code, w.Body.String())
	}

	w := env.do(t, http.MethodGet, "/api/admin/scopes", nil, admin)
	if w.Code != http.StatusOK {
		t.Fatalf("scopes: status = %d", w.Code)
	}
	raw, _ := decodeEnvelope(t, w).Data.([]interface{})
	got := make([]string, len(raw))
	for i, v := range raw {
		got[i], _ = v.(string)
	}
	want := []string{"alpha", "beta", "gamma"}
	if len(got) != len(want) {
		t.Fatalf("scopes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("scopes[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
