// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package users

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "users.json"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	return s
}

func TestBootstrapCreatesAdminOnce(t *testing.T) {
	s := setupStore(t)

	if err := s.Bootstrap("admin", "changeme-now"); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	u, err := s.Get("admin")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if u.Role != models.RoleAdmin || !u.HasScope("anything") {
		t.Fatalf("Admin = %+v", u)
	}
	if u.PasswordHash != "" {
		t.Fatal("Get leaked the password hash")
	}

	// Rotating the password via the API must survive the next boot.
	if err := s.UpdatePassword("admin", "rotated-pass"); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}
	if err := s.Bootstrap("admin", "changeme-now"); err != nil {
		t.Fatalf("Second bootstrap failed: %v", err)
	}
	if _, err := s.Authenticate("admin", "rotated-pass"); err != nil {
		t.Fatalf("Rotated password no longer works: %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	s := setupStore(t)
	if err := s.Bootstrap("admin", "changeme-now"); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	u, err := s.Authenticate("admin", "changeme-now")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if u.Username != "admin" || u.PasswordHash != "" {
		t.Fatalf("Authenticate returned %+v", u)
	}

	if _, err := s.Authenticate("admin", "wrong"); nverr.KindOf(err) != nverr.KindUnauthenticated {
		t.Fatalf("Wrong password: got %v", err)
	}
	if _, err := s.Authenticate("ghost", "changeme-now"); nverr.KindOf(err) != nverr.KindUnauthenticated {
		t.Fatalf("Unknown user: got %v", err)
	}
}

func TestRegisterPendingFlow(t *testing.T) {
	s := setupStore(t)

	u, err := s.Register("analyst", "long-enough-pass")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !u.Pending || u.Role != models.RoleViewer || len(u.AllowedScopes) != 0 {
		t.Fatalf("Registered = %+v", u)
	}

	// Pending accounts cannot log in.
	if _, err := s.Authenticate("analyst", "long-enough-pass"); nverr.KindOf(err) != nverr.KindUnauthenticated {
		t.Fatalf("Pending login: got %v", err)
	}

	// Second registration conflicts.
	if _, err := s.Register("analyst", "long-enough-pass"); nverr.KindOf(err) != nverr.KindConflict {
		t.Fatalf("Duplicate register: got %v", err)
	}

	approved, err := s.Approve("analyst", models.RoleOperator, []string{"ops", "ops", ""})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Pending || approved.Role != models.RoleOperator {
		t.Fatalf("Approved = %+v", approved)
	}
	if len(approved.AllowedScopes) != 1 || approved.AllowedScopes[0] != "ops" {
		t.Fatalf("Scopes not normalized: %v", approved.AllowedScopes)
	}

	if _, err := s.Authenticate("analyst", "long-enough-pass"); err != nil {
		t.Fatalf("Approved login failed: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := setupStore(t)

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "ab", "long-enough-pass"},
		{"bad characters", "a user", "long-enough-pass"},
		{"path traversal", "../admin", "long-enough-pass"},
		{"short password", "analyst", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Register(tc.username, tc.password); nverr.KindOf(err) != nverr.KindSchema {
				t.Fatalf("Expected schema error, got %v", err)
			}
		})
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.Create("analyst", "long-enough-pass", models.RoleViewer, []string{"ops"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	u, err := reopened.Get("analyst")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if u.Role != models.RoleViewer || !u.HasScope("ops") {
		t.Fatalf("Reloaded = %+v", u)
	}
	if _, err := reopened.Authenticate("analyst", "long-enough-pass"); err != nil {
		t.Fatalf("Authenticate after reopen failed: %v", err)
	}
}

func TestFileNeverHoldsPlaintext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.Create("analyst", "super-secret-pw", models.RoleViewer, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Read users file: %v", err)
	}
	if strings.Contains(string(data), "super-secret-pw") {
		t.Fatal("users.json contains a plaintext password")
	}
	if !strings.Contains(string(data), "$2a$") {
		t.Fatal("users.json does not look bcrypt-hashed")
	}
}

func TestLastAdminIsProtected(t *testing.T) {
	s := setupStore(t)
	if err := s.Bootstrap("admin", "changeme-now"); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	if err := s.Delete("admin"); nverr.KindOf(err) != nverr.KindConflict {
		t.Fatalf("Deleting last admin: got %v", err)
	}
	if _, err := s.UpdateRole("admin", models.RoleViewer); nverr.KindOf(err) != nverr.KindConflict {
		t.Fatalf("Demoting last admin: got %v", err)
	}

	// With a second admin both operations go through.
	if _, err := s.Create("admin2", "long-enough-pass", models.RoleAdmin, []string{models.ScopeAll}); err != nil {
		t.Fatalf("Create second admin failed: %v", err)
	}
	if _, err := s.UpdateRole("admin", models.RoleViewer); err != nil {
		t.Fatalf("Demote with backup admin failed: %v", err)
	}
	if err := s.Delete("admin"); err != nil {
		t.Fatalf("Delete demoted account failed: %v", err)
	}
}

func TestListSortedAndSanitized(t *testing.T) {
	s := setupStore(t)
	for _, name := range []string{"zoe", "ada", "mia"} {
		if _, err := s.Create(name, "long-enough-pass", models.RoleViewer, nil); err != nil {
			t.Fatalf("Create %s failed: %v", name, err)
		}
	}

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("List returned %d users", len(list))
	}
	if list[0].Username != "ada" || list[1].Username != "mia" || list[2].Username != "zoe" {
		t.Fatalf("List order: %s %s %s", list[0].Username, list[1].Username, list[2].Username)
	}
	for _, u := range list {
		if u.PasswordHash != "" {
			t.Fatalf("List leaked a hash for %s", u.Username)
		}
	}
}

func TestUpdateScopes(t *testing.T) {
	s := setupStore(t)
	if _, err := s.Create("analyst", "long-enough-pass", models.RoleViewer, []string{"ops"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	u, err := s.UpdateScopes("analyst", []string{"ops", "lab"})
	if err != nil {
		t.Fatalf("UpdateScopes failed: %v", err)
	}
	if !u.HasScope("lab") || u.HasScope("other") {
		t.Fatalf("Scopes = %v", u.AllowedScopes)
	}

	if _, err := s.UpdateScopes("ghost", nil); nverr.KindOf(err) != nverr.KindNotFound {
		t.Fatalf("Unknown user: got %v", err)
	}
}
