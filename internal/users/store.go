// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package users

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// bcryptCost balances hash strength against login latency.
const bcryptCost = 12

// MinPasswordLength is enforced on registration and password changes.
const MinPasswordLength = 8

// usernamePattern keeps account names safe to embed in file paths and
// NATS subjects.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{2,63}$`)

// dummyHash is compared against for unknown usernames so login timing
// does not reveal which accounts exist.
var dummyHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

// fileFormat is the on-disk shape of users.json.
type fileFormat struct {
	Version int            `json:"version"`
	Users   []*models.User `json:"users"`
}

// Store holds every account in memory and rewrites users.json
// atomically on each mutation. Safe for concurrent use.
type Store struct {
	path  string
	mu    sync.RWMutex
	users map[string]*models.User
}

// Open loads the store from path, starting empty when the file does
// not exist yet.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("users file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create users directory: %w", err)
	}

	s := &Store{path: path, users: make(map[string]*models.User)}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from configuration
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse users file: %w", err)
	}
	for _, u := range f.Users {
		if u.Username == "" {
			continue
		}
		s.users[u.Username] = u
	}
	return s, nil
}

// Bootstrap ensures the configured admin account exists. Called once
// at startup; an existing account is left untouched so operators can
// rotate the password through the API without the next boot undoing it.
func (s *Store) Bootstrap(username, password string) error {
	if username == "" || password == "" {
		logging.Warn().Msg("No admin bootstrap credentials configured")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	now := time.Now().UTC()
	s.users[username] = &models.User{
		Username:      username,
		PasswordHash:  string(hash),
		Role:          models.RoleAdmin,
		AllowedScopes: []string{models.ScopeAll},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.saveLocked(); err != nil {
		delete(s.users, username)
		return err
	}
	logging.Info().Str("username", username).Msg("Bootstrapped admin account")
	return nil
}

// Authenticate verifies credentials. Unknown accounts, wrong passwords
// and pending accounts all return Unauthenticated with the same
// message shape.
func (s *Store) Authenticate(username, password string) (*models.User, error) {
	s.mu.RLock()
	u, ok := s.users[username]
	s.mu.RUnlock()

	if !ok {
		// Burn a comparison anyway.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password)) //nolint:errcheck // Timing equalizer
		return nil, nverr.New(nverr.KindUnauthenticated, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nverr.New(nverr.KindUnauthenticated, "invalid credentials")
	}
	if u.Pending {
		return nil, nverr.New(nverr.KindUnauthenticated, "account pending approval")
	}
	return u.Sanitized(), nil
}

// Register creates a pending viewer account awaiting admin approval.
func (s *Store) Register(username, password string) (*models.User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return nil, nverr.Newf(nverr.KindConflict, "username %q is taken", username)
	}
	now := time.Now().UTC()
	u := &models.User{
		Username:      username,
		PasswordHash:  string(hash),
		Role:          models.RoleViewer,
		AllowedScopes: []string{},
		Pending:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.users[username] = u
	if err := s.saveLocked(); err != nil {
		delete(s.users, username)
		return nil, err
	}
	return u.Sanitized(), nil
}

// Approve activates a pending account with its granted role and
// scopes. Approving an already active account just updates the grant.
func (s *Store) Approve(username, role string, scopes []string) (*models.User, error) {
	if !models.IsValidRole(role) {
		return nil, nverr.Newf(nverr.KindSchema, "unknown role %q", role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, nverr.Newf(nverr.KindNotFound, "unknown user %q", username)
	}
	prev := *u
	u.Pending = false
	u.Role = role
	u.AllowedScopes = normalizeScopes(scopes)
	u.UpdatedAt = time.Now().UTC()
	if err := s.saveLocked(); err != nil {
		*u = prev
		return nil, err
	}
	return u.Sanitized(), nil
}

// Create adds an active account directly, bypassing the pending flow.
// Admin-only at the API layer.
func (s *Store) Create(username, password, role string, scopes []string) (*models.User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if !models.IsValidRole(role) {
		return nil, nverr.Newf(nverr.KindSchema, "unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return nil, nverr.Newf(nverr.KindConflict, "username %q is taken", username)
	}
	now := time.Now().UTC()
	u := &models.User{
		Username:      username,
		PasswordHash:  string(hash),
		Role:          role,
		AllowedScopes: normalizeScopes(scopes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.users[username] = u
	if err := s.saveLocked(); err != nil {
		delete(s.users, username)
		return nil, err
	}
	return u.Sanitized(), nil
}

// Get returns one sanitized account.
func (s *Store) Get(username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, nverr.Newf(nverr.KindNotFound, "unknown user %q", username)
	}
	return u.Sanitized(), nil
}

// List returns every account sanitized, sorted by username.
func (s *Store) List() []*models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Sanitized())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// UpdateRole changes an account's role. The last active admin cannot
// be demoted.
func (s *Store) UpdateRole(username, role string) (*models.User, error) {
	if !models.IsValidRole(role) {
		return nil, nverr.Newf(nverr.KindSchema, "unknown role %q", role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, nverr.Newf(nverr.KindNotFound, "unknown user %q", username)
	}
	if u.Role == models.RoleAdmin && role != models.RoleAdmin && s.adminCountLocked() == 1 {
		return nil, nverr.New(nverr.KindConflict, "cannot demote the last admin")
	}
	prev := *u
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	if err := s.saveLocked(); err != nil {
		*u = prev
		return nil, err
	}
	return u.Sanitized(), nil
}

// UpdateScopes replaces an account's allowed scopes.
func (s *Store) UpdateScopes(username string, scopes []string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, nverr.Newf(nverr.KindNotFound, "unknown user %q", username)
	}
	prev := *u
	u.AllowedScopes = normalizeScopes(scopes)
	u.UpdatedAt = time.Now().UTC()
	if err := s.saveLocked(); err != nil {
		*u = prev
		return nil, err
	}
	return u.Sanitized(), nil
}

// UpdatePassword rehashes an account's password.
func (s *Store) UpdatePassword(username, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nverr.Newf(nverr.KindNotFound, "unknown user %q", username)
	}
	prev := *u
	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now().UTC()
	if err := s.saveLocked(); err != nil {
		*u = prev
		return err
	}
	return nil
}

// Delete removes an account. The last active admin cannot be deleted.
func (s *Store) Delete(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nverr.Newf(nverr.KindNotFound, "unknown user %q", username)
	}
	if u.Role == models.RoleAdmin && !u.Pending && s.adminCountLocked() == 1 {
		return nverr.New(nverr.KindConflict, "cannot delete the last admin")
	}
	delete(s.users, username)
	if err := s.saveLocked(); err != nil {
		s.users[username] = u
		return err
	}
	return nil
}

// Count returns the number of accounts, pending included.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *Store) adminCountLocked() int {
	n := 0
	for _, u := range s.users {
		if u.Role == models.RoleAdmin && !u.Pending {
			n++
		}
	}
	return n
}

// saveLocked rewrites users.json atomically. Callers hold the write
// lock, which serializes writers.
func (s *Store) saveLocked() error {
	f := fileFormat{Version: 1, Users: make([]*models.User, 0, len(s.users))}
	for _, u := range s.users {
		f.Users = append(f.Users, u)
	}
	sort.Slice(f.Users, func(i, j int) bool { return f.Users[i].Username < f.Users[j].Username })

	data, err := json.MarshalIndent(&f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users file: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	return nil
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return nverr.New(nverr.KindSchema, "username must be 3-64 characters of letters, digits, dot, dash or underscore")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return nverr.Newf(nverr.KindSchema, "password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// normalizeScopes drops empty entries and duplicates, keeping first
// occurrence order. A lone ALL stays a lone ALL.
func normalizeScopes(scopes []string) []string {
	seen := make(map[string]struct{}, len(scopes))
	out := make([]string, 0, len(scopes))
	for _, sc := range scopes {
		if sc == "" {
			continue
		}
		if _, ok := seen[sc]; ok {
			continue
		}
		seen[sc] = struct{}{}
		out = append(out, sc)
	}
	return out
}
