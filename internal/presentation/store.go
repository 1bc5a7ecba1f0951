// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package presentation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"

	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// Factory baseline applied beneath both override layers. DisplayName
// and modelRef have no factory opinion; clients fall back to the
// uniqueId and their default model.
var (
	factoryColor = [3]int{220, 220, 220}
	factoryScale = 1.0
)

// factoryDefaults returns a fresh copy so resolution never aliases the
// package-level values.
func factoryDefaults() models.PresentationFields {
	color := factoryColor
	scale := factoryScale
	return models.PresentationFields{Color: &color, Scale: &scale}
}

// userFile is the on-disk shape of a user's presentation.json: every
// scope the user has customized, in one document.
type userFile struct {
	Version int                                             `json:"version"`
	Scopes  map[string]map[string]models.PresentationFields `json:"scopes"`
}

// scopeFile is the on-disk shape of a per-scope admin defaults file.
type scopeFile struct {
	Version  int                                   `json:"version"`
	Entities map[string]models.PresentationFields `json:"entities"`
}

// Store reads and writes the layered presentation files. One mutex
// serializes all file access; override traffic is human-paced.
type Store struct {
	usersDir    string
	defaultsDir string
	mu          sync.RWMutex
}

// NewStore roots the store under dataDir, creating the layer
// directories when missing.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	s := &Store{
		usersDir:    filepath.Join(dataDir, "users"),
		defaultsDir: filepath.Join(dataDir, "presentation", "defaults"),
	}
	if err := os.MkdirAll(s.usersDir, 0o750); err != nil {
		return nil, fmt.Errorf("create users directory: %w", err)
	}
	if err := os.MkdirAll(s.defaultsDir, 0o750); err != nil {
		return nil, fmt.Errorf("create presentation defaults directory: %w", err)
	}
	return s, nil
}

// SetUserOverrides replaces the user's override for each given
// uniqueId with the sanitized field subset. An entry that sanitizes to
// nothing clears the override instead. Returns what was stored, keyed
// by uniqueId, with cleared entries absent.
func (s *Store) SetUserOverrides(username, scopeID string, entities map[string]models.PresentationFields) (map[string]models.PresentationFields, error) {
	if err := checkPathComponent("username", username); err != nil {
		return nil, err
	}
	if err := checkPathComponent("scope", scopeID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.loadUserLocked(username)
	if err != nil {
		return nil, err
	}
	layer := f.Scopes[scopeID]
	if layer == nil {
		layer = make(map[string]models.PresentationFields)
	}

	applied := applyEntities(layer, entities)
	if len(layer) == 0 {
		delete(f.Scopes, scopeID)
	} else {
		f.Scopes[scopeID] = layer
	}

	if err := s.saveUserLocked(username, f); err != nil {
		return nil, err
	}
	return applied, nil
}

// UserOverrides returns the user's raw override layer for one scope.
func (s *Store) UserOverrides(username, scopeID string) (map[string]models.PresentationFields, error) {
	if err := checkPathComponent("username", username); err != nil {
		return nil, err
	}
	if err := checkPathComponent("scope", scopeID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	f, err := s.loadUserLocked(username)
	if err != nil {
		return nil, err
	}
	return copyLayer(f.Scopes[scopeID]), nil
}

// SetAdminDefaults replaces the scope's admin default for each given
// uniqueId, with the same sanitize-or-clear semantics as user writes.
func (s *Store) SetAdminDefaults(scopeID string, entities map[string]models.PresentationFields) (map[string]models.PresentationFields, error) {
	if err := checkPathComponent("scope", scopeID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.loadScopeLocked(scopeID)
	if err != nil {
		return nil, err
	}
	applied := applyEntities(f.Entities, entities)

	if err := s.saveScopeLocked(scopeID, f); err != nil {
		return nil, err
	}
	return applied, nil
}

// AdminDefaults returns the scope's raw admin default layer.
func (s *Store) AdminDefaults(scopeID string) (map[string]models.PresentationFields, error) {
	if err := checkPathComponent("scope", scopeID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	f, err := s.loadScopeLocked(scopeID)
	if err != nil {
		return nil, err
	}
	return copyLayer(f.Entities), nil
}

// Resolve merges factory, admin and user layers per key for each
// requested uniqueId. Empty uniqueIDs resolves every id either layer
// knows. Both layer files are read once regardless of how many ids
// are asked for.
func (s *Store) Resolve(username, scopeID string, uniqueIDs []string) (map[string]models.PresentationFields, error) {
	if err := checkPathComponent("username", username); err != nil {
		return nil, err
	}
	if err := checkPathComponent("scope", scopeID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scope, err := s.loadScopeLocked(scopeID)
	if err != nil {
		return nil, err
	}
	user, err := s.loadUserLocked(username)
	if err != nil {
		return nil, err
	}
	userLayer := user.Scopes[scopeID]

	ids := uniqueIDs
	if len(ids) == 0 {
		seen := make(map[string]struct{}, len(scope.Entities)+len(userLayer))
		for id := range scope.Entities {
			seen[id] = struct{}{}
		}
		for id := range userLayer {
			seen[id] = struct{}{}
		}
		ids = make([]string, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}

	out := make(map[string]models.PresentationFields, len(ids))
	for _, id := range ids {
		resolved := factoryDefaults()
		if fields, ok := scope.Entities[id]; ok {
			resolved = resolved.Merge(fields)
		}
		if fields, ok := userLayer[id]; ok {
			resolved = resolved.Merge(fields)
		}
		out[id] = resolved
	}
	return out, nil
}

// applyEntities sanitizes and applies one write batch to a layer map,
// returning the surviving entries. Entries that sanitize to nothing
// clear the key.
func applyEntities(layer, entities map[string]models.PresentationFields) map[string]models.PresentationFields {
	applied := make(map[string]models.PresentationFields, len(entities))
	for id, fields := range entities {
		if id == "" {
			continue
		}
		clean := fields.Sanitized()
		if clean.IsZero() {
			delete(layer, id)
			continue
		}
		layer[id] = clean
		applied[id] = clean
	}
	return applied
}

func copyLayer(layer map[string]models.PresentationFields) map[string]models.PresentationFields {
	out := make(map[string]models.PresentationFields, len(layer))
	for id, fields := range layer {
		out[id] = fields
	}
	return out
}

func (s *Store) userPath(username string) string {
	return filepath.Join(s.usersDir, username, "presentation.json")
}

func (s *Store) scopePath(scopeID string) string {
	return filepath.Join(s.defaultsDir, scopeID+".json")
}

func (s *Store) loadUserLocked(username string) (*userFile, error) {
	f := &userFile{Version: 1, Scopes: make(map[string]map[string]models.PresentationFields)}
	data, err := os.ReadFile(s.userPath(username)) //nolint:gosec // G304: components are validated
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read presentation file: %w", err)
	}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse presentation file for %q: %w", username, err)
	}
	if f.Scopes == nil {
		f.Scopes = make(map[string]map[string]models.PresentationFields)
	}
	return f, nil
}

func (s *Store) saveUserLocked(username string, f *userFile) error {
	path := s.userPath(username)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create user directory: %w", err)
	}
	f.Version = 1
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode presentation file: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write presentation file: %w", err)
	}
	return nil
}

func (s *Store) loadScopeLocked(scopeID string) (*scopeFile, error) {
	f := &scopeFile{Version: 1, Entities: make(map[string]models.PresentationFields)}
	data, err := os.ReadFile(s.scopePath(scopeID)) //nolint:gosec // G304: components are validated
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scope defaults file: %w", err)
	}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse scope defaults file for %q: %w", scopeID, err)
	}
	if f.Entities == nil {
		f.Entities = make(map[string]models.PresentationFields)
	}
	return f, nil
}

func (s *Store) saveScopeLocked(scopeID string, f *scopeFile) error {
	f.Version = 1
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scope defaults file: %w", err)
	}
	if err := renameio.WriteFile(s.scopePath(scopeID), data, 0o600); err != nil {
		return fmt.Errorf("write scope defaults file: %w", err)
	}
	return nil
}

// checkPathComponent rejects values that would escape the store's
// directories when embedded in a path.
func checkPathComponent(what, value string) error {
	if value == "" {
		return nverr.Newf(nverr.KindSchema, "%s is required", what)
	}
	if value == "." || value == ".." ||
		strings.ContainsAny(value, `/\`) || strings.Contains(value, "..") {
		return nverr.Newf(nverr.KindSchema, "%s %q contains unsafe path characters", what, value)
	}
	return nil
}
