// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package manifest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
	"github.com/nova-telemetry/nova/internal/truth"
)

// DefaultCatalogScope receives ManifestPublished events for catalog
// files that do not name a scope of their own.
const DefaultCatalogScope = "nova-system"

// InsertFunc appends one event through the ingest normalizer so the
// publication row gets a canonical time like any other event. Wired by
// the core at startup; registries constructed without one can Register
// but not Publish.
type InsertFunc func(ctx context.Context, e *models.Event) (*models.InsertResult, error)

// compiled pairs a manifest with its compiled key schema.
type compiled struct {
	manifest *models.Manifest
	schema   *jsonschema.Schema
}

// Registry holds every known manifest version and validates ui payloads
// against them. Reads are lock-free after boot in practice: the map
// only grows, and registration happens during startup and on catalog
// changes.
type Registry struct {
	mu     sync.RWMutex
	byRef  map[models.ManifestRef]*compiled
	latest map[string]int

	insert InsertFunc
}

// NewRegistry creates an empty registry. insert may be nil for
// replay-only nodes and tests that never publish.
func NewRegistry(insert InsertFunc) *Registry {
	return &Registry{
		byRef:  make(map[models.ManifestRef]*compiled),
		latest: make(map[string]int),
		insert: insert,
	}
}

// Register validates, compiles and stores a manifest version without
// publishing it. Re-registering an existing version replaces the
// in-memory entry; the additive contract is still checked against the
// preceding version.
func (r *Registry) Register(m *models.Manifest) error {
	if err := m.Validate(); err != nil {
		return nverr.Wrap(nverr.KindSchema, "invalid manifest", err)
	}

	r.mu.RLock()
	prev, hasPrev := r.byRef[models.ManifestRef{ManifestID: m.ManifestID, Version: m.Version - 1}]
	r.mu.RUnlock()
	if hasPrev {
		if err := checkAdditive(prev.manifest, m); err != nil {
			return nverr.Wrap(nverr.KindSchema, "manifest version not additive", err)
		}
	}

	schema, err := compileKeySchema(m)
	if err != nil {
		return nverr.Wrap(nverr.KindSchema, "manifest schema compilation failed", err)
	}

	r.mu.Lock()
	r.byRef[m.Ref()] = &compiled{manifest: m, schema: schema}
	if m.Version > r.latest[m.ManifestID] {
		r.latest[m.ManifestID] = m.Version
	}
	r.mu.Unlock()

	logging.Debug().
		Str("manifest_id", m.ManifestID).
		Int("version", m.Version).
		Str("view_id", m.ViewID).
		Msg("Manifest registered")
	return nil
}

// Publish registers the manifest and appends its ManifestPublished
// metadata event to the given scope. The event ID is derived from the
// version reference, so republishing the same version on a rescan or
// reboot is an idempotent duplicate at the store.
func (r *Registry) Publish(ctx context.Context, scope string, m *models.Manifest) (*models.InsertResult, error) {
	if r.insert == nil {
		return nil, nverr.New(nverr.KindInternal, "registry has no insert path wired")
	}
	if scope == "" {
		scope = DefaultCatalogScope
	}

	if err := r.Register(m); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest %s: %w", m.Ref(), err)
	}

	e := &models.Event{
		EventID:     models.DerivedEventID("manifest-published:" + m.Ref().String()),
		ScopeID:     scope,
		Lane:        models.LaneMetadata,
		MessageType: models.TypeManifestPublished,
		Payload:     payload,
	}
	e.SystemID = "nova"
	e.ContainerID = "manifest-registry"
	e.UniqueID = m.ManifestID

	result, err := r.insert(ctx, e)
	if err != nil {
		return nil, err
	}

	if !result.Duplicate {
		logging.Info().
			Str("manifest_id", m.ManifestID).
			Int("version", m.Version).
			Str("scope_id", scope).
			Msg("Manifest published")
	}
	return result, nil
}

// Resolve looks up one manifest version.
func (r *Registry) Resolve(ref models.ManifestRef) (*models.Manifest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byRef[ref]
	if !ok {
		return nil, false
	}
	return c.manifest, true
}

// Latest returns the highest registered version of a manifest.
func (r *Registry) Latest(manifestID string) (*models.Manifest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.latest[manifestID]
	if !ok {
		return nil, false
	}
	c, ok := r.byRef[models.ManifestRef{ManifestID: manifestID, Version: v}]
	if !ok {
		return nil, false
	}
	return c.manifest, true
}

// List returns every registered manifest sorted by (manifestId, version).
func (r *Registry) List() []*models.Manifest {
	r.mu.RLock()
	manifests := make([]*models.Manifest, 0, len(r.byRef))
	for _, c := range r.byRef {
		manifests = append(manifests, c.manifest)
	}
	r.mu.RUnlock()

	sort.Slice(manifests, func(i, j int) bool {
		if manifests[i].ManifestID != manifests[j].ManifestID {
			return manifests[i].ManifestID < manifests[j].ManifestID
		}
		return manifests[i].Version < manifests[j].Version
	})
	return manifests
}

// Len reports how many manifest versions are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byRef)
}

// ValidateUI checks a ui-lane payload: envelope fields present, the
// referenced manifest known, the viewId matching, and the data keys
// conforming to the manifest's compiled schema.
func (r *Registry) ValidateUI(raw json.RawMessage) error {
	var p models.UIPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nverr.Wrap(nverr.KindSchema, "malformed ui payload", err)
	}
	if p.ViewID == "" || p.ManifestID == "" || p.ManifestVersion < 1 {
		return nverr.New(nverr.KindSchema, "ui payload missing viewId or manifest reference")
	}

	r.mu.RLock()
	c, ok := r.byRef[p.Ref()]
	r.mu.RUnlock()
	if !ok {
		return nverr.Newf(nverr.KindUnknownManifest, "unknown manifest %s", p.Ref())
	}

	if c.manifest.ViewID != p.ViewID {
		return nverr.Newf(nverr.KindSchema, "ui payload viewId %q does not match manifest view %q", p.ViewID, c.manifest.ViewID)
	}

	// Absent data validates as an empty object so required keys still apply
	data := p.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nverr.Wrap(nverr.KindSchema, "malformed ui data", err)
	}
	if err := c.schema.Validate(v); err != nil {
		return nverr.Wrap(nverr.KindSchema, fmt.Sprintf("ui data violates manifest %s", p.Ref()), err)
	}
	return nil
}

// LoadFromStore rebuilds the registry from ManifestPublished history.
// Called once at boot before ingest starts; events are replayed in
// canonical order per scope, so later versions land after earlier ones
// and the additive check runs exactly as it did at first publication.
func (r *Registry) LoadFromStore(ctx context.Context, store *truth.Store) error {
	scopes, err := store.Scopes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scopes: %w", err)
	}

	loaded := 0
	for _, scope := range scopes {
		n, err := r.loadScope(ctx, store, scope)
		if err != nil {
			return err
		}
		loaded += n
	}

	logging.Info().Int("manifests", loaded).Msg("Manifest registry loaded from truth store")
	return nil
}

// loadScope replays one scope's ManifestPublished events into the registry.
func (r *Registry) loadScope(ctx context.Context, store *truth.Store, scope string) (int, error) {
	rows, err := store.Range(ctx, scope, []models.Lane{models.LaneMetadata}, 0, 0,
		models.Filter{MessageType: models.TypeManifestPublished})
	if err != nil {
		return 0, fmt.Errorf("failed to range manifest history for scope %s: %w", scope, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Failed to close manifest history rows")
		}
	}()

	loaded := 0
	for rows.Next() {
		e := rows.Event()
		var m models.Manifest
		if err := json.Unmarshal(e.Payload, &m); err != nil {
			logging.Warn().
				Str("event_id", string(e.EventID)).
				Str("scope_id", scope).
				Err(err).
				Msg("Skipping unreadable ManifestPublished event")
			continue
		}
		m.PublishedAt = e.CanonicalTime
		if err := r.Register(&m); err != nil {
			logging.Warn().
				Str("manifest_id", m.ManifestID).
				Int("version", m.Version).
				Err(err).
				Msg("Skipping unregistrable manifest from history")
			continue
		}
		loaded++
	}
	if err := rows.Err(); err != nil {
		return loaded, fmt.Errorf("failed to iterate manifest history for scope %s: %w", scope, err)
	}
	return loaded, nil
}

// checkAdditive verifies that next keeps every key of prev with the
// same type. New keys may be added; nothing may be removed or retyped.
func checkAdditive(prev, next *models.Manifest) error {
	nextKeys := make(map[string]models.ManifestKey, len(next.Keys))
	for _, k := range next.Keys {
		nextKeys[k.Name] = k
	}
	for _, pk := range prev.Keys {
		nk, ok := nextKeys[pk.Name]
		if !ok {
			return fmt.Errorf("version %d drops key %q declared by version %d", next.Version, pk.Name, prev.Version)
		}
		if nk.Type != pk.Type {
			return fmt.Errorf("version %d retypes key %q from %s to %s", next.Version, pk.Name, pk.Type, nk.Type)
		}
	}
	return nil
}
