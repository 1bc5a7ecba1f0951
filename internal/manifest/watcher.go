// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"

	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/models"
)

// debounceDuration delays publication after a file event so editors
// that write in several steps produce one publication, not several.
const debounceDuration = 500 * time.Millisecond

// catalogFile is the on-disk manifest document: the manifest itself
// plus an optional scope for its publication event.
type catalogFile struct {
	models.Manifest
	ScopeID string `json:"scopeId,omitempty"`
}

// CatalogWatcher publishes manifest JSON files dropped into the catalog
// directory. At start it publishes every existing file in name order,
// then watches for creates and writes. Removing a file does not
// unpublish anything; the truth log keeps the full publication history.
type CatalogWatcher struct {
	dir      string
	registry *Registry
	watcher  *fsnotify.Watcher

	// Per-path debounce timers
	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewCatalogWatcher creates a watcher over dir publishing through the
// registry.
func NewCatalogWatcher(dir string, registry *Registry) *CatalogWatcher {
	return &CatalogWatcher{
		dir:      dir,
		registry: registry,
		pending:  make(map[string]*time.Timer),
	}
}

// Start publishes the existing catalog and begins watching. The watch
// goroutine runs until ctx is canceled.
func (w *CatalogWatcher) Start(ctx context.Context) error {
	// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create catalog directory %s: %w", w.dir, err)
	}

	if err := w.publishExisting(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close() // Ignore close error in error path
		return fmt.Errorf("failed to watch catalog directory %s: %w", w.dir, err)
	}
	w.watcher = watcher

	logging.Info().Str("dir", w.dir).Msg("Watching manifest catalog")
	go w.watchLoop(ctx)
	return nil
}

// Stop closes the watcher and cancels pending publications.
func (w *CatalogWatcher) Stop() {
	if w.watcher != nil {
		_ = w.watcher.Close() // Ignore close error, shutdown is best-effort
	}
	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
}

// publishExisting loads every catalog file present at start, in name
// order so versioned files (hud-v1.json, hud-v2.json) register their
// versions in sequence.
func (w *CatalogWatcher) publishExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to read catalog directory %s: %w", w.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isCatalogFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		w.publishFile(ctx, filepath.Join(w.dir, name))
	}
	return nil
}

// watchLoop reacts to catalog directory events until ctx is canceled.
func (w *CatalogWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Manifest catalog watcher stopped")
			w.Stop()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Write and Create cover vim, nano, echo and atomic renames
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isCatalogFile(filepath.Base(event.Name)) {
				continue
			}
			logging.Debug().
				Str("path", event.Name).
				Str("op", event.Op.String()).
				Msg("Catalog file changed")
			w.debounce(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error().Err(err).Msg("Catalog watcher error")
		}
	}
}

// debounce schedules a publication for the path, resetting any timer
// already running for it.
func (w *CatalogWatcher) debounce(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(debounceDuration, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.publishFile(ctx, path)
	})
}

// publishFile reads one catalog file and publishes it. Failures are
// logged, not fatal: one bad file must not take the watcher down.
func (w *CatalogWatcher) publishFile(ctx context.Context, path string) {
	raw, err := os.ReadFile(path) //nolint:gosec // Path comes from the watched catalog directory
	if err != nil {
		logging.Warn().Str("path", path).Err(err).Msg("Failed to read catalog file")
		return
	}

	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		logging.Warn().Str("path", path).Err(err).Msg("Failed to parse catalog file")
		return
	}

	if _, err := w.registry.Publish(ctx, file.ScopeID, &file.Manifest); err != nil {
		logging.Warn().
			Str("path", path).
			Str("manifest_id", file.ManifestID).
			Int("version", file.Version).
			Err(err).
			Msg("Failed to publish catalog manifest")
		return
	}
}

// isCatalogFile reports whether a directory entry looks like a manifest
// document: a .json file that is not hidden.
func isCatalogFile(name string) bool {
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".")
}
