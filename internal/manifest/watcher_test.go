// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCatalogFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

// waitForManifests polls the registry until it holds want manifests or
// the deadline passes. Debounced filesystem publication is asynchronous.
func waitForManifests(t *testing.T, r *Registry, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for r.Len() < want {
		if time.Now().After(deadline) {
			t.Fatalf("Registry has %d manifests, want %d", r.Len(), want)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

const hudV1JSON = `{
  "manifestId": "hud-main",
  "manifestVersion": 1,
  "viewId": "hud",
  "keys": [
    {"name": "speed", "type": "number", "required": true},
    {"name": "heading", "type": "number"}
  ]
}`

func TestIsCatalogFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"hud.json", true},
		{"hud-main.v1.json", true},
		{"notes.txt", false},
		{".hidden.json", false},
		{"hud.json.bak", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isCatalogFile(tt.name); got != tt.want {
			t.Errorf("isCatalogFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCatalogWatcher_PublishesExistingOnStart(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "hud-main.v1.json", hudV1JSON)
	writeCatalogFile(t, dir, "hud-main.v2.json", `{
	  "manifestId": "hud-main",
	  "manifestVersion": 2,
	  "viewId": "hud",
	  "keys": [
	    {"name": "speed", "type": "number", "required": true},
	    {"name": "heading", "type": "number"},
	    {"name": "altitude", "type": "number"}
	  ]
	}`)
	writeCatalogFile(t, dir, "notes.txt", "not a manifest")
	writeCatalogFile(t, dir, ".hidden.json", "{}")

	rec := &insertRecorder{}
	r := NewRegistry(rec.insert)
	w := NewCatalogWatcher(dir, r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	// Startup scan runs before Start returns
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
	m, ok := r.Latest("hud-main")
	if !ok || m.Version != 2 {
		t.Errorf("Latest = %v (ok=%v), want v2", m, ok)
	}
	if got := len(rec.recorded()); got != 2 {
		t.Errorf("Published %d events, want 2", got)
	}
}

func TestCatalogWatcher_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "manifests")

	r := NewRegistry(nil)
	w := NewCatalogWatcher(dir, r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Catalog directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("Catalog path is not a directory")
	}
}

func TestCatalogWatcher_DetectsNewFile(t *testing.T) {
	dir := t.TempDir()

	rec := &insertRecorder{}
	r := NewRegistry(rec.insert)
	w := NewCatalogWatcher(dir, r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	writeCatalogFile(t, dir, "hud-main.v1.json", hudV1JSON)

	waitForManifests(t, r, 1)
	if _, ok := r.Latest("hud-main"); !ok {
		t.Error("hud-main not registered after file creation")
	}
}

func TestCatalogWatcher_RepeatedWritesPublishOnce(t *testing.T) {
	dir := t.TempDir()

	rec := &insertRecorder{}
	r := NewRegistry(rec.insert)
	w := NewCatalogWatcher(dir, r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	// Burst of writes to the same file; debounce collapses the events
	// and the derived event ID makes any stragglers duplicates.
	for i := 0; i < 5; i++ {
		writeCatalogFile(t, dir, "hud-main.v1.json", hudV1JSON)
	}

	waitForManifests(t, r, 1)
	time.Sleep(2 * debounceDuration)

	if got := len(rec.recorded()); got != 1 {
		t.Errorf("Recorded %d publications, want 1", got)
	}
}

func TestCatalogWatcher_ScopeOverride(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "mission-hud.json", `{
	  "manifestId": "mission-hud",
	  "manifestVersion": 1,
	  "viewId": "hud",
	  "scopeId": "mission-7",
	  "keys": [{"name": "speed", "type": "number"}]
	}`)

	rec := &insertRecorder{}
	r := NewRegistry(rec.insert)
	w := NewCatalogWatcher(dir, r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	events := rec.recorded()
	if len(events) != 1 {
		t.Fatalf("Recorded %d events, want 1", len(events))
	}
	if events[0].ScopeID != "mission-7" {
		t.Errorf("ScopeID = %q, want mission-7", events[0].ScopeID)
	}
}

func TestCatalogWatcher_SkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "broken.json", `{"manifestId": `)
	writeCatalogFile(t, dir, "invalid.json", `{"manifestId": "m", "manifestVersion": 0, "viewId": "hud", "keys": []}`)
	writeCatalogFile(t, dir, "hud-main.v1.json", hudV1JSON)

	rec := &insertRecorder{}
	r := NewRegistry(rec.insert)
	w := NewCatalogWatcher(dir, r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1 (broken files skipped)", r.Len())
	}
	if _, ok := r.Latest("hud-main"); !ok {
		t.Error("Valid manifest not registered alongside broken ones")
	}
}
