// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package manifest maintains the registry of display schemas that ui
// events must reference.
//
// A manifest declares the allowed data keys for one viewId and is
// versioned; newer versions may add keys but never remove or retype
// them. Publication appends a ManifestPublished metadata event to the
// truth log, so the schema history replays like any other truth and
// LoadFromStore can rebuild the registry at boot.
//
// Validation compiles each manifest's key declaration into a JSON
// Schema once at registration. Ingest then calls ValidateUI per ui
// event; an unknown (manifestId, manifestVersion) rejects with
// UnknownManifest and a payload carrying undeclared keys rejects with
// SchemaError.
//
// The catalog watcher publishes manifest JSON files dropped into
// <dataDir>/manifests/: every existing file at boot, then each create
// or write, debounced. Publication event IDs derive from the version
// reference, so rescans and reboots are idempotent no-ops at the store.
package manifest
