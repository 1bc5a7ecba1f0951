// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package runs stores per-user run definitions: named export windows
// layered over truth. A run is an artifact, not truth — mutable,
// last-writer-wins, and deletable without losing a single event.
//
// Each run lives in its own folder named "{runNumber}. {sanitized
// name}" under the user's runs directory, holding run.json and, once
// generated, bundle.zip. The folder name is derived state: renaming a
// run moves the folder, and the number prefix keeps listings in
// creation order on any filesystem.
package runs
