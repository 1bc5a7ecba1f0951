// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package presentation stores per-entity display customization:
// displayName, modelRef, color and scale, keyed by (scope, uniqueId).
//
// Three layers resolve per key, strongest first: the user's own
// override, the scope's admin default, and the factory baseline.
// Overrides are operational preference, never truth; deleting every
// layer loses nothing but pixels.
//
// Writes sanitize rather than reject: out-of-range color components
// and scales are dropped silently and the surviving subset is stored,
// so a client sending one bad field does not lose the good ones.
package presentation
