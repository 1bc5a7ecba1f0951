// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

/*
Package models defines the shared data structures of the NOVA system.

This package is the single source of truth for the event model, cursor
arithmetic, and the persisted shapes of user artifacts. It has no
dependencies on other internal packages so every layer (store, playback,
IPC, server edge, output streams) can share the same types.

Key Components:

  - Event: one truth record; identity triple + scope + lane + timing
  - Lane: the six parallel event streams (raw, parsed, metadata, ui, command, stream)
  - Micros: canonical time, microseconds since the Unix epoch
  - Cursor: opaque-to-clients, ordered position in the log
  - Filter: the ANDed identity/messageType predicate for scans
  - Manifest: versioned UI schema published into the metadata lane
  - StreamDefinition: persisted output stream configuration
  - Run / PresentationFields: per-user artifacts layered over truth
  - User: account record with role and allowed scopes

Ordering contract:

Within one scope the total order of events is (CanonicalTime, EventID),
ties broken by lexicographic EventID. CanonicalTime is assigned once at
ingest and never rewritten; the store is append-only.

All wire-facing structs use camelCase JSON tags matching the client
protocol. Serialization everywhere goes through goccy/go-json.
*/
package models
