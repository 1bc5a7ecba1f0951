// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package drivers converts truth events into files on disk.
//
// A Driver claims events by (lane, messageType) and appends them to a
// dated hierarchy:
//
//	{root}/{YYYY-MM-DD}/{systemId}/{containerId}/{uniqueId}/{filename}
//
// The Registry selects drivers deterministically (exact match, then
// lane-wide, then none) and is rooted in one directory. Two registries
// exist in practice: the process-lifetime one the live Writer mirrors
// appends into, and a fresh per-run one the export pipeline fills from
// a range scan. Because both run the same driver code over events in
// the same canonical order, an export of a range reproduces the live
// tree for that range byte for byte.
//
// Built-ins: a raw frames driver writing length-prefixed binary
// records, and a positions CSV driver for parsed Position events.
package drivers
