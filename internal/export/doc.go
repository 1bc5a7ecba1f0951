// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package export turns a bounded slice of the truth store into a
// downloadable archive.
//
// Each run scans the requested window in canonical order, feeds every
// event through a fresh driver registry rooted in a staging directory,
// and zips the resulting tree. Because the drivers are deterministic
// and the archive walk is sorted with zeroed timestamps, exporting the
// same window twice produces byte-identical archives.
//
// Finished archives land in the export directory as <exportId>.zip and
// are served by the edge process; Resolve maps an export id back to
// its file without trusting the id as a path.
package export
