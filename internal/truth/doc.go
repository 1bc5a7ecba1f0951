// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package truth persists the append-only event log in DuckDB and serves
// every read the rest of the system performs against it.
//
// The store holds one table, truth_events, keyed by event_id. Within a
// scope the composite index (scope_id, lane, canonical_time_us, event_id)
// carries all ordered reads: range scans for replay, keyset scans for
// live tails and head lookups for cursors. Rows are never updated or
// deleted; dedupe happens at insert through the primary key and
// ON CONFLICT DO NOTHING, so replaying the same producer batch is a
// no-op rather than an error.
//
// Usage:
//
//	store, err := truth.Open(&cfg.Database)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	inserted, err := store.Append(ctx, event)
//	rows, err := store.Range(ctx, scope, lanes, start, stop, filter)
//	defer rows.Close()
//	for rows.Next() {
//		e := rows.Event()
//		...
//	}
//
// Reads are safe for concurrent use. Writes are expected to come from
// the single ingest normalizer goroutine; the store does not enforce
// that, but canonical-time monotonicity is only guaranteed when one
// writer assigns times per (scope, lane).
//
// Live tails combine ScanAfter with the append Notifier: scan until
// empty, then block on the scope's notification channel until the next
// append lands.
package truth
