// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

/*
schema.go - Truth Log Schema Management

This file manages the DuckDB schema for the append-only truth log.

Tables:
  - truth_events: One row per truth event across all scopes and lanes.
    event_id is the primary key and the dedupe boundary; a producer
    retrying a send hits ON CONFLICT DO NOTHING instead of creating a
    second row. Structured lanes store their body as JSON text in
    payload; the raw lane stores opaque bytes in frame.

Index Strategy:
  - (scope_id, lane, canonical_time_us, event_id): the ordered-read
    index. Range scans, keyset tail scans and head lookups all resolve
    through it, so replay throughput does not degrade as the log grows.
  - (scope_id, system_id, container_id, unique_id): identity filters.
  - (scope_id, message_type): message-type filters, used heavily by
    metadata and command reads.

Times are stored as BIGINT microseconds rather than TIMESTAMP so index
comparisons match Micros arithmetic exactly and no timezone conversion
happens between storage and cursor math.
*/

//nolint:staticcheck // File documentation, not package doc
package truth

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (s *Store) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getTableCreationQueries() {
		if _, err := s.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// getTableCreationQueries returns the table creation SQL statements
func getTableCreationQueries() []string {
	return []string{
		// Truth events table. event_id is stored as TEXT rather than UUID
		// so lexicographic tuple comparisons match the in-memory EventID
		// tie-break exactly.
		`CREATE TABLE IF NOT EXISTS truth_events (
			event_id TEXT PRIMARY KEY,
			scope_id TEXT NOT NULL,
			lane TEXT NOT NULL,

			-- Identity triple; components may be empty on raw frames
			system_id TEXT NOT NULL DEFAULT '',
			container_id TEXT NOT NULL DEFAULT '',
			unique_id TEXT NOT NULL DEFAULT '',

			message_type TEXT NOT NULL DEFAULT '',

			-- Microseconds since the Unix epoch
			source_time_us BIGINT,
			canonical_time_us BIGINT NOT NULL,
			effective_time_us BIGINT,

			-- Exactly one of payload (JSON text) and frame (raw bytes) is set
			payload TEXT,
			frame BLOB,

			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
}

// createIndexes creates indexes for query performance
func (s *Store) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getIndexQueries() {
		if _, err := s.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}

	return nil
}

// getIndexQueries returns the index creation SQL statements
func getIndexQueries() []string {
	return []string{
		// Ordered reads: ranges, tails, heads
		`CREATE INDEX IF NOT EXISTS idx_truth_scope_lane_time
			ON truth_events(scope_id, lane, canonical_time_us, event_id)`,

		// Identity filters
		`CREATE INDEX IF NOT EXISTS idx_truth_identity
			ON truth_events(scope_id, system_id, container_id, unique_id)`,

		// Message type filters
		`CREATE INDEX IF NOT EXISTS idx_truth_message_type
			ON truth_events(scope_id, message_type)`,
	}
}
