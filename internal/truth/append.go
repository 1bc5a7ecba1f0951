// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package truth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// insertQuery is the single append statement. ON CONFLICT DO NOTHING
// makes a retried event_id a silent no-op; RowsAffected tells the
// caller which case happened.
const insertQuery = `INSERT INTO truth_events (
	event_id, scope_id, lane, system_id, container_id, unique_id,
	message_type, source_time_us, canonical_time_us, effective_time_us,
	payload, frame
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`

// Append inserts one event into the truth log. It returns true when the
// row was inserted and false when an event with the same ID already
// exists. The existing row is never modified either way.
//
// The event must arrive with its canonical time already assigned; the
// store persists exactly what it is given.
func (s *Store) Append(ctx context.Context, e *models.Event) (inserted bool, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordTruthQuery("append", time.Since(start), err)
	}()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.getStmt(ctx, insertQuery)
	if err != nil {
		return false, err
	}

	result, err := stmt.ExecContext(ctx,
		string(e.EventID), e.ScopeID, string(e.Lane),
		e.SystemID, e.ContainerID, e.UniqueID,
		e.MessageType, microsOrNull(e.SourceTime), int64(e.CanonicalTime), microsOrNull(e.EffectiveTime),
		payloadOrNull(e.Payload), frameOrNull(e.Frame),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert event %s: %w", e.EventID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for event %s: %w", e.EventID, err)
	}

	if rowsAffected == 0 {
		logging.Debug().
			Str("event_id", string(e.EventID)).
			Str("scope_id", e.ScopeID).
			Str("lane", string(e.Lane)).
			Msg("Duplicate event suppressed")
		return false, nil
	}

	s.notifier.Notify(e.ScopeID)
	return true, nil
}

// AppendBatch inserts a batch of events in one transaction and reports
// how many rows were inserted versus suppressed as duplicates. The
// batch is all-or-nothing only with respect to errors; duplicates are
// counted, not failed.
func (s *Store) AppendBatch(ctx context.Context, events []*models.Event) (inserted int, duplicates int, err error) {
	if len(events) == 0 {
		return 0, 0, nil
	}

	start := time.Now()
	defer func() {
		metrics.RecordTruthQuery("append_batch", time.Since(start), err)
	}()
	metrics.TruthAppendBatchSize.Observe(float64(len(events)))

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Ensure transaction is finalized
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().
					Err(rbErr).
					AnErr("original_error", err).
					Msg("Transaction rollback failed")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Failed to close prepared statement")
		}
	}()

	touched := make(map[string]struct{})

	for i, e := range events {
		result, execErr := stmt.ExecContext(ctx,
			string(e.EventID), e.ScopeID, string(e.Lane),
			e.SystemID, e.ContainerID, e.UniqueID,
			e.MessageType, microsOrNull(e.SourceTime), int64(e.CanonicalTime), microsOrNull(e.EffectiveTime),
			payloadOrNull(e.Payload), frameOrNull(e.Frame),
		)
		if execErr != nil {
			err = fmt.Errorf("failed to insert event %d (id=%s): %w", i, e.EventID, execErr)
			return 0, 0, err
		}

		rowsAffected, rowsErr := result.RowsAffected()
		if rowsErr != nil {
			err = fmt.Errorf("failed to get rows affected for event %d: %w", i, rowsErr)
			return 0, 0, err
		}

		if rowsAffected > 0 {
			inserted++
			touched[e.ScopeID] = struct{}{}
		} else {
			duplicates++
			logging.Debug().
				Str("event_id", string(e.EventID)).
				Str("scope_id", e.ScopeID).
				Str("lane", string(e.Lane)).
				Msg("Batch duplicate detected")
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Wake tails only after commit so readers never observe a scope
	// notification before the rows are visible.
	for scope := range touched {
		s.notifier.Notify(scope)
	}

	return inserted, duplicates, nil
}

// Exists checks whether an event with the given ID is already stored.
// The ingest LRU answers most duplicate probes; this is the authoritative
// fallback when the cache has evicted the ID.
func (s *Store) Exists(ctx context.Context, id models.EventID) (exists bool, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordTruthQuery("exists", time.Since(start), err)
	}()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	query := `SELECT EXISTS(SELECT 1 FROM truth_events WHERE event_id = ?)`
	stmt, err := s.getStmt(ctx, query)
	if err != nil {
		return false, err
	}
	if err = stmt.QueryRowContext(ctx, string(id)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check event existence: %w", err)
	}
	return exists, nil
}

// GetByEventID retrieves a single stored event. A duplicate append is
// acknowledged with the original row's canonical time, which this
// lookup provides. Returns a NotFound error when no such event exists.
func (s *Store) GetByEventID(ctx context.Context, id models.EventID) (e *models.Event, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordTruthQuery("get", time.Since(start), err)
	}()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + eventColumns + ` FROM truth_events WHERE event_id = ?`
	stmt, err := s.getStmt(ctx, query)
	if err != nil {
		return nil, err
	}

	e, err = scanEvent(stmt.QueryRowContext(ctx, string(id)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nverr.Newf(nverr.KindNotFound, "event %s not found", id)
		}
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return e, nil
}

// microsOrNull converts an optional Micros to a driver value.
func microsOrNull(m *models.Micros) any {
	if m == nil {
		return nil
	}
	return int64(*m)
}

// payloadOrNull converts the JSON payload to a driver value.
func payloadOrNull(p []byte) any {
	if len(p) == 0 {
		return nil
	}
	return string(p)
}

// frameOrNull converts the raw frame to a driver value.
func frameOrNull(f []byte) any {
	if len(f) == 0 {
		return nil
	}
	return f
}
