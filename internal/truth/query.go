// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

/*
query.go - Ordered Reads Over the Truth Log

This file implements every read path against truth_events. All of them
order by (canonical_time_us, event_id), the total order of the log, and
all of them resolve through the idx_truth_scope_lane_time index.

Read paths:
  - Range(): lazy iterator over a closed time window, used by replay
    playback and exports. Rows are scanned as the caller advances, so a
    multi-hour window never materializes in memory.
  - ScanAfter(): bounded keyset scan strictly after a cursor, used by
    live tails between append notifications.
  - QueryPage(): cursor-paginated page for the query IPC operation,
    fetching limit+1 rows to detect whether more remain.
  - Head(): the scope's current cursor position.
  - LaneHeads(): per-(scope, lane) maxima, used once at startup to warm
    the normalizer's monotonic clocks.

Keyset scans use tuple comparison, (canonical_time_us, event_id) > (?, ?),
which seeks directly in the composite index instead of scanning and
skipping rows the way OFFSET pagination would.
*/

//nolint:staticcheck // File documentation, not package doc
package truth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
)

// eventColumns is the select list matching scanEvent's scan order.
const eventColumns = `event_id, scope_id, lane, system_id, container_id, unique_id,
	message_type, source_time_us, canonical_time_us, effective_time_us, payload, frame`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEvent reads one truth_events row in eventColumns order.
func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		e         models.Event
		eventID   string
		lane      string
		source    sql.NullInt64
		canonical int64
		effective sql.NullInt64
		payload   sql.NullString
		frame     []byte
	)

	err := row.Scan(
		&eventID, &e.ScopeID, &lane, &e.SystemID, &e.ContainerID, &e.UniqueID,
		&e.MessageType, &source, &canonical, &effective, &payload, &frame,
	)
	if err != nil {
		return nil, err
	}

	e.EventID = models.EventID(eventID)
	e.Lane = models.Lane(lane)
	e.CanonicalTime = models.Micros(canonical)
	if source.Valid {
		v := models.Micros(source.Int64)
		e.SourceTime = &v
	}
	if effective.Valid {
		v := models.Micros(effective.Int64)
		e.EffectiveTime = &v
	}
	if payload.Valid && payload.String != "" {
		e.Payload = json.RawMessage(payload.String)
	}
	if len(frame) > 0 {
		e.Frame = frame
	}
	return &e, nil
}

// laneInClause creates a parameterized IN clause for lane selection.
// Returns the placeholder string and the arguments slice.
func laneInClause(lanes []models.Lane) (string, []any) {
	placeholders := make([]string, len(lanes))
	args := make([]any, len(lanes))
	for i, lane := range lanes {
		placeholders[i] = "?"
		args[i] = string(lane)
	}
	return strings.Join(placeholders, ","), args
}

// filterConditions builds WHERE clause conditions for a filter. All set
// fields are combined with AND. Returns SQL conditions (without the
// WHERE keyword, prefixed with " AND ") and corresponding arguments;
// the base query supplies the preceding scope and lane conditions.
func filterConditions(f models.Filter) (string, []any) {
	var conditions []string
	var args []any

	if f.SystemID != "" {
		conditions = append(conditions, "system_id = ?")
		args = append(args, f.SystemID)
	}
	if f.ContainerID != "" {
		conditions = append(conditions, "container_id = ?")
		args = append(args, f.ContainerID)
	}
	if f.UniqueID != "" {
		conditions = append(conditions, "unique_id = ?")
		args = append(args, f.UniqueID)
	}
	if f.MessageType != "" {
		conditions = append(conditions, "message_type = ?")
		args = append(args, f.MessageType)
	}

	if len(conditions) > 0 {
		return " AND " + strings.Join(conditions, " AND "), args
	}
	return "", args
}

// EventRows is a lazy iterator over an ordered result set. The caller
// must Close it; Next advances and reports whether a row is available.
//
//	rows, err := store.Range(ctx, scope, lanes, start, stop, filter)
//	if err != nil { ... }
//	defer rows.Close()
//	for rows.Next() {
//		e := rows.Event()
//	}
//	if err := rows.Err(); err != nil { ... }
type EventRows struct {
	rows    *sql.Rows
	cancel  context.CancelFunc
	current *models.Event
	err     error
}

// Next advances to the next event. It returns false at the end of the
// result set or on error; check Err after the loop.
func (r *EventRows) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	e, err := scanEvent(r.rows)
	if err != nil {
		r.err = fmt.Errorf("failed to scan event: %w", err)
		return false
	}
	r.current = e
	return true
}

// Event returns the row Next positioned on.
func (r *EventRows) Event() *models.Event {
	return r.current
}

// Err returns the first error encountered during iteration.
func (r *EventRows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

// Close releases the underlying result set.
func (r *EventRows) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	return r.rows.Close()
}

// Range returns a lazy iterator over [start, stop] for the given scope
// and lanes, in total order. A stop of zero leaves the window open at
// the top. Lanes must be non-empty; lane selection is always explicit.
//
// The iterator holds a connection until closed, so callers streaming
// long windows must Close promptly when they stop consuming.
func (s *Store) Range(ctx context.Context, scope string, lanes []models.Lane, start, stop models.Micros, filter models.Filter) (_ *EventRows, err error) {
	began := time.Now()
	defer func() {
		metrics.RecordTruthQuery("range", time.Since(began), err)
	}()

	if len(lanes) == 0 {
		return nil, fmt.Errorf("range requires at least one lane")
	}

	placeholders, laneArgs := laneInClause(lanes)
	query := `SELECT ` + eventColumns + `
	FROM truth_events
	WHERE scope_id = ? AND lane IN (` + placeholders + `)`
	args := append([]any{scope}, laneArgs...)

	if start > 0 {
		query += ` AND canonical_time_us >= ?`
		args = append(args, int64(start))
	}
	if stop > 0 {
		query += ` AND canonical_time_us <= ?`
		args = append(args, int64(stop))
	}

	cond, condArgs := filterConditions(filter)
	query += cond
	args = append(args, condArgs...)

	query += ` ORDER BY canonical_time_us, event_id`

	// No default timeout here: a replay iterator legitimately stays
	// open for the lifetime of the session. The caller's context still
	// bounds it.
	runCtx, cancel := context.WithCancel(ctx)
	rows, err := s.conn.QueryContext(runCtx, query, args...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to query range: %w", err)
	}

	return &EventRows{rows: rows, cancel: cancel}, nil
}

// ScanAfter returns up to limit events strictly after the cursor, in
// total order. This is the polling half of a live tail: scan until
// empty, wait on the notifier, scan again.
func (s *Store) ScanAfter(ctx context.Context, scope string, lanes []models.Lane, after models.Cursor, filter models.Filter, limit int) (events []*models.Event, err error) {
	began := time.Now()
	defer func() {
		metrics.RecordTruthQuery("scan", time.Since(began), err)
	}()

	if len(lanes) == 0 {
		return nil, fmt.Errorf("scan requires at least one lane")
	}

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	placeholders, laneArgs := laneInClause(lanes)

	// Tuple comparison seeks directly in the composite index. event_id
	// is TEXT so the comparison matches the in-memory cursor order.
	query := `SELECT ` + eventColumns + `
	FROM truth_events
	WHERE scope_id = ? AND lane IN (` + placeholders + `)
		AND (canonical_time_us, event_id) > (?, ?)`
	args := append([]any{scope}, laneArgs...)
	args = append(args, int64(after.Time), string(after.EventID))

	cond, condArgs := filterConditions(filter)
	query += cond
	args = append(args, condArgs...)

	query += ` ORDER BY canonical_time_us, event_id LIMIT ?`
	args = append(args, limit)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		e, scanErr := scanEvent(rows)
		if scanErr != nil {
			err = fmt.Errorf("failed to scan event: %w", scanErr)
			return nil, err
		}
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scan: %w", err)
	}
	return events, nil
}

// QueryPage retrieves one page of an ordered query using cursor-based
// pagination. A nil after starts at the window's beginning; the
// returned cursor resumes strictly after the page and is nil when the
// result set is exhausted.
//
// Fetches limit+1 rows to learn whether more remain without a second
// round trip.
func (s *Store) QueryPage(ctx context.Context, scope string, lanes []models.Lane, start, stop models.Micros, filter models.Filter, limit int, after *models.Cursor) (events []*models.Event, next *models.Cursor, hasMore bool, err error) {
	began := time.Now()
	defer func() {
		metrics.RecordTruthQuery("query_page", time.Since(began), err)
	}()

	if len(lanes) == 0 {
		return nil, nil, false, fmt.Errorf("query requires at least one lane")
	}

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	fetchLimit := limit + 1

	placeholders, laneArgs := laneInClause(lanes)
	query := `SELECT ` + eventColumns + `
	FROM truth_events
	WHERE scope_id = ? AND lane IN (` + placeholders + `)`
	args := append([]any{scope}, laneArgs...)

	if after != nil {
		query += ` AND (canonical_time_us, event_id) > (?, ?)`
		args = append(args, int64(after.Time), string(after.EventID))
	} else if start > 0 {
		query += ` AND canonical_time_us >= ?`
		args = append(args, int64(start))
	}
	if stop > 0 {
		query += ` AND canonical_time_us <= ?`
		args = append(args, int64(stop))
	}

	cond, condArgs := filterConditions(filter)
	query += cond
	args = append(args, condArgs...)

	query += ` ORDER BY canonical_time_us, event_id LIMIT ?`
	args = append(args, fetchLimit)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to query page: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		e, scanErr := scanEvent(rows)
		if scanErr != nil {
			err = fmt.Errorf("failed to scan event: %w", scanErr)
			return nil, nil, false, err
		}
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, nil, false, fmt.Errorf("error iterating page: %w", err)
	}

	hasMore = len(events) > limit
	if hasMore {
		events = events[:limit]
	}

	if hasMore && len(events) > 0 {
		c := events[len(events)-1].Cursor()
		next = &c
	}

	return events, next, hasMore, nil
}

// Head returns the scope's current cursor: the position of its last
// event in total order. An empty scope yields the zero cursor and no
// error; a tail started there sees the whole log.
func (s *Store) Head(ctx context.Context, scope string) (head models.Cursor, err error) {
	began := time.Now()
	defer func() {
		metrics.RecordTruthQuery("head", time.Since(began), err)
	}()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	query := `SELECT canonical_time_us, event_id
	FROM truth_events
	WHERE scope_id = ?
	ORDER BY canonical_time_us DESC, event_id DESC
	LIMIT 1`

	stmt, err := s.getStmt(ctx, query)
	if err != nil {
		return models.Cursor{}, err
	}

	var (
		canonical int64
		eventID   string
	)
	err = stmt.QueryRowContext(ctx, scope).Scan(&canonical, &eventID)
	if err == sql.ErrNoRows {
		return models.Cursor{}, nil
	}
	if err != nil {
		return models.Cursor{}, fmt.Errorf("failed to query head: %w", err)
	}
	return models.Cursor{Time: models.Micros(canonical), EventID: models.EventID(eventID)}, nil
}

// LaneHead is the maximum canonical time observed in one (scope, lane).
type LaneHead struct {
	ScopeID string
	Lane    models.Lane
	Time    models.Micros
}

// LaneHeads returns the per-(scope, lane) canonical-time maxima. The
// normalizer loads these at startup so its monotonic clocks resume
// where the previous process stopped.
func (s *Store) LaneHeads(ctx context.Context) (heads []LaneHead, err error) {
	began := time.Now()
	defer func() {
		metrics.RecordTruthQuery("lane_heads", time.Since(began), err)
	}()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	query := `SELECT scope_id, lane, MAX(canonical_time_us)
	FROM truth_events
	GROUP BY scope_id, lane`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query lane heads: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var (
			h    LaneHead
			lane string
			max  int64
		)
		if err = rows.Scan(&h.ScopeID, &lane, &max); err != nil {
			return nil, fmt.Errorf("failed to scan lane head: %w", err)
		}
		h.Lane = models.Lane(lane)
		h.Time = models.Micros(max)
		heads = append(heads, h)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lane heads: %w", err)
	}
	return heads, nil
}

// Scopes lists every scope that has at least one truth event, sorted.
func (s *Store) Scopes(ctx context.Context) (scopes []string, err error) {
	began := time.Now()
	defer func() {
		metrics.RecordTruthQuery("scopes", time.Since(began), err)
	}()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, `SELECT DISTINCT scope_id FROM truth_events ORDER BY scope_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scopes: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var scope string
		if err = rows.Scan(&scope); err != nil {
			return nil, fmt.Errorf("failed to scan scope: %w", err)
		}
		scopes = append(scopes, scope)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scopes: %w", err)
	}
	return scopes, nil
}

// RefreshRowGauges recounts stored events per lane and updates the
// nova_truth_rows gauge. Called periodically by the core supervisor;
// a full count is acceptable because DuckDB answers it from zone maps.
func (s *Store) RefreshRowGauges(ctx context.Context) (err error) {
	began := time.Now()
	defer func() {
		metrics.RecordTruthQuery("count", time.Since(began), err)
	}()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, `SELECT lane, COUNT(*) FROM truth_events GROUP BY lane`)
	if err != nil {
		return fmt.Errorf("failed to count rows: %w", err)
	}
	defer closeQuietly(rows)

	counts := make(map[models.Lane]int64)
	for rows.Next() {
		var (
			lane  string
			count int64
		)
		if err = rows.Scan(&lane, &count); err != nil {
			return fmt.Errorf("failed to scan row count: %w", err)
		}
		counts[models.Lane(lane)] = count
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating row counts: %w", err)
	}

	// Zero the gauge for lanes with no rows so restarts do not leave
	// stale values behind.
	for _, lane := range models.AllLanes {
		metrics.TruthRows.WithLabelValues(string(lane)).Set(float64(counts[lane]))
	}
	return nil
}
