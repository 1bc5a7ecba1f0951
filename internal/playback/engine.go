// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
	"github.com/nova-telemetry/nova/internal/truth"
)

// Defaults mirror config.PlaybackConfig.
const (
	defaultChunkSize     = 500
	defaultChunkInterval = 10 * time.Millisecond
	defaultQueueCapacity = 64
)

// ChunkSink receives finished chunks for delivery to a client
// connection. The IPC dispatcher implements it by publishing to the
// per-connection chunk subjects; UI sessions go out on the chunk pipe,
// raw sessions on the raw pipe.
type ChunkSink interface {
	DeliverChunk(ctx context.Context, connID string, chunk *models.EventChunk) error
	DeliverRaw(ctx context.Context, connID string, chunk *models.EventChunk) error
}

// Engine owns all playback sessions on one node. Sessions are keyed by
// client connection id and identified by a minted playbackRequestId;
// a second StartStream for the same connection cancels the first, and
// the Server edge fences any late chunks still carrying the old id.
//
// Each session runs two goroutines: a producer that reads the truth
// store (tailing the append notifier in LIVE, pacing a range query in
// REPLAY) and a sender that drains a bounded chunk queue into the
// sink. Raw sessions additionally follow a bound UI connection's
// timeline through an in-process watch kept by the engine.
type Engine struct {
	store *truth.Store
	sink  ChunkSink

	chunkSize     int
	chunkInterval time.Duration
	queueCap      int
	defaultPolicy models.BackpressurePolicy

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session            // UI sessions by client connection id
	raw      map[string]*session            // raw sessions by consumer connection id
	watchers map[string]map[string]*session // bound UI connection id -> following raw sessions
	closed   bool
}

// NewEngine builds an engine over the store. A nil cfg keeps the
// defaults.
func NewEngine(store *truth.Store, sink ChunkSink, cfg *config.PlaybackConfig) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("truth store is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("chunk sink is required")
	}

	e := &Engine{
		store:         store,
		sink:          sink,
		chunkSize:     defaultChunkSize,
		chunkInterval: defaultChunkInterval,
		queueCap:      defaultQueueCapacity,
		defaultPolicy: models.BackpressureCatchUp,
		sessions:      make(map[string]*session),
		raw:           make(map[string]*session),
		watchers:      make(map[string]map[string]*session),
	}
	if cfg != nil {
		if cfg.ChunkSize > 0 {
			e.chunkSize = cfg.ChunkSize
		}
		if cfg.ChunkInterval > 0 {
			e.chunkInterval = cfg.ChunkInterval
		}
		if cfg.QueueCapacity > 0 {
			e.queueCap = cfg.QueueCapacity
		}
		if p := models.BackpressurePolicy(cfg.DefaultBackpressure); p.Valid() {
			e.defaultPolicy = p
		}
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())

	logging.Info().
		Int("chunk_size", e.chunkSize).
		Dur("chunk_interval", e.chunkInterval).
		Int("queue_capacity", e.queueCap).
		Str("default_backpressure", string(e.defaultPolicy)).
		Msg("Playback engine initialized")
	return e, nil
}

// StartStream begins a playback session for a UI connection and
// returns its playbackRequestId (the request's when supplied, minted
// otherwise). An existing session for the connection is cancelled
// first. Raw sessions bound to this connection restart their feeds on
// the new session's timeline.
func (e *Engine) StartStream(connID string, req *models.StreamRequest) (string, error) {
	s, err := e.prepare(connID, req, false)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		s.cancel()
		return "", nverr.New(nverr.KindStoreUnavailable, "playback engine is shut down")
	}
	prev := e.sessions[connID]
	e.sessions[connID] = s
	followers := e.followersLocked(connID)
	e.launch(s)
	e.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
	for _, rs := range followers {
		rs.retime(s.tl)
	}

	logging.Info().
		Str("conn_id", connID).
		Str("playback_request_id", s.id).
		Str("scope", s.scope).
		Str("mode", s.modeLabel).
		Msg("Playback session started")
	return s.id, nil
}

// CancelStream stops the connection's current session. It is
// idempotent and fire-and-forget: the session stops producing within a
// bounded delay and anything still queued is dropped. Raw sessions
// bound to the connection revert to following the live tail.
func (e *Engine) CancelStream(connID string) {
	e.mu.Lock()
	s := e.sessions[connID]
	delete(e.sessions, connID)
	followers := e.followersLocked(connID)
	e.mu.Unlock()

	// Followers revert even when the session already ended on its own:
	// a bound feed parked after an exhausted replay must not stay
	// parked once the instance goes away.
	for _, rs := range followers {
		rs.retime(timeline{mode: models.ModeLive, timebase: models.TimebaseCanonical})
	}

	if s == nil {
		return
	}
	s.cancel()
	logging.Info().
		Str("conn_id", connID).
		Str("playback_request_id", s.id).
		Msg("Playback session cancelled")
}

// SetRate changes the rate multiplier of the connection's REPLAY
// session. The pacing base is rebased at the current position so the
// timeline stays continuous across the change; 0 switches to unpaced
// delivery. LIVE sessions ignore the rate.
func (e *Engine) SetRate(connID string, rate float64) error {
	if rate < 0 {
		return nverr.Newf(nverr.KindSchema, "invalid playback rate %v", rate)
	}

	e.mu.Lock()
	s := e.sessions[connID]
	e.mu.Unlock()
	if s == nil {
		return nverr.Newf(nverr.KindNotFound, "no playback session for connection %s", connID)
	}

	s.setRate(rate)
	metrics.PlaybackRateChanges.Inc()
	logging.Debug().
		Str("conn_id", connID).
		Str("playback_request_id", s.id).
		Float64("rate", rate).
		Msg("Playback rate changed")
	return nil
}

// StartRaw begins a raw-lane session feeding an output stream. The
// request's lanes are ignored; raw sessions always read the raw lane
// with their own scope and filters.
//
// With BoundConnID set the session follows that UI connection's
// timeline: it starts on the connection's current session when one is
// running, restarts its feed whenever the connection starts a new
// session, and reverts to the live tail when the connection's session
// is cancelled. Rebinding to a different connection is done by
// cancelling and starting a new raw session (last binder wins).
func (e *Engine) StartRaw(connID string, req *models.StreamRequest) (string, error) {
	s, err := e.prepare(connID, req, true)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		s.cancel()
		return "", nverr.New(nverr.KindStoreUnavailable, "playback engine is shut down")
	}
	prev := e.raw[connID]
	e.raw[connID] = s
	e.unwatchLocked(connID)
	if bound := req.BoundConnID; bound != "" {
		m := e.watchers[bound]
		if m == nil {
			m = make(map[string]*session)
			e.watchers[bound] = m
		}
		m[connID] = s
		if cur := e.sessions[bound]; cur != nil {
			s.tl = cur.tl
		}
	}
	e.launch(s)
	e.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}

	logging.Info().
		Str("conn_id", connID).
		Str("playback_request_id", s.id).
		Str("scope", s.scope).
		Str("bound_conn_id", req.BoundConnID).
		Msg("Raw playback session started")
	return s.id, nil
}

// CancelRaw stops the connection's raw session and drops its binding.
// Idempotent.
func (e *Engine) CancelRaw(connID string) {
	e.mu.Lock()
	s := e.raw[connID]
	delete(e.raw, connID)
	e.unwatchLocked(connID)
	e.mu.Unlock()

	if s == nil {
		return
	}
	s.cancel()
	logging.Info().
		Str("conn_id", connID).
		Str("playback_request_id", s.id).
		Msg("Raw playback session cancelled")
}

// ActiveSessions returns the number of running UI sessions.
func (e *Engine) ActiveSessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// ActiveRawSessions returns the number of running raw sessions.
func (e *Engine) ActiveRawSessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.raw)
}

// Close cancels every session and waits for their goroutines to exit.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.sessions = make(map[string]*session)
	e.raw = make(map[string]*session)
	e.watchers = make(map[string]map[string]*session)
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
	logging.Info().Msg("Playback engine stopped")
}

// prepare validates a stream request and builds its session. The
// session is not yet registered or running.
func (e *Engine) prepare(connID string, req *models.StreamRequest, raw bool) (*session, error) {
	if connID == "" {
		return nil, nverr.New(nverr.KindSchema, "clientConnId is required")
	}
	if req == nil {
		return nil, nverr.New(nverr.KindSchema, "stream request is required")
	}
	if req.ScopeID == "" {
		return nil, nverr.New(nverr.KindSchema, "scopeId is required")
	}

	lanes := req.Lanes
	if raw {
		lanes = []models.Lane{models.LaneRaw}
	} else {
		if len(lanes) == 0 {
			return nil, nverr.New(nverr.KindSchema, "at least one lane is required")
		}
		for _, l := range lanes {
			if !l.Valid() {
				return nil, nverr.Newf(nverr.KindSchema, "unknown lane %q", l)
			}
		}
		if req.BoundConnID != "" {
			return nil, nverr.New(nverr.KindSchema, "boundInstanceId is only valid for raw streams")
		}
	}

	mode := req.Mode
	if mode == "" {
		mode = models.ModeLive
	}
	if !mode.Valid() {
		return nil, nverr.Newf(nverr.KindSchema, "unknown playback mode %q", req.Mode)
	}
	timebase := req.Timebase
	if timebase == "" {
		timebase = models.TimebaseCanonical
	}
	if !timebase.Valid() {
		return nil, nverr.Newf(nverr.KindSchema, "unknown timebase %q", req.Timebase)
	}
	if req.Rate < 0 {
		return nil, nverr.Newf(nverr.KindSchema, "invalid playback rate %v", req.Rate)
	}
	if mode == models.ModeReplay && req.StopTime != 0 && req.StopTime < req.StartTime {
		return nil, nverr.New(nverr.KindSchema, "stopTime precedes startTime")
	}

	var cursor models.Cursor
	if req.FromCursor != "" {
		c, err := models.ParseCursor(req.FromCursor)
		if err != nil {
			return nil, nverr.Wrap(nverr.KindSchema, "invalid fromCursor", err)
		}
		cursor = c
	}

	policy := e.defaultPolicy
	if req.Backpressure != "" {
		if !req.Backpressure.Valid() {
			return nil, nverr.Newf(nverr.KindSchema, "unknown backpressure policy %q", req.Backpressure)
		}
		policy = req.Backpressure
	}

	id := req.PlaybackRequestID
	if id == "" {
		id = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(e.ctx)
	var retimeline chan timeline
	if raw {
		retimeline = make(chan timeline, 1)
	}
	return &session{
		id:        id,
		connID:    connID,
		scope:     req.ScopeID,
		lanes:     append([]models.Lane(nil), lanes...),
		filter:    req.Filters,
		policy:    policy,
		raw:       raw,
		modeLabel: string(mode),
		tl: timeline{
			mode:     mode,
			timebase: timebase,
			start:    req.StartTime,
			stop:     req.StopTime,
			rate:     req.Rate,
			cursor:   cursor,
		},
		engine:     e,
		ctx:        ctx,
		cancel:     cancel,
		queue:      make(chan *models.EventChunk, e.queueCap),
		retimeline: retimeline,
		rateCh:     make(chan struct{}, 1),
		rate:       req.Rate,
	}, nil
}

// launch starts the session's goroutine pair and arranges cleanup.
// Called with e.mu held so the wg.Add cannot race Close's Wait.
func (e *Engine) launch(s *session) {
	metrics.TrackPlaybackSession(s.modeLabel, true)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		s.run()
		e.drop(s)
		metrics.TrackPlaybackSession(s.modeLabel, false)
	}()
}

// drop removes a finished session from the registry unless it has
// already been replaced by a newer one for the same connection.
func (e *Engine) drop(s *session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.raw {
		if cur, ok := e.raw[s.connID]; ok && cur == s {
			delete(e.raw, s.connID)
			e.unwatchLocked(s.connID)
		}
		return
	}
	if cur, ok := e.sessions[s.connID]; ok && cur == s {
		delete(e.sessions, s.connID)
	}
}

// followersLocked snapshots the raw sessions bound to a UI connection.
func (e *Engine) followersLocked(boundConnID string) []*session {
	m := e.watchers[boundConnID]
	if len(m) == 0 {
		return nil
	}
	out := make([]*session, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	return out
}

// unwatchLocked removes a raw connection's binding, if any.
func (e *Engine) unwatchLocked(rawConnID string) {
	for bound, m := range e.watchers {
		if _, ok := m[rawConnID]; ok {
			delete(m, rawConnID)
			if len(m) == 0 {
				delete(e.watchers, bound)
			}
		}
	}
}
