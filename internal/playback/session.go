// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package playback

import (
	"context"
	"sync"
	"time"

	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
)

const (
	// livePollInterval is the safety-net scan period for live tails.
	// The append notifier wakes the feed; the poll covers a wakeup
	// lost to subscriber churn and paces retries after scan errors.
	livePollInterval = time.Second

	// deliverTimeout bounds one chunk delivery into the sink.
	deliverTimeout = 5 * time.Second
)

// timeline is the temporal half of a stream request. Raw sessions
// bound to a UI connection adopt that connection's timeline while
// keeping their own scope, lanes and filters.
type timeline struct {
	mode     models.PlaybackMode
	timebase models.Timebase
	start    models.Micros
	stop     models.Micros
	rate     float64
	cursor   models.Cursor // LIVE resume point; zero means head at subscription
}

// session is one playback stream to one connection. The producer
// goroutine feeds the bounded queue and is its only sender, so it can
// close the queue on exit; drain empties it into the sink. seq is
// producer-owned.
type session struct {
	id     string // playbackRequestId carried on every chunk
	connID string
	scope  string
	lanes  []models.Lane
	filter models.Filter
	policy models.BackpressurePolicy
	raw    bool

	modeLabel string
	tl        timeline

	engine *Engine
	ctx    context.Context
	cancel context.CancelFunc

	queue      chan *models.EventChunk
	retimeline chan timeline // raw sessions only; nil blocks the select case
	rateCh     chan struct{}

	seq uint64

	paceMu       sync.Mutex
	rate         float64
	baseWall     time.Time
	baseTruth    models.Micros
	paceSet      bool
	lastReleased models.Micros
}

// run drives the session to completion: producer and sender exit on
// context cancellation, queue close, or range exhaustion.
func (s *session) run() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.produce()
	}()
	go func() {
		defer wg.Done()
		s.drain()
	}()
	wg.Wait()
	s.cancel()
}

// produce runs timelines until the session ends. UI sessions run one
// timeline for their whole life; raw sessions switch whenever the
// bound connection starts or cancels a session, and park after an
// exhausted replay until the bound connection moves again.
func (s *session) produce() {
	defer close(s.queue)

	tl := s.tl
	for {
		var next *timeline
		if tl.mode == models.ModeReplay {
			exhausted := false
			next, exhausted = s.replayFeed(tl)
			if exhausted {
				if !s.enqueueBlocking(s.terminalChunk()) {
					return
				}
				if !s.raw {
					return
				}
				next = s.awaitTimeline()
			}
		} else {
			next = s.liveFeed(tl)
		}
		if next == nil {
			return
		}
		tl = *next
	}
}

// liveFeed tails the store from the timeline's cursor, or from the
// scope head at subscription when none was given. Each append
// notification triggers a scan from the cursor; a full batch loops
// straight into another scan to drain backlog.
func (s *session) liveFeed(tl timeline) *timeline {
	// Subscribe before reading the head so an append landing between
	// the two is not missed.
	wake, unsubscribe := s.engine.store.Notifier().Subscribe(s.scope)
	defer unsubscribe()

	cursor := tl.cursor
	if cursor.IsZero() {
		head, err := s.engine.store.Head(s.ctx, s.scope)
		if err != nil {
			if s.ctx.Err() == nil {
				logging.Error().
					Err(err).
					Str("scope", s.scope).
					Str("playback_request_id", s.id).
					Msg("Failed to read scope head, ending live session")
			}
			return nil
		}
		cursor = head
	}

	poll := time.NewTicker(livePollInterval)
	defer poll.Stop()

	for {
		events, err := s.engine.store.ScanAfter(s.ctx, s.scope, s.lanes, cursor, s.filter, s.engine.chunkSize)
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			logging.Error().
				Err(err).
				Str("scope", s.scope).
				Str("playback_request_id", s.id).
				Msg("Playback scan failed")
		} else if len(events) > 0 {
			cursor = events[len(events)-1].Cursor()
			if !s.enqueueLive(s.chunkFor(events)) {
				return nil
			}
			continue
		}

		select {
		case <-s.ctx.Done():
			return nil
		case next := <-s.retimeline:
			return &next
		case <-wake:
		case <-poll.C:
		}
	}
}

// replayFeed replays [start, stop] in total order with wall-clock
// pacing. A stop of zero replays everything recorded when the range
// query ran. It reports whether the range was exhausted; a non-nil
// timeline means a new one arrived mid-feed and replaces this one
// without a terminal chunk.
func (s *session) replayFeed(tl timeline) (*timeline, bool) {
	rows, err := s.engine.store.Range(s.ctx, s.scope, s.lanes, tl.start, tl.stop, s.filter)
	if err != nil {
		if s.ctx.Err() == nil {
			logging.Error().
				Err(err).
				Str("scope", s.scope).
				Str("playback_request_id", s.id).
				Msg("Playback range query failed, ending session")
		}
		return nil, false
	}
	defer rows.Close()

	s.resetPace(tl.rate)

	var batch []*models.Event
	var deadline time.Time

	for rows.Next() {
		e := rows.Event()
		next, release := s.paceWait(paceTime(e, tl.timebase), &batch, &deadline)
		if !release {
			return next, false
		}
		if len(batch) == 0 {
			deadline = time.Now().Add(s.engine.chunkInterval)
		}
		batch = append(batch, e)
		if len(batch) >= s.engine.chunkSize {
			if !s.enqueueBlocking(s.chunkFor(batch)) {
				return nil, false
			}
			batch = nil
		}
	}
	if err := rows.Err(); err != nil {
		if s.ctx.Err() == nil {
			logging.Error().
				Err(err).
				Str("scope", s.scope).
				Str("playback_request_id", s.id).
				Msg("Playback range iteration failed, ending session")
		}
		return nil, false
	}
	if len(batch) > 0 {
		if !s.enqueueBlocking(s.chunkFor(batch)) {
			return nil, false
		}
	}
	return nil, true
}

// paceWait blocks until the event at truth time t may be released. A
// partially filled chunk is flushed when its deadline passes during
// the wait, and the wait is recomputed when the rate changes.
func (s *session) paceWait(t models.Micros, batch *[]*models.Event, deadline *time.Time) (*timeline, bool) {
	for {
		target := s.releaseAt(t)
		if target.IsZero() {
			return nil, true
		}
		wait := time.Until(target)
		if wait <= 0 {
			return nil, true
		}
		flushing := false
		if len(*batch) > 0 {
			if d := time.Until(*deadline); d < wait {
				wait = d
				flushing = true
			}
		}
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return nil, false
		case next := <-s.retimeline:
			timer.Stop()
			return &next, false
		case <-s.rateCh:
			timer.Stop()
		case <-timer.C:
			if !flushing {
				return nil, true
			}
			if !s.enqueueBlocking(s.chunkFor(*batch)) {
				return nil, false
			}
			*batch = nil
		}
	}
}

// awaitTimeline parks an idle raw session until the bound connection
// moves again.
func (s *session) awaitTimeline() *timeline {
	select {
	case <-s.ctx.Done():
		return nil
	case next := <-s.retimeline:
		return &next
	}
}

// drain moves queued chunks into the sink. Delivery failures are
// logged and skipped; the transport has its own retry story and one
// bad publish must not end the session.
func (s *session) drain() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case chunk, ok := <-s.queue:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(s.ctx, deliverTimeout)
			var err error
			if s.raw {
				err = s.engine.sink.DeliverRaw(ctx, s.connID, chunk)
			} else {
				err = s.engine.sink.DeliverChunk(ctx, s.connID, chunk)
			}
			cancel()
			if err != nil {
				if s.ctx.Err() != nil {
					return
				}
				logging.Warn().
					Err(err).
					Str("conn_id", s.connID).
					Str("playback_request_id", s.id).
					Uint64("sequence", chunk.Sequence).
					Msg("Failed to deliver playback chunk")
				continue
			}
			metrics.RecordPlaybackChunk(len(chunk.Events))
		}
	}
}

// enqueueBlocking queues a chunk, waiting for space. Replay feeds use
// it: pacing controls production, so a full queue holds the producer
// back instead of losing history.
func (s *session) enqueueBlocking(chunk *models.EventChunk) bool {
	select {
	case s.queue <- chunk:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// enqueueLive queues a chunk without ever blocking the tail. On
// overflow the catchUp policy drops the oldest queued chunk to make
// room; disconnect ends the session.
func (s *session) enqueueLive(chunk *models.EventChunk) bool {
	select {
	case s.queue <- chunk:
		return true
	case <-s.ctx.Done():
		return false
	default:
	}

	if s.policy == models.BackpressureDisconnect {
		metrics.PlaybackDisconnects.Inc()
		logging.Warn().
			Str("conn_id", s.connID).
			Str("playback_request_id", s.id).
			Msg("Playback queue overflow, disconnecting session")
		s.cancel()
		return false
	}

	select {
	case <-s.queue:
		metrics.PlaybackCatchUps.Inc()
	default:
	}
	select {
	case s.queue <- chunk:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *session) chunkFor(events []*models.Event) *models.EventChunk {
	s.seq++
	return &models.EventChunk{
		PlaybackRequestID: s.id,
		Sequence:          s.seq,
		Events:            events,
	}
}

func (s *session) terminalChunk() *models.EventChunk {
	s.seq++
	return &models.EventChunk{
		PlaybackRequestID: s.id,
		Sequence:          s.seq,
		Complete:          true,
	}
}

// retime hands the producer a new timeline, keeping only the latest
// when notifications outrun it.
func (s *session) retime(tl timeline) {
	if s.retimeline == nil {
		return
	}
	for {
		select {
		case s.retimeline <- tl:
			return
		default:
		}
		select {
		case <-s.retimeline:
		default:
		}
	}
}

// resetPace clears pacing state for a fresh replay feed.
func (s *session) resetPace(rate float64) {
	s.paceMu.Lock()
	s.rate = rate
	s.paceSet = false
	s.lastReleased = 0
	s.paceMu.Unlock()
}

// releaseAt returns the wall-clock release time for an event at truth
// time t, or the zero time when the session is unpaced. The pacing
// base is pinned to the first released event, so a replay starts
// delivering immediately instead of waiting out the offset between the
// requested start and the first recorded event.
func (s *session) releaseAt(t models.Micros) time.Time {
	s.paceMu.Lock()
	defer s.paceMu.Unlock()
	s.lastReleased = t
	if s.rate == 0 {
		return time.Time{}
	}
	if !s.paceSet {
		s.baseWall = time.Now()
		s.baseTruth = t
		s.paceSet = true
	}
	offset := time.Duration(t-s.baseTruth) * time.Microsecond
	return s.baseWall.Add(time.Duration(float64(offset) / s.rate))
}

// setRate rebases pacing at the last released position so playback
// continues from the same truth time at the new rate, then pokes the
// producer to recompute any wait in progress.
func (s *session) setRate(rate float64) {
	s.paceMu.Lock()
	s.rate = rate
	if s.paceSet {
		s.baseWall = time.Now()
		s.baseTruth = s.lastReleased
	}
	s.paceMu.Unlock()

	select {
	case s.rateCh <- struct{}{}:
	default:
	}
}

// paceTime picks the clock an event is paced on. The source timebase
// recreates the producer's original spacing, falling back to canonical
// time for events without a source time.
func paceTime(e *models.Event, tb models.Timebase) models.Micros {
	if tb == models.TimebaseSource && e.SourceTime != nil {
		return *e.SourceTime
	}
	return e.CanonicalTime
}
