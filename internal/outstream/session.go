// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package outstream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nova-telemetry/nova/internal/cache"
	"github.com/nova-telemetry/nova/internal/ipc"
	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
)

const (
	// clientQueueSize bounds each consumer's pending writes.
	clientQueueSize = 256

	// rateWindow sizes the events/sec estimate reported in Status.
	rateWindow  = 10 * time.Second
	rateBuckets = 10
)

// Feed is the slice of the Core IPC client an output stream drives: a
// raw playback session keyed by the stream's own connection id, with
// chunks delivered through a registered handler.
type Feed interface {
	StartRaw(ctx context.Context, connID string, req *models.StreamRequest) (string, error)
	CancelRaw(ctx context.Context, connID string) error
	OnRaw(connID string, h ipc.ChunkHandler)
	Drop(connID string)
}

// session is the transport-independent half of a running stream: feed
// lifecycle, per-event formatting, and fan-out to client queues. The
// TCP, WebSocket and UDP servers each own one session and feed it
// clients.
type session struct {
	def    *models.StreamDefinition
	core   Feed
	format formatFunc
	proto  string
	connID string

	mu        sync.Mutex
	ctx       context.Context
	clients   map[*client]struct{}
	feedOn    bool
	boundConn string
	lastErr   string

	running atomic.Bool
	bytes   atomic.Int64
	rate    *cache.SlidingWindowCounter
}

func newSession(def *models.StreamDefinition, core Feed) *session {
	return &session{
		def:     def,
		core:    core,
		format:  newFormatter(def),
		proto:   string(def.Protocol),
		connID:  "outstream:" + def.StreamID,
		clients: make(map[*client]struct{}),
		rate:    cache.NewSlidingWindowCounter(rateWindow, rateBuckets),
	}
}

// start registers the chunk handler and remembers the run context.
// The feed itself opens lazily with the first client.
func (s *session) start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.core.OnRaw(s.connID, s.handleChunk)
	s.running.Store(true)
}

// stop cancels the feed and tears down every client.
func (s *session) stop() {
	s.running.Store(false)

	s.mu.Lock()
	feedOn := s.feedOn
	s.feedOn = false
	snapshot := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		snapshot = append(snapshot, c)
	}
	s.mu.Unlock()

	s.core.Drop(s.connID)
	if feedOn {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.core.CancelRaw(ctx, s.connID); err != nil {
			logging.Debug().Err(err).Str("stream_id", s.def.StreamID).Msg("Raw feed cancel on stop")
		}
		cancel()
	}
	for _, c := range snapshot {
		c.close()
	}
}

// addClient admits a consumer and opens the feed if it is the first.
func (s *session) addClient(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	total := len(s.clients)
	s.ensureFeedLocked()
	s.mu.Unlock()

	metrics.TrackOutstreamClient(s.proto, true)
	go c.run()
	logging.Debug().
		Str("stream_id", s.def.StreamID).
		Str("remote", c.remote).
		Int("clients", total).
		Msg("Output stream client connected")
}

// removeClient drops a departed consumer and closes the feed behind
// the last one. The UDP sender never removes its implicit client, so
// its feed stays open for the stream's lifetime.
func (s *session) removeClient(c *client) {
	s.mu.Lock()
	_, present := s.clients[c]
	delete(s.clients, c)
	remaining := len(s.clients)
	if present && remaining == 0 && s.feedOn {
		s.feedOn = false
		go s.cancelFeed()
	}
	s.mu.Unlock()

	if present {
		metrics.TrackOutstreamClient(s.proto, false)
	}
}

// ensureFeedLocked opens the raw session when consumers exist and no
// feed is active. StartRaw runs off the lock so a slow Core never
// blocks accept paths; failures are recorded and retried by the next
// client arrival.
func (s *session) ensureFeedLocked() {
	if s.feedOn || len(s.clients) == 0 || s.ctx == nil {
		return
	}
	s.feedOn = true
	req := s.feedRequest()
	ctx := s.ctx
	go func() {
		if _, err := s.core.StartRaw(ctx, s.connID, req); err != nil {
			logging.Warn().Err(err).Str("stream_id", s.def.StreamID).Msg("Output stream feed failed to start")
			s.mu.Lock()
			s.feedOn = false
			s.lastErr = err.Error()
			s.mu.Unlock()
		}
	}()
}

// feedRequest builds the raw session request from the definition plus
// the current timeline binding. Callers hold s.mu.
func (s *session) feedRequest() *models.StreamRequest {
	return &models.StreamRequest{
		ScopeID:      s.def.ScopeID,
		Lanes:        []models.Lane{s.def.Lane},
		Filters:      s.def.Filters,
		Mode:         models.ModeLive,
		Backpressure: s.def.Backpressure,
		BoundConnID:  s.boundConn,
	}
}

// bind points the feed at a UI instance's cursor. Last binder wins; an
// active feed is replaced in place (StartRaw on the same connection id
// supersedes the previous session).
func (s *session) bind(connID string) {
	s.mu.Lock()
	s.boundConn = connID
	s.restartFeedLocked()
	s.mu.Unlock()
	logging.Info().
		Str("stream_id", s.def.StreamID).
		Str("conn_id", connID).
		Msg("Output stream bound to timeline")
}

// unbind reverts to LIVE-follow if connID is the current binder.
func (s *session) unbind(connID string) {
	s.mu.Lock()
	if s.boundConn != connID {
		s.mu.Unlock()
		return
	}
	s.boundConn = ""
	s.restartFeedLocked()
	s.mu.Unlock()
	logging.Info().
		Str("stream_id", s.def.StreamID).
		Str("conn_id", connID).
		Msg("Output stream reverted to live-follow")
}

func (s *session) restartFeedLocked() {
	if !s.feedOn || s.ctx == nil {
		return
	}
	req := s.feedRequest()
	ctx := s.ctx
	go func() {
		if _, err := s.core.StartRaw(ctx, s.connID, req); err != nil {
			logging.Warn().Err(err).Str("stream_id", s.def.StreamID).Msg("Output stream feed failed to rebind")
			s.mu.Lock()
			s.lastErr = err.Error()
			s.mu.Unlock()
		}
	}()
}

func (s *session) cancelFeed() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.core.CancelRaw(ctx, s.connID); err != nil {
		logging.Debug().Err(err).Str("stream_id", s.def.StreamID).Msg("Raw feed cancel")
	}
}

// handleChunk formats each event once and fans the bytes out to every
// client queue under the definition's backpressure policy.
func (s *session) handleChunk(chunk *models.EventChunk) {
	if chunk == nil || len(chunk.Events) == 0 {
		return
	}

	s.mu.Lock()
	snapshot := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		snapshot = append(snapshot, c)
	}
	s.mu.Unlock()

	for _, e := range chunk.Events {
		data, err := s.format(e)
		if err != nil {
			logging.Warn().Err(err).Str("stream_id", s.def.StreamID).Msg("Skipping unformattable event")
			continue
		}
		s.rate.IncrementOne()
		for _, c := range snapshot {
			c.offer(data)
		}
	}
}

func (s *session) status() models.StreamStatus {
	s.mu.Lock()
	clients := len(s.clients)
	bound := s.boundConn
	lastErr := s.lastErr
	s.mu.Unlock()

	return models.StreamStatus{
		StreamID:     s.def.StreamID,
		Running:      s.running.Load(),
		Clients:      clients,
		BoundConnID:  bound,
		EventsPerSec: int64(s.rate.RatePerSecond() + 0.5),
		BytesWritten: s.bytes.Load(),
		LastError:    lastErr,
	}
}

// client is one consumer with a bounded serialized write queue drained
// by its own goroutine.
type client struct {
	sess   *session
	remote string
	queue  chan []byte
	done   chan struct{}
	once   sync.Once

	// write pushes bytes at the transport; closeConn releases it.
	write     func([]byte) error
	closeConn func()
}

func newClient(sess *session, remote string, write func([]byte) error, closeConn func()) *client {
	return &client{
		sess:      sess,
		remote:    remote,
		queue:     make(chan []byte, clientQueueSize),
		done:      make(chan struct{}),
		write:     write,
		closeConn: closeConn,
	}
}

// offer queues one formatted event. A full queue either coalesces away
// the oldest entry (catchUp) or costs the client its connection
// (disconnect).
func (c *client) offer(data []byte) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.queue <- data:
		return
	default:
	}

	if c.sess.def.Backpressure == models.BackpressureDisconnect {
		metrics.OutstreamSlowClients.Inc()
		logging.Warn().
			Str("stream_id", c.sess.def.StreamID).
			Str("remote", c.remote).
			Msg("Disconnecting slow output stream client")
		c.close()
		return
	}

	// catchUp: shed the oldest queued write to make room.
	select {
	case <-c.queue:
		metrics.OutstreamSlowClients.Inc()
	default:
	}
	select {
	case c.queue <- data:
	default:
	}
}

// run drains the queue until the client closes. A write failure closes
// the client; the transport's reader (if any) handles its own exit.
func (c *client) run() {
	defer c.sess.removeClient(c)
	for {
		select {
		case <-c.done:
			return
		case data := <-c.queue:
			if err := c.write(data); err != nil {
				logging.Debug().
					Err(err).
					Str("stream_id", c.sess.def.StreamID).
					Str("remote", c.remote).
					Msg("Output stream client write failed")
				c.close()
				return
			}
			c.sess.bytes.Add(int64(len(data)))
			metrics.RecordOutstreamWrite(c.sess.proto, 1, len(data))
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		if c.closeConn != nil {
			c.closeConn()
		}
	})
}
