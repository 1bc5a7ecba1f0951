// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package ingest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/nova-telemetry/nova/internal/cache"
	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
	"github.com/nova-telemetry/nova/internal/truth"
)

// warmStartTimeout bounds the lane-head scan at construction.
const warmStartTimeout = 30 * time.Second

// UIValidator checks a ui-lane payload against the manifest registry.
// The manifest package implements it; a nil validator accepts any ui
// payload (the core process always wires the registry in).
type UIValidator interface {
	ValidateUI(raw json.RawMessage) error
}

// clockKey addresses one monotonic canonical-time clock.
type clockKey struct {
	scope string
	lane  models.Lane
}

type insertReply struct {
	result *models.InsertResult
	err    error
}

type insertRequest struct {
	event *models.Event
	reply chan insertReply
}

// Normalizer is the single writer in front of the truth store. All
// appends, whatever their origin (JetStream consumer, IPC dispatcher,
// manifest registry), are serialized through one goroutine that owns
// the per-(scope, lane) monotonic clocks and the dedupe cache.
//
// Canonical time for a new event is the producer's source time when
// present, otherwise now; if that proposal does not advance the lane's
// clock it is reassigned to prev + 1 microsecond. Assigned times are
// never rewritten.
type Normalizer struct {
	store    *truth.Store
	ui       UIValidator
	dispatch DispatchPublisher

	requests chan *insertRequest

	// Owned by the writer goroutine once Start has been called.
	clocks map[clockKey]models.Micros
	seen   *cache.LRUCache

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewNormalizer builds a normalizer and warm-starts its clocks from
// the store's per-(scope, lane) canonical-time maxima, so monotonicity
// holds across process restarts.
func NewNormalizer(store *truth.Store, ui UIValidator, cfg *config.IngestConfig) (*Normalizer, error) {
	if store == nil {
		return nil, fmt.Errorf("truth store required")
	}

	cacheSize := 100000
	cacheTTL := 10 * time.Minute
	if cfg != nil {
		if cfg.DedupeCacheSize > 0 {
			cacheSize = cfg.DedupeCacheSize
		}
		if cfg.DedupeCacheTTL > 0 {
			cacheTTL = cfg.DedupeCacheTTL
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), warmStartTimeout)
	defer cancel()

	heads, err := store.LaneHeads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load lane heads: %w", err)
	}

	clocks := make(map[clockKey]models.Micros, len(heads))
	for _, h := range heads {
		clocks[clockKey{scope: h.ScopeID, lane: h.Lane}] = h.Time
	}

	logging.Info().
		Int("lane_clocks", len(clocks)).
		Int("dedupe_cache_size", cacheSize).
		Msg("Normalizer initialized")

	return &Normalizer{
		store:    store,
		ui:       ui,
		requests: make(chan *insertRequest),
		clocks:   clocks,
		seen:     cache.NewLRUCache(cacheSize, cacheTTL),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start launches the writer goroutine. It returns immediately; the
// goroutine runs until Stop or context cancellation.
func (n *Normalizer) Start(ctx context.Context) error {
	if !n.running.CompareAndSwap(false, true) {
		return fmt.Errorf("normalizer already running")
	}
	go n.run(ctx)
	return nil
}

// Stop shuts the writer down and waits for in-flight inserts to
// settle. Safe to call once.
func (n *Normalizer) Stop() {
	if !n.running.Load() {
		return
	}
	close(n.stopCh)
	<-n.doneCh
}

// IsRunning reports whether the writer goroutine is active.
func (n *Normalizer) IsRunning() bool {
	return n.running.Load()
}

func (n *Normalizer) run(ctx context.Context) {
	defer close(n.doneCh)
	defer n.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.stopCh:
			return
		case req := <-n.requests:
			result, err := n.handleInsert(ctx, req.event)
			req.reply <- insertReply{result: result, err: err}
		}
	}
}

// Insert normalizes one event and appends it to the truth store. It is
// idempotent on EventID: a duplicate returns the original row's ACK
// with Duplicate set and appends nothing.
//
// Safe for concurrent use; calls are serialized through the writer.
func (n *Normalizer) Insert(ctx context.Context, e *models.Event) (*models.InsertResult, error) {
	if e == nil {
		return nil, nverr.New(nverr.KindSchema, "event is required")
	}
	if !n.running.Load() {
		return nil, nverr.New(nverr.KindStoreUnavailable, "normalizer is not running")
	}

	req := &insertRequest{event: e, reply: make(chan insertReply, 1)}

	select {
	case n.requests <- req:
	case <-n.stopCh:
		return nil, nverr.New(nverr.KindStoreUnavailable, "normalizer is shutting down")
	case <-ctx.Done():
		return nil, nverr.Wrap(nverr.KindTimeout, "insert not accepted", ctx.Err())
	}

	select {
	case reply := <-req.reply:
		return reply.result, reply.err
	case <-ctx.Done():
		// The write may still land; the caller can resubmit the same
		// eventId and get the original ACK.
		return nil, nverr.Wrap(nverr.KindTimeout, "insert not acknowledged", ctx.Err())
	}
}

// handleInsert runs on the writer goroutine.
func (n *Normalizer) handleInsert(ctx context.Context, e *models.Event) (_ *models.InsertResult, err error) {
	began := time.Now()
	defer func() {
		if err == nil {
			metrics.RecordIngestProcessing(time.Since(began))
		}
	}()

	if err := validateEvent(e); err != nil {
		return nil, err
	}

	if e.Lane == models.LaneUI && n.ui != nil {
		if err := n.ui.ValidateUI(e.Payload); err != nil {
			return nil, err
		}
	}

	if e.EventID == "" {
		e.EventID = models.NewEventID()
	}

	if n.seen.Contains(string(e.EventID)) {
		return n.duplicateResult(ctx, e.EventID, "cache")
	}
	exists, err := n.store.Exists(ctx, e.EventID)
	if err != nil {
		return nil, nverr.Wrap(nverr.KindStoreUnavailable, "duplicate check failed", err)
	}
	if exists {
		n.seen.Add(string(e.EventID))
		return n.duplicateResult(ctx, e.EventID, "store")
	}

	n.assignCanonicalTime(e)

	inserted, err := n.store.Append(ctx, e)
	if err != nil {
		return nil, nverr.Wrap(nverr.KindStoreUnavailable, "append failed", err)
	}
	n.seen.Add(string(e.EventID))
	if !inserted {
		// Raced past both dedupe layers; the store's unique index is
		// the last word.
		return n.duplicateResult(ctx, e.EventID, "store")
	}

	metrics.RecordIngestEvent(e.ScopeID, string(e.Lane))
	return &models.InsertResult{EventID: e.EventID, CanonicalTime: e.CanonicalTime}, nil
}

// assignCanonicalTime advances the (scope, lane) clock. A proposal
// that does not advance it is reassigned to prev + epsilon, preserving
// both monotonicity and producer ordering within the lane.
func (n *Normalizer) assignCanonicalTime(e *models.Event) {
	key := clockKey{scope: e.ScopeID, lane: e.Lane}
	prev := n.clocks[key]
	proposed := e.ProposedTime(models.NowMicros())

	if proposed <= prev {
		proposed = prev + models.Epsilon
		metrics.IngestClockReassignments.Inc()
	}

	e.CanonicalTime = proposed
	n.clocks[key] = proposed
}

// duplicateResult builds the idempotent ACK from the original row.
func (n *Normalizer) duplicateResult(ctx context.Context, id models.EventID, path string) (*models.InsertResult, error) {
	metrics.RecordIngestDuplicate(path)

	orig, err := n.store.GetByEventID(ctx, id)
	if err != nil {
		return nil, nverr.Wrap(nverr.KindStoreUnavailable, "duplicate lookup failed", err)
	}

	logging.Debug().
		Str("event_id", string(id)).
		Str("path", path).
		Msg("Duplicate event suppressed")

	return &models.InsertResult{
		EventID:       orig.EventID,
		CanonicalTime: orig.CanonicalTime,
		Duplicate:     true,
	}, nil
}

// validateEvent enforces the envelope contract: scope and complete
// identity, a known lane, and the lane's body discipline (raw carries
// Frame, structured lanes carry Payload, never both).
func validateEvent(e *models.Event) error {
	if e.ScopeID == "" {
		return nverr.New(nverr.KindSchema, "scopeId is required")
	}
	if !e.Lane.Valid() {
		return nverr.Newf(nverr.KindSchema, "unknown lane %q", e.Lane)
	}
	if !e.Identity.Complete() {
		return nverr.Newf(nverr.KindSchema, "identity triple is incomplete: %s", e.Identity)
	}

	if e.Lane == models.LaneRaw {
		if len(e.Frame) == 0 {
			return nverr.New(nverr.KindSchema, "raw events carry a frame")
		}
		if len(e.Payload) > 0 {
			return nverr.New(nverr.KindSchema, "raw events must not carry a payload")
		}
		return nil
	}

	if len(e.Payload) == 0 {
		return nverr.Newf(nverr.KindSchema, "%s events carry a payload", e.Lane)
	}
	if len(e.Frame) > 0 {
		return nverr.Newf(nverr.KindSchema, "%s events must not carry a frame", e.Lane)
	}
	return nil
}
