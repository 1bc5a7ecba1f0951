// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
	"github.com/nova-telemetry/nova/internal/truth"
)

// dawnCursor parses to a cursor before any canonical time used in
// these tests, so live tails deliver everything ever appended without
// depending on when the feed reads the scope head.
const dawnCursor = "v1:1:"

func setupTestStore(t *testing.T) *truth.Store {
	t.Helper()

	cfg := &config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB"}
	store, err := truth.Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("Failed to close store: %v", err)
		}
	})
	return store
}

func setupTestEngine(t *testing.T, store *truth.Store, cfg *config.PlaybackConfig) (*Engine, *captureSink) {
	t.Helper()

	sink := &captureSink{}
	e, err := NewEngine(store, sink, cfg)
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}
	t.Cleanup(e.Close)
	return e, sink
}

// captureSink records delivered chunks. A non-nil gate makes every
// delivery block until open is called or the delivery context ends.
type captureSink struct {
	mu       sync.Mutex
	ui       []*models.EventChunk
	raw      []*models.EventChunk
	gate     chan struct{}
	inflight int
}

func (c *captureSink) DeliverChunk(ctx context.Context, connID string, chunk *models.EventChunk) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ui = append(c.ui, chunk)
	return nil
}

func (c *captureSink) DeliverRaw(ctx context.Context, connID string, chunk *models.EventChunk) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = append(c.raw, chunk)
	return nil
}

func (c *captureSink) wait(ctx context.Context) error {
	c.mu.Lock()
	gate := c.gate
	if gate != nil {
		c.inflight++
	}
	c.mu.Unlock()
	if gate == nil {
		return nil
	}
	defer func() {
		c.mu.Lock()
		c.inflight--
		c.mu.Unlock()
	}()
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// open releases every blocked delivery and stops gating new ones.
func (c *captureSink) open() {
	c.mu.Lock()
	gate := c.gate
	c.gate = nil
	c.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

// blockedDeliveries reports how many deliveries are parked at the gate.
func (c *captureSink) blockedDeliveries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight
}

func (c *captureSink) uiChunks() []*models.EventChunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.EventChunk(nil), c.ui...)
}

func (c *captureSink) rawChunks() []*models.EventChunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.EventChunk(nil), c.raw...)
}

func (c *captureSink) uiEvents() []*models.Event {
	var out []*models.Event
	for _, ch := range c.uiChunks() {
		out = append(out, ch.Events...)
	}
	return out
}

func (c *captureSink) rawEvents() []*models.Event {
	var out []*models.Event
	for _, ch := range c.rawChunks() {
		out = append(out, ch.Events...)
	}
	return out
}

func (c *captureSink) uiComplete() bool {
	for _, ch := range c.uiChunks() {
		if ch.Complete {
			return true
		}
	}
	return false
}

func (c *captureSink) rawComplete() bool {
	for _, ch := range c.rawChunks() {
		if ch.Complete {
			return true
		}
	}
	return false
}

// testEvent builds a parsed-lane event at the given canonical time.
func testEvent(scope string, lane models.Lane, at models.Micros) *models.Event {
	e := &models.Event{
		EventID:       models.NewEventID(),
		ScopeID:       scope,
		Lane:          lane,
		CanonicalTime: at,
		MessageType:   models.TypePosition,
	}
	e.SystemID = "sys-1"
	e.ContainerID = "veh-1"
	e.UniqueID = "track-9"
	if lane == models.LaneRaw {
		e.Frame = []byte{0xCA, 0xFE, 0x00, 0x42}
		e.MessageType = ""
	} else {
		e.Payload = json.RawMessage(`{"lat":59.33,"lon":18.07}`)
	}
	return e
}

// seedEvents appends n events at the given spacing starting at base.
func seedEvents(t *testing.T, store *truth.Store, scope string, lane models.Lane, base, step models.Micros, n int) []*models.Event {
	t.Helper()
	events := make([]*models.Event, 0, n)
	for i := 0; i < n; i++ {
		e := testEvent(scope, lane, base+models.Micros(i)*step)
		inserted, err := store.Append(context.Background(), e)
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if !inserted {
			t.Fatalf("Event %d unexpectedly reported as duplicate", i)
		}
		events = append(events, e)
	}
	return events
}

func appendEvent(t *testing.T, store *truth.Store, e *models.Event) {
	t.Helper()
	inserted, err := store.Append(context.Background(), e)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if !inserted {
		t.Fatal("Append unexpectedly reported as duplicate")
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func liveRequest(scope string) *models.StreamRequest {
	return &models.StreamRequest{
		ScopeID:    scope,
		Lanes:      []models.Lane{models.LaneParsed},
		Mode:       models.ModeLive,
		FromCursor: dawnCursor,
	}
}

func replayRequest(scope string, start, stop models.Micros, rate float64) *models.StreamRequest {
	return &models.StreamRequest{
		ScopeID:   scope,
		Lanes:     []models.Lane{models.LaneParsed},
		Mode:      models.ModeReplay,
		StartTime: start,
		StopTime:  stop,
		Rate:      rate,
	}
}

func containsEvent(events []*models.Event, id models.EventID) bool {
	for _, e := range events {
		if e.EventID == id {
			return true
		}
	}
	return false
}

func TestNewEngine_RequiresStore(t *testing.T) {
	if _, err := NewEngine(nil, &captureSink{}, nil); err == nil {
		t.Fatal("Expected error for nil store")
	}
}

func TestNewEngine_RequiresSink(t *testing.T) {
	store := setupTestStore(t)
	if _, err := NewEngine(store, nil, nil); err == nil {
		t.Fatal("Expected error for nil sink")
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	store := setupTestStore(t)
	e, _ := setupTestEngine(t, store, nil)

	if e.chunkSize != defaultChunkSize {
		t.Errorf("chunkSize = %d, want %d", e.chunkSize, defaultChunkSize)
	}
	if e.chunkInterval != defaultChunkInterval {
		t.Errorf("chunkInterval = %v, want %v", e.chunkInterval, defaultChunkInterval)
	}
	if e.queueCap != defaultQueueCapacity {
		t.Errorf("queueCap = %d, want %d", e.queueCap, defaultQueueCapacity)
	}
	if e.defaultPolicy != models.BackpressureCatchUp {
		t.Errorf("defaultPolicy = %q, want %q", e.defaultPolicy, models.BackpressureCatchUp)
	}
}

func TestNewEngine_ConfigOverrides(t *testing.T) {
	store := setupTestStore(t)
	e, _ := setupTestEngine(t, store, &config.PlaybackConfig{
		ChunkSize:           25,
		ChunkInterval:       50 * time.Millisecond,
		QueueCapacity:       8,
		DefaultBackpressure: "disconnect",
	})

	if e.chunkSize != 25 {
		t.Errorf("chunkSize = %d, want 25", e.chunkSize)
	}
	if e.chunkInterval != 50*time.Millisecond {
		t.Errorf("chunkInterval = %v, want 50ms", e.chunkInterval)
	}
	if e.queueCap != 8 {
		t.Errorf("queueCap = %d, want 8", e.queueCap)
	}
	if e.defaultPolicy != models.BackpressureDisconnect {
		t.Errorf("defaultPolicy = %q, want disconnect", e.defaultPolicy)
	}
}

func TestNewEngine_UnknownPolicyKeepsDefault(t *testing.T) {
	store := setupTestStore(t)
	e, _ := setupTestEngine(t, store, &config.PlaybackConfig{DefaultBackpressure: "bogus"})

	if e.defaultPolicy != models.BackpressureCatchUp {
		t.Errorf("defaultPolicy = %q, want catchUp", e.defaultPolicy)
	}
}

func TestStartStream_Validation(t *testing.T) {
	store := setupTestStore(t)
	e, _ := setupTestEngine(t, store, nil)

	valid := func() *models.StreamRequest {
		return &models.StreamRequest{
			ScopeID: "mission-1",
			Lanes:   []models.Lane{models.LaneParsed},
			Mode:    models.ModeLive,
		}
	}

	tests := []struct {
		name   string
		connID string
		mutate func(*models.StreamRequest)
	}{
		{"missing conn id", "", func(r *models.StreamRequest) {}},
		{"missing scope", "conn-1", func(r *models.StreamRequest) { r.ScopeID = "" }},
		{"no lanes", "conn-1", func(r *models.StreamRequest) { r.Lanes = nil }},
		{"unknown lane", "conn-1", func(r *models.StreamRequest) { r.Lanes = []models.Lane{"bogus"} }},
		{"unknown mode", "conn-1", func(r *models.StreamRequest) { r.Mode = "rewind" }},
		{"unknown timebase", "conn-1", func(r *models.StreamRequest) { r.Timebase = "lunar" }},
		{"negative rate", "conn-1", func(r *models.StreamRequest) { r.Rate = -1 }},
		{"stop before start", "conn-1", func(r *models.StreamRequest) {
			r.Mode = models.ModeReplay
			r.StartTime = 2_000_000
			r.StopTime = 1_000_000
		}},
		{"malformed cursor", "conn-1", func(r *models.StreamRequest) { r.FromCursor = "not-a-cursor" }},
		{"unknown backpressure", "conn-1", func(r *models.StreamRequest) { r.Backpressure = "explode" }},
		{"bound id on ui stream", "conn-1", func(r *models.StreamRequest) { r.BoundConnID = "conn-2" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			_, err := e.StartStream(tt.connID, req)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if kind := nverr.KindOf(err); kind != nverr.KindSchema {
				t.Errorf("KindOf(err) = %v, want %v", kind, nverr.KindSchema)
			}
		})
	}

	if _, err := e.StartStream("conn-1", nil); nverr.KindOf(err) != nverr.KindSchema {
		t.Errorf("Expected schema error for nil request, got %v", err)
	}
	if e.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions = %d after rejected requests, want 0", e.ActiveSessions())
	}
}

func TestStartStream_MintsDistinctIDs(t *testing.T) {
	store := setupTestStore(t)
	e, _ := setupTestEngine(t, store, nil)

	id1, err := e.StartStream("conn-1", liveRequest("mission-1"))
	if err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	id2, err := e.StartStream("conn-2", liveRequest("mission-1"))
	if err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}

	if id1 == "" || id2 == "" {
		t.Fatal("Expected non-empty playback request ids")
	}
	if id1 == id2 {
		t.Fatalf("Expected distinct playback request ids, both %q", id1)
	}
	if e.ActiveSessions() != 2 {
		t.Errorf("ActiveSessions = %d, want 2", e.ActiveSessions())
	}
}

func TestStartStream_ReplacesExisting(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	id1, err := e.StartStream("conn-1", liveRequest("mission-1"))
	if err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	id2, err := e.StartStream("conn-1", liveRequest("mission-1"))
	if err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	if id1 == id2 {
		t.Fatal("Expected a fresh playback request id on restart")
	}
	if e.ActiveSessions() != 1 {
		t.Errorf("ActiveSessions = %d, want 1", e.ActiveSessions())
	}

	appendEvent(t, store, testEvent("mission-1", models.LaneParsed, 1_000_000))
	waitFor(t, 3*time.Second, func() bool {
		for _, ch := range sink.uiChunks() {
			if ch.PlaybackRequestID == id2 && len(ch.Events) > 0 {
				return true
			}
		}
		return false
	}, "replacement session never delivered a chunk")
}

func TestCancelStream_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	e, _ := setupTestEngine(t, store, nil)

	// Cancelling a connection with no session is a no-op.
	e.CancelStream("conn-1")

	if _, err := e.StartStream("conn-1", liveRequest("mission-1")); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	e.CancelStream("conn-1")
	e.CancelStream("conn-1")

	waitFor(t, 3*time.Second, func() bool {
		return e.ActiveSessions() == 0
	}, "session still active after cancel")
}

func TestSetRate_Validation(t *testing.T) {
	store := setupTestStore(t)
	e, _ := setupTestEngine(t, store, nil)

	if err := e.SetRate("conn-1", -2); nverr.KindOf(err) != nverr.KindSchema {
		t.Errorf("Expected schema error for negative rate, got %v", err)
	}
	if err := e.SetRate("conn-1", 1); nverr.KindOf(err) != nverr.KindNotFound {
		t.Errorf("Expected not-found error without a session, got %v", err)
	}

	if _, err := e.StartStream("conn-1", liveRequest("mission-1")); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	if err := e.SetRate("conn-1", 2); err != nil {
		t.Errorf("SetRate on live session = %v, want nil", err)
	}
}

func TestClose_StopsEverything(t *testing.T) {
	store := setupTestStore(t)
	sink := &captureSink{}
	e, err := NewEngine(store, sink, nil)
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}

	if _, err := e.StartStream("conn-1", liveRequest("mission-1")); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	if _, err := e.StartRaw("tcp-1", &models.StreamRequest{ScopeID: "mission-1"}); err != nil {
		t.Fatalf("StartRaw failed: %v", err)
	}

	e.Close()

	if got := e.ActiveSessions(); got != 0 {
		t.Errorf("ActiveSessions = %d after close, want 0", got)
	}
	if got := e.ActiveRawSessions(); got != 0 {
		t.Errorf("ActiveRawSessions = %d after close, want 0", got)
	}
	if _, err := e.StartStream("conn-2", liveRequest("mission-1")); nverr.KindOf(err) != nverr.KindStoreUnavailable {
		t.Errorf("Expected store-unavailable after close, got %v", err)
	}

	// Close is idempotent.
	e.Close()
}

func TestStartRaw_RequiresScope(t *testing.T) {
	store := setupTestStore(t)
	e, _ := setupTestEngine(t, store, nil)

	_, err := e.StartRaw("tcp-1", &models.StreamRequest{})
	if nverr.KindOf(err) != nverr.KindSchema {
		t.Errorf("Expected schema error, got %v", err)
	}
}

func TestStartRaw_ReplacesExisting(t *testing.T) {
	store := setupTestStore(t)
	e, _ := setupTestEngine(t, store, nil)

	id1, err := e.StartRaw("tcp-1", &models.StreamRequest{ScopeID: "mission-1", FromCursor: dawnCursor})
	if err != nil {
		t.Fatalf("StartRaw failed: %v", err)
	}
	id2, err := e.StartRaw("tcp-1", &models.StreamRequest{ScopeID: "mission-1", FromCursor: dawnCursor})
	if err != nil {
		t.Fatalf("StartRaw failed: %v", err)
	}
	if id1 == id2 {
		t.Fatal("Expected a fresh playback request id on restart")
	}
	if e.ActiveRawSessions() != 1 {
		t.Errorf("ActiveRawSessions = %d, want 1", e.ActiveRawSessions())
	}

	e.CancelRaw("tcp-1")
	e.CancelRaw("tcp-1")
	waitFor(t, 3*time.Second, func() bool {
		return e.ActiveRawSessions() == 0
	}, "raw session still active after cancel")
}
