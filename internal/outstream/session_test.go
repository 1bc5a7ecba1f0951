// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package outstream

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/nova-telemetry/nova/internal/ipc"
	"github.com/nova-telemetry/nova/internal/models"
)

// fakeFeed records the raw session traffic a stream generates.
type fakeFeed struct {
	mu       sync.Mutex
	handlers map[string]ipc.ChunkHandler
	starts   chan *models.StreamRequest
	cancels  chan string
	drops    chan string
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		handlers: make(map[string]ipc.ChunkHandler),
		starts:   make(chan *models.StreamRequest, 16),
		cancels:  make(chan string, 16),
		drops:    make(chan string, 16),
	}
}

func (f *fakeFeed) StartRaw(_ context.Context, connID string, req *models.StreamRequest) (string, error) {
	f.starts <- req
	return "raw-" + connID, nil
}

func (f *fakeFeed) CancelRaw(_ context.Context, connID string) error {
	f.cancels <- connID
	return nil
}

func (f *fakeFeed) OnRaw(connID string, h ipc.ChunkHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[connID] = h
}

func (f *fakeFeed) Drop(connID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, connID)
	f.drops <- connID
}

func (f *fakeFeed) push(connID string, chunk *models.EventChunk) {
	f.mu.Lock()
	h := f.handlers[connID]
	f.mu.Unlock()
	if h != nil {
		h(chunk)
	}
}

func (f *fakeFeed) waitStart(t *testing.T) *models.StreamRequest {
	t.Helper()
	select {
	case req := <-f.starts:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for StartRaw")
		return nil
	}
}

func (f *fakeFeed) waitCancel(t *testing.T) {
	t.Helper()
	select {
	case <-f.cancels:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for CancelRaw")
	}
}

// sinkClient collects writes into a channel.
func sinkClient(sess *session) (*client, chan []byte) {
	out := make(chan []byte, 1024)
	c := newClient(sess, "test", func(data []byte) error {
		out <- data
		return nil
	}, nil)
	return c, out
}

func testSession(t *testing.T, mutate func(*models.StreamDefinition)) (*session, *fakeFeed) {
	t.Helper()
	def := testDef("sess", models.ProtocolTCP, "9100")
	def.StreamID = "s1"
	def.OutputFormat = models.FormatHierarchyPerMessage
	def.Backpressure = models.BackpressureCatchUp
	if mutate != nil {
		mutate(def)
	}
	feed := newFakeFeed()
	sess := newSession(def, feed)
	return sess, feed
}

func TestFeedOpensWithFirstClientAndClosesAfterLast(t *testing.T) {
	sess, feed := testSession(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess.start(ctx)

	select {
	case <-feed.starts:
		t.Fatal("feed opened before any client connected")
	case <-time.After(50 * time.Millisecond):
	}

	c, _ := sinkClient(sess)
	sess.addClient(c)
	req := feed.waitStart(t)
	if req.ScopeID != "alpha" || len(req.Lanes) != 1 || req.Lanes[0] != models.LaneParsed {
		t.Errorf("feed request = %+v", req)
	}
	if req.Mode != models.ModeLive {
		t.Errorf("feed mode = %q", req.Mode)
	}

	c.close()
	feed.waitCancel(t)
}

func TestChunkFansOutToEveryClient(t *testing.T) {
	sess, feed := testSession(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess.start(ctx)

	a, outA := sinkClient(sess)
	b, outB := sinkClient(sess)
	sess.addClient(a)
	sess.addClient(b)
	feed.waitStart(t)

	feed.push(sess.connID, &models.EventChunk{
		PlaybackRequestID: "raw-1",
		Sequence:          1,
		Events:            []*models.Event{testEvent()},
	})

	for name, out := range map[string]chan []byte{"a": outA, "b": outB} {
		select {
		case data := <-out:
			var line map[string]any
			if err := json.Unmarshal(data, &line); err != nil {
				t.Fatalf("client %s got unparsable line: %v", name, err)
			}
			if line["s"] != "gnss" {
				t.Errorf("client %s line = %v", name, line)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("client %s never received the event", name)
		}
	}
}

func TestCatchUpShedsOldestQueuedWrite(t *testing.T) {
	sess, _ := testSession(t, nil)
	// Not started: the client queue is inspected directly.
	c := newClient(sess, "test", func([]byte) error { return nil }, nil)

	for i := 0; i < clientQueueSize+3; i++ {
		c.offer([]byte(fmt.Sprintf("m%d", i)))
	}

	select {
	case <-c.done:
		t.Fatal("catchUp client was disconnected")
	default:
	}
	first := <-c.queue
	if string(first) == "m0" {
		t.Error("oldest write survived a full queue")
	}
	if len(c.queue) != clientQueueSize-1 {
		t.Errorf("queue depth = %d, want %d", len(c.queue), clientQueueSize-1)
	}
}

func TestDisconnectPolicyDropsSlowClient(t *testing.T) {
	sess, _ := testSession(t, func(def *models.StreamDefinition) {
		def.Backpressure = models.BackpressureDisconnect
	})
	closed := false
	c := newClient(sess, "test", func([]byte) error { return nil }, func() { closed = true })

	for i := 0; i < clientQueueSize; i++ {
		c.offer([]byte("fill"))
	}
	c.offer([]byte("overflow"))

	select {
	case <-c.done:
	default:
		t.Fatal("slow client not disconnected")
	}
	if !closed {
		t.Error("transport close hook not called")
	}
}

func TestWriteFailureRemovesClient(t *testing.T) {
	sess, feed := testSession(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess.start(ctx)

	c := newClient(sess, "test", func([]byte) error {
		return fmt.Errorf("broken pipe")
	}, nil)
	sess.addClient(c)
	feed.waitStart(t)

	feed.push(sess.connID, &models.EventChunk{Sequence: 1, Events: []*models.Event{testEvent()}})

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("failing client not closed")
	}
	// Last client gone: the feed shuts down.
	feed.waitCancel(t)
}

func TestBindRestartsFeedWithBoundInstance(t *testing.T) {
	sess, feed := testSession(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess.start(ctx)

	c, _ := sinkClient(sess)
	sess.addClient(c)
	if req := feed.waitStart(t); req.BoundConnID != "" {
		t.Fatalf("initial feed bound to %q", req.BoundConnID)
	}

	sess.bind("conn-7")
	if req := feed.waitStart(t); req.BoundConnID != "conn-7" {
		t.Fatalf("bound feed request = %+v", req)
	}
	if sess.status().BoundConnID != "conn-7" {
		t.Errorf("status bound = %q", sess.status().BoundConnID)
	}

	// A different instance unbinding is a no-op.
	sess.unbind("conn-other")
	select {
	case req := <-feed.starts:
		t.Fatalf("stranger unbind restarted the feed: %+v", req)
	case <-time.After(50 * time.Millisecond):
	}

	sess.unbind("conn-7")
	if req := feed.waitStart(t); req.BoundConnID != "" {
		t.Fatalf("unbound feed request = %+v", req)
	}
}

func TestLastBinderWins(t *testing.T) {
	sess, feed := testSession(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess.start(ctx)

	c, _ := sinkClient(sess)
	sess.addClient(c)
	feed.waitStart(t)

	sess.bind("conn-1")
	feed.waitStart(t)
	sess.bind("conn-2")
	if req := feed.waitStart(t); req.BoundConnID != "conn-2" {
		t.Fatalf("rebind request = %+v", req)
	}

	// The superseded binder unbinding must not disturb conn-2.
	sess.unbind("conn-1")
	select {
	case <-feed.starts:
		t.Fatal("stale binder restarted the feed")
	case <-time.After(50 * time.Millisecond):
	}
	if sess.status().BoundConnID != "conn-2" {
		t.Errorf("bound = %q, want conn-2", sess.status().BoundConnID)
	}
}
