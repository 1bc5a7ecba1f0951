// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package playback

import (
	"testing"
	"time"

	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/models"
)

func TestLive_DeliversAppends(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	if _, err := e.StartStream("conn-1", liveRequest("mission-1")); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}

	appended := seedEvents(t, store, "mission-1", models.LaneParsed, 1_000_000, 1, 3)
	waitFor(t, 3*time.Second, func() bool {
		return len(sink.uiEvents()) == 3
	}, "live tail never delivered the appended events")

	events := sink.uiEvents()
	for i, ev := range events {
		if ev.EventID != appended[i].EventID {
			t.Errorf("Event %d = %s, want %s", i, ev.EventID, appended[i].EventID)
		}
	}
}

func TestLive_DefaultCursorIsHeadAtSubscription(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	// History present before the stream starts must not be replayed by
	// a default live tail.
	seedEvents(t, store, "mission-1", models.LaneParsed, 1_000_000, 1, 10)

	req := liveRequest("mission-1")
	req.FromCursor = ""
	if _, err := e.StartStream("conn-1", req); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}

	// Wait for the feed to subscribe and read the head before
	// appending the events it should see.
	waitFor(t, 3*time.Second, func() bool {
		return store.Notifier().Subscribers("mission-1") > 0
	}, "live feed never subscribed")
	time.Sleep(50 * time.Millisecond)

	fresh := testEvent("mission-1", models.LaneParsed, 2_000_000)
	appendEvent(t, store, fresh)

	waitFor(t, 3*time.Second, func() bool {
		return containsEvent(sink.uiEvents(), fresh.EventID)
	}, "live tail never delivered the fresh event")

	events := sink.uiEvents()
	if len(events) != 1 {
		t.Fatalf("Delivered %d events, want only the fresh one", len(events))
	}
}

func TestLive_FromCursorResumes(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	seeded := seedEvents(t, store, "mission-1", models.LaneParsed, 1_000_000, 1, 5)

	req := liveRequest("mission-1")
	req.FromCursor = seeded[1].Cursor().String()
	if _, err := e.StartStream("conn-1", req); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		return len(sink.uiEvents()) == 3
	}, "resumed tail never delivered the backlog")

	events := sink.uiEvents()
	for i, want := range seeded[2:] {
		if events[i].EventID != want.EventID {
			t.Errorf("Event %d = %s, want %s", i, events[i].EventID, want.EventID)
		}
	}
}

func TestLive_FilterApplies(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	req := liveRequest("mission-1")
	req.Filters = models.Filter{UniqueID: "track-9"}
	if _, err := e.StartStream("conn-1", req); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}

	match := testEvent("mission-1", models.LaneParsed, 1_000_000)
	appendEvent(t, store, match)
	other := testEvent("mission-1", models.LaneParsed, 1_000_001)
	other.UniqueID = "track-2"
	appendEvent(t, store, other)
	match2 := testEvent("mission-1", models.LaneParsed, 1_000_002)
	appendEvent(t, store, match2)

	waitFor(t, 3*time.Second, func() bool {
		return containsEvent(sink.uiEvents(), match2.EventID)
	}, "filtered tail never delivered the second match")

	events := sink.uiEvents()
	if len(events) != 2 {
		t.Fatalf("Delivered %d events, want 2 matches", len(events))
	}
	if containsEvent(events, other.EventID) {
		t.Error("Filtered tail delivered a non-matching event")
	}
}

func TestLive_ScopesAreIsolated(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	if _, err := e.StartStream("conn-1", liveRequest("mission-1")); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}

	appendEvent(t, store, testEvent("mission-2", models.LaneParsed, 1_000_000))
	mine := testEvent("mission-1", models.LaneParsed, 1_000_001)
	appendEvent(t, store, mine)

	waitFor(t, 3*time.Second, func() bool {
		return containsEvent(sink.uiEvents(), mine.EventID)
	}, "tail never delivered its own scope's event")

	if len(sink.uiEvents()) != 1 {
		t.Fatalf("Delivered %d events, want 1; another scope leaked in", len(sink.uiEvents()))
	}
}

func TestReplay_DeliversRangeAndCompletes(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	seeded := seedEvents(t, store, "mission-1", models.LaneParsed, 1_000_000, 1, 20)

	id, err := e.StartStream("conn-1", replayRequest("mission-1", 1_000_000, 1_000_019, 0))
	if err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}

	waitFor(t, 3*time.Second, sink.uiComplete, "replay never completed")

	events := sink.uiEvents()
	if len(events) != 20 {
		t.Fatalf("Delivered %d events, want 20", len(events))
	}
	for i, want := range seeded {
		if events[i].EventID != want.EventID {
			t.Errorf("Event %d = %s, want %s", i, events[i].EventID, want.EventID)
		}
	}

	chunks := sink.uiChunks()
	last := chunks[len(chunks)-1]
	if !last.Complete {
		t.Error("Expected the terminal chunk last")
	}
	if len(last.Events) != 0 {
		t.Errorf("Terminal chunk carries %d events, want 0", len(last.Events))
	}
	for i, ch := range chunks {
		if ch.PlaybackRequestID != id {
			t.Errorf("Chunk %d playbackRequestId = %q, want %q", i, ch.PlaybackRequestID, id)
		}
		if ch.Sequence != uint64(i+1) {
			t.Errorf("Chunk %d sequence = %d, want %d", i, ch.Sequence, i+1)
		}
	}

	// The session ends itself after the terminal chunk.
	waitFor(t, 3*time.Second, func() bool {
		return e.ActiveSessions() == 0
	}, "completed replay session still registered")
}

func TestReplay_WindowBounds(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	seeded := seedEvents(t, store, "mission-1", models.LaneParsed, 1_000, 1, 10)

	if _, err := e.StartStream("conn-1", replayRequest("mission-1", 1_002, 1_005, 0)); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	waitFor(t, 3*time.Second, sink.uiComplete, "replay never completed")

	events := sink.uiEvents()
	if len(events) != 4 {
		t.Fatalf("Delivered %d events, want 4 inside [1002, 1005]", len(events))
	}
	for i, want := range seeded[2:6] {
		if events[i].EventID != want.EventID {
			t.Errorf("Event %d = %s, want %s", i, events[i].EventID, want.EventID)
		}
	}
}

func TestReplay_OpenStopReplaysEverything(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	seedEvents(t, store, "mission-1", models.LaneParsed, 1_000_000, 1, 7)

	if _, err := e.StartStream("conn-1", replayRequest("mission-1", 0, 0, 0)); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	waitFor(t, 3*time.Second, sink.uiComplete, "replay never completed")

	if got := len(sink.uiEvents()); got != 7 {
		t.Errorf("Delivered %d events, want all 7", got)
	}
}

func TestReplay_ChunkSizeSplits(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, &config.PlaybackConfig{ChunkSize: 5})

	seedEvents(t, store, "mission-1", models.LaneParsed, 1_000_000, 1, 12)

	if _, err := e.StartStream("conn-1", replayRequest("mission-1", 0, 0, 0)); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	waitFor(t, 3*time.Second, sink.uiComplete, "replay never completed")

	total := 0
	for _, ch := range sink.uiChunks() {
		if len(ch.Events) > 5 {
			t.Errorf("Chunk %d carries %d events, want at most 5", ch.Sequence, len(ch.Events))
		}
		total += len(ch.Events)
	}
	if total != 12 {
		t.Errorf("Delivered %d events across chunks, want 12", total)
	}
}

func TestReplay_PacedByRate(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	// Three events 40 ms apart in truth time. At rate 2 the replay
	// spans 40 ms of wall clock from the first release.
	seedEvents(t, store, "mission-1", models.LaneParsed, 1_000_000, 40_000, 3)

	started := time.Now()
	if _, err := e.StartStream("conn-1", replayRequest("mission-1", 0, 0, 2)); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	waitFor(t, 5*time.Second, sink.uiComplete, "paced replay never completed")
	elapsed := time.Since(started)

	if elapsed < 30*time.Millisecond {
		t.Errorf("Paced replay finished in %v, want at least ~40ms of pacing", elapsed)
	}
	if got := len(sink.uiEvents()); got != 3 {
		t.Errorf("Delivered %d events, want 3", got)
	}
}

func TestReplay_SourceTimebasePacing(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	// Canonical times are 1 us apart but source times are 30 ms apart;
	// pacing on the source timebase must honor the source spacing.
	for i := 0; i < 3; i++ {
		ev := testEvent("mission-1", models.LaneParsed, models.Micros(1_000_000+i))
		src := models.Micros(5_000_000 + i*30_000)
		ev.SourceTime = &src
		appendEvent(t, store, ev)
	}

	req := replayRequest("mission-1", 0, 0, 1)
	req.Timebase = models.TimebaseSource
	started := time.Now()
	if _, err := e.StartStream("conn-1", req); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	waitFor(t, 5*time.Second, sink.uiComplete, "replay never completed")

	if elapsed := time.Since(started); elapsed < 45*time.Millisecond {
		t.Errorf("Source-paced replay finished in %v, want at least ~60ms", elapsed)
	}
}

func TestSetRate_AcceleratesReplay(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	// At rate 1 this replay would take six seconds. Switching to
	// unpaced after the first chunk must finish it almost immediately.
	seedEvents(t, store, "mission-1", models.LaneParsed, 1_000_000, 2_000_000, 4)

	if _, err := e.StartStream("conn-1", replayRequest("mission-1", 0, 0, 1)); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool {
		return len(sink.uiEvents()) >= 1
	}, "first event never arrived")

	if err := e.SetRate("conn-1", 0); err != nil {
		t.Fatalf("SetRate failed: %v", err)
	}
	waitFor(t, 3*time.Second, sink.uiComplete, "replay did not accelerate after rate change")

	if got := len(sink.uiEvents()); got != 4 {
		t.Errorf("Delivered %d events, want 4", got)
	}
}

func TestReplay_PartialChunkFlushesOnDeadline(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	// Events 100 ms apart at rate 1 with a 10 ms chunk deadline: each
	// event must flush in its own chunk instead of riding with the
	// next one.
	seedEvents(t, store, "mission-1", models.LaneParsed, 1_000_000, 100_000, 3)

	if _, err := e.StartStream("conn-1", replayRequest("mission-1", 0, 0, 1)); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	waitFor(t, 5*time.Second, sink.uiComplete, "replay never completed")

	chunks := sink.uiChunks()
	carrying := 0
	for _, ch := range chunks {
		if len(ch.Events) > 0 {
			carrying++
			if len(ch.Events) != 1 {
				t.Errorf("Chunk %d carries %d events, want 1 per deadline flush", ch.Sequence, len(ch.Events))
			}
		}
	}
	if carrying != 3 {
		t.Errorf("Got %d carrying chunks, want 3", carrying)
	}
}

func TestBackpressure_CatchUpDropsOldest(t *testing.T) {
	store := setupTestStore(t)
	sink := &captureSink{gate: make(chan struct{})}
	e, err := NewEngine(store, sink, &config.PlaybackConfig{ChunkSize: 1, QueueCapacity: 1})
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}
	t.Cleanup(e.Close)

	if _, err := e.StartStream("conn-1", liveRequest("mission-1")); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}

	// Park the first chunk in the sink so the drain goroutine stops
	// emptying the queue.
	first := testEvent("mission-1", models.LaneParsed, 1_000_000)
	appendEvent(t, store, first)
	waitFor(t, 3*time.Second, func() bool {
		return sink.blockedDeliveries() == 1
	}, "first chunk never reached the sink")

	// Three more single-event chunks against a one-slot queue: catchUp
	// drops the two older ones and keeps only the newest.
	middle := seedEvents(t, store, "mission-1", models.LaneParsed, 2_000_000, 1, 2)
	last := testEvent("mission-1", models.LaneParsed, 3_000_000)
	appendEvent(t, store, last)
	time.Sleep(300 * time.Millisecond)
	sink.open()

	waitFor(t, 3*time.Second, func() bool {
		return containsEvent(sink.uiEvents(), last.EventID)
	}, "newest event never delivered after catch-up")

	events := sink.uiEvents()
	if !containsEvent(events, first.EventID) {
		t.Error("Expected the in-flight first chunk to survive")
	}
	for _, m := range middle {
		if containsEvent(events, m.EventID) {
			t.Errorf("Event %s should have been dropped by catch-up", m.EventID)
		}
	}
	if e.ActiveSessions() != 1 {
		t.Errorf("ActiveSessions = %d, want catch-up session still running", e.ActiveSessions())
	}
}

func TestBackpressure_DisconnectCancelsSession(t *testing.T) {
	store := setupTestStore(t)
	sink := &captureSink{gate: make(chan struct{})}
	e, err := NewEngine(store, sink, &config.PlaybackConfig{
		ChunkSize:           1,
		QueueCapacity:       1,
		DefaultBackpressure: "disconnect",
	})
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}
	t.Cleanup(e.Close)

	if _, err := e.StartStream("conn-1", liveRequest("mission-1")); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}

	// One chunk blocked in the sink, one in the queue; the third
	// overflows and the disconnect policy ends the session.
	seedEvents(t, store, "mission-1", models.LaneParsed, 1_000_000, 1_000_000, 3)

	waitFor(t, 5*time.Second, func() bool {
		return e.ActiveSessions() == 0
	}, "session survived queue overflow under disconnect policy")
	sink.open()
}

func TestRaw_UnboundLiveTail(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	if _, err := e.StartRaw("tcp-1", &models.StreamRequest{ScopeID: "mission-1", FromCursor: dawnCursor}); err != nil {
		t.Fatalf("StartRaw failed: %v", err)
	}

	frame := testEvent("mission-1", models.LaneRaw, 1_000_000)
	appendEvent(t, store, frame)
	appendEvent(t, store, testEvent("mission-1", models.LaneParsed, 1_000_001))

	waitFor(t, 3*time.Second, func() bool {
		return containsEvent(sink.rawEvents(), frame.EventID)
	}, "raw tail never delivered the frame")

	// Raw sessions read only the raw lane and deliver on the raw pipe.
	if got := len(sink.rawEvents()); got != 1 {
		t.Errorf("Raw pipe carried %d events, want 1", got)
	}
	if got := len(sink.uiChunks()); got != 0 {
		t.Errorf("UI pipe carried %d chunks for a raw session, want 0", got)
	}
}

func TestRaw_BoundFollowsInstance(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	// UI instance conn-a tails live; the output stream binds to it.
	if _, err := e.StartStream("conn-a", liveRequest("mission-1")); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	if _, err := e.StartRaw("tcp-1", &models.StreamRequest{
		ScopeID:     "mission-1",
		BoundConnID: "conn-a",
	}); err != nil {
		t.Fatalf("StartRaw failed: %v", err)
	}

	parsed1 := testEvent("mission-1", models.LaneParsed, 1_000_000)
	appendEvent(t, store, parsed1)
	raw1 := testEvent("mission-1", models.LaneRaw, 1_000_001)
	appendEvent(t, store, raw1)

	waitFor(t, 3*time.Second, func() bool {
		return containsEvent(sink.uiEvents(), parsed1.EventID) &&
			containsEvent(sink.rawEvents(), raw1.EventID)
	}, "bound pair never delivered the live events")

	// The instance switches to replay; the bound feed restarts on the
	// new timeline and replays the raw lane over the same window.
	if _, err := e.StartStream("conn-a", replayRequest("mission-1", 1_000_000, 1_000_010, 0)); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	waitFor(t, 3*time.Second, sink.uiComplete, "instance replay never completed")
	waitFor(t, 3*time.Second, sink.rawComplete, "bound raw feed never replayed the window")

	// Cancelling the instance reverts the output stream to live
	// following; a fresh frame must still flow.
	e.CancelStream("conn-a")
	waitFor(t, 3*time.Second, func() bool {
		return store.Notifier().Subscribers("mission-1") == 1
	}, "raw feed never resubscribed after revert to live")
	time.Sleep(50 * time.Millisecond)

	raw2 := testEvent("mission-1", models.LaneRaw, 9_000_000)
	appendEvent(t, store, raw2)
	waitFor(t, 3*time.Second, func() bool {
		return containsEvent(sink.rawEvents(), raw2.EventID)
	}, "unbound raw feed never resumed the live tail")
}

func TestRaw_BoundAdoptsRunningReplay(t *testing.T) {
	store := setupTestStore(t)
	e, sink := setupTestEngine(t, store, nil)

	// Raw frames sit at the start of the window. The parsed lane also
	// has an event far in the future, so the instance's paced replay
	// keeps running long after the raw frames are exhausted.
	seedEvents(t, store, "mission-1", models.LaneRaw, 1_000_000, 1, 5)
	appendEvent(t, store, testEvent("mission-1", models.LaneParsed, 1_000_000))
	appendEvent(t, store, testEvent("mission-1", models.LaneParsed, 600_000_000_000))

	// The instance already replays when the output stream binds; the
	// raw session must adopt the replay window instead of tailing.
	if _, err := e.StartStream("conn-a", replayRequest("mission-1", 1_000_000, 600_000_000_000, 1)); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	if _, err := e.StartRaw("tcp-1", &models.StreamRequest{
		ScopeID:     "mission-1",
		BoundConnID: "conn-a",
	}); err != nil {
		t.Fatalf("StartRaw failed: %v", err)
	}

	waitFor(t, 3*time.Second, sink.rawComplete, "bound raw session never replayed the window")
	if got := len(sink.rawEvents()); got != 5 {
		t.Errorf("Raw replay delivered %d events, want 5", got)
	}
}

func TestReleaseAt_Unpaced(t *testing.T) {
	t.Parallel()
	s := &session{}
	s.resetPace(0)

	if got := s.releaseAt(5_000_000); !got.IsZero() {
		t.Errorf("releaseAt = %v, want zero time for unpaced session", got)
	}
}

func TestReleaseAt_BasePinnedToFirstEvent(t *testing.T) {
	t.Parallel()
	s := &session{}
	s.resetPace(2)

	first := s.releaseAt(10_000_000)
	if d := time.Until(first); d > 50*time.Millisecond || d < -50*time.Millisecond {
		t.Errorf("First release %v from now, want immediate", d)
	}

	// One second of truth at rate 2 is half a second of wall clock,
	// measured from the same base.
	second := s.releaseAt(11_000_000)
	if got := second.Sub(first); got != 500*time.Millisecond {
		t.Errorf("Release spacing = %v, want 500ms", got)
	}
}

func TestSetRate_RebasesAtCurrentPosition(t *testing.T) {
	t.Parallel()
	s := &session{rateCh: make(chan struct{}, 1)}
	s.resetPace(1)

	s.releaseAt(10_000_000)
	s.setRate(4)

	// Eight seconds of truth at rate 4 is two seconds of wall clock
	// from the rebase point.
	target := s.releaseAt(18_000_000)
	if d := time.Until(target); d < 1800*time.Millisecond || d > 2200*time.Millisecond {
		t.Errorf("Release %v from now, want about 2s after rebase", d)
	}
}

func TestPaceTime(t *testing.T) {
	t.Parallel()

	src := models.Micros(4_000_000)
	withSource := &models.Event{CanonicalTime: 9_000_000, SourceTime: &src}
	withoutSource := &models.Event{CanonicalTime: 9_000_000}

	if got := paceTime(withSource, models.TimebaseSource); got != 4_000_000 {
		t.Errorf("paceTime(source) = %d, want source time", got)
	}
	if got := paceTime(withSource, models.TimebaseCanonical); got != 9_000_000 {
		t.Errorf("paceTime(canonical) = %d, want canonical time", got)
	}
	if got := paceTime(withoutSource, models.TimebaseSource); got != 9_000_000 {
		t.Errorf("paceTime(source, no source time) = %d, want canonical fallback", got)
	}
}
