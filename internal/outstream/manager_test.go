// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package outstream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

func freeTCPPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close() //nolint:errcheck,gosec // Probe only
	return port
}

func newTestManager(t *testing.T) (*Manager, *fakeFeed) {
	t.Helper()
	feed := newFakeFeed()
	mgr := NewManager(newTestDefs(t), feed)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		mgr.Stop()
		cancel()
	})
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return mgr, feed
}

func TestTCPStreamDeliversToConnectedClient(t *testing.T) {
	mgr, feed := newTestManager(t)

	def := testDef("tcp-out", models.ProtocolTCP, strconv.Itoa(freeTCPPort(t)))
	def.Enabled = true
	created, err := mgr.Create(def)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	conn, err := net.DialTimeout("tcp", "127.0.0.1:"+created.Endpoint, 2*time.Second)
	if err != nil {
		t.Fatalf("dial stream: %v", err)
	}
	defer conn.Close() //nolint:errcheck // Test cleanup

	feed.waitStart(t)
	feed.push("outstream:"+created.StreamID, &models.EventChunk{
		Sequence: 1,
		Events:   []*models.Event{testEvent()},
	})

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read stream line: %v", err)
	}
	if !strings.Contains(line, `"s":"gnss"`) {
		t.Errorf("stream line = %q", line)
	}

	status, err := mgr.Status(created.StreamID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running {
		t.Error("stream not reported running")
	}
}

func TestUDPStreamSendsDatagrams(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	defer pc.Close() //nolint:errcheck // Test cleanup

	mgr, feed := newTestManager(t)
	def := testDef("udp-out", models.ProtocolUDP, pc.LocalAddr().String())
	def.Enabled = true
	created, err := mgr.Create(def)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// UDP has no accept step: the feed opens with the server.
	feed.waitStart(t)
	feed.push("outstream:"+created.StreamID, &models.EventChunk{
		Sequence: 1,
		Events:   []*models.Event{testEvent()},
	})

	if err := pc.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	buf := make([]byte, 64*1024)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read datagram: %v", err)
	}
	if !strings.Contains(string(buf[:n]), `"u":"ant1"`) {
		t.Errorf("datagram = %q", buf[:n])
	}
}

func TestWebSocketStreamServesMountedPath(t *testing.T) {
	mgr, feed := newTestManager(t)

	def := testDef("ws-out", models.ProtocolWebSocket, "feed")
	def.Enabled = true
	created, err := mgr.Create(def)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/streams/ws/")
		if serr := mgr.ServeWS(path, w, r); serr != nil {
			http.Error(w, serr.Error(), nverr.HTTPStatus(serr))
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/streams/ws/feed"
	sock, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	if resp != nil {
		resp.Body.Close() //nolint:errcheck,gosec // Test cleanup
	}
	defer sock.Close() //nolint:errcheck // Test cleanup

	feed.waitStart(t)
	feed.push("outstream:"+created.StreamID, &models.EventChunk{
		Sequence: 1,
		Events:   []*models.Event{testEvent()},
	})

	if err := sock.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	_, data, err := sock.ReadMessage()
	if err != nil {
		t.Fatalf("read ws message: %v", err)
	}
	if !strings.Contains(string(data), `"c":"rx0"`) {
		t.Errorf("ws message = %q", data)
	}

	// Unknown paths are refused before any upgrade.
	if serr := mgr.ServeWS("nope", httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/streams/ws/nope", nil)); !errors.Is(serr, nverr.ErrNotFound) {
		t.Errorf("unknown path err = %v", serr)
	}
}

func TestDisabledStreamDoesNotStart(t *testing.T) {
	mgr, _ := newTestManager(t)

	def := testDef("idle", models.ProtocolTCP, strconv.Itoa(freeTCPPort(t)))
	created, err := mgr.Create(def)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	status, err := mgr.Status(created.StreamID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running {
		t.Error("disabled stream reported running")
	}

	if _, err := net.DialTimeout("tcp", "127.0.0.1:"+created.Endpoint, 200*time.Millisecond); err == nil {
		t.Error("disabled stream accepted a connection")
	}
}

func TestSetEnabledStartsAndStopsRuntime(t *testing.T) {
	mgr, _ := newTestManager(t)

	def := testDef("toggle", models.ProtocolTCP, strconv.Itoa(freeTCPPort(t)))
	created, err := mgr.Create(def)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := mgr.SetEnabled(created.StreamID, true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	conn, err := net.DialTimeout("tcp", "127.0.0.1:"+created.Endpoint, 2*time.Second)
	if err != nil {
		t.Fatalf("dial enabled stream: %v", err)
	}
	conn.Close() //nolint:errcheck,gosec // Test cleanup

	if _, err := mgr.SetEnabled(created.StreamID, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	status, err := mgr.Status(created.StreamID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running {
		t.Error("disabled stream still running")
	}
}

func TestBindRequiresRunningStream(t *testing.T) {
	mgr, feed := newTestManager(t)

	def := testDef("bindable", models.ProtocolTCP, strconv.Itoa(freeTCPPort(t)))
	created, err := mgr.Create(def)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mgr.Bind(created.StreamID, "conn-1"); !errors.Is(err, nverr.ErrConflict) {
		t.Fatalf("Bind stopped stream err = %v, want conflict", err)
	}
	if err := mgr.Bind("missing", "conn-1"); !errors.Is(err, nverr.ErrNotFound) {
		t.Fatalf("Bind unknown stream err = %v, want not found", err)
	}

	if _, err := mgr.SetEnabled(created.StreamID, true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := mgr.Bind(created.StreamID, "conn-1"); err != nil {
		t.Fatalf("Bind running stream: %v", err)
	}

	// Binding with no consumer leaves the feed closed; the bound conn
	// takes effect when the first consumer opens it.
	conn, err := net.DialTimeout("tcp", "127.0.0.1:"+created.Endpoint, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close() //nolint:errcheck // Test cleanup
	if req := feed.waitStart(t); req.BoundConnID != "conn-1" {
		t.Errorf("feed request bound to %q, want conn-1", req.BoundConnID)
	}
}

func TestUnbindConnReleasesBoundStreams(t *testing.T) {
	mgr, feed := newTestManager(t)

	def := testDef("released", models.ProtocolTCP, strconv.Itoa(freeTCPPort(t)))
	def.Enabled = true
	created, err := mgr.Create(def)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	conn, err := net.DialTimeout("tcp", "127.0.0.1:"+created.Endpoint, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close() //nolint:errcheck // Test cleanup
	feed.waitStart(t)

	if err := mgr.Bind(created.StreamID, "conn-9"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if req := feed.waitStart(t); req.BoundConnID != "conn-9" {
		t.Fatalf("bound request = %+v", req)
	}

	mgr.UnbindConn("conn-9")
	if req := feed.waitStart(t); req.BoundConnID != "" {
		t.Fatalf("after UnbindConn feed still bound to %q", req.BoundConnID)
	}

	status, err := mgr.Status(created.StreamID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.BoundConnID != "" {
		t.Errorf("status still bound to %q", status.BoundConnID)
	}
}

func TestCreateProbesTCPEndpoint(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("occupy port: %v", err)
	}
	defer ln.Close() //nolint:errcheck // Test cleanup
	port := ln.Addr().(*net.TCPAddr).Port

	mgr, _ := newTestManager(t)
	def := testDef("busy", models.ProtocolTCP, strconv.Itoa(port))
	_, err = mgr.Create(def)
	if !errors.Is(err, nverr.ErrEndpointConflict) {
		t.Fatalf("Create on busy port err = %v, want endpoint conflict", err)
	}
}

func TestDeleteStopsRuntime(t *testing.T) {
	mgr, _ := newTestManager(t)

	def := testDef("doomed", models.ProtocolTCP, strconv.Itoa(freeTCPPort(t)))
	def.Enabled = true
	created, err := mgr.Create(def)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	endpoint := created.Endpoint

	if err := mgr.Delete(created.StreamID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := mgr.Status(created.StreamID); !errors.Is(err, nverr.ErrNotFound) {
		t.Fatalf("Status after delete err = %v, want not found", err)
	}
	if _, err := net.DialTimeout("tcp", "127.0.0.1:"+endpoint, 200*time.Millisecond); err == nil {
		t.Error("deleted stream still accepting connections")
	}
}

func TestStartBringsUpEnabledDefinitions(t *testing.T) {
	feed := newFakeFeed()
	defs := newTestDefs(t)

	port := freeTCPPort(t)
	def := testDef("boot", models.ProtocolTCP, strconv.Itoa(port))
	def.Enabled = true
	if _, err := defs.Create(def); err != nil {
		t.Fatalf("seed definition: %v", err)
	}

	mgr := NewManager(defs, feed)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 2*time.Second)
	if err != nil {
		t.Fatalf("dial booted stream: %v", err)
	}
	conn.Close() //nolint:errcheck,gosec // Test cleanup
}
