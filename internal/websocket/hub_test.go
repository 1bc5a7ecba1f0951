// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/nova-telemetry/nova/internal/models"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc, chan error) {
	t.Helper()
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	return h, cancel, done
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", h.ClientCount(), want)
}

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	h, cancel, done := startHub(t)
	defer cancel()

	c1 := newConn(h, nil, testClaims(models.RoleViewer, "alpha"))
	c2 := newConn(h, nil, testClaims(models.RoleViewer, "alpha"))
	h.Register(c1)
	h.Register(c2)
	waitForClients(t, h, 2)

	h.BroadcastChat(&ChatBroadcast{Username: "avery", Text: "hi"})

	for _, c := range []*Conn{c1, c2} {
		select {
		case msg := <-c.send:
			if msg.Type != TypeChat {
				t.Errorf("frame type = %q, want %q", msg.Type, TypeChat)
			}
		case <-time.After(time.Second):
			t.Fatalf("conn %s never received the broadcast", c.ID())
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
}

func TestHubDropsClientWithFullQueue(t *testing.T) {
	h, cancel, done := startHub(t)
	defer cancel()

	stuck := newConn(h, nil, testClaims(models.RoleViewer, "alpha"))
	for i := 0; i < sendQueueSize; i++ {
		stuck.send <- &Outbound{Type: TypeChat}
	}
	healthy := newConn(h, nil, testClaims(models.RoleViewer, "alpha"))

	h.Register(stuck)
	h.Register(healthy)
	waitForClients(t, h, 2)

	h.BroadcastPresentationUpdate(map[string]string{"reason": "test"})
	waitForClients(t, h, 1)

	select {
	case <-stuck.done:
	default:
		t.Error("stuck connection was not torn down")
	}

	select {
	case msg := <-healthy.send:
		if msg.Type != TypePresentationUpdate {
			t.Errorf("frame type = %q, want %q", msg.Type, TypePresentationUpdate)
		}
	case <-time.After(time.Second):
		t.Fatal("healthy conn never received the broadcast")
	}

	cancel()
	<-done
}

func TestHubShutdownClosesClients(t *testing.T) {
	h, cancel, done := startHub(t)

	c := newConn(h, nil, testClaims(models.RoleViewer, "alpha"))
	h.Register(c)
	waitForClients(t, h, 1)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	select {
	case <-c.done:
	default:
		t.Error("client was not closed on shutdown")
	}
	if h.ClientCount() != 0 {
		t.Errorf("client count after shutdown = %d, want 0", h.ClientCount())
	}
}

func TestSendOverflowTearsDownConnection(t *testing.T) {
	c := newConn(NewHub(), nil, testClaims(models.RoleViewer, "alpha"))
	for i := 0; i < sendQueueSize; i++ {
		c.send <- &Outbound{Type: TypeChat}
	}

	c.Send(&Outbound{Type: TypeStreamChunk})

	select {
	case <-c.done:
	default:
		t.Error("overflowing Send did not close the connection")
	}

	// Enqueueing after teardown is a no-op, not a panic.
	c.Send(&Outbound{Type: TypeChat})
}
