// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/nova-telemetry/nova/internal/logging"
)

// Hub tracks the connected UI clients and fans broadcast frames out to
// all of them. Point-to-point frames go through Conn.Send directly;
// only chat and presentation updates travel through the hub.
type Hub struct {
	clients    map[*Conn]bool
	broadcast  chan *Outbound
	register   chan *Conn
	unregister chan *Conn
	mu         sync.RWMutex
}

// NewHub creates an empty hub. Run it under the supervisor.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Conn]bool),
		broadcast:  make(chan *Outbound, 256),
		register:   make(chan *Conn),
		unregister: make(chan *Conn),
	}
}

// Run processes lifecycle and broadcast events until the context ends,
// then closes every client. Lifecycle events take priority over
// broadcasts so registration state is settled before fan-out.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case c := <-h.register:
			h.add(c)
			continue
		case c := <-h.unregister:
			h.remove(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) add(c *Conn) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	logging.Info().
		Str("conn_id", c.ID()).
		Str("username", c.Username()).
		Int("total_clients", n).
		Msg("websocket client connected")
}

func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	n := len(h.clients)
	h.mu.Unlock()
	logging.Info().
		Str("conn_id", c.ID()).
		Int("total_clients", n).
		Msg("websocket client disconnected")
}

// fanOut delivers one frame to every client in connId order. Clients
// whose queue is full are dropped: a UI that cannot keep up with chat
// volume will not keep up with stream chunks either.
func (h *Hub) fanOut(msg *Outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := make([]*Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].id < conns[j].id })

	var drop []*Conn
	for _, c := range conns {
		select {
		case c.send <- msg:
		default:
			drop = append(drop, c)
		}
	}
	for _, c := range drop {
		c.close()
		delete(h.clients, c)
		logging.Warn().Str("conn_id", c.ID()).Msg("dropping client with full send queue")
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].id < conns[j].id })
	for _, c := range conns {
		c.close()
		delete(h.clients, c)
	}
	h.mu.Unlock()

	logging.Info().
		Str("component", "websocket-hub").
		AnErr("reason", ctx.Err()).
		Int("clients_closed", len(conns)).
		Msg("websocket hub stopped")
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *Conn) {
	h.register <- c
}

// Unregister removes a connection. Safe to call for connections the
// hub never saw or already removed.
func (h *Hub) Unregister(c *Conn) {
	h.unregister <- c
}

// BroadcastChat mirrors an ingested chat message to every client.
func (h *Hub) BroadcastChat(msg *ChatBroadcast) {
	h.offer(&Outbound{Type: TypeChat, Data: msg})
}

// BroadcastPresentationUpdate announces a presentation change so other
// clients can refresh their resolved view.
func (h *Hub) BroadcastPresentationUpdate(update any) {
	h.offer(&Outbound{Type: TypePresentationUpdate, Data: update})
}

func (h *Hub) offer(msg *Outbound) {
	select {
	case h.broadcast <- msg:
	default:
		logging.Warn().Str("message_type", msg.Type).Msg("broadcast queue full, dropping frame")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
