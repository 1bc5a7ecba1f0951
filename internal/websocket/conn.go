// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package websocket

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/nova-telemetry/nova/internal/auth"
	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB

	sendQueueSize = 256

	// Dispatch runs a goroutine per inbound frame, so the per-connection
	// limiter is what bounds fan-out from a single socket.
	inboundRate  = rate.Limit(50)
	inboundBurst = 100
)

// Conn is one authenticated UI connection. Its id doubles as the IPC
// connId, so chunk subjects and playback sessions key off it directly.
//
// Several goroutines enqueue frames: dispatch goroutines, the IPC chunk
// callback and the hub. The send channel is therefore never closed;
// teardown closes done instead and the write pump drains out.
type Conn struct {
	id     string
	hub    *Hub
	sock   *websocket.Conn
	claims *auth.Claims

	send      chan *Outbound
	done      chan struct{}
	closeOnce sync.Once
	limiter   *rate.Limiter

	// handle is the gateway's dispatch entry; onClose runs once when the
	// read pump exits, before the hub forgets the connection.
	handle  func(c *Conn, in *Inbound)
	onClose func(c *Conn)

	// mu guards the playback session state the edge fences chunks with.
	mu               sync.Mutex
	opMu             sync.Mutex
	activePlaybackID string
	timelineMode     models.PlaybackMode
}

func newConn(hub *Hub, sock *websocket.Conn, claims *auth.Claims) *Conn {
	return &Conn{
		id:           uuid.NewString(),
		hub:          hub,
		sock:         sock,
		claims:       claims,
		send:         make(chan *Outbound, sendQueueSize),
		done:         make(chan struct{}),
		limiter:      rate.NewLimiter(inboundRate, inboundBurst),
		timelineMode: models.ModeLive,
	}
}

// ID returns the connection id.
func (c *Conn) ID() string {
	return c.id
}

// Username returns the authenticated username.
func (c *Conn) Username() string {
	return c.claims.Username
}

// Role returns the authenticated role.
func (c *Conn) Role() string {
	return c.claims.Role
}

// Mode returns the connection's current timeline mode. It is replay
// exactly while a REPLAY session is active.
func (c *Conn) Mode() models.PlaybackMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timelineMode
}

// beginSession installs the fencing id before the start request is
// issued, so chunks arriving ahead of the ACK already pass the fence.
func (c *Conn) beginSession(playbackID string, mode models.PlaybackMode) {
	c.mu.Lock()
	c.activePlaybackID = playbackID
	c.timelineMode = mode
	c.mu.Unlock()
}

// endSession clears the session state and returns the id it replaced.
func (c *Conn) endSession() string {
	c.mu.Lock()
	prev := c.activePlaybackID
	c.activePlaybackID = ""
	c.timelineMode = models.ModeLive
	c.mu.Unlock()
	return prev
}

// endSessionIf rolls back a failed start, but only when no newer
// session has claimed the connection in the meantime.
func (c *Conn) endSessionIf(playbackID string) {
	c.mu.Lock()
	if c.activePlaybackID == playbackID {
		c.activePlaybackID = ""
		c.timelineMode = models.ModeLive
	}
	c.mu.Unlock()
}

// deliverChunk is the IPC chunk handler. Chunks carrying a fencing id
// other than the active one belong to a replaced or canceled session
// and are dropped without notice. Must not block; Send never does.
func (c *Conn) deliverChunk(chunk *models.EventChunk) {
	c.mu.Lock()
	active := c.activePlaybackID
	c.mu.Unlock()
	if chunk.PlaybackRequestID != active {
		return
	}

	if len(chunk.Events) > 0 {
		c.Send(&Outbound{Type: TypeStreamChunk, Data: chunk})
	}
	if chunk.Complete {
		c.endSessionIf(chunk.PlaybackRequestID)
		c.Send(&Outbound{Type: TypeStreamComplete, Data: &StreamCompleteInfo{
			PlaybackRequestID: chunk.PlaybackRequestID,
			Sequence:          chunk.Sequence,
		}})
	}
}

// Send enqueues one frame without blocking. A full queue means the
// client stopped draining; the connection is torn down rather than
// stalling the caller, which may be the NATS delivery goroutine.
func (c *Conn) Send(msg *Outbound) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- msg:
	default:
		logging.Warn().
			Str("conn_id", c.id).
			Str("message_type", msg.Type).
			Msg("send queue full, closing connection")
		c.close()
	}
}

// SendError enqueues an error frame correlated to a request.
func (c *Conn) SendError(requestID string, err error) {
	metrics.WSErrors.WithLabelValues(string(nverr.KindOf(err))).Inc()
	c.Send(&Outbound{Type: TypeError, RequestID: requestID, Error: nverr.ToWire(err)})
}

// close signals teardown exactly once. The write pump sees done close,
// sends a close frame and releases the socket; the read pump then
// errors out and runs the cleanup chain.
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Start launches both pumps.
func (c *Conn) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		c.close()
		if c.onClose != nil {
			c.onClose(c)
		}
		c.hub.Unregister(c)
		_ = c.sock.Close() //nolint:errcheck // Best-effort cleanup
	}()

	c.sock.SetReadLimit(maxMessageSize)
	if err := c.sock.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("conn_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		metrics.WSMessagesReceived.Inc()

		// Checked before the decode so a flood costs nothing but the
		// counter. Responses still flow; only inbound work is shed.
		if !c.limiter.Allow() {
			c.SendError("", nverr.New(nverr.KindRateLimited, "inbound message rate exceeded"))
			continue
		}

		in := &Inbound{}
		if err := json.Unmarshal(raw, in); err != nil {
			c.SendError("", nverr.Wrap(nverr.KindSchema, "malformed message", err))
			continue
		}
		if c.handle != nil {
			// Each message dispatches on its own goroutine so a slow
			// query or export never blocks a cancelStream behind it.
			go c.handle(c, in)
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.sock.Close() //nolint:errcheck // Best-effort cleanup
	}()

	for {
		select {
		case <-c.done:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // Close path
			_ = c.sock.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.send:
			if err := c.sock.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logging.Error().Err(err).Str("message_type", msg.Type).Msg("failed to encode frame")
				continue
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			metrics.WSMessagesSent.Inc()

		case <-ticker.C:
			if err := c.sock.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
