// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package outstream

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// wsUpgrader mirrors the UI socket's upgrade settings. Output streams
// are consumed by tools, not browsers, so any origin may connect.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin:      func(*http.Request) bool { return true },
}

// wsServer serves one WebSocket output stream. It owns no listener:
// the HTTP router mounts it under /streams/ws/{path} and forwards
// upgrades through HandleUpgrade.
type wsServer struct {
	sess *session
	path string
}

func newWSServer(def *models.StreamDefinition, core Feed) *wsServer {
	return &wsServer{sess: newSession(def, core), path: def.Endpoint}
}

func (w *wsServer) Start(ctx context.Context) error {
	w.sess.start(ctx)
	logging.Info().
		Str("stream_id", w.sess.def.StreamID).
		Str("path", w.path).
		Msg("WebSocket output stream mounted")
	return nil
}

func (w *wsServer) Stop() {
	w.sess.stop()
}

func (w *wsServer) BindToTimeline(connID string)     { w.sess.bind(connID) }
func (w *wsServer) UnbindFromTimeline(connID string) { w.sess.unbind(connID) }
func (w *wsServer) Status() models.StreamStatus      { return w.sess.status() }

// Path returns the mounted URL path segment.
func (w *wsServer) Path() string { return w.path }

// HandleUpgrade admits one WebSocket consumer. Raw byte streams ride
// binary frames; JSON-lines formats ride text frames.
func (w *wsServer) HandleUpgrade(rw http.ResponseWriter, r *http.Request) error {
	if !w.sess.running.Load() {
		return nverr.Newf(nverr.KindNotFound, "output stream %s is not running", w.sess.def.StreamID)
	}
	sock, err := wsUpgrader.Upgrade(rw, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return nil
	}

	messageType := websocket.TextMessage
	if w.sess.def.Lane == models.LaneRaw && w.sess.def.OutputFormat == models.FormatPayloadOnly {
		messageType = websocket.BinaryMessage
	}

	c := newClient(w.sess, r.RemoteAddr,
		func(data []byte) error {
			if err := sock.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return err
			}
			return sock.WriteMessage(messageType, data)
		},
		func() {
			sock.Close() //nolint:errcheck,gosec // Best effort
		})

	// Consumers never send data frames; the reader exists to process
	// control frames and notice the close.
	go func() {
		for {
			if _, _, rerr := sock.ReadMessage(); rerr != nil {
				c.close()
				return
			}
		}
	}()

	w.sess.addClient(c)
	return nil
}
