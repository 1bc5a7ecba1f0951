// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package outstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/models"
)

// tcpServer listens on the definition's port and feeds each accepted
// connection from the shared session.
type tcpServer struct {
	sess *session
	port int

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

func newTCPServer(def *models.StreamDefinition, core Feed, port int) *tcpServer {
	return &tcpServer{sess: newSession(def, core), port: port}
}

func (t *tcpServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("listen tcp :%d: %w", t.port, err)
	}

	t.mu.Lock()
	t.ln = ln
	t.mu.Unlock()
	t.sess.start(ctx)

	t.wg.Add(1)
	go t.acceptLoop(ln)
	logging.Info().
		Str("stream_id", t.sess.def.StreamID).
		Int("port", t.port).
		Msg("TCP output stream listening")
	return nil
}

func (t *tcpServer) acceptLoop(ln net.Listener) {
	defer t.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logging.Warn().Err(err).Str("stream_id", t.sess.def.StreamID).Msg("TCP accept failed")
			time.Sleep(100 * time.Millisecond)
			continue
		}
		t.sess.addClient(newNetClient(t.sess, conn))
	}
}

func (t *tcpServer) Stop() {
	t.mu.Lock()
	ln := t.ln
	t.ln = nil
	t.mu.Unlock()

	if ln != nil {
		ln.Close() //nolint:errcheck,gosec // Shutting down
	}
	t.sess.stop()
	t.wg.Wait()
}

func (t *tcpServer) BindToTimeline(connID string)     { t.sess.bind(connID) }
func (t *tcpServer) UnbindFromTimeline(connID string) { t.sess.unbind(connID) }
func (t *tcpServer) Status() models.StreamStatus      { return t.sess.status() }

// newNetClient wraps a stream-oriented net.Conn as a session client
// with a per-write deadline.
func newNetClient(sess *session, conn net.Conn) *client {
	return newClient(sess, conn.RemoteAddr().String(),
		func(data []byte) error {
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return err
			}
			_, err := conn.Write(data)
			return err
		},
		func() {
			conn.Close() //nolint:errcheck,gosec // Best effort
		})
}
