// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package outstream

import (
	"context"
	"fmt"
	"net"

	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/models"
)

// udpServer pushes datagrams at the definition's host:port. There is
// no accept step: the destination is the single implicit client, so
// the feed opens with the server.
type udpServer struct {
	sess     *session
	endpoint string
	conn     *net.UDPConn
}

func newUDPServer(def *models.StreamDefinition, core Feed) *udpServer {
	return &udpServer{sess: newSession(def, core), endpoint: def.Endpoint}
}

func (u *udpServer) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", u.endpoint)
	if err != nil {
		return fmt.Errorf("resolve udp endpoint %s: %w", u.endpoint, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("dial udp %s: %w", u.endpoint, err)
	}
	u.conn = conn

	u.sess.start(ctx)
	u.sess.addClient(newClient(u.sess, u.endpoint,
		func(data []byte) error {
			_, werr := conn.Write(data)
			return werr
		},
		nil))
	logging.Info().
		Str("stream_id", u.sess.def.StreamID).
		Str("endpoint", u.endpoint).
		Msg("UDP output stream sending")
	return nil
}

func (u *udpServer) Stop() {
	u.sess.stop()
	if u.conn != nil {
		u.conn.Close() //nolint:errcheck,gosec // Shutting down
	}
}

func (u *udpServer) BindToTimeline(connID string)     { u.sess.bind(connID) }
func (u *udpServer) UnbindFromTimeline(connID string) { u.sess.unbind(connID) }
func (u *udpServer) Status() models.StreamStatus      { return u.sess.status() }
