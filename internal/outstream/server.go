// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package outstream

import (
	"context"
	"strconv"
	"time"

	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// writeTimeout bounds a single client write on every transport.
const writeTimeout = 10 * time.Second

// Server is one running output stream. Start opens the transport and
// Stop releases it; binding redirects the feed to a UI instance's
// cursor and back.
type Server interface {
	Start(ctx context.Context) error
	Stop()
	BindToTimeline(connID string)
	UnbindFromTimeline(connID string)
	Status() models.StreamStatus
}

// newServer builds the protocol-specific server for a definition.
func newServer(def *models.StreamDefinition, core Feed) (Server, error) {
	switch def.Protocol {
	case models.ProtocolTCP:
		port, err := strconv.Atoi(def.Endpoint)
		if err != nil {
			return nil, nverr.Newf(nverr.KindSchema, "tcp endpoint %q is not a port", def.Endpoint)
		}
		return newTCPServer(def, core, port), nil
	case models.ProtocolWebSocket:
		return newWSServer(def, core), nil
	case models.ProtocolUDP:
		return newUDPServer(def, core), nil
	default:
		return nil, nverr.Newf(nverr.KindSchema, "unknown protocol %q", def.Protocol)
	}
}
