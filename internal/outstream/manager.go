// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package outstream

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// throughputInterval paces the periodic per-stream throughput log.
const throughputInterval = time.Minute

// Manager owns the definition store and the running servers. All
// lifecycle transitions go through it so a definition and its runtime
// state never disagree for long.
type Manager struct {
	defs *DefinitionStore
	core Feed

	mu       sync.Mutex
	ctx      context.Context
	servers  map[string]Server
	wsPaths  map[string]*wsServer
	lastErrs map[string]string
}

func NewManager(defs *DefinitionStore, core Feed) *Manager {
	return &Manager{
		defs:     defs,
		core:     core,
		servers:  make(map[string]Server),
		wsPaths:  make(map[string]*wsServer),
		lastErrs: make(map[string]string),
	}
}

// Start brings up every enabled stream. A stream that fails to start
// is logged and left stopped; it never takes the rest down.
func (m *Manager) Start(ctx context.Context) error {
	defs, err := m.defs.List()
	if err != nil {
		return fmt.Errorf("load stream definitions: %w", err)
	}

	m.mu.Lock()
	m.ctx = ctx
	for _, def := range defs {
		if !def.Enabled {
			continue
		}
		if serr := m.startServerLocked(def); serr != nil {
			logging.Warn().Err(serr).Str("stream_id", def.StreamID).Msg("Output stream failed to start")
		}
	}
	running := len(m.servers)
	m.mu.Unlock()

	go m.throughputLoop(ctx)
	logging.Info().Int("running", running).Int("defined", len(defs)).Msg("Output stream manager started")
	return nil
}

// Stop halts every running stream.
func (m *Manager) Stop() {
	m.mu.Lock()
	servers := m.servers
	m.servers = make(map[string]Server)
	m.wsPaths = make(map[string]*wsServer)
	m.mu.Unlock()

	for id, srv := range servers {
		srv.Stop()
		logging.Debug().Str("stream_id", id).Msg("Output stream stopped")
	}
}

// Create validates, probes the endpoint, persists, and starts the
// stream when it is enabled.
func (m *Manager) Create(def *models.StreamDefinition) (*models.StreamDefinition, error) {
	stored, err := m.defs.Create(def)
	if err != nil {
		return nil, err
	}
	if perr := probeEndpoint(stored); perr != nil {
		// The endpoint is syntactically valid but unusable now; keep
		// the definition and report, mirroring a later bind failure.
		m.mu.Lock()
		m.lastErrs[stored.StreamID] = perr.Error()
		m.mu.Unlock()
		return stored, perr
	}

	if stored.Enabled {
		m.mu.Lock()
		defer m.mu.Unlock()
		if serr := m.startServerLocked(stored); serr != nil {
			return stored, serr
		}
	}
	return stored, nil
}

// Update replaces a definition, restarting its runtime when needed.
func (m *Manager) Update(id string, def *models.StreamDefinition) (*models.StreamDefinition, error) {
	if def == nil {
		return nil, nverr.New(nverr.KindSchema, "stream definition is required")
	}
	def.StreamID = id

	prev, err := m.defs.Get(id)
	if err != nil {
		return nil, err
	}

	stored, err := m.defs.Update(def)
	if err != nil {
		return nil, err
	}
	if prev.Protocol != stored.Protocol || prev.Endpoint != stored.Endpoint {
		if perr := probeEndpoint(stored); perr != nil {
			m.mu.Lock()
			m.lastErrs[stored.StreamID] = perr.Error()
			m.mu.Unlock()
			return stored, perr
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopServerLocked(id)
	if stored.Enabled {
		if serr := m.startServerLocked(stored); serr != nil {
			return stored, serr
		}
	}
	return stored, nil
}

// Delete stops and removes a stream.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	m.stopServerLocked(id)
	delete(m.lastErrs, id)
	m.mu.Unlock()
	return m.defs.Delete(id)
}

// SetEnabled flips just the enabled flag, starting or stopping the
// runtime to match.
func (m *Manager) SetEnabled(id string, enabled bool) (*models.StreamDefinition, error) {
	def, err := m.defs.Get(id)
	if err != nil {
		return nil, err
	}
	def.Enabled = enabled
	stored, err := m.defs.Update(def)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if enabled {
		if _, running := m.servers[id]; !running {
			if serr := m.startServerLocked(stored); serr != nil {
				return stored, serr
			}
		}
	} else {
		m.stopServerLocked(id)
	}
	return stored, nil
}

// Get returns one definition.
func (m *Manager) Get(id string) (*models.StreamDefinition, error) {
	return m.defs.Get(id)
}

// List returns all definitions.
func (m *Manager) List() ([]*models.StreamDefinition, error) {
	return m.defs.List()
}

// Status reports the runtime state of a stream. Stopped streams
// report zeroed counters plus the last start failure, if any.
func (m *Manager) Status(id string) (models.StreamStatus, error) {
	m.mu.Lock()
	srv, running := m.servers[id]
	lastErr := m.lastErrs[id]
	m.mu.Unlock()

	if running {
		return srv.Status(), nil
	}
	def, err := m.defs.Get(id)
	if err != nil {
		return models.StreamStatus{}, err
	}
	return models.StreamStatus{StreamID: def.StreamID, LastError: lastErr}, nil
}

// Bind points a running stream at a UI instance's timeline.
func (m *Manager) Bind(streamID, connID string) error {
	m.mu.Lock()
	srv, running := m.servers[streamID]
	m.mu.Unlock()
	if !running {
		if _, err := m.defs.Get(streamID); err != nil {
			return err
		}
		return nverr.Newf(nverr.KindConflict, "stream %s is not running", streamID)
	}
	srv.BindToTimeline(connID)
	return nil
}

// Unbind reverts a stream to LIVE-follow regardless of who bound it.
func (m *Manager) Unbind(streamID string) error {
	m.mu.Lock()
	srv, running := m.servers[streamID]
	m.mu.Unlock()
	if !running {
		if _, err := m.defs.Get(streamID); err != nil {
			return err
		}
		return nil
	}
	if bound := srv.Status().BoundConnID; bound != "" {
		srv.UnbindFromTimeline(bound)
	}
	return nil
}

// UnbindConn releases every stream bound to a departed UI connection.
// The WebSocket gateway calls this from its disconnect path.
func (m *Manager) UnbindConn(connID string) {
	m.mu.Lock()
	servers := make([]Server, 0, len(m.servers))
	for _, srv := range m.servers {
		servers = append(servers, srv)
	}
	m.mu.Unlock()

	for _, srv := range servers {
		srv.UnbindFromTimeline(connID)
	}
}

// ServeWS forwards an HTTP upgrade to the WebSocket stream mounted at
// the given path segment.
func (m *Manager) ServeWS(path string, w http.ResponseWriter, r *http.Request) error {
	m.mu.Lock()
	srv, ok := m.wsPaths[path]
	m.mu.Unlock()
	if !ok {
		return nverr.Newf(nverr.KindNotFound, "no output stream at path %q", path)
	}
	return srv.HandleUpgrade(w, r)
}

func (m *Manager) startServerLocked(def *models.StreamDefinition) error {
	if m.ctx == nil {
		return nil // Not started yet; Start will bring it up.
	}
	if _, running := m.servers[def.StreamID]; running {
		return nil
	}

	srv, err := newServer(def, m.core)
	if err != nil {
		m.lastErrs[def.StreamID] = err.Error()
		return err
	}
	if err := srv.Start(m.ctx); err != nil {
		m.lastErrs[def.StreamID] = err.Error()
		return err
	}
	m.servers[def.StreamID] = srv
	delete(m.lastErrs, def.StreamID)
	if ws, ok := srv.(*wsServer); ok {
		m.wsPaths[ws.Path()] = ws
	}
	return nil
}

func (m *Manager) stopServerLocked(id string) {
	srv, running := m.servers[id]
	if !running {
		return
	}
	delete(m.servers, id)
	if ws, ok := srv.(*wsServer); ok {
		delete(m.wsPaths, ws.Path())
	}
	srv.Stop()
}

func (m *Manager) throughputLoop(ctx context.Context) {
	ticker := time.NewTicker(throughputInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			statuses := make([]models.StreamStatus, 0, len(m.servers))
			for _, srv := range m.servers {
				statuses = append(statuses, srv.Status())
			}
			m.mu.Unlock()

			for _, st := range statuses {
				if st.Clients == 0 && st.EventsPerSec == 0 {
					continue
				}
				logging.Info().
					Str("stream_id", st.StreamID).
					Int("clients", st.Clients).
					Int64("events_per_sec", st.EventsPerSec).
					Int64("bytes_written", st.BytesWritten).
					Msg("Output stream throughput")
			}
		}
	}
}

// probeEndpoint checks that the endpoint is usable right now: a TCP
// port we can bind, a UDP address that resolves. WebSocket paths were
// fully checked by normalization.
func probeEndpoint(def *models.StreamDefinition) error {
	switch def.Protocol {
	case models.ProtocolTCP:
		ln, err := net.Listen("tcp", ":"+def.Endpoint)
		if err != nil {
			return nverr.Wrap(nverr.KindEndpointConflict, fmt.Sprintf("tcp port %s unavailable", def.Endpoint), err)
		}
		ln.Close() //nolint:errcheck,gosec // Probe only
	case models.ProtocolUDP:
		if _, err := net.ResolveUDPAddr("udp", def.Endpoint); err != nil {
			return nverr.Wrap(nverr.KindSchema, fmt.Sprintf("udp endpoint %s does not resolve", def.Endpoint), err)
		}
	case models.ProtocolWebSocket:
	}
	return nil
}
