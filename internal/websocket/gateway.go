// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package websocket

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nova-telemetry/nova/internal/auth"
	"github.com/nova-telemetry/nova/internal/authz"
	"github.com/nova-telemetry/nova/internal/ipc"
	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// Core is the slice of the IPC client the gateway drives. The client's
// own per-operation deadlines bound every call.
type Core interface {
	Query(ctx context.Context, q *ipc.QueryBody) (*ipc.QueryResult, error)
	StartStream(ctx context.Context, connID string, req *models.StreamRequest) (string, error)
	CancelStream(ctx context.Context, connID string) error
	SetPlaybackRate(ctx context.Context, connID string, rate float64) error
	SubmitCommand(ctx context.Context, sub *models.CommandSubmission) (*models.InsertResult, error)
	IngestMetadata(ctx context.Context, in *models.MetadataIngest) (*models.InsertResult, error)
	Export(ctx context.Context, req *models.ExportRequest) (*models.ExportRecord, error)
	OnChunks(connID string, h ipc.ChunkHandler)
	Drop(connID string)
}

// ExportStore lists the archives present in the shared export
// directory, satisfied by export.Catalog.
type ExportStore interface {
	List() ([]models.ExportRecord, error)
}

// TimelineUnbinder releases output streams bound to a UI connection's
// timeline when that connection goes away.
type TimelineUnbinder interface {
	UnbindConn(connID string)
}

// Gateway owns the websocket message protocol: it authorizes each
// inbound frame, forwards it over IPC and routes the answer back to
// the issuing connection.
type Gateway struct {
	core     Core
	hub      *Hub
	enforcer *authz.Enforcer
	exports  ExportStore
	nodeMode models.PlaybackMode

	unbinder TimelineUnbinder
}

// NewGateway wires the gateway. nodeMode is what this node's driver
// runs in; it is reported to clients at attach and never changes while
// the process lives.
func NewGateway(core Core, hub *Hub, enforcer *authz.Enforcer, exports ExportStore, nodeMode models.PlaybackMode) *Gateway {
	return &Gateway{
		core:     core,
		hub:      hub,
		enforcer: enforcer,
		exports:  exports,
		nodeMode: nodeMode,
	}
}

// SetUnbinder installs the output stream unbind hook. Wired after
// construction because the stream manager needs the IPC client first.
func (g *Gateway) SetUnbinder(u TimelineUnbinder) {
	g.unbinder = u
}

// Attach takes ownership of an upgraded socket: it installs the chunk
// route, registers with the hub, confirms identity to the client and
// starts the pumps.
func (g *Gateway) Attach(sock *websocket.Conn, claims *auth.Claims) *Conn {
	c := newConn(g.hub, sock, claims)
	c.handle = g.handle
	c.onClose = func(c *Conn) {
		// Cancel outlives the socket so the engine stops pacing for a
		// client that is gone; the chunk route drops first so nothing
		// races the teardown.
		g.core.Drop(c.id)
		if err := g.core.CancelStream(context.Background(), c.id); err != nil {
			logging.Debug().Err(err).Str("conn_id", c.id).Msg("cancel on disconnect failed")
		}
		if g.unbinder != nil {
			g.unbinder.UnbindConn(c.id)
		}
		metrics.TrackWSConnection(false)
	}

	g.core.OnChunks(c.id, c.deliverChunk)
	g.hub.Register(c)
	metrics.TrackWSConnection(true)

	c.Send(&Outbound{Type: TypeAuthResponse, Data: &AuthInfo{
		ConnID:   c.id,
		Username: claims.Username,
		Role:     claims.Role,
		Scopes:   claims.Scopes,
		NodeMode: g.nodeMode,
	}})
	c.Start()
	return c
}

// handle dispatches one inbound frame. It runs on its own goroutine
// per message; anything returned as an error becomes an error frame
// correlated to the request.
func (g *Gateway) handle(c *Conn, in *Inbound) {
	var err error
	switch in.Type {
	case TypeQuery:
		err = g.handleQuery(c, in)
	case TypeStartStream:
		err = g.handleStartStream(c, in)
	case TypeCancelStream:
		err = g.handleCancelStream(c, in)
	case TypeSetPlaybackRate:
		err = g.handleSetRate(c, in)
	case TypeCommand:
		err = g.handleCommand(c, in)
	case TypeChat:
		err = g.handleChat(c, in)
	case TypeExport:
		err = g.handleExport(c, in)
	case TypeListExports:
		err = g.handleListExports(c, in)
	default:
		err = nverr.Newf(nverr.KindSchema, "unknown message type %q", in.Type)
	}
	if err != nil {
		c.SendError(in.RequestID, err)
	}
}

// resolveScope applies the scope rules: an explicit scope must be
// granted; an omitted one is inferred only when exactly one concrete
// scope is held. The wildcard grant never infers.
func (g *Gateway) resolveScope(c *Conn, scopeID string) (string, error) {
	if scopeID == "" {
		s, ok := c.claims.SingleScope()
		if !ok {
			return "", nverr.New(nverr.KindScopeRequired, "scopeId is required")
		}
		return s, nil
	}
	if !c.claims.HasScope(scopeID) {
		return "", nverr.Newf(nverr.KindScopeForbidden, "scope %q is not granted", scopeID)
	}
	return scopeID, nil
}

func (g *Gateway) handleQuery(c *Conn, in *Inbound) error {
	if err := g.enforcer.Require(c.Role(), authz.CapRead); err != nil {
		return err
	}
	q := &ipc.QueryBody{}
	if err := decodeData(in.Data, q); err != nil {
		return err
	}
	scope, err := g.resolveScope(c, q.ScopeID)
	if err != nil {
		return err
	}
	q.ScopeID = scope

	result, err := g.core.Query(context.Background(), q)
	if err != nil {
		return err
	}
	c.Send(&Outbound{Type: TypeQueryResponse, RequestID: in.RequestID, Data: result})
	return nil
}

func (g *Gateway) handleStartStream(c *Conn, in *Inbound) error {
	if err := g.enforcer.Require(c.Role(), authz.CapRead); err != nil {
		return err
	}
	req := &models.StreamRequest{}
	if err := decodeData(in.Data, req); err != nil {
		return err
	}
	scope, err := g.resolveScope(c, req.ScopeID)
	if err != nil {
		return err
	}
	req.ScopeID = scope

	mode := req.Mode
	if mode == "" {
		mode = models.ModeLive
	}

	// The edge mints the fencing id and arms the fence before the start
	// request leaves, so the first chunk can never outrun the ACK.
	c.opMu.Lock()
	defer c.opMu.Unlock()
	playbackID := uuid.NewString()
	req.PlaybackRequestID = playbackID
	c.beginSession(playbackID, mode)

	acked, err := g.core.StartStream(context.Background(), c.id, req)
	if err != nil {
		c.endSessionIf(playbackID)
		return err
	}
	if acked != "" && acked != playbackID {
		// An engine that re-mints wins; re-arm the fence to its id.
		c.beginSession(acked, mode)
		playbackID = acked
	}
	c.Send(&Outbound{Type: TypeStreamStarted, RequestID: in.RequestID, Data: &StreamStartedInfo{
		PlaybackRequestID: playbackID,
	}})
	return nil
}

func (g *Gateway) handleCancelStream(c *Conn, in *Inbound) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	prev := c.endSession()
	if err := g.core.CancelStream(context.Background(), c.id); err != nil {
		return err
	}
	// Acked locally even when no session was active; cancel is
	// idempotent and late chunks are fenced regardless.
	c.Send(&Outbound{Type: TypeStreamCanceled, RequestID: in.RequestID, Data: &StreamCanceledInfo{
		PlaybackRequestID: prev,
	}})
	return nil
}

func (g *Gateway) handleSetRate(c *Conn, in *Inbound) error {
	payload := &RatePayload{}
	if err := decodeData(in.Data, payload); err != nil {
		return err
	}
	if payload.Rate < 0 {
		return nverr.New(nverr.KindSchema, "rate must be non-negative")
	}
	return g.core.SetPlaybackRate(context.Background(), c.id, payload.Rate)
}

func (g *Gateway) handleCommand(c *Conn, in *Inbound) error {
	if err := g.enforcer.Require(c.Role(), authz.CapCommand); err != nil {
		return err
	}
	if c.Mode() == models.ModeReplay || g.nodeMode == models.ModeReplay {
		return nverr.New(nverr.KindReplayNotAllowed, "commands cannot be issued from a replay timeline")
	}
	sub := &models.CommandSubmission{}
	if err := decodeData(in.Data, sub); err != nil {
		return err
	}
	scope, err := g.resolveScope(c, sub.ScopeID)
	if err != nil {
		return err
	}
	sub.ScopeID = scope
	sub.Mode = models.ModeLive
	if sub.RequestID == "" {
		// Without a client idempotency key the submission is
		// single-shot; mint one so the derived eventId is still stable
		// against IPC-level retries.
		sub.RequestID = uuid.NewString()
	}

	result, err := g.core.SubmitCommand(context.Background(), sub)
	if err != nil {
		return err
	}
	c.Send(&Outbound{Type: TypeCommandResponse, RequestID: in.RequestID, Data: &CommandAck{
		EventID:    result.EventID,
		TruthTime:  result.CanonicalTime,
		Idempotent: result.Duplicate,
	}})
	return nil
}

// chatRecord is the payload stored on the ChatMessage metadata row.
type chatRecord struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

func (g *Gateway) handleChat(c *Conn, in *Inbound) error {
	if err := g.enforcer.Require(c.Role(), authz.CapRead); err != nil {
		return err
	}
	payload := &ChatPayload{}
	if err := decodeData(in.Data, payload); err != nil {
		return err
	}
	if payload.Text == "" {
		return nverr.New(nverr.KindSchema, "chat text is required")
	}
	scope, err := g.resolveScope(c, payload.ScopeID)
	if err != nil {
		return err
	}

	body, err := json.Marshal(&chatRecord{Username: c.Username(), Text: payload.Text})
	if err != nil {
		return nverr.Wrap(nverr.KindInternal, "encode chat payload", err)
	}
	ingest := &models.MetadataIngest{
		ScopeID: scope,
		Identity: models.Identity{
			SystemID:    "nova",
			ContainerID: "chat",
			UniqueID:    c.Username(),
		},
		MessageType: models.TypeChatMessage,
		Payload:     body,
	}
	result, err := g.core.IngestMetadata(context.Background(), ingest)
	if err != nil {
		return err
	}

	// Mirrored to every client, the sender included; the sender renders
	// from the broadcast so everyone sees the same truth row.
	g.hub.BroadcastChat(&ChatBroadcast{
		ScopeID:   scope,
		Username:  c.Username(),
		Text:      payload.Text,
		EventID:   result.EventID,
		TruthTime: result.CanonicalTime,
	})
	return nil
}

func (g *Gateway) handleExport(c *Conn, in *Inbound) error {
	if err := g.enforcer.Require(c.Role(), authz.CapCommand); err != nil {
		return err
	}
	req := &models.ExportRequest{}
	if err := decodeData(in.Data, req); err != nil {
		return err
	}
	scope, err := g.resolveScope(c, req.ScopeID)
	if err != nil {
		return err
	}
	req.ScopeID = scope

	record, err := g.core.Export(context.Background(), req)
	if err != nil {
		return err
	}
	c.Send(&Outbound{Type: TypeExportResponse, RequestID: in.RequestID, Data: record})
	return nil
}

func (g *Gateway) handleListExports(c *Conn, in *Inbound) error {
	if err := g.enforcer.Require(c.Role(), authz.CapRead); err != nil {
		return err
	}
	records, err := g.exports.List()
	if err != nil {
		return err
	}
	c.Send(&Outbound{Type: TypeExportsListResponse, RequestID: in.RequestID, Data: records})
	return nil
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nverr.New(nverr.KindSchema, "message data is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nverr.Wrap(nverr.KindSchema, "malformed message data", err)
	}
	return nil
}
