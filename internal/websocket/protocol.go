// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package websocket

import (
	"github.com/goccy/go-json"

	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// Client → server message types. TypeChat is also mirrored back out.
const (
	TypeQuery           = "query"
	TypeStartStream     = "startStream"
	TypeCancelStream    = "cancelStream"
	TypeSetPlaybackRate = "setPlaybackRate"
	TypeCommand         = "command"
	TypeChat            = "chat"
	TypeExport          = "export"
	TypeListExports     = "listExports"
)

// Server → client message types.
const (
	TypeAuthResponse        = "authResponse"
	TypeQueryResponse       = "queryResponse"
	TypeStreamStarted       = "streamStarted"
	TypeStreamChunk         = "streamChunk"
	TypeStreamCanceled      = "streamCanceled"
	TypeStreamComplete      = "streamComplete"
	TypeCommandResponse     = "commandResponse"
	TypeExportResponse      = "exportResponse"
	TypeExportsListResponse = "exportsListResponse"
	TypePresentationUpdate  = "presentationUpdate"
	TypeError               = "error"
)

// Inbound is one client frame: a type, an optional correlation id
// echoed on the answer, and a type-specific payload.
type Inbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Outbound is one server frame. Error frames carry the error envelope
// instead of data.
type Outbound struct {
	Type      string      `json:"type"`
	RequestID string      `json:"requestId,omitempty"`
	Data      any         `json:"data,omitempty"`
	Error     *nverr.Wire `json:"error,omitempty"`
}

// AuthInfo is the authResponse body sent once after a successful
// upgrade, telling the client who it is and what node it talks to.
type AuthInfo struct {
	ConnID   string              `json:"connId"`
	Username string              `json:"username"`
	Role     string              `json:"role"`
	Scopes   []string            `json:"scopes"`
	NodeMode models.PlaybackMode `json:"nodeMode"`
}

// RatePayload carries a live rate change for the connection's session.
type RatePayload struct {
	Rate float64 `json:"rate"`
}

// ChatPayload is the client chat frame. The scope follows the usual
// resolution rules when empty.
type ChatPayload struct {
	ScopeID string `json:"scopeId,omitempty"`
	Text    string `json:"text"`
}

// ChatBroadcast is the mirrored chat frame every client receives. Its
// truth is the metadata row the message was ingested as.
type ChatBroadcast struct {
	ScopeID   string         `json:"scopeId"`
	Username  string         `json:"username"`
	Text      string         `json:"text"`
	EventID   models.EventID `json:"eventId"`
	TruthTime models.Micros  `json:"truthTime"`
}

// StreamStartedInfo acknowledges a startStream with the fencing id the
// client must match chunks against.
type StreamStartedInfo struct {
	PlaybackRequestID string `json:"playbackRequestId"`
}

// StreamCanceledInfo confirms a cancelStream locally; the Core cancel
// is fire-and-forget.
type StreamCanceledInfo struct {
	PlaybackRequestID string `json:"playbackRequestId,omitempty"`
}

// StreamCompleteInfo marks a REPLAY session's range as exhausted. No
// chunk for the session follows it.
type StreamCompleteInfo struct {
	PlaybackRequestID string `json:"playbackRequestId"`
	Sequence          uint64 `json:"sequence"`
}

// CommandAck is the commandResponse body.
type CommandAck struct {
	EventID    models.EventID `json:"eventId"`
	TruthTime  models.Micros  `json:"truthTime"`
	Idempotent bool           `json:"idempotent,omitempty"`
}
