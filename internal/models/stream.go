// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package models

import "time"

// StreamProtocol is the transport of an output stream.
type StreamProtocol string

const (
	ProtocolTCP       StreamProtocol = "tcp"
	ProtocolWebSocket StreamProtocol = "websocket"
	ProtocolUDP       StreamProtocol = "udp"
)

// Valid reports whether p names a known protocol.
func (p StreamProtocol) Valid() bool {
	return p == ProtocolTCP || p == ProtocolWebSocket || p == ProtocolUDP
}

// OutputFormat selects the wire encoding of an output stream.
//
// payloadOnly emits the event body alone: exact original bytes for the
// raw lane, the JSON payload per line for structured lanes. It requires
// all three identity filters so the stream resolves to one entity.
// hierarchyPerMessage emits one JSON object per line carrying identity,
// truth time and payload.
type OutputFormat string

const (
	FormatPayloadOnly         OutputFormat = "payloadOnly"
	FormatHierarchyPerMessage OutputFormat = "hierarchyPerMessage"
)

// Valid reports whether f names a known format.
func (f OutputFormat) Valid() bool {
	return f == FormatPayloadOnly || f == FormatHierarchyPerMessage
}

// StreamVisibility controls who may see a stream definition.
type StreamVisibility string

const (
	VisibilityPublic  StreamVisibility = "public"
	VisibilityPrivate StreamVisibility = "private"
)

// Valid reports whether v names a known visibility.
func (v StreamVisibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// StreamDefinition is the persisted configuration of one output
// stream. Definitions are operational config, not truth; runtime
// sessions over them are ephemeral.
//
// Endpoint is a port for TCP, host:port for UDP, and a URL path
// segment for WebSocket. (Protocol, Endpoint) is globally unique under
// normalization.
type StreamDefinition struct {
	StreamID string         `json:"streamId"`
	Name     string         `json:"name"`
	Protocol StreamProtocol `json:"protocol"`
	Endpoint string         `json:"endpoint"`

	ScopeID string `json:"scopeId"`
	Lane    Lane   `json:"lane"`
	Filters Filter `json:"filters"`

	OutputFormat OutputFormat       `json:"outputFormat"`
	Backpressure BackpressurePolicy `json:"backpressure"`

	Enabled    bool             `json:"enabled"`
	Visibility StreamVisibility `json:"visibility"`
	Owner      string           `json:"owner,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StreamStatus is the runtime state of a started output stream.
type StreamStatus struct {
	StreamID     string `json:"streamId"`
	Running      bool   `json:"running"`
	Clients      int    `json:"clients"`
	BoundConnID  string `json:"boundInstanceId,omitempty"`
	EventsPerSec int64  `json:"eventsPerSec"`
	BytesWritten int64  `json:"bytesWritten"`
	LastError    string `json:"lastError,omitempty"`
}
