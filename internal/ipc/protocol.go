// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package ipc

import (
	"strings"

	"github.com/goccy/go-json"

	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// IPC subjects. Requests and responses share one pair of subjects;
// chunks get per-connection subjects so delivery order within a
// connection is NATS's per-subject order.
const (
	SubjectRequest  = "nova.ipc.req"
	SubjectResponse = "nova.ipc.resp"

	chunkPrefix = "nova.ipc.chunk."
	rawPrefix   = "nova.ipc.raw."

	// SubjectChunks and SubjectRaw are the wildcard forms the Server
	// subscribes to once, routing by the connId suffix.
	SubjectChunks = chunkPrefix + ">"
	SubjectRaw    = rawPrefix + ">"

	// RequestQueueGroup load-balances request consumption when more
	// than one Core worker subscribes.
	RequestQueueGroup = "nova-core"
)

// ChunkSubject returns the chunk subject for one connection.
func ChunkSubject(connID string) string {
	return chunkPrefix + connID
}

// RawSubject returns the raw-chunk subject for one connection.
func RawSubject(connID string) string {
	return rawPrefix + connID
}

// connFromSubject strips a per-connection prefix. Empty when the
// subject is not under the prefix.
func connFromSubject(subject, prefix string) string {
	if !strings.HasPrefix(subject, prefix) {
		return ""
	}
	return subject[len(prefix):]
}

// Op identifies one request type.
type Op string

// The nine operations the Server edge can ask of the Core.
const (
	OpQuery           Op = "query"
	OpStartStream     Op = "startStream"
	OpCancelStream    Op = "cancelStream"
	OpSetPlaybackRate Op = "setPlaybackRate"
	OpSubmitCommand   Op = "submitCommand"
	OpIngestMetadata  Op = "ingestMetadata"
	OpExport          Op = "export"
	OpStreamRaw       Op = "streamRaw"
	OpCancelStreamRaw Op = "cancelStreamRaw"
)

// FireAndForget reports whether the operation never produces a
// response. Cancels and rate changes are idempotent and unacked.
func (o Op) FireAndForget() bool {
	switch o {
	case OpCancelStream, OpSetPlaybackRate, OpCancelStreamRaw:
		return true
	default:
		return false
	}
}

// Request is the Server→Core envelope. ConnID names the originating
// connection for session-scoped operations; Body is the op-specific
// payload.
type Request struct {
	RequestID string          `json:"requestId"`
	Op        Op              `json:"op"`
	ConnID    string          `json:"connId,omitempty"`
	Body      json.RawMessage `json:"body,omitempty"`
}

// Response is the Core→Server envelope, correlated by RequestID.
// Exactly one of Error and Body is meaningful.
type Response struct {
	RequestID string          `json:"requestId"`
	Op        Op              `json:"op"`
	Error     *nverr.Wire     `json:"error,omitempty"`
	Body      json.RawMessage `json:"body,omitempty"`
}

// Err converts the wire error back into a typed error, nil when the
// response succeeded.
func (r *Response) Err() error {
	if r.Error == nil {
		return nil
	}
	return nverr.FromWire(r.Error)
}

// QueryBody asks for one page of a bounded window in total order.
// Empty Lanes means all lanes. After resumes from a previous page's
// NextCursor.
type QueryBody struct {
	ScopeID   string          `json:"scopeId"`
	Lanes     []models.Lane   `json:"lanes,omitempty"`
	Filters   models.Filter   `json:"filters,omitempty"`
	Timebase  models.Timebase `json:"timebase,omitempty"`
	StartTime models.Micros   `json:"startTime,omitempty"`
	StopTime  models.Micros   `json:"stopTime,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	After     string          `json:"after,omitempty"`
}

// QueryResult is one page of events. NextCursor is set when HasMore.
type QueryResult struct {
	Events     []*models.Event `json:"events"`
	NextCursor string          `json:"nextCursor,omitempty"`
	HasMore    bool            `json:"hasMore"`
}

// StreamStarted acknowledges a startStream or streamRaw request with
// the minted fencing id.
type StreamStarted struct {
	PlaybackRequestID string `json:"playbackRequestId"`
}

// RateBody carries a live rate change for the connection's session.
type RateBody struct {
	Rate float64 `json:"rate"`
}

func encodeBody(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func decodeBody(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nverr.New(nverr.KindSchema, "request body is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nverr.Wrap(nverr.KindSchema, "malformed request body", err)
	}
	return nil
}
