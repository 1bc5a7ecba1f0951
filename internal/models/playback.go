// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package models

// PlaybackMode selects between following the live tail and replaying
// a bounded range of history.
type PlaybackMode string

const (
	ModeLive   PlaybackMode = "live"
	ModeReplay PlaybackMode = "replay"
)

// Valid reports whether m names a known mode.
func (m PlaybackMode) Valid() bool {
	return m == ModeLive || m == ModeReplay
}

// Timebase selects which clock run windows are expressed in.
type Timebase string

const (
	TimebaseSource    Timebase = "source"
	TimebaseCanonical Timebase = "canonical"
)

// Valid reports whether t names a known timebase.
func (t Timebase) Valid() bool {
	return t == TimebaseSource || t == TimebaseCanonical
}

// BackpressurePolicy decides what happens when a consumer's bounded
// queue overflows: catchUp drops the oldest queued chunk, disconnect
// drops the consumer.
type BackpressurePolicy string

const (
	BackpressureCatchUp    BackpressurePolicy = "catchUp"
	BackpressureDisconnect BackpressurePolicy = "disconnect"
)

// Valid reports whether p names a known policy.
func (p BackpressurePolicy) Valid() bool {
	return p == BackpressureCatchUp || p == BackpressureDisconnect
}

// StreamRequest is the playback engine's start parameters, shared by
// the IPC startStream and streamRaw operations.
//
// For REPLAY, StopTime bounds the range and Rate is the wall-clock
// multiplier; Rate 0 means unpaced (as fast as possible). For LIVE,
// FromCursor positions the tail (zero cursor means head at
// subscription). BoundConnID is only meaningful for raw sessions: it
// makes the feed follow that UI connection's current session cursor.
type StreamRequest struct {
	// PlaybackRequestID names the session. The Server edge mints it
	// before issuing startStream so chunk fencing never races the ACK;
	// when empty the engine mints one.
	PlaybackRequestID string `json:"playbackRequestId,omitempty"`

	ScopeID   string       `json:"scopeId"`
	Lanes     []Lane       `json:"lanes"`
	Filters   Filter       `json:"filters"`
	Mode      PlaybackMode `json:"mode"`
	Timebase  Timebase     `json:"timebase,omitempty"`
	StartTime Micros       `json:"startTime,omitempty"`
	StopTime  Micros       `json:"stopTime,omitempty"`
	Rate      float64      `json:"rate,omitempty"`

	// Backpressure overrides the engine's default overflow policy for
	// this session. Output streams carry their definition's policy here.
	Backpressure BackpressurePolicy `json:"backpressure,omitempty"`

	FromCursor  string `json:"fromCursor,omitempty"`
	BoundConnID string `json:"boundInstanceId,omitempty"`
}

// EventChunk is one batch of events emitted by the playback engine.
// Chunks for one session carry its PlaybackRequestID and a strictly
// increasing sequence number; the terminal chunk of an exhausted
// REPLAY range has Complete set and no events after it are sent.
type EventChunk struct {
	PlaybackRequestID string   `json:"playbackRequestId"`
	Sequence          uint64   `json:"sequence"`
	Events            []*Event `json:"events,omitempty"`
	Complete          bool     `json:"complete,omitempty"`
}

// ExportRequest bounds one export run. The window is inclusive on
// canonical truth time; StopTime 0 means everything at or after
// StartTime. Empty Lanes means all lanes.
type ExportRequest struct {
	ScopeID   string   `json:"scopeId"`
	Lanes     []Lane   `json:"lanes,omitempty"`
	Filters   Filter   `json:"filters,omitempty"`
	Timebase  Timebase `json:"timebase,omitempty"`
	StartTime Micros   `json:"startTime"`
	StopTime  Micros   `json:"stopTime,omitempty"`
}

// ExportRecord describes one produced export archive.
type ExportRecord struct {
	ExportID    string `json:"exportId"`
	CreatedAt   Micros `json:"createdAt"`
	SizeBytes   int64  `json:"sizeBytes"`
	DownloadURL string `json:"downloadUrl"`
}
