// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package models

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Lane names one of the six parallel event streams within a scope.
type Lane string

// The fixed lane set. Producers may only publish into raw, parsed,
// metadata, ui and command; stream is synthetic and owned by the
// output fan-out.
const (
	LaneRaw      Lane = "raw"
	LaneParsed   Lane = "parsed"
	LaneMetadata Lane = "metadata"
	LaneUI       Lane = "ui"
	LaneCommand  Lane = "command"
	LaneStream   Lane = "stream"
)

// AllLanes lists every lane in declaration order.
var AllLanes = []Lane{LaneRaw, LaneParsed, LaneMetadata, LaneUI, LaneCommand, LaneStream}

// Valid reports whether l is one of the known lanes.
func (l Lane) Valid() bool {
	switch l {
	case LaneRaw, LaneParsed, LaneMetadata, LaneUI, LaneCommand, LaneStream:
		return true
	default:
		return false
	}
}

// ParseLanes converts raw lane names into Lane values, rejecting
// unknown names. An empty input is returned as an empty slice.
func ParseLanes(names []string) ([]Lane, error) {
	lanes := make([]Lane, 0, len(names))
	for _, name := range names {
		l := Lane(name)
		if !l.Valid() {
			return nil, fmt.Errorf("unknown lane %q", name)
		}
		lanes = append(lanes, l)
	}
	return lanes, nil
}

// Micros is canonical NOVA time: microseconds since the Unix epoch.
// All ordering, pacing and cursor math happens in this unit.
type Micros int64

// Epsilon is the minimum representable canonical-time increment, used
// by the normalizer to break ordering ties.
const Epsilon Micros = 1

// MicrosFromTime converts a wall-clock time to Micros.
func MicrosFromTime(t time.Time) Micros {
	return Micros(t.UnixMicro())
}

// NowMicros returns the current wall clock as Micros.
func NowMicros() Micros {
	return MicrosFromTime(time.Now())
}

// Time converts m back to a wall-clock time in UTC.
func (m Micros) Time() time.Time {
	return time.UnixMicro(int64(m)).UTC()
}

// Sub returns the duration from o to m.
func (m Micros) Sub(o Micros) time.Duration {
	return time.Duration(m-o) * time.Microsecond
}

// Seconds returns m as fractional seconds since the epoch.
func (m Micros) Seconds() float64 {
	return float64(m) / 1e6
}

// MicrosFromSeconds converts fractional epoch seconds to Micros,
// rounding toward zero.
func MicrosFromSeconds(sec float64) Micros {
	return Micros(sec * 1e6)
}

// EventID identifies one truth event globally. Producer-issued; the
// normalizer mints one when absent. Ties in canonical time are broken
// by lexicographic comparison of this value.
type EventID string

// commandNamespace seeds deterministic command EventIDs so a
// resubmitted requestId always maps to the same truth row.
var commandNamespace = uuid.MustParse("7c9e4a2b-31f6-4e08-9d11-5a6be0f3c884")

// NewEventID mints a time-ordered UUIDv7 EventID.
func NewEventID() EventID {
	id, err := uuid.NewV7()
	if err != nil {
		// v7 only fails when the entropy source does; fall back to v4.
		id = uuid.New()
	}
	return EventID(id.String())
}

// CommandEventID derives the EventID for a command from its
// idempotency requestId (UUIDv5). Resubmission yields the same ID and
// therefore the same row and the same ACK.
func CommandEventID(requestID string) EventID {
	return EventID(uuid.NewSHA1(commandNamespace, []byte(requestID)).String())
}

// DerivedEventID mints a deterministic EventID from an arbitrary key
// (UUIDv5). System-emitted events that must stay idempotent across
// restarts, such as manifest publications rescanned from the catalog,
// derive their IDs this way instead of minting fresh ones.
func DerivedEventID(key string) EventID {
	return EventID(uuid.NewSHA1(commandNamespace, []byte(key)).String())
}

// Identity is the ordered entity triple carried by every truth event.
type Identity struct {
	SystemID    string `json:"systemId"`
	ContainerID string `json:"containerId"`
	UniqueID    string `json:"uniqueId"`
}

// Complete reports whether all three components are set.
func (id Identity) Complete() bool {
	return id.SystemID != "" && id.ContainerID != "" && id.UniqueID != ""
}

// String renders the triple as systemId/containerId/uniqueId.
func (id Identity) String() string {
	return id.SystemID + "/" + id.ContainerID + "/" + id.UniqueID
}

// Event is one immutable truth record.
//
// Structured lanes (parsed, metadata, ui, command, stream) carry their
// body in Payload; the raw lane carries opaque bytes in Frame. Exactly
// one of the two is populated.
//
// SourceTime is the producer's observation time and may be absent.
// CanonicalTime is assigned by the Ingest Normalizer at insert and is
// never rewritten; it is monotonic within a (scope, lane) pair.
// EffectiveTime is the semantic "takes effect at" for metadata and
// command events.
type Event struct {
	EventID EventID `json:"eventId"`
	ScopeID string  `json:"scopeId"`
	Lane    Lane    `json:"lane"`

	Identity

	MessageType string `json:"messageType,omitempty"`

	SourceTime    *Micros `json:"sourceTruthTime,omitempty"`
	CanonicalTime Micros  `json:"canonicalTruthTime"`
	EffectiveTime *Micros `json:"effectiveTime,omitempty"`

	Payload json.RawMessage `json:"payload,omitempty"`
	Frame   []byte          `json:"frame,omitempty"`
}

// Cursor returns the event's position in the total order.
func (e *Event) Cursor() Cursor {
	return Cursor{Time: e.CanonicalTime, EventID: e.EventID}
}

// ProposedTime is the canonical-time candidate for a new event: the
// source truth time when present, otherwise now.
func (e *Event) ProposedTime(now Micros) Micros {
	if e.SourceTime != nil {
		return *e.SourceTime
	}
	return now
}

// Filter is the ANDed predicate applied to range scans and tails. Zero
// fields do not constrain. Lane selection is always explicit and never
// part of the filter.
type Filter struct {
	SystemID    string `json:"systemId,omitempty"`
	ContainerID string `json:"containerId,omitempty"`
	UniqueID    string `json:"uniqueId,omitempty"`
	MessageType string `json:"messageType,omitempty"`
}

// IsZero reports whether the filter constrains nothing.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// IdentityComplete reports whether all three identity components are
// constrained, the precondition for payload-only output streams.
func (f Filter) IdentityComplete() bool {
	return f.SystemID != "" && f.ContainerID != "" && f.UniqueID != ""
}

// Matches applies the filter to an event.
func (f Filter) Matches(e *Event) bool {
	if f.SystemID != "" && f.SystemID != e.SystemID {
		return false
	}
	if f.ContainerID != "" && f.ContainerID != e.ContainerID {
		return false
	}
	if f.UniqueID != "" && f.UniqueID != e.UniqueID {
		return false
	}
	if f.MessageType != "" && f.MessageType != e.MessageType {
		return false
	}
	return true
}

// InsertResult is the ACK body for a normalizer append. Duplicate
// marks the idempotent no-op case; the remaining fields then describe
// the original row.
type InsertResult struct {
	EventID       EventID `json:"eventId"`
	CanonicalTime Micros  `json:"canonicalTruthTime"`
	Duplicate     bool    `json:"duplicate,omitempty"`
}

// Well-known metadata and command message types recorded by NOVA
// itself. Producers may use any other type name.
const (
	TypeManifestPublished = "ManifestPublished"
	TypeChatMessage       = "ChatMessage"
	TypeEntityCreated     = "EntityCreated"
	TypeRunIngested       = "RunIngested"
	TypeCommandRequest    = "CommandRequest"
	TypeCommandProgress   = "CommandProgress"
	TypeCommandResult     = "CommandResult"
	TypePosition          = "Position"
)
