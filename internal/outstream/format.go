// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package outstream

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/nova-telemetry/nova/internal/models"
)

// formatFunc turns one event into its wire bytes. Formatting happens
// once per event; the result is shared read-only across client queues.
type formatFunc func(*models.Event) ([]byte, error)

// hierarchyLine is the hierarchyPerMessage JSON-lines record: identity,
// canonical truth time in microseconds, payload.
type hierarchyLine struct {
	S string          `json:"s"`
	C string          `json:"c"`
	U string          `json:"u"`
	T int64           `json:"t"`
	P json.RawMessage `json:"p,omitempty"`
}

// newFormatter picks the encoder for a definition's (lane, format)
// pair. Raw payloadOnly is the exact original bytes with no framing;
// every other combination is one JSON object per line.
func newFormatter(def *models.StreamDefinition) formatFunc {
	if def.OutputFormat == models.FormatPayloadOnly {
		if def.Lane == models.LaneRaw {
			return formatRawBytes
		}
		return formatPayloadLine
	}
	return formatHierarchyLine
}

func formatRawBytes(e *models.Event) ([]byte, error) {
	if len(e.Frame) == 0 {
		return nil, fmt.Errorf("raw event %s has no frame", e.EventID)
	}
	return e.Frame, nil
}

func formatPayloadLine(e *models.Event) ([]byte, error) {
	if len(e.Payload) == 0 {
		return nil, fmt.Errorf("event %s has no payload", e.EventID)
	}
	compact, err := compactJSON(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("event %s payload: %w", e.EventID, err)
	}
	return append(compact, '\n'), nil
}

func formatHierarchyLine(e *models.Event) ([]byte, error) {
	line := hierarchyLine{
		S: e.SystemID,
		C: e.ContainerID,
		U: e.UniqueID,
		T: int64(e.CanonicalTime),
	}
	switch {
	case len(e.Payload) > 0:
		compact, err := compactJSON(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("event %s payload: %w", e.EventID, err)
		}
		line.P = compact
	case len(e.Frame) > 0:
		// Raw frames carried in the hierarchy format ride as a JSON
		// base64 string.
		encoded, err := json.Marshal(e.Frame)
		if err != nil {
			return nil, fmt.Errorf("event %s frame: %w", e.EventID, err)
		}
		line.P = encoded
	}

	data, err := json.Marshal(&line)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", e.EventID, err)
	}
	return append(data, '\n'), nil
}

// compactJSON strips insignificant whitespace so one event is always
// one line on the wire, whatever shape it was ingested in.
func compactJSON(raw json.RawMessage) (json.RawMessage, error) {
	if !bytes.ContainsAny(raw, "\n\r") {
		return raw, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
