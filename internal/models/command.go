// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// CommandSubmission is the submitCommand operation body. RequestID is
// the idempotency key: resubmitting the same RequestID yields the same
// ACK and appends no second CommandRequest row. Mode travels with the
// submission so the Server edge can reject commands from clients in
// REPLAY; the normalizer itself never blocks on it.
type CommandSubmission struct {
	ScopeID string `json:"scopeId"`

	Identity

	CommandID   string          `json:"commandId,omitempty"`
	CommandType string          `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Mode        PlaybackMode    `json:"timelineMode,omitempty"`
	RequestID   string          `json:"requestId"`
}

// Validate checks the submission is well formed.
func (c *CommandSubmission) Validate() error {
	if c.ScopeID == "" {
		return fmt.Errorf("scopeId is required")
	}
	if !c.Identity.Complete() {
		return fmt.Errorf("identity triple is incomplete: %s", c.Identity)
	}
	if c.CommandType == "" {
		return fmt.Errorf("command type is required")
	}
	if c.RequestID == "" {
		return fmt.Errorf("requestId is required")
	}
	return nil
}

// CommandRecord is the payload stored on a CommandRequest truth row
// and republished verbatim on the dispatch subject.
type CommandRecord struct {
	CommandID   string          `json:"commandId,omitempty"`
	CommandType string          `json:"type"`
	RequestID   string          `json:"requestId"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// Record extracts the durable portion of the submission.
func (c *CommandSubmission) Record() CommandRecord {
	return CommandRecord{
		CommandID:   c.CommandID,
		CommandType: c.CommandType,
		RequestID:   c.RequestID,
		Payload:     c.Payload,
	}
}

// MetadataIngest is the ingestMetadata operation body: a structured
// annotation appended to the metadata lane on behalf of a client.
// EventID is optional; the normalizer mints one when absent.
type MetadataIngest struct {
	ScopeID string `json:"scopeId"`

	Identity

	MessageType   string          `json:"messageType"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	EffectiveTime *Micros         `json:"effectiveTime,omitempty"`
	EventID       EventID         `json:"eventId,omitempty"`
}

// Validate checks the ingest body is well formed.
func (m *MetadataIngest) Validate() error {
	if m.ScopeID == "" {
		return fmt.Errorf("scopeId is required")
	}
	if !m.Identity.Complete() {
		return fmt.Errorf("identity triple is incomplete: %s", m.Identity)
	}
	if m.MessageType == "" {
		return fmt.Errorf("messageType is required")
	}
	return nil
}
