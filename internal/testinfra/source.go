// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/nova-telemetry/nova/internal/ingest"
	"github.com/nova-telemetry/nova/internal/models"
)

// SourceSimulator plays the part of an external telemetry producer:
// it publishes event envelopes onto the per-scope ingest subjects the
// Core's pipeline consumes from, via JetStream so publishes are
// acknowledged.
type SourceSimulator struct {
	conn  *natsgo.Conn
	js    natsgo.JetStreamContext
	scope string
}

// NewSourceSimulator connects a simulated producer for one scope.
func NewSourceSimulator(url, scope string) (*SourceSimulator, error) {
	conn, err := natsgo.Connect(url,
		natsgo.Name("nova-test-source-"+scope),
		natsgo.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect source simulator: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	return &SourceSimulator{conn: conn, js: js, scope: scope}, nil
}

// Publish sends one envelope to its (scope, lane) ingest subject. The
// event's ScopeID is forced to the simulator's scope.
func (s *SourceSimulator) Publish(e *models.Event) error {
	e.ScopeID = s.scope
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	subject := ingest.IngestSubject(s.scope, e.Lane)
	if _, err := s.js.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// PublishParsed builds and publishes a parsed-lane envelope.
func (s *SourceSimulator) PublishParsed(id models.Identity, messageType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return s.Publish(&models.Event{
		EventID:     models.NewEventID(),
		Lane:        models.LaneParsed,
		Identity:    id,
		MessageType: messageType,
		Payload:     body,
	})
}

// PublishRaw builds and publishes a raw-lane envelope carrying opaque
// frame bytes.
func (s *SourceSimulator) PublishRaw(id models.Identity, frame []byte) error {
	return s.Publish(&models.Event{
		EventID:  models.NewEventID(),
		Lane:     models.LaneRaw,
		Identity: id,
		Frame:    frame,
	})
}

// EmitPositions publishes n Position events spaced by interval, each
// stamped with a source truth time, approximating a live track.
func (s *SourceSimulator) EmitPositions(ctx context.Context, id models.Identity, n int, interval time.Duration) error {
	for i := 0; i < n; i++ {
		now := models.NowMicros()
		payload, err := json.Marshal(map[string]any{
			"lat": 51.0 + float64(i)*0.001,
			"lon": 4.0 + float64(i)*0.001,
			"seq": i,
		})
		if err != nil {
			return fmt.Errorf("marshal position: %w", err)
		}

		e := &models.Event{
			EventID:     models.NewEventID(),
			Lane:        models.LaneParsed,
			Identity:    id,
			MessageType: models.TypePosition,
			SourceTime:  &now,
			Payload:     payload,
		}
		if err := s.Publish(e); err != nil {
			return err
		}

		if i < n-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	return nil
}

// Close drains and closes the producer connection.
func (s *SourceSimulator) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
