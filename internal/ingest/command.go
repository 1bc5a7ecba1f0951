// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package ingest

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// DispatchPublisher delivers a recorded command to its producer-side
// consumers. Publisher implements it.
type DispatchPublisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
}

// SetDispatchPublisher wires the command dispatch path. Optional: with
// no publisher, commands are recorded as truth but not forwarded.
func (n *Normalizer) SetDispatchPublisher(pub DispatchPublisher) {
	n.dispatch = pub
}

// RecordCommand appends the CommandRequest truth row and then, for a
// first-time requestId, publishes the dispatch to nova.commands.<scope>.
//
// Idempotent on RequestID: the EventID is derived from it, so a
// resubmission hits the store's duplicate path and returns the original
// ACK with Duplicate set. The dispatch is only published once.
//
// Recording always precedes dispatch. A command that was dispatched but
// not recorded would be invisible to replay; the reverse is recoverable.
func (n *Normalizer) RecordCommand(ctx context.Context, sub *models.CommandSubmission) (*models.InsertResult, error) {
	if sub == nil {
		return nil, nverr.New(nverr.KindSchema, "command submission is required")
	}
	if err := sub.Validate(); err != nil {
		return nil, nverr.Wrap(nverr.KindSchema, "invalid command submission", err)
	}

	payload, err := json.Marshal(sub.Record())
	if err != nil {
		return nil, nverr.Wrap(nverr.KindInternal, "failed to encode command record", err)
	}

	e := &models.Event{
		EventID:     models.CommandEventID(sub.RequestID),
		ScopeID:     sub.ScopeID,
		Lane:        models.LaneCommand,
		Identity:    sub.Identity,
		MessageType: models.TypeCommandRequest,
		Payload:     payload,
	}

	result, err := n.Insert(ctx, e)
	if err != nil {
		return nil, err
	}

	if result.Duplicate {
		metrics.CommandsDuplicate.Inc()
		return result, nil
	}
	metrics.RecordCommand(sub.ScopeID)

	if n.dispatch != nil {
		if err := n.publishDispatch(ctx, sub, payload); err != nil {
			// The truth row is the durable record; dispatch failures
			// are surfaced to the operator, not rolled back.
			logging.Error().
				Err(err).
				Str("scope_id", sub.ScopeID).
				Str("request_id", sub.RequestID).
				Msg("Command dispatch failed after recording")
		}
	}

	return result, nil
}

func (n *Normalizer) publishDispatch(ctx context.Context, sub *models.CommandSubmission, payload []byte) error {
	msg := message.NewMessage(string(models.CommandEventID(sub.RequestID)), payload)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	msg.Metadata.Set("scope_id", sub.ScopeID)
	msg.Metadata.Set("type", sub.CommandType)

	return n.dispatch.Publish(ctx, CommandSubject(sub.ScopeID), msg)
}

// RecordMetadata appends one metadata-lane annotation on behalf of a
// client (the ingestMetadata operation). The normalizer mints the
// EventID when the caller supplied none.
func (n *Normalizer) RecordMetadata(ctx context.Context, in *models.MetadataIngest) (*models.InsertResult, error) {
	if in == nil {
		return nil, nverr.New(nverr.KindSchema, "metadata ingest body is required")
	}
	if err := in.Validate(); err != nil {
		return nil, nverr.Wrap(nverr.KindSchema, "invalid metadata ingest", err)
	}

	e := &models.Event{
		EventID:       in.EventID,
		ScopeID:       in.ScopeID,
		Lane:          models.LaneMetadata,
		Identity:      in.Identity,
		MessageType:   in.MessageType,
		EffectiveTime: in.EffectiveTime,
		Payload:       in.Payload,
	}

	return n.Insert(ctx, e)
}
