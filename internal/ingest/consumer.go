// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package ingest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// NATS subject layout. Scope IDs become subject tokens, so they must
// not contain '.', '*' or '>'; validateEvent's scope check plus the
// producers' naming discipline keep that true in practice.
const (
	// IngestWildcard matches every producer ingest subject.
	IngestWildcard = "nova.ingest.>"

	// ingestPrefix is the first two tokens of every ingest subject.
	ingestPrefix = "nova.ingest"

	// commandPrefix is the dispatch subject root.
	commandPrefix = "nova.commands"

	// CommandWildcard matches every command dispatch subject.
	CommandWildcard = "nova.commands.>"
)

// IngestSubject returns the producer subject for one (scope, lane).
func IngestSubject(scope string, lane models.Lane) string {
	return ingestPrefix + "." + scope + "." + string(lane)
}

// CommandSubject returns the dispatch subject for a scope.
func CommandSubject(scope string) string {
	return commandPrefix + "." + scope
}

// messageTimeout bounds one normalization pass from the router's
// perspective; longer stalls are the retry middleware's problem.
const messageTimeout = 30 * time.Second

// Consumer decodes producer envelopes from JetStream and feeds them to
// the normalizer. It is registered on the ingest router as a
// no-publish handler; ack/nack is the router's job.
type Consumer struct {
	normalizer *Normalizer

	// Stats
	messagesReceived  atomic.Int64
	messagesProcessed atomic.Int64
	parseErrors       atomic.Int64
	lastMessageTime   atomic.Value // stores time.Time
}

// NewConsumer wraps a normalizer for router registration.
func NewConsumer(n *Normalizer) *Consumer {
	c := &Consumer{normalizer: n}
	c.lastMessageTime.Store(time.Time{})
	return c
}

// Handle processes one producer envelope.
//
// Error handling:
//   - malformed JSON and contract violations are permanent; the poison
//     filter routes them to the DLQ topic without retry
//   - store failures return as-is and trigger retry with backoff
//   - duplicates ack cleanly; idempotency is the point
func (c *Consumer) Handle(msg *message.Message) error {
	c.messagesReceived.Add(1)
	c.lastMessageTime.Store(time.Now())

	var e models.Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		c.parseErrors.Add(1)
		metrics.RecordIngestParseFailure(laneLabel(msg))
		logging.Error().
			Err(err).
			Str("message_uuid", msg.UUID).
			Msg("Failed to decode ingest envelope")
		return nverr.Wrap(nverr.KindSchema, "failed to decode ingest envelope", err)
	}

	ctx, cancel := context.WithTimeout(msg.Context(), messageTimeout)
	defer cancel()

	result, err := c.normalizer.Insert(ctx, &e)
	if err != nil {
		return err
	}

	c.messagesProcessed.Add(1)
	logging.Trace().
		Str("event_id", string(result.EventID)).
		Str("scope_id", e.ScopeID).
		Str("lane", string(e.Lane)).
		Bool("duplicate", result.Duplicate).
		Msg("Ingest envelope processed")
	return nil
}

// laneLabel pulls the lane from message metadata for the parse-failure
// metric; the envelope itself was undecodable.
func laneLabel(msg *message.Message) string {
	if lane := msg.Metadata.Get("lane"); lane != "" {
		return lane
	}
	return "unknown"
}

// ConsumerStats is a point-in-time snapshot for health reporting.
type ConsumerStats struct {
	MessagesReceived  int64
	MessagesProcessed int64
	ParseErrors       int64
	LastMessageTime   time.Time
}

// Stats returns current counters.
func (c *Consumer) Stats() ConsumerStats {
	last, _ := c.lastMessageTime.Load().(time.Time)
	return ConsumerStats{
		MessagesReceived:  c.messagesReceived.Load(),
		MessagesProcessed: c.messagesProcessed.Load(),
		ParseErrors:       c.parseErrors.Load(),
		LastMessageTime:   last,
	}
}

// permanentFailure decides poison-queue routing: contract violations
// never succeed on retry, everything else might.
func permanentFailure(err error) bool {
	switch nverr.KindOf(err) {
	case nverr.KindSchema, nverr.KindUnknownManifest:
		return true
	default:
		return false
	}
}
