// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package ingest normalizes producer events into the truth store.
//
// The normalizer is the only writer. Every append, whether it arrives
// over JetStream, through the IPC dispatcher, or from the manifest
// registry, funnels into one goroutine that owns the per-(scope, lane)
// monotonic clocks and the eventId dedupe cache. That single point is
// what makes canonical-time assignment race-free without locking the
// store.
//
// Canonical time: the proposal is the producer's sourceTruthTime when
// present, otherwise the arrival wall clock. A proposal that does not
// advance its (scope, lane) clock is reassigned to the previous value
// plus one microsecond. Assigned times are never rewritten, so the
// (canonicalTruthTime, eventId) total order is stable forever.
//
// Deduplication is layered three deep:
//
//  1. the broker's duplicate window on Nats-Msg-Id (= eventId)
//  2. the normalizer's LRU of recently seen eventIds
//  3. the store's primary key, which has the last word
//
// A duplicate at any layer yields the original row's ACK with
// Duplicate set; producers can fire-and-retry without bookkeeping.
//
// The producer path is a Watermill router consuming the JetStream
// subjects nova.ingest.<scope>.<lane>. Panics are recovered, transient
// failures retry with exponential backoff, and contract violations
// (undecodable envelopes, schema errors, unknown manifests) are routed
// to the nova.dlq.ingest subject instead of poisoning the stream.
//
// Commands take a second path: RecordCommand appends the
// CommandRequest row first and then publishes the dispatch to
// nova.commands.<scope>. The EventID is derived from the idempotency
// requestId, so resubmission returns the original ACK and dispatches
// nothing.
package ingest
