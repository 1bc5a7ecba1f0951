// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

/*
Package cache provides the in-memory data structures shared by the
ingest and output-stream paths.

# Overview

The package contains two structures:

  - LRUCache: a thread-safe LRU with TTL, used by the ingest
    normalizer as the duplicate-eventId fast path in front of the
    truth store.
  - SlidingWindowCounter: a bucketed counter used by output streams
    to report events-per-second throughput.

# Deduplication Fast Path

Every inbound event carries a producer-issued eventId. The normalizer
consults the LRU before touching the store:

	if dedupe.IsDuplicate(string(ev.EventID)) {
	    // Skip the insert, acknowledge as duplicate.
	}

A hit means the id was seen within the TTL window and the event can be
acknowledged without a store round trip. A miss is not authoritative:
the truth store's unique index on eventId remains the arbiter, so a
replay arriving after the TTL expires is still absorbed exactly once.

IsDuplicate performs check-and-set under a single lock so two
goroutines racing on the same id cannot both observe "fresh".

# Throughput Counters

SlidingWindowCounter divides its window into fixed buckets and rotates
them lazily on access. Count sums the live buckets; RatePerSecond
scales the sum by the window length. Counts decay in bucket-sized
steps rather than continuously, which is adequate for the status
figures it feeds.

# Thread Safety

All methods on both structures are safe for concurrent use. LRUCache
serializes through a single mutex; at dedupe-cache sizes (tens of
thousands of entries) lock contention is not measurable next to the
store insert it guards.

# See Also

  - internal/ingest: the normalizer that owns the dedupe cache
  - internal/outstream: stream runners that own throughput counters
  - internal/truth: the store whose unique index backs the LRU
*/
package cache
