// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package outstream manages long-lived output streams that mirror a
// filtered view of one lane over TCP, WebSocket or UDP.
//
// A stream definition is operational configuration persisted in Badger,
// unique on its normalized (protocol, endpoint) pair. Runtime sessions
// over a definition are ephemeral: the feed opens through the Core's
// raw playback session when the first consumer connects (immediately
// for UDP), formats each event once, and fans the bytes out to bounded
// per-client write queues. The definition's backpressure policy decides
// whether a slow client loses its oldest queued writes or its
// connection.
//
// A stream normally follows LIVE. It may instead bind to one UI
// connection and follow that instance's playback cursor; binding is
// last-winner and reverts to LIVE-follow when the instance disconnects
// or unbinds.
package outstream
