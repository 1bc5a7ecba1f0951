// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package testinfra provides container-backed infrastructure for
// integration tests.
//
// Unit tests run against the embedded NATS server and need no Docker.
// This package covers the other deployment shape: a NOVA node pointed
// at an external NATS broker. It uses testcontainers-go to start a
// real nats-server with JetStream and to simulate telemetry producers
// publishing envelopes onto the ingest subjects.
//
//	func TestIngestAgainstExternalBroker(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//
//	    broker, err := testinfra.NewNATSContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, broker.Container)
//
//	    source, err := testinfra.NewSourceSimulator(broker.ClientURL(), "alpha")
//	    // publish envelopes, run the pipeline, assert on the store
//	}
//
// All files are behind the integration build tag; tests skip
// gracefully when Docker is unavailable, so CI without a daemon stays
// green.
package testinfra
