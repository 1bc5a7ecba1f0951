// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

/*
Package services adapts NOVA components to suture's Serve(ctx)
contract.

Each wrapper declares a minimal interface naming exactly the lifecycle
methods it needs, so the supervisor layer never imports the component
packages it supervises and the wrappers test against trivial fakes.

Two lifecycle shapes appear:

  - run-loop components (the client hub) already block on a context
    and are delegated to directly
  - start/stop components (ingest pipeline, truth writer, IPC
    dispatcher, output stream manager, manifest watcher) are started,
    parked on ctx.Done(), then stopped

All wrappers implement fmt.Stringer; suture uses the string as the
service name in supervision logs.
*/
package services
