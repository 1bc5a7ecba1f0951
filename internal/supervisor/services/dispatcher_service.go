// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package services

import (
	"context"
	"fmt"
)

// IPCDispatcher matches *ipc.Dispatcher's lifecycle. Start subscribes
// the request handlers on the NATS connection; Stop drains the
// subscriptions and cancels live playback streams.
type IPCDispatcher interface {
	Start() error
	Stop()
}

// DispatcherService wraps the Core's IPC dispatcher as a supervised
// service. Requests in flight during a restart fail over to the
// Server's per-operation timeout and surface as Timeout errors there;
// resubscribing is cheap and stateless.
type DispatcherService struct {
	dispatcher IPCDispatcher
	name       string
}

// NewDispatcherService creates the dispatcher service wrapper.
func NewDispatcherService(dispatcher IPCDispatcher) *DispatcherService {
	return &DispatcherService{
		dispatcher: dispatcher,
		name:       "ipc-dispatcher",
	}
}

// Serve implements suture.Service.
func (s *DispatcherService) Serve(ctx context.Context) error {
	if err := s.dispatcher.Start(); err != nil {
		return fmt.Errorf("ipc dispatcher start failed: %w", err)
	}

	<-ctx.Done()
	s.dispatcher.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (s *DispatcherService) String() string {
	return s.name
}
