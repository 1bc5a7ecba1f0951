// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package services

import (
	"context"
	"fmt"
)

// StreamManager matches *outstream.Manager's lifecycle. Start brings up
// every enabled stream listener and returns; Stop halts them all.
type StreamManager interface {
	Start(ctx context.Context) error
	Stop()
}

// OutstreamService wraps the output stream manager as a supervised
// service. A listener that dies at runtime is the manager's own
// problem (it records lastError and stays stopped); the supervisor
// only restarts the manager when Start itself fails, which means the
// definition store is unreadable.
type OutstreamService struct {
	manager StreamManager
	name    string
}

// NewOutstreamService creates the output stream service wrapper.
func NewOutstreamService(manager StreamManager) *OutstreamService {
	return &OutstreamService{
		manager: manager,
		name:    "output-streams",
	}
}

// Serve implements suture.Service.
func (s *OutstreamService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("output stream manager start failed: %w", err)
	}

	<-ctx.Done()
	s.manager.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (s *OutstreamService) String() string {
	return s.name
}
