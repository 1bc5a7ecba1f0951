// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package services

import (
	"context"
)

// ClientHub matches *websocket.Hub's run loop. The hub's Run already
// follows the suture contract (block until cancellation, return
// ctx.Err()), so the wrapper only contributes a service name.
type ClientHub interface {
	Run(ctx context.Context) error
}

// HubService wraps the client WebSocket hub as a supervised service.
type HubService struct {
	hub  ClientHub
	name string
}

// NewHubService creates the hub service wrapper.
func NewHubService(hub ClientHub) *HubService {
	return &HubService{
		hub:  hub,
		name: "client-hub",
	}
}

// Serve implements suture.Service by delegating to the hub's run loop,
// which processes session registration and broadcasts until canceled.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.Run(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (s *HubService) String() string {
	return s.name
}
