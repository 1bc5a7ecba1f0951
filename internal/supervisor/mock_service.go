// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package supervisor

import (
	"context"
	"fmt"
	"sync/atomic"
)

// MockService is a controllable suture.Service for tree tests: it
// fails a configured number of Serve calls, then parks until its
// context is canceled.
type MockService struct {
	name string

	serves   atomic.Int32
	failures atomic.Int32
}

// NewMockService creates a mock service for tree tests.
func NewMockService(name string) *MockService {
	return &MockService{name: name}
}

// Serve counts the call, burns one queued failure if any remain, and
// otherwise blocks until cancellation.
func (m *MockService) Serve(ctx context.Context) error {
	m.serves.Add(1)

	if m.failures.Add(-1) >= 0 {
		return fmt.Errorf("%s: injected failure", m.name)
	}

	<-ctx.Done()
	return ctx.Err()
}

// SetFailCount queues n failures; the next n Serve calls return an
// error before the service settles.
func (m *MockService) SetFailCount(n int) {
	m.failures.Store(int32(n))
}

// StartCount reports how many times the supervisor has started the
// service, restarts included.
func (m *MockService) StartCount() int32 {
	return m.serves.Load()
}

// String implements fmt.Stringer for supervisor logging.
func (m *MockService) String() string {
	return m.name
}
