// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package services

import (
	"context"
	"fmt"
)

// TruthWriter matches *drivers.Writer's lifecycle. Start primes the
// high-water marks and begins draining append notifications into the
// lane driver files; Stop flushes and closes the open handles.
type TruthWriter interface {
	Start() error
	Stop()
}

// TruthWriterService wraps the driver file writer as a supervised
// service. The writer reads from the truth store's append notifier,
// so a restart re-primes from the recorded high-water marks and
// rewrites nothing.
type TruthWriterService struct {
	writer TruthWriter
	name   string
}

// NewTruthWriterService creates the writer service wrapper.
func NewTruthWriterService(writer TruthWriter) *TruthWriterService {
	return &TruthWriterService{
		writer: writer,
		name:   "truth-writer",
	}
}

// Serve implements suture.Service.
func (s *TruthWriterService) Serve(ctx context.Context) error {
	if err := s.writer.Start(); err != nil {
		return fmt.Errorf("truth writer start failed: %w", err)
	}

	<-ctx.Done()
	s.writer.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (s *TruthWriterService) String() string {
	return s.name
}
