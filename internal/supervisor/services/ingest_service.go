// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nova-telemetry/nova/internal/logging"
)

// IngestPipeline matches *ingest.Pipeline's lifecycle. Start blocks
// until the router's handlers are consuming; Stop tears down in
// consume-to-write order.
type IngestPipeline interface {
	Start(ctx context.Context) error
	Stop() error
}

// IngestPipelineService wraps the Core ingest pipeline as a supervised
// service. A restart reconnects the JetStream consumer; the durable
// consumer resumes from its last acknowledged sequence, so restarting
// never loses envelopes.
type IngestPipelineService struct {
	pipeline IngestPipeline
	name     string
}

// NewIngestPipelineService creates the ingest service wrapper.
func NewIngestPipelineService(pipeline IngestPipeline) *IngestPipelineService {
	return &IngestPipelineService{
		pipeline: pipeline,
		name:     "ingest-pipeline",
	}
}

// Serve implements suture.Service. A Stop error after cancellation is
// logged rather than returned so shutdown noise never reads as a crash
// to the supervisor.
func (s *IngestPipelineService) Serve(ctx context.Context) error {
	start := time.Now()
	if err := s.pipeline.Start(ctx); err != nil {
		return fmt.Errorf("ingest pipeline start failed: %w", err)
	}
	logging.Debug().Dur("startup", time.Since(start)).Msg("Ingest pipeline running under supervision")

	<-ctx.Done()

	if err := s.pipeline.Stop(); err != nil {
		logging.Warn().Err(err).Msg("Ingest pipeline stop reported errors")
	}
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (s *IngestPipelineService) String() string {
	return s.name
}
