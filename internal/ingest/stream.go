// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/nova-telemetry/nova/internal/config"
)

// Stream names. The ingest stream also owns the DLQ subjects so
// poisoned envelopes are durable without a second stream.
const (
	IngestStreamName  = "NOVA_INGEST"
	CommandStreamName = "NOVA_COMMANDS"
)

// JetStreamContext is the subset of jetstream.JetStream the
// initializer needs; tests substitute a mock.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	DeleteStream(ctx context.Context, name string) error
}

// StreamConfig defines one provisioned stream.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultIngestStreamConfig returns the NOVA_INGEST configuration. The
// duplicate window is the broker-side dedupe layer: producers set
// Nats-Msg-Id to the eventId, so a republished envelope inside the
// window never reaches the consumer at all.
func DefaultIngestStreamConfig() StreamConfig {
	return StreamConfig{
		Name: IngestStreamName,
		Subjects: []string{
			IngestWildcard,
			"nova.dlq.>",
		},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        10 * 1024 * 1024 * 1024,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// DefaultCommandStreamConfig returns the NOVA_COMMANDS configuration.
// Dispatches are short-lived; producer agents consume them promptly
// and the CommandRequest truth row is the durable record.
func DefaultCommandStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            CommandStreamName,
		Subjects:        []string{CommandWildcard},
		MaxAge:          24 * time.Hour,
		MaxBytes:        1024 * 1024 * 1024,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// IngestStreamConfigFromNATS applies the loaded NATS section to the
// ingest stream defaults.
func IngestStreamConfigFromNATS(cfg *config.NATSConfig) StreamConfig {
	sc := DefaultIngestStreamConfig()
	if cfg == nil {
		return sc
	}
	if cfg.StreamRetentionDays > 0 {
		sc.MaxAge = time.Duration(cfg.StreamRetentionDays) * 24 * time.Hour
	}
	if cfg.MaxStore > 0 {
		sc.MaxBytes = cfg.MaxStore
	}
	if cfg.DuplicateWindow > 0 {
		sc.DuplicateWindow = cfg.DuplicateWindow
	}
	return sc
}

// StreamInitializer creates or updates one stream before publishers
// and subscribers start. Idempotent.
type StreamInitializer struct {
	js     JetStreamContext
	config StreamConfig
}

// NewStreamInitializer builds an initializer for one stream config.
func NewStreamInitializer(js JetStreamContext, cfg *StreamConfig) (*StreamInitializer, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream context required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("stream config required")
	}

	return &StreamInitializer{
		js:     js,
		config: *cfg,
	}, nil
}

// EnsureStream creates the stream or updates an existing one to the
// configured settings.
func (s *StreamInitializer) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:        s.config.Name,
		Subjects:    s.config.Subjects,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      s.config.MaxAge,
		MaxBytes:    s.config.MaxBytes,
		MaxMsgs:     s.config.MaxMsgs,
		Duplicates:  s.config.DuplicateWindow,
		Replicas:    s.config.Replicas,
		Storage:     jetstream.FileStorage,
		AllowDirect: true,
		Discard:     jetstream.DiscardOld,
	}

	_, err := s.js.Stream(ctx, s.config.Name)
	if err == nil {
		stream, err := s.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", s.config.Name, err)
		}
		return stream, nil
	}

	if errors.Is(err, jetstream.ErrStreamNotFound) {
		stream, err := s.js.CreateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("create stream %s: %w", s.config.Name, err)
		}
		return stream, nil
	}

	return nil, fmt.Errorf("check stream %s: %w", s.config.Name, err)
}

// IsHealthy reports whether the stream exists and is reachable.
func (s *StreamInitializer) IsHealthy(ctx context.Context) bool {
	_, err := s.js.Stream(ctx, s.config.Name)
	return err == nil
}

// Config returns the stream configuration.
func (s *StreamInitializer) Config() StreamConfig {
	return s.config
}
