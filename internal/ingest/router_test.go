// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/nova-telemetry/nova/internal/config"
)

func TestDefaultRouterConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultRouterConfig()

	if cfg.CloseTimeout != 30*time.Second {
		t.Errorf("CloseTimeout = %v, want %v", cfg.CloseTimeout, 30*time.Second)
	}
	if cfg.RetryMaxRetries != 3 {
		t.Errorf("RetryMaxRetries = %d, want 3", cfg.RetryMaxRetries)
	}
	if cfg.RetryInitialInterval != 100*time.Millisecond {
		t.Errorf("RetryInitialInterval = %v, want %v", cfg.RetryInitialInterval, 100*time.Millisecond)
	}
	if cfg.RetryMaxInterval != time.Minute {
		t.Errorf("RetryMaxInterval = %v, want %v", cfg.RetryMaxInterval, time.Minute)
	}
	if cfg.RetryMultiplier != 2.0 {
		t.Errorf("RetryMultiplier = %f, want 2.0", cfg.RetryMultiplier)
	}
	if cfg.PoisonTopic != "nova.dlq.ingest" {
		t.Errorf("PoisonTopic = %q, want nova.dlq.ingest", cfg.PoisonTopic)
	}
}

func TestRouterConfigFromNATS(t *testing.T) {
	t.Parallel()

	natsCfg := &config.NATSConfig{
		RouterCloseTimeout:         10 * time.Second,
		RouterRetryCount:           7,
		RouterRetryInitialInterval: time.Second,
		RouterPoisonQueueEnabled:   true,
		RouterPoisonQueueTopic:     "nova.dlq.custom",
	}

	rc := RouterConfigFromNATS(natsCfg)

	if rc.CloseTimeout != 10*time.Second {
		t.Errorf("CloseTimeout = %v, want 10s", rc.CloseTimeout)
	}
	if rc.RetryMaxRetries != 7 {
		t.Errorf("RetryMaxRetries = %d, want 7", rc.RetryMaxRetries)
	}
	if rc.RetryInitialInterval != time.Second {
		t.Errorf("RetryInitialInterval = %v, want 1s", rc.RetryInitialInterval)
	}
	if rc.PoisonTopic != "nova.dlq.custom" {
		t.Errorf("PoisonTopic = %q, want nova.dlq.custom", rc.PoisonTopic)
	}
}

func TestRouterConfigFromNATS_PoisonDisabled(t *testing.T) {
	t.Parallel()

	rc := RouterConfigFromNATS(&config.NATSConfig{
		RouterPoisonQueueEnabled: false,
		RouterPoisonQueueTopic:   "nova.dlq.ingest",
	})
	if rc.PoisonTopic != "" {
		t.Errorf("PoisonTopic = %q, want empty when disabled", rc.PoisonTopic)
	}
}

func TestRouterConfigFromNATS_Nil(t *testing.T) {
	t.Parallel()

	rc := RouterConfigFromNATS(nil)
	def := DefaultRouterConfig()
	if rc != def {
		t.Errorf("RouterConfigFromNATS(nil) = %+v, want defaults %+v", rc, def)
	}
}

// TestNewRouter_NilArgs verifies nil config and logger fall back to the
// defaults.
func TestNewRouter_NilArgs(t *testing.T) {
	t.Parallel()

	router, err := NewRouter(nil, nil, nil)
	if err != nil {
		t.Fatalf("NewRouter error: %v", err)
	}
	if router == nil {
		t.Fatal("NewRouter returned nil")
	}
	defer router.Close()

	if router.config.CloseTimeout != DefaultRouterConfig().CloseTimeout {
		t.Error("Router config not defaulted")
	}
}

// TestNewRouter_PoisonWithoutPublisher verifies the poison middleware is
// skipped when no publisher is wired, rather than failing construction.
func TestNewRouter_PoisonWithoutPublisher(t *testing.T) {
	t.Parallel()

	cfg := DefaultRouterConfig()
	router, err := NewRouter(&cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewRouter error: %v", err)
	}
	defer router.Close()
}

func TestRouter_RunAsync(t *testing.T) {
	cfg := DefaultRouterConfig()
	cfg.PoisonTopic = ""

	router, err := NewRouter(&cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewRouter error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	running := router.RunAsync(ctx)
	select {
	case <-running:
	case <-time.After(5 * time.Second):
		t.Fatal("Router did not reach running state")
	}

	if !router.IsRunning() {
		t.Error("IsRunning() = false after RunAsync")
	}

	if err := router.Close(); err != nil {
		t.Errorf("Close error: %v", err)
	}
}
