// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package ingest

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/nova-telemetry/nova/internal/metrics"
)

// CircuitBreakerConfig holds breaker settings for publish paths.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed through in half-open state
	Interval         time.Duration // Count reset interval while closed
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Consecutive failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// NewCircuitBreaker creates a breaker whose state transitions feed the
// circuit-breaker metrics.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[any] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String())
			metrics.UpdateBreakerState(name, BreakerStateValue(to))
		},
	}

	return gobreaker.NewCircuitBreaker[any](settings)
}

// BreakerStateValue maps a gobreaker state onto the gauge encoding:
// 0=closed, 1=half-open, 2=open.
func BreakerStateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
