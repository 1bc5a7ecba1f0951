// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"

	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/metrics"
)

// RouterConfig holds the Watermill router middleware settings.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish on close.
	CloseTimeout time.Duration

	// Retry configuration (exponential backoff).
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// PoisonTopic receives envelopes whose failure is permanent. Empty
	// disables poison routing; permanent failures then exhaust retries
	// and are dropped by the broker's MaxDeliver.
	PoisonTopic string
}

// DefaultRouterConfig returns production defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     time.Minute,
		RetryMultiplier:      2.0,
		PoisonTopic:          "nova.dlq.ingest",
	}
}

// RouterConfigFromNATS maps the loaded NATS section onto a router
// config, falling back to defaults for unset fields.
func RouterConfigFromNATS(cfg *config.NATSConfig) RouterConfig {
	rc := DefaultRouterConfig()
	if cfg == nil {
		return rc
	}
	if cfg.RouterCloseTimeout > 0 {
		rc.CloseTimeout = cfg.RouterCloseTimeout
	}
	if cfg.RouterRetryCount > 0 {
		rc.RetryMaxRetries = cfg.RouterRetryCount
	}
	if cfg.RouterRetryInitialInterval > 0 {
		rc.RetryInitialInterval = cfg.RouterRetryInitialInterval
	}
	if !cfg.RouterPoisonQueueEnabled {
		rc.PoisonTopic = ""
	} else if cfg.RouterPoisonQueueTopic != "" {
		rc.PoisonTopic = cfg.RouterPoisonQueueTopic
	}
	return rc
}

// Router wraps the Watermill router with the ingest middleware stack:
// panic recovery, exponential-backoff retry, and poison routing for
// failures the retry loop can never fix (schema violations, unknown
// manifests). Transient failures keep retrying and finally fall back
// to the broker's redelivery.
type Router struct {
	router   *message.Router
	config   RouterConfig
	logger   watermill.LoggerAdapter
	handlers map[string]*message.Handler
}

// NewRouter builds the router. poisonPublisher may be nil when poison
// routing is disabled.
func NewRouter(cfg *RouterConfig, poisonPublisher message.Publisher, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = NewLoggerAdapter()
	}
	if cfg == nil {
		defaultCfg := DefaultRouterConfig()
		cfg = &defaultCfg
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	r := &Router{
		router:   wmRouter,
		config:   *cfg,
		logger:   logger,
		handlers: make(map[string]*message.Handler),
	}

	wmRouter.AddPlugin(plugin.SignalsHandler)

	// Middleware order is outer to inner: recover panics first, retry
	// around the poison decision, poison only what can never succeed.
	wmRouter.AddMiddleware(middleware.Recoverer)

	retryMiddleware := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retryMiddleware.Middleware)

	if poisonPublisher != nil && cfg.PoisonTopic != "" {
		poisonQueue, err := middleware.PoisonQueueWithFilter(poisonPublisher, cfg.PoisonTopic, func(err error) bool {
			if permanentFailure(err) {
				metrics.IngestPoisoned.Inc()
				return true
			}
			return false
		})
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		wmRouter.AddMiddleware(poisonQueue)
	}

	return r, nil
}

// AddConsumerHandler registers a no-publish handler for a topic.
func (r *Router) AddConsumerHandler(
	name string,
	subscribeTopic string,
	subscriber message.Subscriber,
	handler message.NoPublishHandlerFunc,
) *message.Handler {
	h := r.router.AddConsumerHandler(name, subscribeTopic, subscriber, handler)
	r.handlers[name] = h
	return h
}

// Run starts the router and blocks until the context is canceled or
// Close is called.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// RunAsync starts the router in the background. The returned channel
// closes once all handlers are running.
func (r *Router) RunAsync(ctx context.Context) <-chan struct{} {
	running := make(chan struct{})

	go func() {
		go func() {
			if err := r.router.Run(ctx); err != nil {
				r.logger.Error("Ingest router stopped", err, nil)
			}
		}()
		<-r.router.Running()
		close(running)
	}()

	return running
}

// Running returns a channel that closes when the router is running.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// IsRunning reports whether the router is processing messages.
func (r *Router) IsRunning() bool {
	return r.router.IsRunning()
}

// Close gracefully stops the router, waiting up to CloseTimeout for
// in-flight messages.
func (r *Router) Close() error {
	return r.router.Close()
}
