// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/logging"
)

// Pipeline wires the full producer path: JetStream subscriber, router
// with middleware, envelope consumer, normalizer, and the dispatch
// publisher. The core process builds one and runs it for its lifetime.
type Pipeline struct {
	Normalizer *Normalizer
	Consumer   *Consumer
	Router     *Router
	Subscriber *Subscriber
	Publisher  *Publisher

	natsCfg *config.NATSConfig
	logger  watermill.LoggerAdapter
}

// NewPipeline assembles the pipeline around an existing normalizer.
// Streams are not touched here; call ProvisionStreams before Start.
func NewPipeline(natsCfg *config.NATSConfig, normalizer *Normalizer, logger watermill.LoggerAdapter) (*Pipeline, error) {
	if normalizer == nil {
		return nil, fmt.Errorf("normalizer required")
	}
	if logger == nil {
		logger = NewLoggerAdapter()
	}

	subCfg := SubscriberConfigFromNATS(natsCfg)
	subscriber, err := NewSubscriber(&subCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create ingest subscriber: %w", err)
	}

	pubCfg := DefaultPublisherConfig(subCfg.URL)
	publisher, err := NewPublisher(pubCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create ingest publisher: %w", err)
	}
	publisher.SetCircuitBreaker(NewCircuitBreaker(DefaultCircuitBreakerConfig("ingest-publisher")))

	routerCfg := RouterConfigFromNATS(natsCfg)
	router, err := NewRouter(&routerCfg, publisher.WatermillPublisher(), logger)
	if err != nil {
		return nil, fmt.Errorf("create ingest router: %w", err)
	}

	consumer := NewConsumer(normalizer)
	router.AddConsumerHandler("truth-normalizer", IngestWildcard, subscriber, consumer.Handle)

	normalizer.SetDispatchPublisher(publisher)

	return &Pipeline{
		Normalizer: normalizer,
		Consumer:   consumer,
		Router:     router,
		Subscriber: subscriber,
		Publisher:  publisher,
		natsCfg:    natsCfg,
		logger:     logger,
	}, nil
}

// ProvisionStreams creates or updates the NOVA_INGEST and
// NOVA_COMMANDS streams. Must succeed before publishers and the bound
// subscriber can operate.
func (p *Pipeline) ProvisionStreams(ctx context.Context, js JetStreamContext) error {
	ingestCfg := IngestStreamConfigFromNATS(p.natsCfg)
	ingestInit, err := NewStreamInitializer(js, &ingestCfg)
	if err != nil {
		return err
	}
	if _, err := ingestInit.EnsureStream(ctx); err != nil {
		return err
	}

	commandCfg := DefaultCommandStreamConfig()
	commandInit, err := NewStreamInitializer(js, &commandCfg)
	if err != nil {
		return err
	}
	if _, err := commandInit.EnsureStream(ctx); err != nil {
		return err
	}

	logging.Info().
		Str("ingest_stream", ingestCfg.Name).
		Str("command_stream", commandCfg.Name).
		Msg("JetStream streams provisioned")
	return nil
}

// Start launches the normalizer and the router, returning once all
// handlers are consuming.
func (p *Pipeline) Start(ctx context.Context) error {
	if err := p.Normalizer.Start(ctx); err != nil {
		return err
	}

	running := p.Router.RunAsync(ctx)
	select {
	case <-running:
	case <-ctx.Done():
		return ctx.Err()
	}

	logging.Info().Msg("Ingest pipeline started")
	return nil
}

// Stop shuts the pipeline down in consume-to-write order so nothing is
// read that cannot be appended.
func (p *Pipeline) Stop() error {
	var errs []error

	if err := p.Router.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close router: %w", err))
	}
	if err := p.Subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close subscriber: %w", err))
	}
	p.Normalizer.Stop()
	if err := p.Publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}

	logging.Info().Msg("Ingest pipeline stopped")
	return errors.Join(errs...)
}
