// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/drivers"
	"github.com/nova-telemetry/nova/internal/export"
	"github.com/nova-telemetry/nova/internal/ingest"
	"github.com/nova-telemetry/nova/internal/ipc"
	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/manifest"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/playback"
	"github.com/nova-telemetry/nova/internal/supervisor"
	"github.com/nova-telemetry/nova/internal/supervisor/services"
	"github.com/nova-telemetry/nova/internal/truth"
)

const version = "1.0.0"

// chunkRelay breaks the construction cycle between the playback engine,
// which needs a chunk sink, and the IPC dispatcher, which needs the
// engine. The inner sink is set before the dispatcher starts and never
// changes afterwards.
type chunkRelay struct {
	sink playback.ChunkSink
}

func (r *chunkRelay) DeliverChunk(ctx context.Context, connID string, chunk *models.EventChunk) error {
	return r.sink.DeliverChunk(ctx, connID, chunk)
}

func (r *chunkRelay) DeliverRaw(ctx context.Context, connID string, chunk *models.EventChunk) error {
	return r.sink.DeliverRaw(ctx, connID, chunk)
}

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("mode", cfg.Core.Mode).
		Str("data_dir", cfg.Core.DataDir).
		Msg("Starting NOVA core")
	metrics.SetAppInfo(version, runtime.Version(), cfg.Core.Mode)

	// Truth store. Close checkpoints the WAL, so it runs after the
	// supervisor has drained every writer.
	store, err := truth.Open(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open truth store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing truth store")
		}
	}()
	logging.Info().Str("path", store.Path()).Msg("Truth store opened")

	// Broker. The embedded server binds the host and port of the
	// configured URL; a port of 0 picks an ephemeral one, so every
	// later consumer dials the resolved ClientURL.
	natsCfg := cfg.NATS
	var broker *ipc.EmbeddedServer
	if cfg.NATS.EmbeddedServer {
		broker, err = ipc.NewEmbeddedServer(&natsCfg)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to start embedded NATS broker")
		}
		defer func() {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelShutdown()
			if err := broker.Shutdown(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("Error shutting down embedded broker")
			}
		}()
		natsCfg.URL = broker.ClientURL()
		logging.Info().
			Str("url", natsCfg.URL).
			Bool("jetstream", broker.JetStreamEnabled()).
			Msg("Embedded NATS broker started")
	} else {
		logging.Info().Str("url", natsCfg.URL).Msg("Using external NATS broker")
	}

	conn, err := natsgo.Connect(natsCfg.URL,
		natsgo.Name("nova-core-ipc"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to dial broker")
	}
	defer conn.Close()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Manifest registry. Its insert path goes through the normalizer
	// built right below; the closure defers the dereference until the
	// first publication, which cannot happen before the tree starts.
	var normalizer *ingest.Normalizer
	registry := manifest.NewRegistry(func(ctx context.Context, e *models.Event) (*models.InsertResult, error) {
		return normalizer.Insert(ctx, e)
	})

	normalizer, err = ingest.NewNormalizer(store, registry, &cfg.Ingest)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build normalizer")
	}

	// Replay ManifestPublished history before ingest starts so ui-lane
	// validation sees every version that was ever published here.
	if err := registry.LoadFromStore(ctx, store); err != nil {
		logging.Fatal().Err(err).Msg("Failed to load manifest registry from truth store")
	}

	pipeline, err := ingest.NewPipeline(&natsCfg, normalizer, ingest.NewLoggerAdapter())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build ingest pipeline")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create JetStream context")
	}
	if err := pipeline.ProvisionStreams(ctx, js); err != nil {
		logging.Fatal().Err(err).Msg("Failed to provision JetStream streams")
	}

	// Live driver files for the duration of this process.
	driverRegistry := drivers.NewRegistry(cfg.Drivers.Root)
	writer, err := drivers.NewWriter(store, driverRegistry)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build driver writer")
	}

	exporter, err := export.NewExporter(store, &cfg.Export)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build exporter")
	}

	// Playback engine and dispatcher reference each other: the engine
	// pushes chunks into the dispatcher's per-connection subjects, the
	// dispatcher drives the engine from IPC requests. The relay breaks
	// the cycle.
	relay := &chunkRelay{}
	engine, err := playback.NewEngine(store, relay, &cfg.Playback)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build playback engine")
	}
	defer engine.Close()

	dispatcher := ipc.NewDispatcher(conn, store, engine, normalizer, exporter)
	relay.sink = dispatcher

	watcher := manifest.NewCatalogWatcher(cfg.ManifestsDir(), registry)

	// === ADD SERVICES TO SUPERVISOR TREE ===

	tree, err := supervisor.NewTree("nova-core", logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewIngestPipelineService(pipeline))
	tree.AddDataService(services.NewTruthWriterService(writer))
	logging.Info().Msg("Ingest pipeline and truth writer added to supervisor tree")

	tree.AddMessagingService(services.NewDispatcherService(dispatcher))
	tree.AddMessagingService(services.NewCatalogWatcherService(watcher))
	logging.Info().Msg("IPC dispatcher and manifest watcher added to supervisor tree")

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{
			Addr:         cfg.Metrics.Addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		tree.AddAPIService(services.NewHTTPServerService("metrics-server", metricsServer, 10*time.Second))
		logging.Info().Str("addr", cfg.Metrics.Addr).Msg("Metrics server service added")
	}

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("NOVA core stopped gracefully")
}
