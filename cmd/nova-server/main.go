// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "github.com/nova-telemetry/nova/docs" // Import generated swagger docs
	"github.com/nova-telemetry/nova/internal/api"
	"github.com/nova-telemetry/nova/internal/auth"
	"github.com/nova-telemetry/nova/internal/authz"
	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/export"
	"github.com/nova-telemetry/nova/internal/ipc"
	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/manifest"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/outstream"
	"github.com/nova-telemetry/nova/internal/presentation"
	"github.com/nova-telemetry/nova/internal/runs"
	"github.com/nova-telemetry/nova/internal/supervisor"
	"github.com/nova-telemetry/nova/internal/supervisor/services"
	"github.com/nova-telemetry/nova/internal/users"
	ws "github.com/nova-telemetry/nova/internal/websocket"
)

const version = "1.0.0"

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
		Msg("Starting NOVA server")
	metrics.SetAppInfo(version, runtime.Version(), cfg.Core.Mode)

	// Accounts and sessions. The bootstrap leaves an existing admin
	// untouched so API-side password rotations survive restarts.
	userStore, err := users.Open(cfg.UsersFile())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open user store")
	}
	if err := userStore.Bootstrap(cfg.Security.AdminUsername, cfg.Security.AdminPassword); err != nil {
		logging.Fatal().Err(err).Msg("Failed to bootstrap admin account")
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	lockout := auth.NewLockoutTracker(&cfg.Security, logging.Logger())

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oidcProvider, err := auth.NewOIDCProvider(ctx, &cfg.Security.OIDC, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize OIDC provider")
	}
	if oidcProvider != nil {
		logging.Info().Str("issuer", cfg.Security.OIDC.IssuerURL).Msg("OIDC single sign-on enabled")
	}

	enforcer, err := authz.NewEnforcer(&cfg.Security.Casbin)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization enforcer")
	}

	// Core IPC link. The connection retries forever; requests made
	// while the Core is away fail on their own deadlines, and readiness
	// follows the link state.
	core, err := ipc.NewClient(cfg.NATS.URL, &cfg.IPC)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build Core IPC client")
	}
	defer core.Close()
	if core.Connected() {
		logging.Info().Str("url", cfg.NATS.URL).Msg("Connected to Core")
	} else {
		logging.Warn().Str("url", cfg.NATS.URL).Msg("Core not reachable yet (will retry)")
	}

	nodeMode := models.PlaybackMode(cfg.Core.Mode)

	// Export catalog over the directory the Core's export pipeline
	// writes into.
	exportCatalog, err := export.NewCatalog(cfg.Export.Dir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open export catalog")
	}

	// Client socket plumbing.
	hub := ws.NewHub()
	gateway := ws.NewGateway(core, hub, enforcer, exportCatalog, nodeMode)

	// Output streams: definitions in Badger, listeners managed for the
	// process lifetime. The gateway unbinds timeline-bound streams when
	// their UI connection goes away.
	defs, err := outstream.OpenDefinitions(cfg.Outstream.StorePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open stream definition store")
	}
	defer func() {
		if err := defs.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing stream definition store")
		}
	}()
	streams := outstream.NewManager(defs, core)
	gateway.SetUnbinder(streams)

	// Per-user state under the shared data directory.
	runStore, err := runs.NewStore(cfg.Core.DataDir, nodeMode)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open run store")
	}
	presStore, err := presentation.NewStore(cfg.Core.DataDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open presentation store")
	}

	// Manifest catalog. Publications ride the metadata ingest IPC path
	// so the Core's normalizer stamps them like any other event. The
	// Core watches the same directory with a direct insert; whichever
	// process publishes a version first wins and the other lands as an
	// idempotent duplicate.
	registry := manifest.NewRegistry(func(ctx context.Context, e *models.Event) (*models.InsertResult, error) {
		return core.IngestMetadata(ctx, &models.MetadataIngest{
			ScopeID:     e.ScopeID,
			Identity:    e.Identity,
			MessageType: e.MessageType,
			Payload:     e.Payload,
			EventID:     e.EventID,
		})
	})
	watcher := manifest.NewCatalogWatcher(cfg.ManifestsDir(), registry)

	handler := api.NewHandler(api.HandlerDeps{
		Config:    cfg,
		Users:     userStore,
		JWT:       jwtManager,
		Lockout:   lockout,
		OIDC:      oidcProvider,
		Gateway:   gateway,
		Hub:       hub,
		Core:      core,
		Streams:   streams,
		Runs:      runStore,
		Pres:      presStore,
		Exports:   exportCatalog,
		Manifests: registry,
		Ready:     core.Connected,
	})
	mw := api.NewChiMiddleware(&cfg.Security, jwtManager, enforcer)
	router := api.NewRouter(handler, mw)

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (NOVA_DISABLE_RATE_LIMIT=true); load tests only")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin (NOVA_CORS_ORIGINS=*) with authentication enabled; set explicit origins in production")
	}

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router.Setup(),
		ReadTimeout: cfg.Server.Timeout,
		// Export downloads and upgraded sockets outlive any fixed
		// write deadline.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	tree, err := supervisor.NewTree("nova-server", logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddMessagingService(services.NewOutstreamService(streams))
	tree.AddMessagingService(services.NewCatalogWatcherService(watcher))
	logging.Info().Msg("Hub, output streams and manifest watcher added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService("api-server", server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

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

	logging.Info().Msg("NOVA server stopped gracefully")
}
