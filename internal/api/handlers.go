// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package api

import (
	"context"
	"time"

	"github.com/nova-telemetry/nova/internal/auth"
	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/export"
	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/outstream"
	"github.com/nova-telemetry/nova/internal/presentation"
	"github.com/nova-telemetry/nova/internal/runs"
	"github.com/nova-telemetry/nova/internal/users"
	"github.com/nova-telemetry/nova/internal/websocket"
)

// Exporter is the slice of the Core IPC client the HTTP layer needs:
// run bundles regenerate through the Core's export pipeline.
type Exporter interface {
	Export(ctx context.Context, req *models.ExportRequest) (*models.ExportRecord, error)
}

// ManifestCatalog lists the manifests known to this node, for /config.
// Satisfied by *manifest.Registry.
type ManifestCatalog interface {
	List() []*models.Manifest
}

// Handler carries the handler dependencies. One instance serves all
// routes; every field is goroutine-safe.
type Handler struct {
	cfg       *config.Config
	users     *users.Store
	jwt       *auth.JWTManager
	lockout   *auth.LockoutTracker
	oidc      *auth.OIDCProvider
	seclog    *logging.SecurityLogger
	gateway   *websocket.Gateway
	hub       *websocket.Hub
	core      Exporter
	streams   *outstream.Manager
	runs      *runs.Store
	pres      *presentation.Store
	exports   *export.Catalog
	manifests ManifestCatalog
	ready     func() bool
	started   time.Time
}

// HandlerDeps collects what NewHandler wires into the route tree.
// OIDC may be nil (SSO disabled); Ready may be nil (always ready);
// Manifests may be nil (empty catalog in /config).
type HandlerDeps struct {
	Config    *config.Config
	Users     *users.Store
	JWT       *auth.JWTManager
	Lockout   *auth.LockoutTracker
	OIDC      *auth.OIDCProvider
	Gateway   *websocket.Gateway
	Hub       *websocket.Hub
	Core      Exporter
	Streams   *outstream.Manager
	Runs      *runs.Store
	Pres      *presentation.Store
	Exports   *export.Catalog
	Manifests ManifestCatalog
	Ready     func() bool
}

// NewHandler builds the handler set.
func NewHandler(d HandlerDeps) *Handler {
	return &Handler{
		cfg:       d.Config,
		users:     d.Users,
		jwt:       d.JWT,
		lockout:   d.Lockout,
		oidc:      d.OIDC,
		seclog:    logging.NewSecurityLogger(),
		gateway:   d.Gateway,
		hub:       d.Hub,
		core:      d.Core,
		streams:   d.Streams,
		runs:      d.Runs,
		pres:      d.Pres,
		exports:   d.Exports,
		manifests: d.Manifests,
		ready:     d.Ready,
		started:   time.Now(),
	}
}
