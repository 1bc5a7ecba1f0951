// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package services

import (
	"context"
	"fmt"
)

// DirWatcher matches *manifest.CatalogWatcher's lifecycle. Start
// publishes the existing catalog and begins watching; Stop closes the
// fsnotify watcher.
type DirWatcher interface {
	Start(ctx context.Context) error
	Stop()
}

// CatalogWatcherService wraps the manifest directory watcher as a
// supervised service. Restarting it re-publishes the full catalog,
// which is safe: manifest registration is idempotent by id and
// version.
type CatalogWatcherService struct {
	watcher DirWatcher
	name    string
}

// NewCatalogWatcherService creates the watcher service wrapper.
func NewCatalogWatcherService(watcher DirWatcher) *CatalogWatcherService {
	return &CatalogWatcherService{
		watcher: watcher,
		name:    "manifest-watcher",
	}
}

// Serve implements suture.Service.
func (s *CatalogWatcherService) Serve(ctx context.Context) error {
	if err := s.watcher.Start(ctx); err != nil {
		return fmt.Errorf("manifest watcher start failed: %w", err)
	}

	<-ctx.Done()
	s.watcher.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (s *CatalogWatcherService) String() string {
	return s.name
}
