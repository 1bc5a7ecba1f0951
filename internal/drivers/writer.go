// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package drivers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/truth"
)

const (
	// writerBatch bounds one scan; a busy scope is drained in batches
	// so a single wakeup cannot hold the loop for long.
	writerBatch = 500

	// writerPollInterval backs up the notifier wakeups.
	writerPollInterval = time.Second
)

// Writer is the Core service that mirrors truth appends into the
// process-lifetime driver tree as they happen. It consumes the store's
// append notifier across all scopes and routes every new event through
// the registry.
//
// On start the writer positions itself at each existing scope's head:
// history is already on disk from previous runs, and the drivers
// append rather than rewrite, so replaying it would duplicate records.
// Scopes born while the writer runs are picked up from their first
// event.
type Writer struct {
	store *truth.Store
	reg   *Registry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	cursors map[string]models.Cursor
	running bool
}

// NewWriter creates a live driver writer over the store and registry.
func NewWriter(store *truth.Store, reg *Registry) (*Writer, error) {
	if store == nil {
		return nil, fmt.Errorf("truth store is required")
	}
	if reg == nil {
		return nil, fmt.Errorf("driver registry is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Writer{
		store:   store,
		reg:     reg,
		ctx:     ctx,
		cancel:  cancel,
		cursors: make(map[string]models.Cursor),
	}, nil
}

// Start primes the per-scope cursors at the current heads and begins
// the mirror loop.
func (w *Writer) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if err := w.prime(); err != nil {
		return err
	}
	w.running = true

	w.wg.Add(1)
	go w.run()

	logging.Info().
		Str("root", w.reg.Root()).
		Int("scopes", len(w.cursors)).
		Msg("Live driver writer started")
	return nil
}

// Stop ends the mirror loop and finalizes the registry so all driver
// output is flushed to disk.
func (w *Writer) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()

	if err := w.reg.Finalize(); err != nil {
		logging.Error().Err(err).Msg("Failed to finalize driver registry")
	}
	logging.Info().Msg("Live driver writer stopped")
}

// prime records the head cursor of every scope that already exists.
// Called with w.mu held.
func (w *Writer) prime() error {
	ctx, cancel := context.WithTimeout(w.ctx, 10*time.Second)
	defer cancel()

	scopes, err := w.store.Scopes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scopes: %w", err)
	}
	for _, scope := range scopes {
		head, err := w.store.Head(ctx, scope)
		if err != nil {
			return fmt.Errorf("failed to read head of %s: %w", scope, err)
		}
		w.cursors[scope] = head
	}
	return nil
}

func (w *Writer) run() {
	defer w.wg.Done()

	wake, unsubscribe := w.store.Notifier().SubscribeAll()
	defer unsubscribe()

	ticker := time.NewTicker(writerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-wake:
			w.drain()
		case <-ticker.C:
			w.drain()
		}
	}
}

// drain scans every scope forward from its cursor and routes the new
// events through the registry.
func (w *Writer) drain() {
	scopes, err := w.store.Scopes(w.ctx)
	if err != nil {
		if w.ctx.Err() == nil {
			logging.Error().Err(err).Msg("Driver writer failed to list scopes")
		}
		return
	}

	for _, scope := range scopes {
		w.drainScope(scope)
	}
}

func (w *Writer) drainScope(scope string) {
	w.mu.Lock()
	cursor := w.cursors[scope]
	w.mu.Unlock()

	for {
		events, err := w.store.ScanAfter(w.ctx, scope, models.AllLanes, cursor, models.Filter{}, writerBatch)
		if err != nil {
			if w.ctx.Err() == nil {
				logging.Error().Err(err).Str("scope", scope).Msg("Driver writer scan failed")
			}
			return
		}
		if len(events) == 0 {
			return
		}

		for _, e := range events {
			// A failed write advances anyway. The mirror must not
			// stall on one bad event; the export path re-derives
			// files from truth whenever a complete tree is needed.
			if _, _, err := w.reg.Write(e); err != nil {
				logging.Warn().
					Err(err).
					Str("scope", scope).
					Str("event_id", string(e.EventID)).
					Msg("Driver write failed")
			}
		}
		cursor = events[len(events)-1].Cursor()

		w.mu.Lock()
		w.cursors[scope] = cursor
		w.mu.Unlock()

		if len(events) < writerBatch {
			return
		}
	}
}
