// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/drivers"
	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
	"github.com/nova-telemetry/nova/internal/truth"
)

// DefaultTimeout bounds an export run when configuration does not.
const DefaultTimeout = 5 * time.Minute

// Exporter produces offline archives from the truth store. It is safe
// for concurrent use; every run stages into its own directory and owns
// a fresh driver registry.
type Exporter struct {
	store   *truth.Store
	catalog *Catalog
	dir     string
	timeout time.Duration
}

// NewExporter creates an exporter writing archives into cfg.Dir.
func NewExporter(store *truth.Store, cfg *config.ExportConfig) (*Exporter, error) {
	if store == nil {
		return nil, errors.New("truth store is required")
	}
	if cfg == nil {
		return nil, errors.New("export configuration is required")
	}
	catalog, err := NewCatalog(cfg.Dir)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Exporter{store: store, catalog: catalog, dir: cfg.Dir, timeout: timeout}, nil
}

// Run executes one export end to end: scan the window in canonical
// order, route every event through a fresh driver registry in a
// staging directory, then zip the tree into <dir>/<exportId>.zip.
// The staging directory is removed whether or not the run succeeds.
func (x *Exporter) Run(ctx context.Context, req *models.ExportRequest) (rec *models.ExportRecord, err error) {
	began := time.Now()
	var archiveBytes int64
	defer func() {
		status := "success"
		switch {
		case err == nil:
		case nverr.KindOf(err) == nverr.KindTimeout:
			status = "timeout"
		default:
			status = "error"
		}
		metrics.RecordExport(status, time.Since(began), archiveBytes)
	}()

	if req == nil || req.ScopeID == "" {
		return nil, nverr.New(nverr.KindSchema, "export request requires a scopeId")
	}
	if req.StopTime != 0 && req.StopTime < req.StartTime {
		return nil, nverr.Newf(nverr.KindSchema, "stopTime %d precedes startTime %d", req.StopTime, req.StartTime)
	}
	for _, l := range req.Lanes {
		if !l.Valid() {
			return nil, nverr.Newf(nverr.KindSchema, "unknown lane %q", l)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	exportID := uuid.NewString()
	staging, err := os.MkdirTemp(x.dir, "stage-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging) //nolint:errcheck // Best effort cleanup

	total, routed, err := x.stage(ctx, staging, req)
	if err != nil {
		return nil, err
	}

	archivePath := filepath.Join(x.dir, exportID+".zip")
	size, err := x.writeArchive(staging, archivePath)
	if err != nil {
		return nil, err
	}
	archiveBytes = size

	logging.Info().
		Str("export_id", exportID).
		Str("scope_id", req.ScopeID).
		Int("events", total).
		Int("routed", routed).
		Int64("archive_bytes", size).
		Dur("elapsed", time.Since(began)).
		Msg("Export complete")

	return &models.ExportRecord{
		ExportID:    exportID,
		CreatedAt:   models.Micros(time.Now().UnixMicro()),
		SizeBytes:   size,
		DownloadURL: "/exports/" + exportID + ".zip",
	}, nil
}

// stage scans the requested window and routes each event through a
// registry rooted at dir. Returns events scanned and events a driver
// claimed.
func (x *Exporter) stage(ctx context.Context, dir string, req *models.ExportRequest) (total, routed int, err error) {
	lanes := req.Lanes
	if len(lanes) == 0 {
		lanes = models.AllLanes
	}
	reg := drivers.NewRegistry(dir)
	rows, err := x.store.Range(ctx, req.ScopeID, lanes, req.StartTime, req.StopTime, req.Filters)
	if err != nil {
		return 0, 0, scanError(ctx, err)
	}
	defer rows.Close() //nolint:errcheck // Best effort cleanup

	for rows.Next() {
		e := rows.Event()
		total++
		_, ok, werr := reg.Write(e)
		if werr != nil {
			return total, routed, fmt.Errorf("driver write for %s: %w", e.EventID, werr)
		}
		if ok {
			routed++
		}
	}
	if rerr := rows.Err(); rerr != nil {
		return total, routed, scanError(ctx, rerr)
	}
	if ferr := reg.Finalize(); ferr != nil {
		return total, routed, fmt.Errorf("failed to finalize drivers: %w", ferr)
	}
	return total, routed, nil
}

// writeArchive zips the staging tree to dst via a partial file so a
// crashed run never leaves a half-written archive under the final name.
func (x *Exporter) writeArchive(staging, dst string) (size int64, err error) {
	partial := dst + ".partial"
	f, err := os.Create(partial) //nolint:gosec // G304: dst is derived from a minted uuid
	if err != nil {
		return 0, fmt.Errorf("failed to create archive file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(partial) //nolint:errcheck // Best effort cleanup
		}
	}()

	if aerr := ArchiveDir(staging, f, nil); aerr != nil {
		f.Close() //nolint:errcheck,gosec // Already failing
		return 0, aerr
	}
	if cerr := f.Close(); cerr != nil {
		return 0, fmt.Errorf("failed to flush archive file: %w", cerr)
	}
	if rerr := os.Rename(partial, dst); rerr != nil {
		return 0, fmt.Errorf("failed to publish archive: %w", rerr)
	}
	st, serr := os.Stat(dst)
	if serr != nil {
		return 0, fmt.Errorf("failed to stat archive: %w", serr)
	}
	return st.Size(), nil
}

// Resolve maps an export id to its archive path via the catalog.
func (x *Exporter) Resolve(exportID string) (path string, size int64, err error) {
	return x.catalog.Resolve(exportID)
}

// List returns records for every finished archive, newest first.
func (x *Exporter) List() ([]models.ExportRecord, error) {
	return x.catalog.List()
}

// scanError classifies a failed store scan: a deadline blown by the
// export budget reports as a timeout, anything else as the store being
// unavailable.
func scanError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nverr.Wrap(nverr.KindTimeout, "export timed out", err)
	}
	return nverr.Wrap(nverr.KindStoreUnavailable, "export scan failed", err)
}
