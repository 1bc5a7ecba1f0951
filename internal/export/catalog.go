// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// Catalog reads finished archives out of an export directory. Core
// writes archives through the Exporter; the Server edge holds only a
// Catalog over the shared directory to serve downloads and listings.
type Catalog struct {
	dir string
}

// NewCatalog opens (creating if needed) the export directory.
func NewCatalog(dir string) (*Catalog, error) {
	if dir == "" {
		return nil, errors.New("export directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &Catalog{dir: dir}, nil
}

// Resolve maps an export id to the archive path it was written to.
// The id is validated as a uuid before touching the filesystem, so a
// crafted id cannot escape the export directory.
func (c *Catalog) Resolve(exportID string) (path string, size int64, err error) {
	if _, perr := uuid.Parse(exportID); perr != nil {
		return "", 0, nverr.Newf(nverr.KindNotFound, "unknown export %q", exportID)
	}
	path = filepath.Join(c.dir, exportID+".zip")
	st, serr := os.Stat(path)
	if serr != nil {
		if os.IsNotExist(serr) {
			return "", 0, nverr.Newf(nverr.KindNotFound, "unknown export %q", exportID)
		}
		return "", 0, fmt.Errorf("failed to stat export %s: %w", exportID, serr)
	}
	return path, st.Size(), nil
}

// List returns records for every finished archive, newest first.
// Partial files and staging directories are skipped.
func (c *Catalog) List() ([]models.ExportRecord, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read export directory: %w", err)
	}
	records := make([]models.ExportRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".zip") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".zip")
		if _, perr := uuid.Parse(id); perr != nil {
			continue
		}
		info, ierr := entry.Info()
		if ierr != nil {
			continue
		}
		records = append(records, models.ExportRecord{
			ExportID:    id,
			CreatedAt:   models.Micros(info.ModTime().UnixMicro()),
			SizeBytes:   info.Size(),
			DownloadURL: "/exports/" + id + ".zip",
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt > records[j].CreatedAt })
	return records, nil
}
