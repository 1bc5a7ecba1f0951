// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package drivers

import (
	"encoding/binary"
	"fmt"

	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
)

const (
	framesDriverID      = "raw-frames"
	framesDriverVersion = "1.0.0"
	framesFilename      = "frames.bin"
)

// FramesDriver persists raw lane frames as length-prefixed binary
// records: a big-endian u32 byte count followed by the frame bytes.
// The prefix preserves frame boundaries exactly as ingested, so a
// reader can walk the file record by record without any delimiter
// convention inside the frames themselves.
type FramesDriver struct {
	t *tree
}

// NewFramesDriver creates the built-in raw frames driver rooted at root.
func NewFramesDriver(root string) *FramesDriver {
	return &FramesDriver{t: newTree(root, framesFilename)}
}

// Caps declares the driver lane-wide on raw.
func (d *FramesDriver) Caps() Capabilities {
	return Capabilities{
		DriverID: framesDriverID,
		Version:  framesDriverVersion,
		Lane:     models.LaneRaw,
		Filename: framesFilename,
	}
}

// Write appends one length-prefixed frame record.
func (d *FramesDriver) Write(e *models.Event) (string, error) {
	f, _, path, err := d.t.fileFor(e)
	if err != nil {
		metrics.RecordDriverWrite(framesDriverID, 0, err)
		return "", err
	}

	// One buffer, one write: a record is never split across syscalls.
	rec := make([]byte, 4+len(e.Frame))
	binary.BigEndian.PutUint32(rec[:4], uint32(len(e.Frame))) //nolint:gosec // G115: frame sizes are bounded well below 4 GiB at ingest
	copy(rec[4:], e.Frame)

	n, err := f.Write(rec)
	metrics.RecordDriverWrite(framesDriverID, n, err)
	if err != nil {
		return "", fmt.Errorf("failed to write frame record: %w", err)
	}
	return path, nil
}

// Finalize closes all open frame files.
func (d *FramesDriver) Finalize() error {
	return d.t.closeAll()
}
