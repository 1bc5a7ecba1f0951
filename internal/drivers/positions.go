// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package drivers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
)

const (
	positionsDriverID      = "positions-csv"
	positionsDriverVersion = "1.0.0"
	positionsFilename      = "positions.csv"

	positionsHeader = "canonicalTruthTime,sourceTruthTime,lat,lon,alt,heading,speed\n"
)

// PositionsDriver persists parsed Position events as fixed-column CSV,
// one file per entity per day. The header is written once per file.
// Times are integer microseconds and floats use the shortest exact
// decimal form, so identical input always produces identical bytes.
//
// Missing payload fields become empty cells; the column set never
// varies. Position payloads carrying extra fields are not an error,
// the extras are simply not exported.
type PositionsDriver struct {
	t *tree
}

// NewPositionsDriver creates the built-in positions CSV driver rooted
// at root.
func NewPositionsDriver(root string) *PositionsDriver {
	return &PositionsDriver{t: newTree(root, positionsFilename)}
}

// Caps claims exactly (parsed, Position).
func (d *PositionsDriver) Caps() Capabilities {
	return Capabilities{
		DriverID:    positionsDriverID,
		Version:     positionsDriverVersion,
		Lane:        models.LaneParsed,
		MessageType: models.TypePosition,
		Filename:    positionsFilename,
	}
}

// positionFields is the subset of a Position payload the CSV carries.
// Pointers distinguish an absent field from a legitimate zero.
type positionFields struct {
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	Alt     *float64 `json:"alt"`
	Heading *float64 `json:"heading"`
	Speed   *float64 `json:"speed"`
}

// Write appends one CSV row, preceded by the header when the file is
// new.
func (d *PositionsDriver) Write(e *models.Event) (string, error) {
	var pos positionFields
	if err := json.Unmarshal(e.Payload, &pos); err != nil {
		metrics.RecordDriverWrite(positionsDriverID, 0, err)
		return "", fmt.Errorf("failed to decode position payload: %w", err)
	}

	f, fresh, path, err := d.t.fileFor(e)
	if err != nil {
		metrics.RecordDriverWrite(positionsDriverID, 0, err)
		return "", err
	}

	var b strings.Builder
	if fresh {
		b.WriteString(positionsHeader)
	}
	b.WriteString(strconv.FormatInt(int64(e.CanonicalTime), 10))
	b.WriteByte(',')
	if e.SourceTime != nil {
		b.WriteString(strconv.FormatInt(int64(*e.SourceTime), 10))
	}
	for _, v := range []*float64{pos.Lat, pos.Lon, pos.Alt, pos.Heading, pos.Speed} {
		b.WriteByte(',')
		if v != nil {
			b.WriteString(strconv.FormatFloat(*v, 'f', -1, 64))
		}
	}
	b.WriteByte('\n')

	n, err := f.WriteString(b.String())
	metrics.RecordDriverWrite(positionsDriverID, n, err)
	if err != nil {
		return "", fmt.Errorf("failed to write position row: %w", err)
	}
	return path, nil
}

// Finalize closes all open CSV files.
func (d *PositionsDriver) Finalize() error {
	return d.t.closeAll()
}
