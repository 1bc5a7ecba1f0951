// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package models

import (
	"strings"
	"time"
)

// Run is a per-user named export window. Runs are artifacts layered
// over truth: mutable, last-writer-wins, and they leave no truth
// trace. The window bounds are fractional seconds in the run's
// timebase; the timebase itself is forced from the node mode at
// creation, never client-controlled.
type Run struct {
	RunNumber    int      `json:"runNumber"`
	RunName      string   `json:"runName"`
	RunType      string   `json:"runType"`
	Timebase     Timebase `json:"timebase"`
	StartTimeSec float64  `json:"startTimeSec"`
	StopTimeSec  float64  `json:"stopTimeSec"`
	AnalystNotes string   `json:"analystNotes,omitempty"`

	// Fields carries runType-specific extras opaque to the store.
	Fields map[string]any `json:"fields,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Window converts the run's fractional-second bounds to microseconds
// for export and query requests.
func (r *Run) Window() (start, stop Micros) {
	return MicrosFromSeconds(r.StartTimeSec), MicrosFromSeconds(r.StopTimeSec)
}

// unsafeRunNameChars are replaced with underscores when a run name
// becomes part of a directory name.
const unsafeRunNameChars = `/\:*?"<>|`

// SanitizeRunName maps a run name to its filesystem-safe form used in
// the run folder name. Unsafe characters become underscores; an empty
// or all-unsafe name becomes Untitled.
func SanitizeRunName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(unsafeRunNameChars, r) {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	s := strings.Trim(b.String(), " .")
	if s == "" {
		return "Untitled"
	}
	return s
}
