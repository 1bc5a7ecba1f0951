// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package drivers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nova-telemetry/nova/internal/models"
)

// Registry routes events to drivers by (lane, messageType). Selection
// is deterministic: an exact (lane, messageType) match wins, then a
// lane-wide driver, then none. Events no driver claims are not
// persisted to files; they exist in the truth store and on streams
// only.
//
// A registry is rooted in one directory. The live writer uses a
// process-lifetime registry under the data dir; each export run gets
// a fresh registry rooted in a temp dir. Both carry the same built-in
// driver set, which is what makes live output and export output of
// the same range byte-identical.
type Registry struct {
	root string

	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewRegistry creates a registry rooted at root with the built-in
// drivers registered.
func NewRegistry(root string) *Registry {
	r := &Registry{
		root:    root,
		drivers: make(map[string]Driver),
	}
	// Built-ins never collide, ignore the error.
	_ = r.Register(NewFramesDriver(root))
	_ = r.Register(NewPositionsDriver(root))
	return r
}

// Root returns the directory the registry writes under.
func (r *Registry) Root() string {
	return r.root
}

// Register adds a driver. Exactly one driver may claim a given
// (lane, messageType) pair.
func (r *Registry) Register(d Driver) error {
	caps := d.Caps()
	if caps.DriverID == "" {
		return fmt.Errorf("driver id is required")
	}
	if !caps.Lane.Valid() {
		return fmt.Errorf("driver %s claims invalid lane %q", caps.DriverID, caps.Lane)
	}
	if caps.Filename == "" {
		return fmt.Errorf("driver %s declares no output filename", caps.DriverID)
	}

	key := caps.Key()

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.drivers[key]; ok {
		return fmt.Errorf("driver %s conflicts with %s on (%s, %q)",
			caps.DriverID, prev.Caps().DriverID, caps.Lane, caps.MessageType)
	}
	r.drivers[key] = d
	return nil
}

// Select returns the driver claiming the (lane, messageType) pair, or
// nil when the event is stream-only.
func (r *Registry) Select(lane models.Lane, messageType string) Driver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.drivers[string(lane)+"/"+messageType]; ok {
		return d
	}
	if messageType != "" {
		if d, ok := r.drivers[string(lane)+"/"]; ok {
			return d
		}
	}
	return nil
}

// Write routes one event through the selected driver. routed is false
// when no driver claims the event; that is not an error.
func (r *Registry) Write(e *models.Event) (path string, routed bool, err error) {
	d := r.Select(e.Lane, e.MessageType)
	if d == nil {
		return "", false, nil
	}
	path, err = d.Write(e)
	return path, true, err
}

// Finalize closes every driver's open handles, returning the first
// error. Drivers are reusable afterwards.
func (r *Registry) Finalize() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var firstErr error
	for _, d := range r.drivers {
		if err := d.Finalize(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Drivers lists the registered capabilities sorted by driver id.
func (r *Registry) Drivers() []Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make([]Capabilities, 0, len(r.drivers))
	for _, d := range r.drivers {
		caps = append(caps, d.Caps())
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i].DriverID < caps[j].DriverID })
	return caps
}
