// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package drivers

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nova-telemetry/nova/internal/models"
)

// Capabilities declares what a driver is and which events it claims.
// An empty MessageType makes the driver lane-wide: it receives every
// event on its lane that no exact (lane, messageType) driver claims.
type Capabilities struct {
	DriverID    string
	Version     string
	Lane        models.Lane
	MessageType string
	Filename    string
}

// Key returns the registry key the driver is selected under.
func (c Capabilities) Key() string {
	return string(c.Lane) + "/" + c.MessageType
}

// Driver converts truth events into files. Write appends the event to
// its output file and returns the path written; Finalize closes every
// handle the driver holds open. Implementations own their handles and
// must be safe for use from one goroutine at a time per registry.
//
// The same implementations back both the real-time writer and the
// export pipeline, so output produced live and output produced by an
// export of the same range are byte-identical.
type Driver interface {
	Write(e *models.Event) (string, error)
	Finalize() error
	Caps() Capabilities
}

// tree manages the dated output hierarchy a driver writes into:
//
//	{root}/{YYYY-MM-DD}/{systemId}/{containerId}/{uniqueId}/{filename}
//
// The date is the event's canonical truth time in UTC. Handles are
// opened lazily on first write to a path, reused for subsequent
// writes, and closed by closeAll.
type tree struct {
	root     string
	filename string

	mu   sync.Mutex
	open map[string]*os.File
}

func newTree(root, filename string) *tree {
	return &tree{
		root:     root,
		filename: filename,
		open:     make(map[string]*os.File),
	}
}

// pathFor computes the output path for an event without opening it.
func (t *tree) pathFor(e *models.Event) string {
	day := e.CanonicalTime.Time().UTC().Format("2006-01-02")
	return filepath.Join(t.root, day, e.SystemID, e.ContainerID, e.UniqueID, t.filename)
}

// fileFor returns the open handle for the event's path, opening it in
// append mode on first use. fresh reports whether the file was empty
// when opened, which is when per-file preambles such as CSV headers
// belong.
func (t *tree) fileFor(e *models.Event) (f *os.File, fresh bool, path string, err error) {
	path = t.pathFor(e)

	t.mu.Lock()
	defer t.mu.Unlock()

	if f, ok := t.open[path]; ok {
		return f, false, path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, false, path, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // G304: path is derived from the configured root
	if err != nil {
		return nil, false, path, fmt.Errorf("failed to open output file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close() //nolint:errcheck // Best effort cleanup on error
		return nil, false, path, fmt.Errorf("failed to stat output file: %w", err)
	}

	t.open[path] = f
	return f, info.Size() == 0, path, nil
}

// closeAll closes every open handle, returning the first error. The
// tree is reusable afterwards; the next write reopens its file.
func (t *tree) closeAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var firstErr error
	for path, f := range t.open {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s: %w", path, err)
		}
		delete(t.open, path)
	}
	return firstErr
}

// openHandles reports how many files the tree currently holds open.
func (t *tree) openHandles() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}
