// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package runs

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"

	"github.com/nova-telemetry/nova/internal/export"
	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// BundleFilename is the archive name inside a run folder.
const BundleFilename = "bundle.zip"

// runFilename is the descriptor inside a run folder.
const runFilename = "run.json"

// runDirPattern matches "{number}. {name}" folder names. The space
// after the dot is part of the layout.
var runDirPattern = regexp.MustCompile(`^(\d+)\. (.+)$`)

// Patch is the merge body for updates. Nil fields keep their current
// value; Fields entries merge per key. The run's number and timebase
// are not patchable.
type Patch struct {
	RunName      *string        `json:"runName,omitempty"`
	RunType      *string        `json:"runType,omitempty"`
	StartTimeSec *float64       `json:"startTimeSec,omitempty"`
	StopTimeSec  *float64       `json:"stopTimeSec,omitempty"`
	AnalystNotes *string        `json:"analystNotes,omitempty"`
	Fields       map[string]any `json:"fields,omitempty"`
}

// Store manages run folders under the per-user data directory. One
// mutex serializes mutations; runs are human-paced artifacts.
type Store struct {
	usersDir string
	timebase models.Timebase
	mu       sync.Mutex
}

// NewStore roots the store under dataDir. The node mode fixes the
// timebase stamped on created runs: a live node records canonical
// windows, a replay node records source windows.
func NewStore(dataDir string, nodeMode models.PlaybackMode) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	usersDir := filepath.Join(dataDir, "users")
	if err := os.MkdirAll(usersDir, 0o750); err != nil {
		return nil, fmt.Errorf("create users directory: %w", err)
	}
	timebase := models.TimebaseCanonical
	if nodeMode == models.ModeReplay {
		timebase = models.TimebaseSource
	}
	return &Store{usersDir: usersDir, timebase: timebase}, nil
}

// Timebase returns the timebase stamped on runs created by this node.
func (s *Store) Timebase() models.Timebase {
	return s.timebase
}

// List returns the user's runs ordered by run number. Folders whose
// descriptor is missing or unreadable are skipped, not fatal; one
// damaged run must not hide the rest.
func (s *Store) List(username string) ([]*models.Run, error) {
	if err := checkPathComponent(username); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.scanLocked(username)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Run, 0, len(entries))
	for _, e := range entries {
		run, rerr := readRunFile(e.dir)
		if rerr != nil {
			logging.Warn().Err(rerr).Str("dir", e.dir).Msg("Skipping unreadable run")
			continue
		}
		out = append(out, run)
	}
	return out, nil
}

// Get returns one run by number.
func (s *Store) Get(username string, runNumber int) (*models.Run, error) {
	if err := checkPathComponent(username); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.findLocked(username, runNumber)
	if err != nil {
		return nil, err
	}
	return readRunFile(e.dir)
}

// Create stores a new run. The requested number is honored when free;
// zero or taken numbers get the next free one. The timebase always
// comes from the node mode, never from the client.
func (s *Store) Create(username string, run *models.Run) (*models.Run, error) {
	if err := checkPathComponent(username); err != nil {
		return nil, err
	}
	if run == nil {
		return nil, nverr.New(nverr.KindSchema, "run body is required")
	}
	if run.StopTimeSec < run.StartTimeSec {
		return nil, nverr.New(nverr.KindSchema, "stopTimeSec is before startTimeSec")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.scanLocked(username)
	if err != nil {
		return nil, err
	}

	taken := make(map[int]bool, len(entries))
	next := 1
	for _, e := range entries {
		taken[e.number] = true
		if e.number >= next {
			next = e.number + 1
		}
	}

	stored := *run
	if stored.RunNumber <= 0 || taken[stored.RunNumber] {
		stored.RunNumber = next
	}
	stored.Timebase = s.timebase
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	dir := filepath.Join(s.runsDir(username), runDirName(stored.RunNumber, stored.RunName))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	if err := writeRunFile(dir, &stored); err != nil {
		os.RemoveAll(dir) //nolint:errcheck // Best effort cleanup
		return nil, err
	}
	return &stored, nil
}

// Update merges a patch into the run. A name change moves the folder:
// any stale folder at the new name is deleted first, then the current
// one is renamed, so the bundle and descriptor travel together.
func (s *Store) Update(username string, runNumber int, patch *Patch) (*models.Run, error) {
	if err := checkPathComponent(username); err != nil {
		return nil, err
	}
	if patch == nil {
		return nil, nverr.New(nverr.KindSchema, "patch body is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.findLocked(username, runNumber)
	if err != nil {
		return nil, err
	}
	run, err := readRunFile(e.dir)
	if err != nil {
		return nil, err
	}

	oldFolder := runDirName(run.RunNumber, run.RunName)
	if patch.RunName != nil {
		run.RunName = *patch.RunName
	}
	if patch.RunType != nil {
		run.RunType = *patch.RunType
	}
	if patch.StartTimeSec != nil {
		run.StartTimeSec = *patch.StartTimeSec
	}
	if patch.StopTimeSec != nil {
		run.StopTimeSec = *patch.StopTimeSec
	}
	if patch.AnalystNotes != nil {
		run.AnalystNotes = *patch.AnalystNotes
	}
	if len(patch.Fields) > 0 {
		if run.Fields == nil {
			run.Fields = make(map[string]any, len(patch.Fields))
		}
		for k, v := range patch.Fields {
			run.Fields[k] = v
		}
	}
	if run.StopTimeSec < run.StartTimeSec {
		return nil, nverr.New(nverr.KindSchema, "stopTimeSec is before startTimeSec")
	}
	run.UpdatedAt = time.Now().UTC()

	dir := e.dir
	if newFolder := runDirName(run.RunNumber, run.RunName); newFolder != oldFolder {
		newDir := filepath.Join(s.runsDir(username), newFolder)
		if err := os.RemoveAll(newDir); err != nil {
			return nil, fmt.Errorf("clear stale run directory: %w", err)
		}
		if err := os.Rename(dir, newDir); err != nil {
			return nil, fmt.Errorf("rename run directory: %w", err)
		}
		dir = newDir
	}

	if err := writeRunFile(dir, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Delete removes the run folder, bundle included.
func (s *Store) Delete(username string, runNumber int) error {
	if err := checkPathComponent(username); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.findLocked(username, runNumber)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(e.dir); err != nil {
		return fmt.Errorf("delete run directory: %w", err)
	}
	return nil
}

// WriteBundle publishes an export archive as the run's bundle.zip with
// the current run.json injected, and returns the bundle path. Bundles
// always regenerate; an existing one is replaced.
func (s *Store) WriteBundle(username string, runNumber int, archivePath string) (string, error) {
	if err := checkPathComponent(username); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.findLocked(username, runNumber)
	if err != nil {
		return "", err
	}
	run, err := readRunFile(e.dir)
	if err != nil {
		return "", err
	}
	descriptor, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode run descriptor: %w", err)
	}

	dst := filepath.Join(e.dir, BundleFilename)
	partial := dst + ".partial"
	f, err := os.Create(partial) //nolint:gosec // G304: path is store-derived
	if err != nil {
		return "", fmt.Errorf("create bundle file: %w", err)
	}
	if err := export.InjectIntoArchive(archivePath, f, map[string][]byte{runFilename: descriptor}); err != nil {
		f.Close()          //nolint:errcheck,gosec // Already failing
		os.Remove(partial) //nolint:errcheck // Best effort cleanup
		return "", fmt.Errorf("write bundle: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(partial) //nolint:errcheck // Best effort cleanup
		return "", fmt.Errorf("flush bundle file: %w", err)
	}
	if err := os.Rename(partial, dst); err != nil {
		return "", fmt.Errorf("publish bundle: %w", err)
	}
	return dst, nil
}

// runEntry is one scanned run folder.
type runEntry struct {
	number int
	dir    string
}

func (s *Store) runsDir(username string) string {
	return filepath.Join(s.usersDir, username, "runs")
}

// scanLocked lists the user's run folders sorted by number. Folder
// names that do not match the layout are ignored.
func (s *Store) scanLocked(username string) ([]runEntry, error) {
	dir := s.runsDir(username)
	items, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read runs directory: %w", err)
	}

	entries := make([]runEntry, 0, len(items))
	for _, item := range items {
		if !item.IsDir() {
			continue
		}
		m := runDirPattern.FindStringSubmatch(item.Name())
		if m == nil {
			continue
		}
		n, aerr := strconv.Atoi(m[1])
		if aerr != nil {
			continue
		}
		entries = append(entries, runEntry{number: n, dir: filepath.Join(dir, item.Name())})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].number != entries[j].number {
			return entries[i].number < entries[j].number
		}
		return entries[i].dir < entries[j].dir
	})
	return entries, nil
}

func (s *Store) findLocked(username string, runNumber int) (runEntry, error) {
	entries, err := s.scanLocked(username)
	if err != nil {
		return runEntry{}, err
	}
	for _, e := range entries {
		if e.number == runNumber {
			return e, nil
		}
	}
	return runEntry{}, nverr.Newf(nverr.KindNotFound, "run %d not found", runNumber)
}

// runDirName builds the "{number}. {sanitized name}" folder name.
func runDirName(number int, name string) string {
	return fmt.Sprintf("%d. %s", number, models.SanitizeRunName(name))
}

func readRunFile(dir string) (*models.Run, error) {
	data, err := os.ReadFile(filepath.Join(dir, runFilename)) //nolint:gosec // G304: path is store-derived
	if os.IsNotExist(err) {
		return nil, nverr.Newf(nverr.KindNotFound, "run descriptor missing in %s", filepath.Base(dir))
	}
	if err != nil {
		return nil, fmt.Errorf("read run descriptor: %w", err)
	}
	run := &models.Run{}
	if err := json.Unmarshal(data, run); err != nil {
		return nil, fmt.Errorf("parse run descriptor: %w", err)
	}
	return run, nil
}

func writeRunFile(dir string, run *models.Run) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run descriptor: %w", err)
	}
	if err := renameio.WriteFile(filepath.Join(dir, runFilename), data, 0o600); err != nil {
		return fmt.Errorf("write run descriptor: %w", err)
	}
	return nil
}

// checkPathComponent rejects usernames that would escape the store's
// directory when embedded in a path. Authenticated names already match
// the account pattern; this is the store's own floor.
func checkPathComponent(username string) error {
	if username == "" {
		return nverr.New(nverr.KindSchema, "username is required")
	}
	if username == "." || username == ".." ||
		strings.ContainsAny(username, `/\`) || strings.Contains(username, "..") {
		return nverr.Newf(nverr.KindSchema, "username %q contains unsafe path characters", username)
	}
	return nil
}
