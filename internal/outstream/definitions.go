// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package outstream

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// Key prefixes in the definitions database. The endpoint key is the
// uniqueness index: it maps a normalized (protocol, endpoint) pair back
// to the owning stream id, written in the same transaction as the
// definition itself.
const (
	defKeyPrefix      = "stream:"
	endpointKeyPrefix = "endpoint:"
)

// DefinitionStore persists stream definitions in Badger.
type DefinitionStore struct {
	db     *badger.DB
	ownsDB bool
}

// OpenDefinitions opens (or creates) the definitions database at path.
func OpenDefinitions(path string) (*DefinitionStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open stream definitions db: %w", err)
	}
	s := &DefinitionStore{db: db, ownsDB: true}
	s.refreshGauge()
	return s, nil
}

// NewDefinitionStore wraps an already-open Badger database. The caller
// keeps ownership of the database lifecycle.
func NewDefinitionStore(db *badger.DB) *DefinitionStore {
	s := &DefinitionStore{db: db}
	s.refreshGauge()
	return s
}

// Close releases the database if this store opened it.
func (s *DefinitionStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// Create validates and persists a new definition. A missing StreamID
// gets a fresh one; timestamps are stamped here. The normalized
// (protocol, endpoint) pair must be unused.
func (s *DefinitionStore) Create(def *models.StreamDefinition) (*models.StreamDefinition, error) {
	if def == nil {
		return nil, nverr.New(nverr.KindSchema, "stream definition is required")
	}
	stored := *def
	if stored.StreamID == "" {
		stored.StreamID = uuid.NewString()
	}
	normalized, err := prepareDefinition(&stored)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	data, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("marshal stream definition: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, gerr := txn.Get(defKey(stored.StreamID)); gerr == nil {
			return nverr.Newf(nverr.KindConflict, "stream %s already exists", stored.StreamID)
		} else if !errors.Is(gerr, badger.ErrKeyNotFound) {
			return fmt.Errorf("check stream key: %w", gerr)
		}
		if cerr := claimEndpoint(txn, stored.Protocol, normalized, stored.StreamID); cerr != nil {
			return cerr
		}
		return txn.Set(defKey(stored.StreamID), data)
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	s.refreshGauge()
	return &stored, nil
}

// Update replaces an existing definition. An endpoint change releases
// the old (protocol, endpoint) claim and takes the new one in the same
// transaction. CreatedAt is preserved.
func (s *DefinitionStore) Update(def *models.StreamDefinition) (*models.StreamDefinition, error) {
	if def == nil || def.StreamID == "" {
		return nil, nverr.New(nverr.KindSchema, "stream id is required")
	}
	stored := *def
	normalized, err := prepareDefinition(&stored)
	if err != nil {
		return nil, err
	}
	stored.UpdatedAt = time.Now().UTC()

	err = s.db.Update(func(txn *badger.Txn) error {
		prev, gerr := getDefinition(txn, stored.StreamID)
		if gerr != nil {
			return gerr
		}
		stored.CreatedAt = prev.CreatedAt
		if stored.Owner == "" {
			stored.Owner = prev.Owner
		}

		data, merr := json.Marshal(&stored)
		if merr != nil {
			return fmt.Errorf("marshal stream definition: %w", merr)
		}

		prevNorm, nerr := NormalizeEndpoint(prev.Protocol, prev.Endpoint)
		if nerr != nil {
			// A stored definition that no longer normalizes is
			// replaced outright.
			prevNorm = ""
		}
		if prev.Protocol != stored.Protocol || prevNorm != normalized {
			if prevNorm != "" {
				if derr := txn.Delete(endpointKey(prev.Protocol, prevNorm)); derr != nil {
					return fmt.Errorf("release endpoint key: %w", derr)
				}
			}
			if cerr := claimEndpoint(txn, stored.Protocol, normalized, stored.StreamID); cerr != nil {
				return cerr
			}
		}
		return txn.Set(defKey(stored.StreamID), data)
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return &stored, nil
}

// Get returns one definition by id.
func (s *DefinitionStore) Get(id string) (*models.StreamDefinition, error) {
	var def *models.StreamDefinition
	err := s.db.View(func(txn *badger.Txn) error {
		var gerr error
		def, gerr = getDefinition(txn, id)
		return gerr
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return def, nil
}

// List returns every definition sorted by name, then id.
func (s *DefinitionStore) List() ([]*models.StreamDefinition, error) {
	var defs []*models.StreamDefinition
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(defKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var def models.StreamDefinition
			verr := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &def)
			})
			if verr != nil {
				return fmt.Errorf("decode stream definition: %w", verr)
			}
			defs = append(defs, &def)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Name != defs[j].Name {
			return defs[i].Name < defs[j].Name
		}
		return defs[i].StreamID < defs[j].StreamID
	})
	return defs, nil
}

// Delete removes a definition and releases its endpoint claim.
func (s *DefinitionStore) Delete(id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		def, gerr := getDefinition(txn, id)
		if gerr != nil {
			return gerr
		}
		if norm, nerr := NormalizeEndpoint(def.Protocol, def.Endpoint); nerr == nil {
			if derr := txn.Delete(endpointKey(def.Protocol, norm)); derr != nil {
				return fmt.Errorf("release endpoint key: %w", derr)
			}
		}
		return txn.Delete(defKey(id))
	})
	if err != nil {
		return wrapStoreErr(err)
	}
	s.refreshGauge()
	return nil
}

func defKey(id string) []byte {
	return []byte(defKeyPrefix + id)
}

func endpointKey(protocol models.StreamProtocol, normalized string) []byte {
	return []byte(endpointKeyPrefix + string(protocol) + "/" + normalized)
}

func getDefinition(txn *badger.Txn, id string) (*models.StreamDefinition, error) {
	if id == "" {
		return nil, nverr.New(nverr.KindSchema, "stream id is required")
	}
	item, err := txn.Get(defKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nverr.Newf(nverr.KindNotFound, "stream %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get stream definition: %w", err)
	}
	def := &models.StreamDefinition{}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, def)
	}); err != nil {
		return nil, fmt.Errorf("decode stream definition: %w", err)
	}
	return def, nil
}

// claimEndpoint writes the uniqueness key, refusing when another
// stream already holds the pair.
func claimEndpoint(txn *badger.Txn, protocol models.StreamProtocol, normalized, streamID string) error {
	key := endpointKey(protocol, normalized)
	item, err := txn.Get(key)
	if err == nil {
		var owner string
		if verr := item.Value(func(val []byte) error {
			owner = string(val)
			return nil
		}); verr != nil {
			return fmt.Errorf("read endpoint key: %w", verr)
		}
		if owner != streamID {
			return nverr.Newf(nverr.KindEndpointConflict,
				"endpoint %s/%s already used by stream %s", protocol, normalized, owner)
		}
		return nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("check endpoint key: %w", err)
	}
	return txn.Set(key, []byte(streamID))
}

// prepareDefinition validates the definition in place, applying
// defaults, and returns the normalized endpoint.
func prepareDefinition(def *models.StreamDefinition) (string, error) {
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return "", nverr.New(nverr.KindSchema, "stream name is required")
	}
	if !def.Protocol.Valid() {
		return "", nverr.Newf(nverr.KindSchema, "unknown protocol %q", def.Protocol)
	}
	if def.ScopeID == "" {
		return "", nverr.New(nverr.KindSchema, "scopeId is required")
	}
	if !def.Lane.Valid() {
		return "", nverr.Newf(nverr.KindSchema, "unknown lane %q", def.Lane)
	}
	if def.OutputFormat == "" {
		def.OutputFormat = models.FormatHierarchyPerMessage
	}
	if !def.OutputFormat.Valid() {
		return "", nverr.Newf(nverr.KindSchema, "unknown output format %q", def.OutputFormat)
	}
	if def.OutputFormat == models.FormatPayloadOnly && !def.Filters.IdentityComplete() {
		return "", nverr.New(nverr.KindSchema,
			"payloadOnly requires systemId, containerId and uniqueId filters")
	}
	if def.Backpressure == "" {
		def.Backpressure = models.BackpressureCatchUp
	}
	if !def.Backpressure.Valid() {
		return "", nverr.Newf(nverr.KindSchema, "unknown backpressure policy %q", def.Backpressure)
	}
	if def.Visibility == "" {
		def.Visibility = models.VisibilityPublic
	}
	if !def.Visibility.Valid() {
		return "", nverr.Newf(nverr.KindSchema, "unknown visibility %q", def.Visibility)
	}

	normalized, err := NormalizeEndpoint(def.Protocol, def.Endpoint)
	if err != nil {
		return "", err
	}
	def.Endpoint = normalized
	return normalized, nil
}

// NormalizeEndpoint maps an endpoint to its canonical comparison form:
// the bare port for TCP, lowercase host:port for UDP, and the trimmed
// path segment for WebSocket. Equality of normalized forms is what the
// uniqueness rule compares.
func NormalizeEndpoint(protocol models.StreamProtocol, endpoint string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	switch protocol {
	case models.ProtocolTCP:
		port, err := parsePort(endpoint)
		if err != nil {
			return "", nverr.Newf(nverr.KindSchema, "tcp endpoint must be a port: %v", err)
		}
		return strconv.Itoa(port), nil

	case models.ProtocolUDP:
		host, portStr, err := net.SplitHostPort(endpoint)
		if err != nil {
			return "", nverr.Newf(nverr.KindSchema, "udp endpoint must be host:port: %v", err)
		}
		if host == "" {
			return "", nverr.New(nverr.KindSchema, "udp endpoint host is required")
		}
		port, perr := parsePort(portStr)
		if perr != nil {
			return "", nverr.Newf(nverr.KindSchema, "udp endpoint port: %v", perr)
		}
		return net.JoinHostPort(strings.ToLower(host), strconv.Itoa(port)), nil

	case models.ProtocolWebSocket:
		segment := strings.Trim(endpoint, "/")
		if segment == "" {
			return "", nverr.New(nverr.KindSchema, "websocket endpoint path is required")
		}
		if strings.ContainsAny(segment, "/\\ \t") || strings.Contains(segment, "..") {
			return "", nverr.Newf(nverr.KindSchema, "websocket endpoint %q is not a single path segment", endpoint)
		}
		return segment, nil

	default:
		return "", nverr.Newf(nverr.KindSchema, "unknown protocol %q", protocol)
	}
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}

// wrapStoreErr keeps typed errors and classifies everything else as a
// persistence failure.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var nv *nverr.Error
	if errors.As(err, &nv) {
		return err
	}
	return nverr.Wrap(nverr.KindStoreUnavailable, "stream definitions store", err)
}

func (s *DefinitionStore) refreshGauge() {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // We only need to count keys
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(defKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return
	}
	metrics.OutstreamDefinitions.Set(float64(count))
}
