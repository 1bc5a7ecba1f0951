// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package ipc

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// QueryStore is the slice of the truth store the dispatcher reads.
type QueryStore interface {
	QueryPage(ctx context.Context, scope string, lanes []models.Lane, start, stop models.Micros, filter models.Filter, limit int, after *models.Cursor) ([]*models.Event, *models.Cursor, bool, error)
}

// StreamEngine is the playback surface the dispatcher drives.
type StreamEngine interface {
	StartStream(connID string, req *models.StreamRequest) (string, error)
	CancelStream(connID string)
	SetRate(connID string, rate float64) error
	StartRaw(connID string, req *models.StreamRequest) (string, error)
	CancelRaw(connID string)
}

// Recorder is the normalizer surface for command and metadata appends.
type Recorder interface {
	RecordCommand(ctx context.Context, sub *models.CommandSubmission) (*models.InsertResult, error)
	RecordMetadata(ctx context.Context, in *models.MetadataIngest) (*models.InsertResult, error)
}

// ExportRunner runs one export end to end.
type ExportRunner interface {
	Run(ctx context.Context, req *models.ExportRequest) (*models.ExportRecord, error)
}

// Dispatcher is the Core's half of the IPC channel: it consumes
// request envelopes and fans them out to the playback engine, the
// normalizer and the export pipeline. It also implements the playback
// engine's chunk sink by publishing chunks to per-connection subjects.
//
// Every request runs in its own goroutine because the slowest
// operation (export) is five orders of magnitude longer than the
// fastest; a panic in a handler downs that request, not the pump.
type Dispatcher struct {
	conn     *natsgo.Conn
	store    QueryStore
	engine   StreamEngine
	recorder Recorder
	exporter ExportRunner

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sub    *natsgo.Subscription

	mu      sync.Mutex
	started bool
}

// NewDispatcher wires the dispatcher to its collaborators. The NATS
// connection is shared with the rest of the Core process.
func NewDispatcher(conn *natsgo.Conn, store QueryStore, engine StreamEngine, recorder Recorder, exporter ExportRunner) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		conn:     conn,
		store:    store,
		engine:   engine,
		recorder: recorder,
		exporter: exporter,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to the request subject in the Core queue group.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return nil
	}
	sub, err := d.conn.QueueSubscribe(SubjectRequest, RequestQueueGroup, d.handle)
	if err != nil {
		return fmt.Errorf("subscribe requests: %w", err)
	}
	d.sub = sub
	d.started = true
	logging.Info().Str("subject", SubjectRequest).Str("queue", RequestQueueGroup).Msg("IPC dispatcher started")
	return nil
}

// Stop unsubscribes and waits for in-flight requests to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	sub := d.sub
	d.mu.Unlock()

	if sub != nil {
		_ = sub.Unsubscribe() //nolint:errcheck // Shutting down
	}
	d.cancel()
	d.wg.Wait()
	logging.Info().Msg("IPC dispatcher stopped")
}

func (d *Dispatcher) handle(m *natsgo.Msg) {
	req := &Request{}
	if err := json.Unmarshal(m.Data, req); err != nil {
		logging.Warn().Err(err).Msg("Dropping undecodable IPC request")
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.dispatch(req)
	}()
}

func (d *Dispatcher) dispatch(req *Request) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Interface("panic", r).
				Str("op", string(req.Op)).
				Str("request_id", req.RequestID).
				Msg("IPC handler panicked")
			d.respond(req, nil, nverr.Newf(nverr.KindInternal, "%s failed", req.Op))
		}
	}()

	body, err := d.execute(req)
	if req.Op.FireAndForget() {
		if err != nil {
			logging.Warn().Err(err).Str("op", string(req.Op)).Str("conn_id", req.ConnID).Msg("Fire-and-forget operation failed")
		}
		return
	}
	d.respond(req, body, err)
}

//nolint:cyclop // One arm per operation
func (d *Dispatcher) execute(req *Request) (any, error) {
	switch req.Op {
	case OpQuery:
		return d.query(req)
	case OpStartStream:
		return d.startStream(req)
	case OpCancelStream:
		if req.ConnID == "" {
			return nil, nverr.New(nverr.KindSchema, "cancelStream requires a connId")
		}
		d.engine.CancelStream(req.ConnID)
		return nil, nil
	case OpSetPlaybackRate:
		return nil, d.setRate(req)
	case OpSubmitCommand:
		sub := &models.CommandSubmission{}
		if err := decodeBody(req.Body, sub); err != nil {
			return nil, err
		}
		return d.recorder.RecordCommand(d.ctx, sub)
	case OpIngestMetadata:
		in := &models.MetadataIngest{}
		if err := decodeBody(req.Body, in); err != nil {
			return nil, err
		}
		return d.recorder.RecordMetadata(d.ctx, in)
	case OpExport:
		er := &models.ExportRequest{}
		if err := decodeBody(req.Body, er); err != nil {
			return nil, err
		}
		return d.exporter.Run(d.ctx, er)
	case OpStreamRaw:
		return d.startRaw(req)
	case OpCancelStreamRaw:
		if req.ConnID == "" {
			return nil, nverr.New(nverr.KindSchema, "cancelStreamRaw requires a connId")
		}
		d.engine.CancelRaw(req.ConnID)
		return nil, nil
	default:
		return nil, nverr.Newf(nverr.KindSchema, "unknown operation %q", req.Op)
	}
}

func (d *Dispatcher) query(req *Request) (any, error) {
	q := &QueryBody{}
	if err := decodeBody(req.Body, q); err != nil {
		return nil, err
	}
	if q.ScopeID == "" {
		return nil, nverr.New(nverr.KindSchema, "query requires a scopeId")
	}
	lanes := q.Lanes
	if len(lanes) == 0 {
		lanes = models.AllLanes
	}
	for _, l := range lanes {
		if !l.Valid() {
			return nil, nverr.Newf(nverr.KindSchema, "unknown lane %q", l)
		}
	}
	var after *models.Cursor
	if q.After != "" {
		cur, err := models.ParseCursor(q.After)
		if err != nil {
			return nil, nverr.Wrap(nverr.KindSchema, "malformed cursor", err)
		}
		after = &cur
	}

	events, next, hasMore, err := d.store.QueryPage(d.ctx, q.ScopeID, lanes, q.StartTime, q.StopTime, q.Filters, q.Limit, after)
	if err != nil {
		return nil, nverr.Wrap(nverr.KindStoreUnavailable, "query failed", err)
	}
	result := &QueryResult{Events: events, HasMore: hasMore}
	if next != nil {
		result.NextCursor = next.String()
	}
	if result.Events == nil {
		result.Events = []*models.Event{}
	}
	return result, nil
}

func (d *Dispatcher) startStream(req *Request) (any, error) {
	if req.ConnID == "" {
		return nil, nverr.New(nverr.KindSchema, "startStream requires a connId")
	}
	sr := &models.StreamRequest{}
	if err := decodeBody(req.Body, sr); err != nil {
		return nil, err
	}
	id, err := d.engine.StartStream(req.ConnID, sr)
	if err != nil {
		return nil, err
	}
	return &StreamStarted{PlaybackRequestID: id}, nil
}

func (d *Dispatcher) startRaw(req *Request) (any, error) {
	if req.ConnID == "" {
		return nil, nverr.New(nverr.KindSchema, "streamRaw requires a connId")
	}
	sr := &models.StreamRequest{}
	if err := decodeBody(req.Body, sr); err != nil {
		return nil, err
	}
	id, err := d.engine.StartRaw(req.ConnID, sr)
	if err != nil {
		return nil, err
	}
	return &StreamStarted{PlaybackRequestID: id}, nil
}

func (d *Dispatcher) setRate(req *Request) error {
	if req.ConnID == "" {
		return nverr.New(nverr.KindSchema, "setPlaybackRate requires a connId")
	}
	rb := &RateBody{}
	if err := decodeBody(req.Body, rb); err != nil {
		return err
	}
	return d.engine.SetRate(req.ConnID, rb.Rate)
}

func (d *Dispatcher) respond(req *Request, body any, err error) {
	resp := &Response{RequestID: req.RequestID, Op: req.Op}
	if err != nil {
		resp.Error = nverr.ToWire(err)
	} else if body != nil {
		raw, merr := json.Marshal(body)
		if merr != nil {
			logging.Error().Err(merr).Str("op", string(req.Op)).Msg("Failed to encode IPC response body")
			resp.Error = nverr.ToWire(nverr.Wrap(nverr.KindInternal, "encode response", merr))
		} else {
			resp.Body = raw
		}
	}
	data, merr := json.Marshal(resp)
	if merr != nil {
		logging.Error().Err(merr).Str("op", string(req.Op)).Msg("Failed to encode IPC response envelope")
		return
	}
	if perr := d.conn.Publish(SubjectResponse, data); perr != nil {
		logging.Warn().Err(perr).Str("op", string(req.Op)).Msg("Failed to publish IPC response")
	}
}

// DeliverChunk publishes a stream chunk to the connection's chunk
// subject. Implements the playback engine's sink.
func (d *Dispatcher) DeliverChunk(ctx context.Context, connID string, chunk *models.EventChunk) error {
	return d.publishChunk(ctx, ChunkSubject(connID), chunk)
}

// DeliverRaw publishes a raw-lane chunk to the connection's raw
// subject.
func (d *Dispatcher) DeliverRaw(ctx context.Context, connID string, chunk *models.EventChunk) error {
	return d.publishChunk(ctx, RawSubject(connID), chunk)
}

func (d *Dispatcher) publishChunk(ctx context.Context, subject string, chunk *models.EventChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("encode chunk: %w", err)
	}
	if err := d.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish chunk: %w", err)
	}
	metrics.IPCChunksRouted.Inc()
	return nil
}
