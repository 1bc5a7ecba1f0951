// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package ipc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/logging"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// Default awaiter deadlines, used when configuration leaves one unset.
const (
	DefaultQueryTimeout     = 30 * time.Second
	DefaultStreamAckTimeout = 5 * time.Second
	DefaultCommandTimeout   = 10 * time.Second
	DefaultIngestTimeout    = 5 * time.Second
	DefaultExportTimeout    = 5 * time.Minute
)

// ChunkHandler receives stream chunks routed to one connection. It is
// called from the NATS delivery goroutine and must not block; the
// websocket layer hands chunks straight to a bounded send queue.
type ChunkHandler func(chunk *models.EventChunk)

// Client is the Server edge's half of the IPC channel. One Client
// serves every connection in the process: requests multiplex over a
// single subject pair correlated by requestId, and chunk subjects
// fan out through per-connection handlers.
type Client struct {
	conn *natsgo.Conn
	cfg  config.IPCConfig

	breaker *gobreaker.CircuitBreaker[*Response]

	mu       sync.Mutex
	awaiters map[string]chan *Response

	handlerMu sync.RWMutex
	chunks    map[string]ChunkHandler
	raws      map[string]ChunkHandler

	subs []*natsgo.Subscription

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient dials the broker and installs the response and chunk
// subscriptions. The connection retries forever; requests made while
// disconnected fail on their own deadlines.
func NewClient(url string, cfg *config.IPCConfig) (*Client, error) {
	if cfg == nil {
		cfg = &config.IPCConfig{}
	}

	conn, err := natsgo.Connect(url,
		natsgo.Name("nova-server-ipc"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("IPC client disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("IPC client reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	c := &Client{
		conn:     conn,
		cfg:      *cfg,
		awaiters: make(map[string]chan *Response),
		chunks:   make(map[string]ChunkHandler),
		raws:     make(map[string]ChunkHandler),
		done:     make(chan struct{}),
	}
	c.breaker = newRequestBreaker(cfg)

	respSub, err := conn.Subscribe(SubjectResponse, c.handleResponse)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe responses: %w", err)
	}
	chunkSub, err := conn.Subscribe(SubjectChunks, func(m *natsgo.Msg) {
		c.routeChunk(m, chunkPrefix, c.chunkHandler)
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe chunks: %w", err)
	}
	rawSub, err := conn.Subscribe(SubjectRaw, func(m *natsgo.Msg) {
		c.routeChunk(m, rawPrefix, c.rawHandler)
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe raw chunks: %w", err)
	}
	c.subs = []*natsgo.Subscription{respSub, chunkSub, rawSub}

	return c, nil
}

// newRequestBreaker builds the breaker guarding request dispatch.
// Only transport failures and timeouts count against it; errors the
// Core answered with are successful round-trips.
func newRequestBreaker(cfg *config.IPCConfig) *gobreaker.CircuitBreaker[*Response] {
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openFor := cfg.BreakerOpenDuration
	if openFor <= 0 {
		openFor = 10 * time.Second
	}

	return gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        "ipc-request",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String())
			metrics.UpdateBreakerState(name, breakerStateValue(to))
		},
	})
}

func breakerStateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Connected reports whether the broker connection is currently up.
// Readiness probes use this; requests themselves just fail on their
// deadlines while disconnected.
func (c *Client) Connected() bool {
	return c.conn.IsConnected()
}

// Close tears the client down. Outstanding requests fail immediately;
// chunk handlers stop receiving.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		for _, sub := range c.subs {
			_ = sub.Unsubscribe() //nolint:errcheck // Shutting down
		}
		c.conn.Close()
	})
}

// OnChunks installs the stream chunk handler for a connection,
// replacing any previous one.
func (c *Client) OnChunks(connID string, h ChunkHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.chunks[connID] = h
}

// OnRaw installs the raw chunk handler for a connection.
func (c *Client) OnRaw(connID string, h ChunkHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.raws[connID] = h
}

// Drop removes both handlers for a connection. Chunks still in flight
// for it are discarded.
func (c *Client) Drop(connID string) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	delete(c.chunks, connID)
	delete(c.raws, connID)
}

func (c *Client) chunkHandler(connID string) ChunkHandler {
	c.handlerMu.RLock()
	defer c.handlerMu.RUnlock()
	return c.chunks[connID]
}

func (c *Client) rawHandler(connID string) ChunkHandler {
	c.handlerMu.RLock()
	defer c.handlerMu.RUnlock()
	return c.raws[connID]
}

func (c *Client) routeChunk(m *natsgo.Msg, prefix string, lookup func(string) ChunkHandler) {
	connID := connFromSubject(m.Subject, prefix)
	if connID == "" {
		return
	}
	h := lookup(connID)
	if h == nil {
		// Connection already gone; late chunks are expected during
		// teardown and dropped here.
		return
	}
	chunk := &models.EventChunk{}
	if err := json.Unmarshal(m.Data, chunk); err != nil {
		logging.Warn().Err(err).Str("conn_id", connID).Msg("Dropping undecodable stream chunk")
		return
	}
	h(chunk)
}

func (c *Client) handleResponse(m *natsgo.Msg) {
	resp := &Response{}
	if err := json.Unmarshal(m.Data, resp); err != nil {
		logging.Warn().Err(err).Msg("Dropping undecodable IPC response")
		return
	}
	c.mu.Lock()
	ch, ok := c.awaiters[resp.RequestID]
	if ok {
		delete(c.awaiters, resp.RequestID)
	}
	c.mu.Unlock()
	if ok {
		ch <- resp
	}
}

// timeoutFor maps an operation to its awaiter deadline.
func (c *Client) timeoutFor(op Op) time.Duration {
	pick := func(configured, fallback time.Duration) time.Duration {
		if configured > 0 {
			return configured
		}
		return fallback
	}
	switch op {
	case OpQuery:
		return pick(c.cfg.QueryTimeout, DefaultQueryTimeout)
	case OpSubmitCommand:
		return pick(c.cfg.CommandTimeout, DefaultCommandTimeout)
	case OpIngestMetadata:
		return pick(c.cfg.IngestTimeout, DefaultIngestTimeout)
	case OpExport:
		return pick(c.cfg.ExportTimeout, DefaultExportTimeout)
	default:
		return pick(c.cfg.StreamAckTimeout, DefaultStreamAckTimeout)
	}
}

// request publishes one envelope and, unless the operation is
// fire-and-forget, waits for the correlated response or the
// operation's deadline.
func (c *Client) request(ctx context.Context, op Op, connID string, body any) (resp *Response, err error) {
	began := time.Now()
	defer func() {
		status := "ok"
		switch {
		case err == nil:
		case nverr.KindOf(err) == nverr.KindTimeout:
			status = "timeout"
		case nverr.KindOf(err) == nverr.KindStoreUnavailable:
			status = "unavailable"
		default:
			status = "error"
		}
		metrics.RecordIPCRequest(string(op), status, time.Since(began))
	}()

	raw, err := encodeBody(body)
	if err != nil {
		return nil, nverr.Wrap(nverr.KindInternal, "encode request body", err)
	}
	req := &Request{
		RequestID: uuid.NewString(),
		Op:        op,
		ConnID:    connID,
		Body:      raw,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, nverr.Wrap(nverr.KindInternal, "encode request envelope", err)
	}

	if op.FireAndForget() {
		if perr := c.conn.Publish(SubjectRequest, data); perr != nil {
			return nil, nverr.Wrap(nverr.KindStoreUnavailable, "core unreachable", perr)
		}
		return nil, nil
	}

	ch := make(chan *Response, 1)
	c.mu.Lock()
	c.awaiters[req.RequestID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.awaiters, req.RequestID)
		c.mu.Unlock()
	}()

	resp, err = c.breaker.Execute(func() (*Response, error) {
		if perr := c.conn.Publish(SubjectRequest, data); perr != nil {
			return nil, nverr.Wrap(nverr.KindStoreUnavailable, "core unreachable", perr)
		}
		timer := time.NewTimer(c.timeoutFor(op))
		defer timer.Stop()
		select {
		case r := <-ch:
			return r, nil
		case <-timer.C:
			return nil, nverr.Newf(nverr.KindTimeout, "%s timed out", op)
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			return nil, nverr.New(nverr.KindStoreUnavailable, "ipc client closed")
		}
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, nverr.Wrap(nverr.KindStoreUnavailable, "core unavailable", err)
		}
		return nil, err
	}
	// Errors the Core answered with are successful round-trips as far
	// as the breaker is concerned; surface them typed here.
	if rerr := resp.Err(); rerr != nil {
		return nil, rerr
	}
	return resp, nil
}

// Query fetches one page of events in total order.
func (c *Client) Query(ctx context.Context, q *QueryBody) (*QueryResult, error) {
	resp, err := c.request(ctx, OpQuery, "", q)
	if err != nil {
		return nil, err
	}
	result := &QueryResult{}
	if err := json.Unmarshal(resp.Body, result); err != nil {
		return nil, nverr.Wrap(nverr.KindInternal, "decode query result", err)
	}
	return result, nil
}

// StartStream starts or replaces the streaming session for a
// connection and returns the minted playbackRequestId the edge fences
// chunks with.
func (c *Client) StartStream(ctx context.Context, connID string, req *models.StreamRequest) (string, error) {
	resp, err := c.request(ctx, OpStartStream, connID, req)
	if err != nil {
		return "", err
	}
	ack := &StreamStarted{}
	if err := json.Unmarshal(resp.Body, ack); err != nil {
		return "", nverr.Wrap(nverr.KindInternal, "decode stream ack", err)
	}
	return ack.PlaybackRequestID, nil
}

// CancelStream stops the connection's session. Fire-and-forget and
// idempotent; late chunks are fenced by playbackRequestId.
func (c *Client) CancelStream(ctx context.Context, connID string) error {
	_, err := c.request(ctx, OpCancelStream, connID, nil)
	return err
}

// SetPlaybackRate changes the live rate of the connection's session.
func (c *Client) SetPlaybackRate(ctx context.Context, connID string, rate float64) error {
	_, err := c.request(ctx, OpSetPlaybackRate, connID, &RateBody{Rate: rate})
	return err
}

// SubmitCommand records and dispatches a command. The ACK carries the
// derived eventId and the idempotent-replay flag.
func (c *Client) SubmitCommand(ctx context.Context, sub *models.CommandSubmission) (*models.InsertResult, error) {
	resp, err := c.request(ctx, OpSubmitCommand, "", sub)
	if err != nil {
		return nil, err
	}
	result := &models.InsertResult{}
	if err := json.Unmarshal(resp.Body, result); err != nil {
		return nil, nverr.Wrap(nverr.KindInternal, "decode command ack", err)
	}
	return result, nil
}

// IngestMetadata appends one metadata event through the normalizer.
func (c *Client) IngestMetadata(ctx context.Context, in *models.MetadataIngest) (*models.InsertResult, error) {
	resp, err := c.request(ctx, OpIngestMetadata, "", in)
	if err != nil {
		return nil, err
	}
	result := &models.InsertResult{}
	if err := json.Unmarshal(resp.Body, result); err != nil {
		return nil, nverr.Wrap(nverr.KindInternal, "decode ingest ack", err)
	}
	return result, nil
}

// Export runs the export pipeline and returns the archive record.
func (c *Client) Export(ctx context.Context, req *models.ExportRequest) (*models.ExportRecord, error) {
	resp, err := c.request(ctx, OpExport, "", req)
	if err != nil {
		return nil, err
	}
	record := &models.ExportRecord{}
	if err := json.Unmarshal(resp.Body, record); err != nil {
		return nil, nverr.Wrap(nverr.KindInternal, "decode export record", err)
	}
	return record, nil
}

// StartRaw starts or replaces the raw-lane session feeding an output
// stream, keyed by the output's own connection id.
func (c *Client) StartRaw(ctx context.Context, connID string, req *models.StreamRequest) (string, error) {
	resp, err := c.request(ctx, OpStreamRaw, connID, req)
	if err != nil {
		return "", err
	}
	ack := &StreamStarted{}
	if err := json.Unmarshal(resp.Body, ack); err != nil {
		return "", nverr.Wrap(nverr.KindInternal, "decode raw stream ack", err)
	}
	return ack.PlaybackRequestID, nil
}

// CancelRaw stops a raw session. Fire-and-forget and idempotent.
func (c *Client) CancelRaw(ctx context.Context, connID string) error {
	_, err := c.request(ctx, OpCancelStreamRaw, connID, nil)
	return err
}
