// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/nova-telemetry/nova/internal/config"
)

// MockStream implements jetstream.Stream for initializer tests.
type MockStream struct {
	config jetstream.StreamConfig
}

func (m *MockStream) Info(ctx context.Context, opts ...jetstream.StreamInfoOpt) (*jetstream.StreamInfo, error) {
	return &jetstream.StreamInfo{Config: m.config}, nil
}

func (m *MockStream) CachedInfo() *jetstream.StreamInfo {
	return &jetstream.StreamInfo{Config: m.config}
}

func (m *MockStream) Purge(ctx context.Context, opts ...jetstream.StreamPurgeOpt) error { return nil }

func (m *MockStream) CreateOrUpdateConsumer(ctx context.Context, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	return nil, nil
}

func (m *MockStream) OrderedConsumer(ctx context.Context, cfg jetstream.OrderedConsumerConfig) (jetstream.Consumer, error) {
	return nil, nil
}

func (m *MockStream) Consumer(ctx context.Context, name string) (jetstream.Consumer, error) {
	return nil, nil
}

func (m *MockStream) DeleteConsumer(ctx context.Context, name string) error { return nil }

func (m *MockStream) CreateConsumer(ctx context.Context, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	return nil, nil
}

func (m *MockStream) UpdateConsumer(ctx context.Context, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	return nil, nil
}

func (m *MockStream) ListConsumers(ctx context.Context) jetstream.ConsumerInfoLister { return nil }

func (m *MockStream) ConsumerNames(ctx context.Context) jetstream.ConsumerNameLister { return nil }

func (m *MockStream) CreateOrUpdatePushConsumer(ctx context.Context, cfg jetstream.ConsumerConfig) (jetstream.PushConsumer, error) {
	return nil, nil
}

func (m *MockStream) CreatePushConsumer(ctx context.Context, cfg jetstream.ConsumerConfig) (jetstream.PushConsumer, error) {
	return nil, nil
}

func (m *MockStream) UpdatePushConsumer(ctx context.Context, cfg jetstream.ConsumerConfig) (jetstream.PushConsumer, error) {
	return nil, nil
}

func (m *MockStream) PushConsumer(ctx context.Context, name string) (jetstream.PushConsumer, error) {
	return nil, nil
}

func (m *MockStream) PauseConsumer(ctx context.Context, name string, pauseUntil time.Time) (*jetstream.ConsumerPauseResponse, error) {
	return nil, nil
}

func (m *MockStream) ResumeConsumer(ctx context.Context, name string) (*jetstream.ConsumerPauseResponse, error) {
	return nil, nil
}

func (m *MockStream) UnpinConsumer(ctx context.Context, name string, group string) error {
	return nil
}

func (m *MockStream) GetMsg(ctx context.Context, seq uint64, opts ...jetstream.GetMsgOpt) (*jetstream.RawStreamMsg, error) {
	return nil, nil
}

func (m *MockStream) GetLastMsgForSubject(ctx context.Context, subject string) (*jetstream.RawStreamMsg, error) {
	return nil, nil
}

func (m *MockStream) DeleteMsg(ctx context.Context, seq uint64) error { return nil }

func (m *MockStream) SecureDeleteMsg(ctx context.Context, seq uint64) error { return nil }

// MockJetStreamContext implements JetStreamContext against an in-memory
// stream table.
type MockJetStreamContext struct {
	mu          sync.Mutex
	streams     map[string]*MockStream
	streamErr   error
	createErr   error
	updateErr   error
	createCalls int
	updateCalls int
}

func NewMockJetStreamContext() *MockJetStreamContext {
	return &MockJetStreamContext{streams: make(map[string]*MockStream)}
}

func (m *MockJetStreamContext) Stream(ctx context.Context, name string) (jetstream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	if stream, ok := m.streams[name]; ok {
		return stream, nil
	}
	return nil, jetstream.ErrStreamNotFound
}

func (m *MockJetStreamContext) CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	stream := &MockStream{config: cfg}
	m.streams[cfg.Name] = stream
	return stream, nil
}

func (m *MockJetStreamContext) UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	if stream, ok := m.streams[cfg.Name]; ok {
		stream.config = cfg
		return stream, nil
	}
	return nil, jetstream.ErrStreamNotFound
}

func (m *MockJetStreamContext) DeleteStream(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.streams, name)
	return nil
}

func (m *MockJetStreamContext) AddStream(name string, cfg jetstream.StreamConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams[name] = &MockStream{config: cfg}
}

func (m *MockJetStreamContext) Calls() (creates, updates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls, m.updateCalls
}

func TestNewStreamInitializer_NilJetStream(t *testing.T) {
	cfg := DefaultIngestStreamConfig()

	_, err := NewStreamInitializer(nil, &cfg)
	if err == nil {
		t.Fatal("NewStreamInitializer() should error on nil JetStream")
	}
}

func TestNewStreamInitializer_NilConfig(t *testing.T) {
	js := NewMockJetStreamContext()

	_, err := NewStreamInitializer(js, nil)
	if err == nil {
		t.Fatal("NewStreamInitializer() should error on nil config")
	}
}

// TestEnsureStream_CreatesNew verifies a missing stream is created with the
// declared policy.
func TestEnsureStream_CreatesNew(t *testing.T) {
	js := NewMockJetStreamContext()
	cfg := DefaultIngestStreamConfig()

	initializer, err := NewStreamInitializer(js, &cfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error = %v", err)
	}

	stream, err := initializer.EnsureStream(context.Background())
	if err != nil {
		t.Fatalf("EnsureStream() error = %v", err)
	}
	if stream == nil {
		t.Fatal("EnsureStream() returned nil stream")
	}

	creates, updates := js.Calls()
	if creates != 1 {
		t.Errorf("CreateStream calls = %d, want 1", creates)
	}
	if updates != 0 {
		t.Errorf("UpdateStream calls = %d, want 0", updates)
	}

	info := stream.CachedInfo()
	if info.Config.Name != IngestStreamName {
		t.Errorf("Name = %s, want %s", info.Config.Name, IngestStreamName)
	}
	if info.Config.Storage != jetstream.FileStorage {
		t.Errorf("Storage = %v, want FileStorage", info.Config.Storage)
	}
	if info.Config.Retention != jetstream.LimitsPolicy {
		t.Errorf("Retention = %v, want LimitsPolicy", info.Config.Retention)
	}
	if info.Config.Discard != jetstream.DiscardOld {
		t.Errorf("Discard = %v, want DiscardOld", info.Config.Discard)
	}
	if !info.Config.AllowDirect {
		t.Error("AllowDirect = false, want true")
	}
	if info.Config.Duplicates != cfg.DuplicateWindow {
		t.Errorf("Duplicates = %v, want %v", info.Config.Duplicates, cfg.DuplicateWindow)
	}
}

// TestEnsureStream_IngestSubjects verifies the ingest stream binds both the
// ingest wildcard and the dead letter subjects. A DLQ subject outside the
// stream would make poison publishes fail with no matching stream.
func TestEnsureStream_IngestSubjects(t *testing.T) {
	cfg := DefaultIngestStreamConfig()

	want := map[string]bool{
		IngestWildcard: false,
		"nova.dlq.>":   false,
	}
	for _, subject := range cfg.Subjects {
		if _, ok := want[subject]; ok {
			want[subject] = true
		}
	}
	for subject, found := range want {
		if !found {
			t.Errorf("ingest stream missing subject %q (have %v)", subject, cfg.Subjects)
		}
	}
}

func TestEnsureStream_UpdatesExisting(t *testing.T) {
	js := NewMockJetStreamContext()
	cfg := DefaultIngestStreamConfig()

	js.AddStream(cfg.Name, jetstream.StreamConfig{
		Name:     cfg.Name,
		Subjects: []string{"old.subject"},
	})

	initializer, err := NewStreamInitializer(js, &cfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error = %v", err)
	}

	stream, err := initializer.EnsureStream(context.Background())
	if err != nil {
		t.Fatalf("EnsureStream() error = %v", err)
	}

	creates, updates := js.Calls()
	if creates != 0 {
		t.Errorf("CreateStream calls = %d, want 0", creates)
	}
	if updates != 1 {
		t.Errorf("UpdateStream calls = %d, want 1", updates)
	}

	info := stream.CachedInfo()
	if len(info.Config.Subjects) != len(cfg.Subjects) {
		t.Errorf("Subjects = %v, want %v after update", info.Config.Subjects, cfg.Subjects)
	}
}

func TestEnsureStream_Idempotent(t *testing.T) {
	js := NewMockJetStreamContext()
	cfg := DefaultCommandStreamConfig()

	initializer, err := NewStreamInitializer(js, &cfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error = %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := initializer.EnsureStream(ctx); err != nil {
			t.Fatalf("EnsureStream() call %d error = %v", i+1, err)
		}
	}

	creates, updates := js.Calls()
	if creates != 1 {
		t.Errorf("CreateStream calls = %d, want 1", creates)
	}
	if updates != 2 {
		t.Errorf("UpdateStream calls = %d, want 2", updates)
	}
}

func TestEnsureStream_CreateError(t *testing.T) {
	js := NewMockJetStreamContext()
	js.createErr = errors.New("insufficient storage")
	cfg := DefaultIngestStreamConfig()

	initializer, err := NewStreamInitializer(js, &cfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error = %v", err)
	}

	_, err = initializer.EnsureStream(context.Background())
	if err == nil {
		t.Fatal("EnsureStream() should return error on create failure")
	}
	if !errors.Is(err, js.createErr) {
		t.Errorf("error should wrap create failure, got %v", err)
	}
}

func TestEnsureStream_UpdateError(t *testing.T) {
	js := NewMockJetStreamContext()
	cfg := DefaultIngestStreamConfig()
	js.AddStream(cfg.Name, jetstream.StreamConfig{Name: cfg.Name})
	js.updateErr = errors.New("update not allowed")

	initializer, err := NewStreamInitializer(js, &cfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error = %v", err)
	}

	_, err = initializer.EnsureStream(context.Background())
	if err == nil {
		t.Fatal("EnsureStream() should return error on update failure")
	}
}

// TestEnsureStream_LookupError verifies an unexpected lookup failure is not
// treated as stream-absent.
func TestEnsureStream_LookupError(t *testing.T) {
	js := NewMockJetStreamContext()
	js.streamErr = errors.New("connection reset")
	cfg := DefaultIngestStreamConfig()

	initializer, err := NewStreamInitializer(js, &cfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error = %v", err)
	}

	_, err = initializer.EnsureStream(context.Background())
	if err == nil {
		t.Fatal("EnsureStream() should propagate lookup failure")
	}
	creates, _ := js.Calls()
	if creates != 0 {
		t.Errorf("CreateStream calls = %d, want 0 after lookup failure", creates)
	}
}

func TestStreamInitializer_IsHealthy(t *testing.T) {
	js := NewMockJetStreamContext()
	cfg := DefaultIngestStreamConfig()
	js.AddStream(cfg.Name, jetstream.StreamConfig{Name: cfg.Name})

	initializer, err := NewStreamInitializer(js, &cfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error = %v", err)
	}

	if !initializer.IsHealthy(context.Background()) {
		t.Error("IsHealthy() = false, want true when stream exists")
	}
}

func TestStreamInitializer_IsHealthy_NoStream(t *testing.T) {
	js := NewMockJetStreamContext()
	cfg := DefaultIngestStreamConfig()

	initializer, err := NewStreamInitializer(js, &cfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error = %v", err)
	}

	if initializer.IsHealthy(context.Background()) {
		t.Error("IsHealthy() = true, want false when stream doesn't exist")
	}
}

func TestIngestStreamConfigFromNATS(t *testing.T) {
	natsCfg := &config.NATSConfig{
		StreamRetentionDays: 30,
		MaxStore:            2 * 1024 * 1024 * 1024,
		DuplicateWindow:     5 * time.Minute,
	}

	sc := IngestStreamConfigFromNATS(natsCfg)

	if sc.MaxAge != 30*24*time.Hour {
		t.Errorf("MaxAge = %v, want %v", sc.MaxAge, 30*24*time.Hour)
	}
	if sc.MaxBytes != natsCfg.MaxStore {
		t.Errorf("MaxBytes = %d, want %d", sc.MaxBytes, natsCfg.MaxStore)
	}
	if sc.DuplicateWindow != 5*time.Minute {
		t.Errorf("DuplicateWindow = %v, want %v", sc.DuplicateWindow, 5*time.Minute)
	}
	if sc.Name != IngestStreamName {
		t.Errorf("Name = %s, want %s", sc.Name, IngestStreamName)
	}
}

func TestIngestStreamConfigFromNATS_Defaults(t *testing.T) {
	def := DefaultIngestStreamConfig()

	got := IngestStreamConfigFromNATS(nil)
	if got.MaxAge != def.MaxAge || got.MaxBytes != def.MaxBytes || got.DuplicateWindow != def.DuplicateWindow {
		t.Errorf("nil config should keep defaults, got %+v", got)
	}

	got = IngestStreamConfigFromNATS(&config.NATSConfig{})
	if got.MaxAge != def.MaxAge || got.MaxBytes != def.MaxBytes || got.DuplicateWindow != def.DuplicateWindow {
		t.Errorf("zero config should keep defaults, got %+v", got)
	}
}
