// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nova-telemetry/nova/internal/auth"
	"github.com/nova-telemetry/nova/internal/authz"
	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/export"
	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/outstream"
	"github.com/nova-telemetry/nova/internal/presentation"
	"github.com/nova-telemetry/nova/internal/runs"
	"github.com/nova-telemetry/nova/internal/users"
	ws "github.com/nova-telemetry/nova/internal/websocket"
)

const testJWTSecret = "test_secret_with_at_least_32_characters"

// Seeded accounts. Every password clears the eight character minimum.
const (
	adminPassword    = "admin-password-1"
	operatorPassword = "operator-pass-1"
	viewerPassword   = "viewer-pass-1"
)

// stubExporter answers Export from memory and records the last request.
type stubExporter struct {
	record  *models.ExportRecord
	err     error
	lastReq *models.ExportRequest
}

func (s *stubExporter) Export(_ context.Context, req *models.ExportRequest) (*models.ExportRecord, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

// stubManifests serves a fixed manifest list for /config.
type stubManifests struct {
	manifests []*models.Manifest
}

func (s *stubManifests) List() []*models.Manifest { return s.manifests }

// testEnv is one fully wired API surface over temp-dir stores.
type testEnv struct {
	handler   *Handler
	router    http.Handler
	cfg       *config.Config
	users     *users.Store
	jwt       *auth.JWTManager
	streams   *outstream.Manager
	runs      *runs.Store
	pres      *presentation.Store
	exports   *export.Catalog
	exporter  *stubExporter
	manifests *stubManifests
	exportDir string

	// coreUp drives the Ready callback. Tests flip it to simulate a
	// lost Core link.
	coreUp bool
}

// newTestEnv builds a handler over fresh temp-dir stores, seeds one
// account per role (admin/ALL, operator/alpha, viewer/alpha+beta), and
// mounts the full route tree.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Core: config.CoreConfig{Mode: config.ModeLive, DataDir: dir},
		Server: config.ServerConfig{
			Host:        "127.0.0.1",
			Port:        8080,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: config.SecurityConfig{
			JWTSecret:         testJWTSecret,
			SessionTimeout:    24 * time.Hour,
			LockoutThreshold:  3,
			LockoutDuration:   15 * time.Minute,
			RateLimitDisabled: true,
			CORSOrigins:       []string{"*"},
		},
	}

	userStore, err := users.Open(filepath.Join(dir, "users.json"))
	if err != nil {
		t.Fatalf("open user store: %v", err)
	}
	seed := []struct {
		username, password, role string
		scopes                   []string
	}{
		{"admin", adminPassword, models.RoleAdmin, []string{models.ScopeAll}},
		{"operator", operatorPassword, models.RoleOperator, []string{"alpha"}},
		{"viewer", viewerPassword, models.RoleViewer, []string{"alpha", "beta"}},
	}
	for _, u := range seed {
		if _, cerr := userStore.Create(u.username, u.password, u.role, u.scopes); cerr != nil {
			t.Fatalf("seed user %s: %v", u.username, cerr)
		}
	}

	jwtMgr, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("build jwt manager: %v", err)
	}
	enforcer, err := authz.NewEnforcer(&config.CasbinConfig{})
	if err != nil {
		t.Fatalf("build enforcer: %v", err)
	}

	defs, err := outstream.OpenDefinitions(filepath.Join(dir, "outstream"))
	if err != nil {
		t.Fatalf("open stream definitions: %v", err)
	}
	t.Cleanup(func() { defs.Close() }) //nolint:errcheck // Test cleanup
	streamMgr := outstream.NewManager(defs, nil)

	runStore, err := runs.NewStore(filepath.Join(dir, "runs"), models.ModeLive)
	if err != nil {
		t.Fatalf("open run store: %v", err)
	}
	presStore, err := presentation.NewStore(filepath.Join(dir, "presentation"))
	if err != nil {
		t.Fatalf("open presentation store: %v", err)
	}
	exportDir := filepath.Join(dir, "exports")
	catalog, err := export.NewCatalog(exportDir)
	if err != nil {
		t.Fatalf("open export catalog: %v", err)
	}

	hub := ws.NewHub()
	gateway := ws.NewGateway(nil, hub, enforcer, catalog, models.ModeLive)

	env := &testEnv{coreUp: true}
	exporter := &stubExporter{}
	manifests := &stubManifests{}

	handler := NewHandler(HandlerDeps{
		Config:    cfg,
		Users:     userStore,
		JWT:       jwtMgr,
		Lockout:   auth.NewLockoutTracker(&cfg.Security, zerolog.Nop()),
		Gateway:   gateway,
		Hub:       hub,
		Core:      exporter,
		Streams:   streamMgr,
		Runs:      runStore,
		Pres:      presStore,
		Exports:   catalog,
		Manifests: manifests,
		Ready:     func() bool { return env.coreUp },
	})

	env.handler = handler
	env.router = NewRouter(handler, NewChiMiddleware(&cfg.Security, jwtMgr, enforcer)).Setup()
	env.cfg = cfg
	env.users = userStore
	env.jwt = jwtMgr
	env.streams = streamMgr
	env.runs = runStore
	env.pres = presStore
	env.exports = catalog
	env.exporter = exporter
	env.manifests = manifests
	env.exportDir = exportDir
	return env
}

// do runs one request through the full route tree.
func (env *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// login authenticates a seeded account and returns its session cookie.
func (env *testEnv) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()

	w := env.do(t, http.MethodPost, "/auth/login", loginRequest{Username: username, Password: password})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d, body %s", username, w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookie && c.Value != "" {
			return c
		}
	}
	t.Fatalf("login %s: no session cookie", username)
	return nil
}

// decodeEnvelope parses the standard response envelope.
func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) *models.APIResponse {
	t.Helper()

	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response envelope: %v (body %s)", err, w.Body.String())
	}
	return &resp
}

// dataMap returns the envelope payload as a JSON object.
func dataMap(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	resp := decodeEnvelope(t, w)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("response data is %T, want object (body %s)", resp.Data, w.Body.String())
	}
	return data
}

// wantError asserts an error envelope with the given status and code.
func wantError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	resp := decodeEnvelope(t, w)
	if resp.Status != "error" {
		t.Errorf("envelope status = %q, want \"error\"", resp.Status)
	}
	if resp.Error == nil {
		t.Fatal("error envelope has no error detail")
	}
	if resp.Error.Code != code {
		t.Errorf("error code = %q, want %q", resp.Error.Code, code)
	}
}

// stageExport drops an archive into the catalog directory and points
// the stub exporter at it, returning the export id.
func (env *testEnv) stageExport(t *testing.T, content []byte) string {
	t.Helper()

	id := uuid.NewString()
	if err := os.WriteFile(filepath.Join(env.exportDir, id+".zip"), content, 0o600); err != nil {
		t.Fatalf("stage export archive: %v", err)
	}
	env.exporter.record = &models.ExportRecord{
		ExportID:  id,
		CreatedAt: models.NowMicros(),
		SizeBytes: int64(len(content)),
	}
	return id
}
