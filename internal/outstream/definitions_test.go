// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package outstream

import (
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

func newTestDefs(t *testing.T) *DefinitionStore {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() {
		db.Close() //nolint:errcheck,gosec // Test cleanup
	})
	return NewDefinitionStore(db)
}

func testDef(name string, protocol models.StreamProtocol, endpoint string) *models.StreamDefinition {
	return &models.StreamDefinition{
		Name:     name,
		Protocol: protocol,
		Endpoint: endpoint,
		ScopeID:  "alpha",
		Lane:     models.LaneParsed,
	}
}

func TestCreateAssignsIDAndDefaults(t *testing.T) {
	defs := newTestDefs(t)

	created, err := defs.Create(testDef("positions", models.ProtocolTCP, "9100"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.StreamID == "" {
		t.Error("StreamID not assigned")
	}
	if created.OutputFormat != models.FormatHierarchyPerMessage {
		t.Errorf("default format = %q", created.OutputFormat)
	}
	if created.Backpressure != models.BackpressureCatchUp {
		t.Errorf("default backpressure = %q", created.Backpressure)
	}
	if created.Visibility != models.VisibilityPublic {
		t.Errorf("default visibility = %q", created.Visibility)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("timestamps not stamped")
	}

	got, err := defs.Get(created.StreamID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "positions" || got.Endpoint != "9100" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestEndpointUniquenessComparesNormalizedForms(t *testing.T) {
	tests := []struct {
		name      string
		first     *models.StreamDefinition
		second    *models.StreamDefinition
		wantClash bool
	}{
		{
			name:      "tcp same port after trim",
			first:     testDef("a", models.ProtocolTCP, "9100"),
			second:    testDef("b", models.ProtocolTCP, " 9100 "),
			wantClash: true,
		},
		{
			name:      "udp host case folded",
			first:     testDef("a", models.ProtocolUDP, "Telemetry.Local:9000"),
			second:    testDef("b", models.ProtocolUDP, "telemetry.local:9000"),
			wantClash: true,
		},
		{
			name:      "ws path slashes trimmed",
			first:     testDef("a", models.ProtocolWebSocket, "/feed/"),
			second:    testDef("b", models.ProtocolWebSocket, "feed"),
			wantClash: true,
		},
		{
			name:      "same number different protocol",
			first:     testDef("a", models.ProtocolTCP, "9100"),
			second:    testDef("b", models.ProtocolUDP, "localhost:9100"),
			wantClash: false,
		},
		{
			name:      "different tcp ports",
			first:     testDef("a", models.ProtocolTCP, "9100"),
			second:    testDef("b", models.ProtocolTCP, "9101"),
			wantClash: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs := newTestDefs(t)
			if _, err := defs.Create(tt.first); err != nil {
				t.Fatalf("first Create: %v", err)
			}
			_, err := defs.Create(tt.second)
			if tt.wantClash {
				if !errors.Is(err, nverr.ErrEndpointConflict) {
					t.Fatalf("second Create err = %v, want endpoint conflict", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("second Create: %v", err)
			}
		})
	}
}

func TestPayloadOnlyRequiresCompleteIdentity(t *testing.T) {
	defs := newTestDefs(t)

	def := testDef("partial", models.ProtocolTCP, "9100")
	def.OutputFormat = models.FormatPayloadOnly
	def.Filters = models.Filter{SystemID: "gnss", ContainerID: "rx0"}
	if _, err := defs.Create(def); !errors.Is(err, nverr.ErrSchema) {
		t.Fatalf("Create err = %v, want schema error", err)
	}

	def.Filters.UniqueID = "ant1"
	if _, err := defs.Create(def); err != nil {
		t.Fatalf("Create with complete identity: %v", err)
	}
}

func TestUpdateMovesEndpointClaim(t *testing.T) {
	defs := newTestDefs(t)

	a, err := defs.Create(testDef("a", models.ProtocolTCP, "9100"))
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}

	a.Endpoint = "9200"
	if _, err := defs.Update(a); err != nil {
		t.Fatalf("Update a: %v", err)
	}

	// The old endpoint is free again.
	b, err := defs.Create(testDef("b", models.ProtocolTCP, "9100"))
	if err != nil {
		t.Fatalf("Create b on released endpoint: %v", err)
	}

	// The new one is held.
	b.Endpoint = "9200"
	if _, err := defs.Update(b); !errors.Is(err, nverr.ErrEndpointConflict) {
		t.Fatalf("Update b err = %v, want endpoint conflict", err)
	}
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	defs := newTestDefs(t)

	created, err := defs.Create(testDef("keep", models.ProtocolTCP, "9100"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	created.Name = "kept"
	updated, err := defs.Update(created)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Errorf("UpdatedAt went backwards")
	}
}

func TestDeleteReleasesEndpoint(t *testing.T) {
	defs := newTestDefs(t)

	created, err := defs.Create(testDef("gone", models.ProtocolWebSocket, "feed"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := defs.Delete(created.StreamID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := defs.Get(created.StreamID); !errors.Is(err, nverr.ErrNotFound) {
		t.Fatalf("Get after delete err = %v, want not found", err)
	}
	if _, err := defs.Create(testDef("again", models.ProtocolWebSocket, "feed")); err != nil {
		t.Fatalf("Create on released endpoint: %v", err)
	}
}

func TestListSortsByName(t *testing.T) {
	defs := newTestDefs(t)

	for _, d := range []*models.StreamDefinition{
		testDef("zeta", models.ProtocolTCP, "9102"),
		testDef("alpha", models.ProtocolTCP, "9100"),
		testDef("mid", models.ProtocolTCP, "9101"),
	} {
		if _, err := defs.Create(d); err != nil {
			t.Fatalf("Create %q: %v", d.Name, err)
		}
	}

	list, err := defs.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List returned %d defs, want 3", len(list))
	}
	if list[0].Name != "alpha" || list[1].Name != "mid" || list[2].Name != "zeta" {
		t.Errorf("List order = %q %q %q", list[0].Name, list[1].Name, list[2].Name)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		protocol models.StreamProtocol
		endpoint string
		want     string
		wantErr  bool
	}{
		{"tcp plain port", models.ProtocolTCP, "9100", "9100", false},
		{"tcp leading zeros", models.ProtocolTCP, "09100", "9100", false},
		{"tcp not a number", models.ProtocolTCP, "telemetry", "", true},
		{"tcp port zero", models.ProtocolTCP, "0", "", true},
		{"tcp port too big", models.ProtocolTCP, "70000", "", true},
		{"udp lowercases host", models.ProtocolUDP, "Telemetry.Local:9000", "telemetry.local:9000", false},
		{"udp missing port", models.ProtocolUDP, "telemetry.local", "", true},
		{"udp missing host", models.ProtocolUDP, ":9000", "", true},
		{"ws trims slashes", models.ProtocolWebSocket, "/Feed/", "Feed", false},
		{"ws empty", models.ProtocolWebSocket, "//", "", true},
		{"ws nested path", models.ProtocolWebSocket, "a/b", "", true},
		{"ws dotdot", models.ProtocolWebSocket, "..", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeEndpoint(tt.protocol, tt.endpoint)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeEndpoint(%q) = %q, want error", tt.endpoint, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeEndpoint(%q): %v", tt.endpoint, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeEndpoint(%q) = %q, want %q", tt.endpoint, got, tt.want)
			}
		})
	}
}
