// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package api

import (
	"net/http"
	"testing"

	"github.com/nova-telemetry/nova/internal/models"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// entityFields digs one entity's field map out of a presentation
// response.
func entityFields(t *testing.T, data map[string]interface{}, id string) map[string]interface{} {
	t.Helper()

	fields, ok := data[id].(map[string]interface{})
	if !ok {
		t.Fatalf("entity %q = %v (%T), want object", id, data[id], data[id])
	}
	return fields
}

func colorOf(fields map[string]interface{}) [3]float64 {
	raw, _ := fields["color"].([]interface{})
	var out [3]float64
	for i, v := range raw {
		if i > 2 {
			break
		}
		out[i], _ = v.(float64)
	}
	return out
}

// TestPresentationRoundTrip verifies user overrides store and read back
// exactly, and that an all-nil write clears the entry.
func TestPresentationRoundTrip(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cookie := env.login(t, "operator", operatorPassword) // single grant, scope inferred

	empty := env.do(t, http.MethodGet, "/api/presentation", nil, cookie)
	if empty.Code != http.StatusOK {
		t.Fatalf("get: status = %d", empty.Code)
	}
	if data := dataMap(t, empty); len(data) != 0 {
		t.Errorf("fresh overrides = %v, want empty", data)
	}

	name := "Antenna 1"
	color := [3]int{255, 0, 0}
	scale := 2.5
	put := env.do(t, http.MethodPut, "/api/presentation", presentationWrite{
		Entities: map[string]models.PresentationFields{
			"sysA/gps0/ant1": {DisplayName: &name, Color: &color, Scale: &scale},
		},
	}, cookie)
	if put.Code != http.StatusOK {
		t.Fatalf("put: status = %d, body %s", put.Code, put.Body.String())
	}

	got := env.do(t, http.MethodGet, "/api/presentation", nil, cookie)
	fields := entityFields(t, dataMap(t, got), "sysA/gps0/ant1")
	if fields["displayName"] != "Antenna 1" {
		t.Errorf("displayName = %v, want Antenna 1", fields["displayName"])
	}
	if c := colorOf(fields); c != [3]float64{255, 0, 0} {
		t.Errorf("color = %v, want [255 0 0]", c)
	}
	if fields["scale"] != 2.5 {
		t.Errorf("scale = %v, want 2.5", fields["scale"])
	}

	t.Run("all-nil write clears", func(t *testing.T) {
		clear := env.do(t, http.MethodPut, "/api/presentation", presentationWrite{
			Entities: map[string]models.PresentationFields{"sysA/gps0/ant1": {}},
		}, cookie)
		if clear.Code != http.StatusOK {
			t.Fatalf("clear: status = %d", clear.Code)
		}
		if data := dataMap(t, clear); len(data) != 0 {
			t.Errorf("cleared write echoed %v, want nothing", data)
		}

		after := env.do(t, http.MethodGet, "/api/presentation", nil, cookie)
		if data := dataMap(t, after); len(data) != 0 {
			t.Errorf("overrides after clear = %v, want empty", data)
		}
	})
}

// TestPresentationSanitize verifies out-of-range color and scale values
// are dropped silently while valid fields in the same entity survive.
func TestPresentationSanitize(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cookie := env.login(t, "operator", operatorPassword)

	name := "Kept"
	color := [3]int{999, 0, 0}
	scale := 50.0
	put := env.do(t, http.MethodPut, "/api/presentation", presentationWrite{
		Entities: map[string]models.PresentationFields{
			"ent-1": {DisplayName: &name, Color: &color, Scale: &scale},
		},
	}, cookie)
	if put.Code != http.StatusOK {
		t.Fatalf("put: status = %d, body %s", put.Code, put.Body.String())
	}

	fields := entityFields(t, dataMap(t, put), "ent-1")
	if fields["displayName"] != "Kept" {
		t.Errorf("displayName = %v, want Kept", fields["displayName"])
	}
	if _, present := fields["color"]; present {
		t.Errorf("invalid color survived: %v", fields["color"])
	}
	if _, present := fields["scale"]; present {
		t.Errorf("invalid scale survived: %v", fields["scale"])
	}

	t.Run("all fields invalid clears", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/presentation", presentationWrite{
			Entities: map[string]models.PresentationFields{
				"ent-2": {Color: &color, Scale: &scale},
			},
		}, cookie)
		if w.Code != http.StatusOK {
			t.Fatalf("put: status = %d", w.Code)
		}
		if _, present := dataMap(t, w)["ent-2"]; present {
			t.Error("entity that sanitized to nothing was stored")
		}
	})
}

// TestPresentationDefaults verifies the admin gate on default writes
// and that defaults are readable by everyone in the scope.
func TestPresentationDefaults(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	name := "Fleet Blue"
	body := presentationWrite{
		Entities: map[string]models.PresentationFields{"ent-1": {DisplayName: &name}},
	}

	t.Run("operator cannot write defaults", func(t *testing.T) {
		cookie := env.login(t, "operator", operatorPassword)
		w := env.do(t, http.MethodPut, "/api/presentation/defaults", body, cookie)
		wantError(t, w, http.StatusForbidden, string(nverr.KindPermissionDenied))
	})

	admin := env.login(t, "admin", adminPassword)
	put := env.do(t, http.MethodPut, "/api/presentation/defaults?scope=alpha", body, admin)
	if put.Code != http.StatusOK {
		t.Fatalf("admin put: status = %d, body %s", put.Code, put.Body.String())
	}

	t.Run("viewer reads defaults", func(t *testing.T) {
		cookie := env.login(t, "viewer", viewerPassword)
		w := env.do(t, http.MethodGet, "/api/presentation/defaults?scope=alpha", nil, cookie)
		if w.Code != http.StatusOK {
			t.Fatalf("get: status = %d", w.Code)
		}
		fields := entityFields(t, dataMap(t, w), "ent-1")
		if fields["displayName"] != "Fleet Blue" {
			t.Errorf("displayName = %v, want Fleet Blue", fields["displayName"])
		}
	})
}

// TestPresentationResolve verifies the per-key merge: user override
// beats admin default beats the factory baseline, field by field.
func TestPresentationResolve(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	adminName := "Admin Name"
	adminColor := [3]int{0, 0, 255}
	admin := env.login(t, "admin", adminPassword)
	if w := env.do(t, http.MethodPut, "/api/presentation/defaults?scope=alpha", presentationWrite{
		Entities: map[string]models.PresentationFields{
			"ent-1": {DisplayName: &adminName, Color: &adminColor},
		},
	}, admin); w.Code != http.StatusOK {
		t.Fatalf("seed defaults: status = %d", w.Code)
	}

	userName := "My Name"
	operator := env.login(t, "operator", operatorPassword)
	if w := env.do(t, http.MethodPut, "/api/presentation", presentationWrite{
		Entities: map[string]models.PresentationFields{
			"ent-1": {DisplayName: &userName},
		},
	}, operator); w.Code != http.StatusOK {
		t.Fatalf("seed override: status = %d", w.Code)
	}

	w := env.do(t, http.MethodPost, "/api/presentation/resolve", presentationResolve{
		UniqueIDs: []string{"ent-1", "ent-unknown"},
	}, operator)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve: status = %d, body %s", w.Code, w.Body.String())
	}
	data := dataMap(t, w)

	ent1 := entityFields(t, data, "ent-1")
	if ent1["displayName"] != "My Name" {
		t.Errorf("displayName = %v, want the user layer to win", ent1["displayName"])
	}
	if c := colorOf(ent1); c != [3]float64{0, 0, 255} {
		t.Errorf("color = %v, want the admin layer's [0 0 255]", c)
	}
	if ent1["scale"] != 1.0 {
		t.Errorf("scale = %v, want the factory baseline 1", ent1["scale"])
	}

	unknown := entityFields(t, data, "ent-unknown")
	if _, present := unknown["displayName"]; present {
		t.Errorf("unknown entity has displayName %v, want factory only", unknown["displayName"])
	}
	if c := colorOf(unknown); c != [3]float64{220, 220, 220} {
		t.Errorf("factory color = %v, want [220 220 220]", c)
	}
}

// TestPresentationScopeSelection covers scope inference failures on the
// presentation surface.
func TestPresentationScopeSelection(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cookie := env.login(t, "viewer", viewerPassword) // two grants

	t.Run("two grants need explicit scope", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/presentation", nil, cookie)
		wantError(t, w, http.StatusBadRequest, string(nverr.KindScopeRequired))
	})

	t.Run("scope outside grant", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/presentation?scope=gamma", nil, cookie)
		wantError(t, w, http.StatusForbidden, string(nverr.KindScopeForbidden))
	})

	t.Run("explicit scope accepted", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/presentation?scope=beta", nil, cookie)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("resolve requires ids", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/presentation/resolve?scope=beta", presentationResolve{
			UniqueIDs: []string{},
		}, cookie)
		wantError(t, w, http.StatusBadRequest, string(nverr.KindSchema))
	})
}
