// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// ManifestRef names one published manifest version.
type ManifestRef struct {
	ManifestID string `json:"manifestId"`
	Version    int    `json:"manifestVersion"`
}

// String renders the reference as manifestId@vN.
func (r ManifestRef) String() string {
	return fmt.Sprintf("%s@v%d", r.ManifestID, r.Version)
}

// ManifestKey declares one allowed payload key of a UI view. Type is a
// JSON Schema primitive name (string, number, integer, boolean, object,
// array).
type ManifestKey struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
}

// Manifest is a NOVA-owned display schema for a viewId. Manifests are
// versioned; newer versions are additive. Publication is itself a
// metadata truth event (ManifestPublished), which gives UI schema a
// time-versioned history. Manifests describe display, never truth.
type Manifest struct {
	ManifestID string        `json:"manifestId"`
	Version    int           `json:"manifestVersion"`
	ViewID     string        `json:"viewId"`
	Title      string        `json:"title,omitempty"`
	Keys       []ManifestKey `json:"keys"`

	// PublishedAt is the canonical time of the ManifestPublished
	// event, zero for manifests not yet published.
	PublishedAt Micros `json:"publishedAt,omitempty"`
}

// Ref returns the manifest's version reference.
func (m *Manifest) Ref() ManifestRef {
	return ManifestRef{ManifestID: m.ManifestID, Version: m.Version}
}

// UIPayload is the payload carried by every ui-lane event: a display
// intent naming the view it targets, the manifest version that defines
// its allowed data keys, and the data itself.
type UIPayload struct {
	ViewID          string          `json:"viewId"`
	ManifestID      string          `json:"manifestId"`
	ManifestVersion int             `json:"manifestVersion"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// Ref returns the manifest version the payload references.
func (p *UIPayload) Ref() ManifestRef {
	return ManifestRef{ManifestID: p.ManifestID, Version: p.ManifestVersion}
}

// Validate checks structural well-formedness of a manifest before
// publication.
func (m *Manifest) Validate() error {
	if m.ManifestID == "" {
		return fmt.Errorf("manifest missing manifestId")
	}
	if m.Version < 1 {
		return fmt.Errorf("manifest %s: version must be >= 1", m.ManifestID)
	}
	if m.ViewID == "" {
		return fmt.Errorf("manifest %s: missing viewId", m.ManifestID)
	}
	if len(m.Keys) == 0 {
		return fmt.Errorf("manifest %s: declares no keys", m.ManifestID)
	}
	seen := make(map[string]struct{}, len(m.Keys))
	for _, k := range m.Keys {
		if k.Name == "" {
			return fmt.Errorf("manifest %s: key with empty name", m.ManifestID)
		}
		if _, dup := seen[k.Name]; dup {
			return fmt.Errorf("manifest %s: duplicate key %q", m.ManifestID, k.Name)
		}
		seen[k.Name] = struct{}{}
		switch k.Type {
		case "string", "number", "integer", "boolean", "object", "array":
		default:
			return fmt.Errorf("manifest %s: key %q has unknown type %q", m.ManifestID, k.Name, k.Type)
		}
	}
	return nil
}
