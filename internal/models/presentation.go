// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package models

// Presentation layer names, strongest first. Resolution merges
// user > admin > factory per key.
const (
	PresentationLayerUser    = "user"
	PresentationLayerAdmin   = "admin"
	PresentationLayerFactory = "factory"
)

// Scale bounds accepted by presentation validation.
const (
	PresentationScaleMin = 0.1
	PresentationScaleMax = 10.0
)

// PresentationFields is the per-entity display customization subset.
// All fields are optional; nil means "no opinion at this layer".
// Color is an RGB triple with components in [0, 255]; Scale is
// clamped to [PresentationScaleMin, PresentationScaleMax] by
// validation.
type PresentationFields struct {
	DisplayName *string  `json:"displayName,omitempty"`
	ModelRef    *string  `json:"modelRef,omitempty"`
	Color       *[3]int  `json:"color,omitempty"`
	Scale       *float64 `json:"scale,omitempty"`
}

// IsZero reports whether no field carries an opinion.
func (p PresentationFields) IsZero() bool {
	return p.DisplayName == nil && p.ModelRef == nil && p.Color == nil && p.Scale == nil
}

// Merge layers override on top of p, per key: any field override sets
// replaces the base value. Neither receiver nor argument is mutated.
func (p PresentationFields) Merge(override PresentationFields) PresentationFields {
	out := p
	if override.DisplayName != nil {
		out.DisplayName = override.DisplayName
	}
	if override.ModelRef != nil {
		out.ModelRef = override.ModelRef
	}
	if override.Color != nil {
		out.Color = override.Color
	}
	if override.Scale != nil {
		out.Scale = override.Scale
	}
	return out
}

// Sanitized returns a copy with invalid fields silently dropped: color
// components outside [0, 255] and scale outside the allowed range are
// removed, valid fields pass through untouched.
func (p PresentationFields) Sanitized() PresentationFields {
	out := p
	if out.Color != nil {
		for _, c := range *out.Color {
			if c < 0 || c > 255 {
				out.Color = nil
				break
			}
		}
	}
	if out.Scale != nil {
		if *out.Scale < PresentationScaleMin || *out.Scale > PresentationScaleMax {
			out.Scale = nil
		}
	}
	return out
}

// PresentationUpdate is the cross-client broadcast body emitted after
// a successful override write.
type PresentationUpdate struct {
	ScopeID  string                        `json:"scopeId"`
	Layer    string                        `json:"layer"`
	Entities map[string]PresentationFields `json:"entities"`
}
