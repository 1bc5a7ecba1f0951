// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a thread-safe
// singleton validator instance with custom validators and human-readable error
// messages. Every validation failure converts to the SchemaError code the API
// and IPC layers return for malformed requests.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Custom tags for NOVA formats: lane, cursor
//   - Error translation to human-readable messages
//   - models.APIError conversion with code SchemaError
//
// # Quick Start
//
//	type StreamRequest struct {
//	    ScopeID string   `validate:"required,max=256"`
//	    Lanes   []string `validate:"required,min=1,dive,lane"`
//	    Mode    string   `validate:"required,oneof=live replay"`
//	    Rate    float64  `validate:"gte=0"`
//	    Cursor  string   `validate:"omitempty,cursor"`
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    var req StreamRequest
//	    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
//	        // handle decode error
//	    }
//
//	    if verr := validation.ValidateStruct(&req); verr != nil {
//	        apiErr := verr.ToAPIError()
//	        respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	        return
//	    }
//
//	    // proceed with valid request
//	}
//
// # Custom Tags
//
// lane accepts exactly the six telemetry lanes:
//
//	Lane string `validate:"lane"`          // raw|parsed|metadata|ui|command|stream
//	Lanes []string `validate:"dive,lane"`  // each element checked
//
// cursor accepts the empty string or the v1 resume-cursor wire form
// ("v1:<microseconds>:<eventId>"):
//
//	FromCursor string `validate:"omitempty,cursor"`
//
// # Common Built-in Tags
//
// String validations:
//   - required: field must not be empty
//   - min=n / max=n: length bounds in characters
//   - oneof=a b c: enumerated values
//   - hostname_port: "host:port" endpoints (UDP output streams)
//   - url: URL endpoints
//   - uuid: RFC 4122 form (playback request ids)
//
// Numeric validations:
//   - gte=n / lte=n / gt=n / lt=n: range bounds
//   - min=n / max=n: value bounds
//
// # Error Types
//
// ValidationError represents a single field validation failure and exposes
// Field, Tag, Param, Value and Error accessors. RequestValidationError
// aggregates them and converts to the API envelope:
//
//	// Single field error
//	{
//	    "code": "SchemaError",
//	    "message": "Rate must be greater than or equal to 0",
//	    "details": {"field": "Rate", "tag": "gte", "value": -1}
//	}
//
//	// Multiple field errors
//	{
//	    "code": "SchemaError",
//	    "message": "ScopeID: ScopeID is required; Mode: Mode must be one of: live replay",
//	    "details": {"fields": [...]}
//	}
//
// # Thread Safety
//
// The singleton validator is initialized once and safe for concurrent use.
// The underlying library caches struct reflection info, so repeated
// validations of the same request type are cheap.
//
// # See Also
//
//   - internal/api: HTTP request handlers using validation
//   - internal/ipc: request envelopes validated on the core side
//   - github.com/go-playground/validator/v10: underlying library
package validation
