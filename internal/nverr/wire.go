// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package nverr

// Wire is the {kind, message} form an error takes inside IPC response
// envelopes. The cause chain never crosses the process boundary.
type Wire struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

// ToWire flattens an error chain for transport. Unclassified errors
// travel as Internal with their message preserved.
func ToWire(err error) *Wire {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	return &Wire{Kind: string(kind), Message: err.Error()}
}

// FromWire rebuilds a typed error from a transported form. Unknown
// kind names come back as Internal so new kinds degrade instead of
// breaking old peers. A nil wire yields nil.
func FromWire(w *Wire) error {
	if w == nil {
		return nil
	}
	kind := Kind(w.Kind)
	switch kind {
	case KindSchema, KindUnknownManifest, KindDuplicateEvent, KindReplayNotAllowed,
		KindPermissionDenied, KindScopeRequired, KindScopeForbidden,
		KindEndpointConflict, KindConflict, KindNotFound, KindTimeout,
		KindStoreUnavailable, KindRateLimited, KindUnauthenticated, KindInternal:
	default:
		kind = KindInternal
	}
	return &Error{Kind: kind, Message: w.Message}
}
