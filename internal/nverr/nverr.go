// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package nverr defines the NOVA error taxonomy.
//
// Errors cross process and protocol boundaries as typed kinds, never
// as stack traces: a kind travels over IPC as {kind, message}, maps to
// an HTTP status at the edge, and supports errors.Is/errors.As inside
// a process. Callers branch on the kind; Message is for humans.
package nverr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable error class.
type Kind string

// The NOVA error taxonomy.
const (
	// KindSchema marks contract violations in submitted data: missing
	// identity, unknown lane, invalid type or range. Never retried.
	KindSchema Kind = "SchemaError"

	// KindUnknownManifest marks a ui event referencing an unpublished
	// (manifestId, manifestVersion).
	KindUnknownManifest Kind = "UnknownManifest"

	// KindDuplicateEvent marks the idempotent no-op insert. Surfaced
	// with duplicate: true in ACKs, not as a failure.
	KindDuplicateEvent Kind = "DuplicateEvent"

	// KindReplayNotAllowed marks a command submitted while the client
	// is in REPLAY mode.
	KindReplayNotAllowed Kind = "ReplayNotAllowed"

	// KindPermissionDenied marks a role lacking the required
	// capability.
	KindPermissionDenied Kind = "PermissionDenied"

	// KindScopeRequired marks a write that resolves to no single
	// scope.
	KindScopeRequired Kind = "ScopeRequired"

	// KindScopeForbidden marks access to a scope outside the user's
	// allowed set.
	KindScopeForbidden Kind = "ScopeForbidden"

	// KindEndpointConflict marks a stream definition colliding on
	// (protocol, endpoint).
	KindEndpointConflict Kind = "EndpointConflict"

	// KindConflict marks any other uniqueness collision, such as a
	// username already taken.
	KindConflict Kind = "Conflict"

	// KindNotFound marks an unknown streamId, runNumber, exportId or
	// other addressed resource.
	KindNotFound Kind = "NotFound"

	// KindTimeout marks an exceeded IPC or export deadline.
	KindTimeout Kind = "Timeout"

	// KindStoreUnavailable marks persistence failure; the retry
	// policy is the caller's.
	KindStoreUnavailable Kind = "StoreUnavailable"

	// KindRateLimited marks a client exceeding its request or message
	// allowance. Retry after backing off.
	KindRateLimited Kind = "RateLimited"

	// KindUnauthenticated marks missing or invalid credentials.
	KindUnauthenticated Kind = "Unauthenticated"

	// KindInternal is the fallback for unclassified failures.
	KindInternal Kind = "Internal"
)

// Error is a classified NOVA error. Err optionally wraps the cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return string(e.Kind) + ": " + e.Message
	case e.Err != nil:
		return string(e.Kind) + ": " + e.Err.Error()
	default:
		return string(e.Kind)
	}
}

// Unwrap exposes the cause to errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so
// errors.Is(err, nverr.ErrNotFound) works regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// Kind sentinels for errors.Is matching.
var (
	ErrSchema           = &Error{Kind: KindSchema}
	ErrUnknownManifest  = &Error{Kind: KindUnknownManifest}
	ErrDuplicateEvent   = &Error{Kind: KindDuplicateEvent}
	ErrReplayNotAllowed = &Error{Kind: KindReplayNotAllowed}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}
	ErrScopeRequired    = &Error{Kind: KindScopeRequired}
	ErrScopeForbidden   = &Error{Kind: KindScopeForbidden}
	ErrEndpointConflict = &Error{Kind: KindEndpointConflict}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrTimeout          = &Error{Kind: KindTimeout}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
	ErrRateLimited      = &Error{Kind: KindRateLimited}
	ErrUnauthenticated  = &Error{Kind: KindUnauthenticated}
	ErrInternal         = &Error{Kind: KindInternal}
)

// New builds an *Error with a literal message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error. A nil cause returns nil so call
// sites can wrap unconditionally.
func Wrap(kind Kind, message string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to
// KindInternal for unclassified errors and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Retryable reports whether the error class is transient: timeouts
// and store unavailability may be retried, contract violations never.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindStoreUnavailable:
		return true
	default:
		return false
	}
}

// HTTPStatus maps an error chain to the HTTP status code the edge
// responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case "":
		return http.StatusOK
	case KindSchema, KindUnknownManifest:
		return http.StatusBadRequest
	case KindDuplicateEvent:
		// Idempotent no-op, not a failure.
		return http.StatusOK
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindPermissionDenied, KindScopeForbidden, KindReplayNotAllowed:
		return http.StatusForbidden
	case KindScopeRequired:
		return http.StatusBadRequest
	case KindEndpointConflict, KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
