// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errs defines typed errors with categories for user-friendly
// reporting. Every failure surfaced by the service layer carries a
// machine-readable Kind, a human-readable message, and, for failures that
// came back over HTTP, the originating status code.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Validation indicates malformed input caught before any network call.
	Validation Kind = "validation"
	// Auth indicates a 401-equivalent failure; it triggers global session teardown.
	Auth Kind = "auth"
	// NotFound indicates the requested resource does not exist or is inaccessible.
	NotFound Kind = "not_found"
	// BadRequest indicates a 400-equivalent failure.
	BadRequest Kind = "bad_request"
	// Server indicates a 5xx-equivalent failure or a malformed server reply.
	Server Kind = "server"
	// Decode indicates a corrupt or legacy-format cached blob. Recovered
	// locally and logged, never surfaced to the user.
	Decode Kind = "decode"
	// Network indicates a transport-level failure with no response received.
	Network Kind = "network"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Status  int // HTTP status when the error originated from the backend
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }
func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }

func Status(kind Kind, status int, msg string) *E {
	return &E{Kind: kind, Message: msg, Status: status}
}

// KindOf returns the Kind carried by err, or the empty Kind when err has none.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// StatusOf returns the HTTP status carried by err, or 0 when unknown.
func StatusOf(err error) int {
	var e *E
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// MessageOf returns the human-readable message carried by err. For plain
// errors it falls back to Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *E
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
