// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

package openfire

import (
	"errors"
	"fmt"
)

// Error kinds for upstream API failures. Callers branch on these with
// errors.Is; the concrete *APIError carries the diagnostic detail.
var (
	// ErrAuthentication indicates the shared secret was rejected.
	ErrAuthentication = errors.New("authentication failed")

	// ErrNotFound indicates the requested entity does not exist upstream.
	ErrNotFound = errors.New("not found")

	// ErrServer indicates an upstream 5xx failure.
	ErrServer = errors.New("server error")

	// ErrTransport indicates a network-level failure or timeout before a
	// usable response arrived.
	ErrTransport = errors.New("transport failure")

	// ErrValidation indicates the server rejected the request parameters.
	ErrValidation = errors.New("invalid request")
)

// APIError is a failed Openfire REST API call. It unwraps to one of the kind
// sentinels above.
type APIError struct {
	Op         string // API operation, e.g. "list users"
	StatusCode int    // HTTP status, 0 for transport failures
	Exception  string // Openfire exception class from the error envelope, if any
	Message    string // human-readable message from the error envelope
	kind       error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.kind.Error()
	}
	if e.Exception != "" {
		return fmt.Sprintf("openfire: %s: %s (%s, status %d)", e.Op, msg, e.Exception, e.StatusCode)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("openfire: %s: %s (status %d)", e.Op, msg, e.StatusCode)
	}
	return fmt.Sprintf("openfire: %s: %s", e.Op, msg)
}

func (e *APIError) Unwrap() error { return e.kind }

// errorEnvelope is the JSON error body produced by the REST API plugin.
type errorEnvelope struct {
	Exception string `json:"exception"`
	Message   string `json:"message"`
}

// exceptionKinds maps the plugin's exception class names onto error kinds.
// Unlisted exceptions fall back to status-code classification.
var exceptionKinds = map[string]error{
	"RequestNotAuthorised":       ErrAuthentication,
	"UserNotFoundException":      ErrNotFound,
	"RoomNotFoundException":      ErrNotFound,
	"GroupNotFoundException":     ErrNotFound,
	"PropertyNotFoundException":  ErrNotFound,
	"IllegalArgumentException":   ErrValidation,
	"UserAlreadyExistsException": ErrValidation,
	"AlreadyExistsException":     ErrValidation,
	"NotAllowedException":        ErrValidation,
	"SharedGroupException":       ErrValidation,
	"UserServiceDisabled":        ErrServer,
}

// classify builds an APIError for a non-2xx response.
func classify(op string, statusCode int, env errorEnvelope) *APIError {
	kind, ok := exceptionKinds[env.Exception]
	if !ok {
		switch {
		case statusCode == 401 || statusCode == 403:
			kind = ErrAuthentication
		case statusCode == 404:
			kind = ErrNotFound
		case statusCode == 400:
			kind = ErrValidation
		case statusCode >= 500:
			kind = ErrServer
		default:
			kind = ErrServer
		}
	}
	return &APIError{
		Op:         op,
		StatusCode: statusCode,
		Exception:  env.Exception,
		Message:    env.Message,
		kind:       kind,
	}
}

// transportError wraps a network-level failure.
func transportError(op string, err error) *APIError {
	return &APIError{Op: op, Message: err.Error(), kind: ErrTransport}
}
