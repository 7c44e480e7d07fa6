// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

// Package openfire implements a read-only client for the Openfire REST API
// plugin, covering the surface the export pipelines consume: users, live
// sessions, chat rooms, room occupants, security audit logs and system
// properties.
//
// Errors from the server are classified into a small taxonomy of sentinel
// kinds (ErrAuthentication, ErrNotFound, ErrValidation, ErrServer,
// ErrTransport) that callers test with errors.Is. CircuitBreakerClient is a
// drop-in wrapper that fails fast when the server is degraded.
package openfire
