// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

// Package openfire contains typed representations of the entities returned
// by the Openfire REST API plugin (users, chat rooms, occupants, sessions,
// security audit log entries).
//
// The REST API plugin serializes collections inconsistently depending on
// server version and result cardinality: a collection may arrive as a JSON
// array, as a single bare object, or wrapped in a singular-keyed envelope
// such as {"user": [...]}. FlexList absorbs all three shapes so the rest of
// the codebase only ever sees Go slices.
package openfire
