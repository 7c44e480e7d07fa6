// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/openfire-tools/ofexport/internal/config"
	"github.com/openfire-tools/ofexport/internal/openfire"
	"github.com/openfire-tools/ofexport/internal/sink"
	"github.com/openfire-tools/ofexport/internal/timewindow"
)

// Exit codes. Distinct codes let cron wrappers tell configuration mistakes
// and credential problems apart from runtime failures.
const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitAuth     = 3
	exitNotFound = 4
)

// errUsage marks bad flag combinations caught before resolution.
var errUsage = errors.New("invalid usage")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy onto process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, config.ErrConfiguration), errors.Is(err, timewindow.ErrInvalid),
		errors.Is(err, openfire.ErrValidation), errors.Is(err, errUsage):
		return exitUsage
	case errors.Is(err, openfire.ErrAuthentication):
		return exitAuth
	case errors.Is(err, openfire.ErrNotFound):
		return exitNotFound
	case errors.Is(err, sink.ErrDelivery), errors.Is(err, openfire.ErrServer), errors.Is(err, openfire.ErrTransport):
		return exitFailure
	default:
		return exitFailure
	}
}
