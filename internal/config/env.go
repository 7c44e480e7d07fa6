// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

package config

import (
	"os"
	"strings"
)

// EnvSnapshot captures the process environment as a map for Resolve. Taking
// a snapshot keeps resolution pure and makes precedence testable without
// mutating the real environment.
func EnvSnapshot() map[string]string {
	environ := os.Environ()
	snapshot := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i > 0 {
			snapshot[kv[:i]] = kv[i+1:]
		}
	}
	return snapshot
}
