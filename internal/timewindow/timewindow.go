// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

// Package timewindow resolves export time windows from relative expressions
// like "30m", "24h", "7d" or "2w", or from explicit epoch-second bounds.
// The canonical internal unit is seconds; millisecond conversion happens only
// at the Millis accessors.
package timewindow

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalid marks a malformed or inconsistent window specification. Callers
// test with errors.Is.
var ErrInvalid = errors.New("invalid time window")

// relativePattern matches a positive integer followed by a single unit:
// m (minutes), h (hours), d (days), w (weeks).
var relativePattern = regexp.MustCompile(`^(\d+)([mhdw])$`)

var unitSeconds = map[string]int64{
	"m": 60,
	"h": 3600,
	"d": 86400,
	"w": 604800,
}

// Window is a resolved half-open export window [Start, End). A zero Start
// means unbounded history; End is always set.
type Window struct {
	Start time.Time
	End   time.Time
}

// Options selects a window. StartTime and EndTime are epoch seconds; when
// either is set the explicit bounds win and Since is ignored. Since is a
// relative expression counted back from now.
type Options struct {
	Since     string
	StartTime int64
	EndTime   int64
}

// ParseRelative converts a relative expression into a duration. An empty
// string or anything not matching <n><m|h|d|w> is ErrInvalid.
func ParseRelative(expr string) (time.Duration, error) {
	m := relativePattern.FindStringSubmatch(expr)
	if m == nil {
		return 0, fmt.Errorf("%w: relative expression %q (want <number><m|h|d|w>, e.g. 24h)", ErrInvalid, expr)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: relative expression %q: %v", ErrInvalid, expr, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: relative expression %q: count must be positive", ErrInvalid, expr)
	}
	return time.Duration(n*unitSeconds[m[2]]) * time.Second, nil
}

// Resolve turns opts into a concrete Window anchored at now.
//
// Precedence: explicit StartTime/EndTime beat Since. With only Since set, the
// window is [now-since, now]. With nothing set, the window is unbounded
// history ending at now. A start after the end is ErrInvalid.
func Resolve(opts Options, now time.Time) (Window, error) {
	now = now.UTC().Truncate(time.Second)

	if opts.StartTime != 0 || opts.EndTime != 0 {
		if opts.StartTime < 0 || opts.EndTime < 0 {
			return Window{}, fmt.Errorf("%w: epoch bounds must not be negative", ErrInvalid)
		}
		w := Window{End: now}
		if opts.StartTime != 0 {
			w.Start = time.Unix(opts.StartTime, 0).UTC()
		}
		if opts.EndTime != 0 {
			w.End = time.Unix(opts.EndTime, 0).UTC()
		}
		if !w.Start.IsZero() && w.Start.After(w.End) {
			return Window{}, fmt.Errorf("%w: start %d is after end %d", ErrInvalid, opts.StartTime, opts.EndTime)
		}
		return w, nil
	}

	if opts.Since != "" {
		d, err := ParseRelative(opts.Since)
		if err != nil {
			return Window{}, err
		}
		return Window{Start: now.Add(-d), End: now}, nil
	}

	return Window{End: now}, nil
}

// StartSeconds returns the window start as epoch seconds, 0 when unbounded.
func (w Window) StartSeconds() int64 {
	if w.Start.IsZero() {
		return 0
	}
	return w.Start.Unix()
}

// EndSeconds returns the window end as epoch seconds.
func (w Window) EndSeconds() int64 {
	if w.End.IsZero() {
		return 0
	}
	return w.End.Unix()
}

// StartMillis returns the window start as epoch milliseconds, 0 when
// unbounded. This is the single seconds-to-milliseconds conversion point.
func (w Window) StartMillis() int64 {
	return w.StartSeconds() * 1000
}

// EndMillis returns the window end as epoch milliseconds.
func (w Window) EndMillis() int64 {
	return w.EndSeconds() * 1000
}

// Bounded reports whether the window has a lower bound.
func (w Window) Bounded() bool {
	return !w.Start.IsZero()
}

// String renders the window for log output.
func (w Window) String() string {
	if !w.Bounded() {
		return fmt.Sprintf("(unbounded, %s]", w.End.Format(time.RFC3339))
	}
	return fmt.Sprintf("[%s, %s]", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}
