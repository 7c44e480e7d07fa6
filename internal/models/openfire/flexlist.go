// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

package openfire

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
)

// FlexList is a slice that tolerates the three collection encodings emitted
// by the Openfire REST API plugin:
//
//	[{...}, {...}]              plain array
//	{...}                       single element, no array wrapper
//	{"occupant": [{...}, ...]}  singular-keyed envelope around either shape
//
// JSON null and a missing field both decode to a nil slice.
type FlexList[T any] []T

// UnmarshalJSON implements json.Unmarshaler.
func (l *FlexList[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	switch data[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil

	case '{':
		// A bare object is ambiguous: it is either a single element or a
		// singular-keyed envelope. Try the element first; an envelope decoded
		// as an element yields the zero value because its only key does not
		// match any element field.
		var one T
		if err := json.Unmarshal(data, &one); err == nil && !isZeroValue(one) {
			*l = []T{one}
			return nil
		}

		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(data, &envelope); err != nil {
			return err
		}
		if len(envelope) == 0 {
			*l = nil
			return nil
		}
		if len(envelope) == 1 {
			for _, raw := range envelope {
				var inner FlexList[T]
				if err := inner.UnmarshalJSON(raw); err != nil {
					return err
				}
				*l = inner
				return nil
			}
		}
		return fmt.Errorf("flexlist: cannot decode object with %d keys as %T", len(envelope), *l)

	default:
		// Scalar element (e.g. a lone room name string).
		var one T
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*l = []T{one}
		return nil
	}
}

// Slice returns the underlying slice, never nil.
func (l FlexList[T]) Slice() []T {
	if l == nil {
		return []T{}
	}
	return l
}

func isZeroValue(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	return rv.IsZero()
}
