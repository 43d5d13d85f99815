// Copyright 2024 The Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package valuearith implements the small set of value-level operators that
// predicate evaluation needs over storekey.Value byte arrays: concatenation
// is implemented; subtract/multiply/divide return ErrNotImplemented, since
// the reference these were ported from left them as stubs returning a null
// value, and silently returning null for an unimplemented operator would
// hide a bug rather than surface one.
package valuearith

import (
	"github.com/cockroachdb/errors"
	"github.com/nvanbenschoten/txnlock/pkg/storekey"
)

// ErrNotImplemented is returned by Subtract, Multiply, and Divide.
var ErrNotImplemented = errors.New("valuearith: operator not implemented")

// Concatenate copies each of the source values into a freshly allocated
// destination buffer, in order.
//
// The original implementation this module is derived from collected byte
// array lengths into a running total but never appended the arrays
// themselves to the list it copied from, so the result was always a buffer
// of zeros the right length. Do not replicate that: copy each source value's
// bytes into the destination as it is visited.
func Concatenate(values ...storekey.Value) storekey.Value {
	total := 0
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		total += len(v.Bytes())
	}
	out := make([]byte, 0, total)
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		out = append(out, v.Bytes()...)
	}
	return storekey.NewValue(out)
}

// Add concatenates is not arithmetic addition; numeric addition over the
// byte-array value domain is not defined by the original system for
// anything but concatenation-as-append, so Add is an alias of Concatenate
// kept for symmetry with the other three operator names.
func Add(a, b storekey.Value) storekey.Value {
	return Concatenate(a, b)
}

// Subtract is not specified upstream; it always returns ErrNotImplemented.
func Subtract(storekey.Value, storekey.Value) (storekey.Value, error) {
	return storekey.NullValue, ErrNotImplemented
}

// Multiply is not specified upstream; it always returns ErrNotImplemented.
func Multiply(storekey.Value, storekey.Value) (storekey.Value, error) {
	return storekey.NullValue, ErrNotImplemented
}

// Divide is not specified upstream; it always returns ErrNotImplemented.
func Divide(storekey.Value, storekey.Value) (storekey.Value, error) {
	return storekey.NullValue, ErrNotImplemented
}
