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

// Package tid defines the transaction identifier used throughout the lock
// manager: an immutable, fixed-width byte sequence.
package tid

import (
	"bytes"
	"encoding/hex"
	"hash/fnv"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// Len is a supported TID byte width.
type Len int

// Supported TID widths: 32-, 64-, 128-, and 160-bit identifiers.
const (
	Len4  Len = 4
	Len8  Len = 8
	Len16 Len = 16
	Len20 Len = 20
)

func (l Len) valid() bool {
	switch l {
	case Len4, Len8, Len16, Len20:
		return true
	default:
		return false
	}
}

// TID is an immutable transaction identifier. The zero value is not a valid
// TID; use Parse or New to construct one.
type TID struct {
	b []byte
}

// New wraps raw bytes as a TID; the width is inferred from len(b). It
// copies b so that the caller's buffer may be reused or mutated afterward.
func New(b []byte) (TID, error) {
	if !Len(len(b)).valid() {
		return TID{}, errors.Newf("tid: invalid length %d, want one of 4/8/16/20", len(b))
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return TID{b: cp}, nil
}

// Parse is an alias for New, named for symmetry with String.
func Parse(b []byte) (TID, error) { return New(b) }

// IsValid reports whether t was constructed via New/Parse (as opposed to the
// zero value).
func (t TID) IsValid() bool { return t.b != nil }

// Bytes returns the raw identifier. The caller must not mutate the result.
func (t TID) Bytes() []byte { return t.b }

// Compare returns -1, 0, or 1 per lexicographic unsigned byte comparison.
func (t TID) Compare(o TID) int { return bytes.Compare(t.b, o.b) }

// Equal reports whether t and o hold the same bytes.
func (t TID) Equal(o TID) bool { return bytes.Equal(t.b, o.b) }

// Hash returns an FNV-1a hash of the identifier, stable across equal values,
// suitable for use as a map key component.
func (t TID) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write(t.b)
	return h.Sum64()
}

// String renders the TID as uppercase hex without separators.
func (t TID) String() string {
	return string(bytes.ToUpper([]byte(hex.EncodeToString(t.b))))
}

// SafeFormat implements redact.SafeFormatter, marking transaction ids as safe
// (they are not sensitive data) for redact-aware formatting.
func (t TID) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Print(redact.SafeString(t.String()))
}
