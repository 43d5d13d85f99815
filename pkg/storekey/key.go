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

// Package storekey defines the ordered key domain that the lock manager
// operates over: concrete byte-array keys plus four meta-keys (NULL, ANY,
// FIRST, LAST) used as wildcard and domain-boundary sentinels. Keys are
// represented as a tagged variant rather than a subclass hierarchy, since
// Go has no inheritance to hang sentinel behavior off of.
package storekey

import "bytes"

// Kind tags a Key as one of the four sentinels or a concrete value.
type Kind uint8

const (
	// Concrete keys hold real byte-array data.
	Concrete Kind = iota
	// Null is the strictly-least sentinel; never stored.
	Null
	// Any compares equal to every non-null key; never stored.
	Any
	// First is the least "real" bound; concrete keys compare greater.
	First
	// Last is the greatest bound; concrete keys compare less.
	Last
)

// Key is an element of the totally ordered key domain: a concrete value or
// one of the four meta-key sentinels.
type Key struct {
	kind Kind
	data []byte
}

// NullKey, AnyKey, FirstKey, and LastKey are the four meta-key singletons.
var (
	NullKey  = Key{kind: Null}
	AnyKey   = Key{kind: Any}
	FirstKey = Key{kind: First}
	LastKey  = Key{kind: Last}
)

// NewConcrete wraps raw bytes as a concrete key. The bytes are copied.
func NewConcrete(b []byte) Key {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Key{kind: Concrete, data: cp}
}

// Kind reports which variant k is.
func (k Key) Kind() Kind { return k.kind }

// IsMeta reports whether k is one of the four sentinels.
func (k Key) IsMeta() bool { return k.kind != Concrete }

// Bytes returns the raw bytes of a concrete key, or nil for a sentinel.
func (k Key) Bytes() []byte { return k.data }

// Compare implements the ordering/equality table over the meta-keys:
//
//	        NULL  ANY  FIRST  LAST  concrete
//	NULL      =    <     <     <       <
//	ANY       >    =     =     =       =
//	FIRST     >    =     =     <       <
//	LAST      >    =     >     =       >
//
// with FIRST < concrete < LAST for concrete keys, and FIRST/LAST comparing
// among themselves as the table dictates.
func Compare(a, b Key) int {
	if a.kind == Any || b.kind == Any {
		switch {
		case a.kind == Any && b.kind == Any:
			return 0
		case a.kind == Null || b.kind == Null:
			// NULL vs ANY: NULL < ANY, i.e. ANY > NULL.
			if a.kind == Null {
				return -1
			}
			return 1
		default:
			return 0
		}
	}
	if a.kind == Null && b.kind == Null {
		return 0
	}
	if a.kind == Null {
		return -1
	}
	if b.kind == Null {
		return 1
	}
	if a.kind == Last && b.kind == Last {
		return 0
	}
	if a.kind == Last {
		return 1
	}
	if b.kind == Last {
		return -1
	}
	if a.kind == First && b.kind == First {
		return 0
	}
	if a.kind == First {
		return -1
	}
	if b.kind == First {
		return 1
	}
	// Both concrete.
	return bytes.Compare(a.data, b.data)
}

// Equal reports whether a and b compare equal under Compare. Note that ANY
// is equal to every non-null key, so Equal is not a substitute for identity.
func Equal(a, b Key) bool { return Compare(a, b) == 0 }

// String renders a Key for logs/tests.
func (k Key) String() string {
	switch k.kind {
	case Null:
		return "<null>"
	case Any:
		return "<any>"
	case First:
		return "<first>"
	case Last:
		return "<last>"
	default:
		return string(k.data)
	}
}
