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

package storekey

// Value is a raw, unsigned byte sequence, with a distinguished Null form.
// It carries no ordering of its own; only keys are ordered.
type Value struct {
	data []byte
	null bool
}

// NullValue is the distinguished absent-value sentinel.
var NullValue = Value{null: true}

// NewValue wraps raw bytes as a Value. The bytes are copied.
func NewValue(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{data: cp}
}

// IsNull reports whether v is the null sentinel.
func (v Value) IsNull() bool { return v.null }

// Bytes returns the raw bytes, or nil for the null sentinel.
func (v Value) Bytes() []byte { return v.data }
