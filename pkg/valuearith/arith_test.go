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

package valuearith_test

import (
	"testing"

	"github.com/nvanbenschoten/txnlock/pkg/storekey"
	"github.com/nvanbenschoten/txnlock/pkg/valuearith"
	"github.com/stretchr/testify/require"
)

func TestConcatenateCopiesEachSource(t *testing.T) {
	a := storekey.NewValue([]byte("foo"))
	b := storekey.NewValue([]byte("bar"))
	got := valuearith.Concatenate(a, b)
	require.Equal(t, []byte("foobar"), got.Bytes())
}

func TestConcatenateSkipsNull(t *testing.T) {
	a := storekey.NewValue([]byte("foo"))
	got := valuearith.Concatenate(a, storekey.NullValue, storekey.NewValue([]byte("bar")))
	require.Equal(t, []byte("foobar"), got.Bytes())
}

func TestConcatenateEmpty(t *testing.T) {
	got := valuearith.Concatenate()
	require.Empty(t, got.Bytes())
}

func TestUnimplementedOperators(t *testing.T) {
	a := storekey.NewValue([]byte{1})
	b := storekey.NewValue([]byte{2})

	_, err := valuearith.Subtract(a, b)
	require.ErrorIs(t, err, valuearith.ErrNotImplemented)

	_, err = valuearith.Multiply(a, b)
	require.ErrorIs(t, err, valuearith.ErrNotImplemented)

	_, err = valuearith.Divide(a, b)
	require.ErrorIs(t, err, valuearith.ErrNotImplemented)
}
