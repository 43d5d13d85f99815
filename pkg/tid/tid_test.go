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

package tid_test

import (
	"testing"

	"github.com/nvanbenschoten/txnlock/pkg/tid"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadLength(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5, 9, 15, 17, 21, 32} {
		_, err := tid.New(make([]byte, n))
		require.Error(t, err, "length %d should be rejected", n)
	}
	for _, n := range []int{4, 8, 16, 20} {
		_, err := tid.New(make([]byte, n))
		require.NoError(t, err, "length %d should be accepted", n)
	}
}

func TestCompareAndEqual(t *testing.T) {
	a, err := tid.New([]byte{0x00, 0x00, 0x00, 0x01})
	require.NoError(t, err)
	b, err := tid.New([]byte{0x00, 0x00, 0x00, 0x02})
	require.NoError(t, err)
	c, err := tid.New([]byte{0x00, 0x00, 0x00, 0x01})
	require.NoError(t, err)

	require.Negative(t, a.Compare(b))
	require.Positive(t, b.Compare(a))
	require.Zero(t, a.Compare(c))
	require.True(t, a.Equal(c))
	require.False(t, a.Equal(b))
}

func TestHashStableAcrossEqualValues(t *testing.T) {
	a, err := tid.New([]byte("abcd1234"))
	require.NoError(t, err)
	b, err := tid.New([]byte("abcd1234"))
	require.NoError(t, err)
	require.Equal(t, a.Hash(), b.Hash())
}

func TestCopiesInputBytes(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	a, err := tid.New(buf)
	require.NoError(t, err)
	buf[0] = 0xFF
	require.Equal(t, byte(1), a.Bytes()[0], "TID must not alias caller's buffer")
}

func TestString(t *testing.T) {
	a, err := tid.New([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	require.NoError(t, err)
	require.Equal(t, "DEADBEEF", a.String())
}
