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

package counter_test

import (
	"testing"

	"github.com/nvanbenschoten/txnlock/pkg/counter"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	c := counter.New()
	require.True(t, c.IsFree())
	c.Acquire()
	require.False(t, c.IsFree())
	require.EqualValues(t, 1, c.Value())
	c.Release()
	require.True(t, c.IsFree())
}

func TestAcquireN(t *testing.T) {
	c := counter.New()
	c.AcquireN(3)
	require.EqualValues(t, 3, c.Value())
	c.Release()
	c.Release()
	c.Release()
	require.True(t, c.IsFree())
}

func TestAcquireNZeroIsNoop(t *testing.T) {
	c := counter.New()
	c.AcquireN(0)
	require.True(t, c.IsFree())
}

func TestAcquireNNegativePanics(t *testing.T) {
	c := counter.New()
	require.Panics(t, func() { c.AcquireN(-1) })
}

func TestReleaseBelowZeroPanics(t *testing.T) {
	c := counter.New()
	require.Panics(t, func() { c.Release() })
}

func TestSharedAcrossHandles(t *testing.T) {
	c := counter.New()
	c.Acquire()
	// Simulate two records referencing the same shared counter.
	holder1, holder2 := c, c
	holder1.Release()
	require.True(t, holder2.IsFree())
}
