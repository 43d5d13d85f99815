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

// Package counter implements the shared per-transaction conflict counter.
// A single Counter is referenced by every lock-table record (across every
// KeyLock queue and RangeLock entry) belonging to one transaction; adding a
// conflict to any one record decrements executability globally.
package counter

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// Counter is a non-negative conflict count, shared by reference among every
// lock-table record for one transaction.
//
// The lock manager itself is single-threaded: all mutation happens from one
// event loop goroutine. The counter is nonetheless built on atomics so that
// an auxiliary monitoring goroutine may safely read it without a data race;
// this confers no ordering guarantee and callers other than the owning event
// loop must never call Acquire/Release.
type Counter struct {
	n atomic.Int64
}

// New returns a Counter initialized to zero.
func New() *Counter {
	return &Counter{}
}

// Acquire adds one conflict unit.
func (c *Counter) Acquire() {
	c.n.Add(1)
}

// AcquireN adds n conflict units. n must be non-negative.
func (c *Counter) AcquireN(n int64) {
	if n < 0 {
		panic(errors.AssertionFailedf("counter: AcquireN called with negative n=%d", n))
	}
	if n == 0 {
		return
	}
	c.n.Add(n)
}

// Release removes one conflict unit. Releasing a counter already at zero is
// an invariant violation and panics.
func (c *Counter) Release() {
	for {
		cur := c.n.Load()
		if cur <= 0 {
			panic(errors.AssertionFailedf("counter: Release called on a counter already at zero"))
		}
		if c.n.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// IsFree reports whether the counter has reached zero.
func (c *Counter) IsFree() bool {
	return c.n.Load() == 0
}

// Value returns the current count, for tests and metrics.
func (c *Counter) Value() int64 {
	return c.n.Load()
}
