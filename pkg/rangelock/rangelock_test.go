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

package rangelock_test

import (
	"testing"

	"github.com/nvanbenschoten/txnlock/pkg/counter"
	"github.com/nvanbenschoten/txnlock/pkg/rangelock"
	"github.com/nvanbenschoten/txnlock/pkg/storekey"
	"github.com/nvanbenschoten/txnlock/pkg/tid"
	"github.com/stretchr/testify/require"
)

func mkTID(t *testing.T, b byte) tid.TID {
	t.Helper()
	id, err := tid.New([]byte{b, 0, 0, 0})
	require.NoError(t, err)
	return id
}

func k(b byte) storekey.Key { return storekey.NewConcrete([]byte{b}) }

// TestRangeOverlapBlocks is spec scenario S4: an overlapping writer blocks a
// later reader; unlocking the writer frees it.
func TestRangeOverlapBlocks(t *testing.T) {
	l := rangelock.New()
	t1, t2 := mkTID(t, 1), mkTID(t, 2)
	c1, c2 := counter.New(), counter.New()

	l.WriteLock(k(10), k(20), t1, 10, c1)
	require.True(t, c1.IsFree())

	l.ReadLock(k(15), k(25), t2, 20, c2)
	require.False(t, c2.IsFree())
	require.Equal(t, int64(1), c2.Value())

	execs, err := l.Unlock(k(10), k(20), t1)
	require.NoError(t, err)
	require.Equal(t, []tid.TID{t2}, execs)
	require.True(t, c2.IsFree())
}

func TestNonOverlappingRangesDoNotConflict(t *testing.T) {
	l := rangelock.New()
	t1, t2 := mkTID(t, 1), mkTID(t, 2)
	c1, c2 := counter.New(), counter.New()

	l.WriteLock(k(0), k(5), t1, 10, c1)
	l.WriteLock(k(10), k(15), t2, 20, c2)
	require.True(t, c1.IsFree())
	require.True(t, c2.IsFree())
}

func TestReadLockOnlyConflictsWithWriters(t *testing.T) {
	l := rangelock.New()
	t1, t2, t3 := mkTID(t, 1), mkTID(t, 2), mkTID(t, 3)
	c1, c2, c3 := counter.New(), counter.New(), counter.New()

	l.ReadLock(k(0), k(10), t1, 10, c1)
	l.ReadLock(k(5), k(15), t2, 20, c2)
	require.True(t, c1.IsFree())
	require.True(t, c2.IsFree(), "two overlapping readers never conflict")

	l.WriteLock(k(8), k(12), t3, 30, c3)
	require.Equal(t, int64(2), c3.Value(), "new writer conflicts with every overlapping holding")
}

func TestWriteLockPromoteRecomputesReaderCount(t *testing.T) {
	l := rangelock.New()
	t1, t2 := mkTID(t, 1), mkTID(t, 2)
	c1, c2 := counter.New(), counter.New()

	l.ReadLock(k(0), k(10), t1, 10, c1)
	require.True(t, c1.IsFree())

	l.WriteLock(k(0), k(10), t1, 10, c1)
	require.True(t, c1.IsFree(), "promoting while alone in the window must stay executable")

	l.ReadLock(k(0), k(10), t2, 20, c2)
	require.False(t, c2.IsFree())

	execs, err := l.Unlock(k(0), k(10), t1)
	require.NoError(t, err)
	require.Equal(t, []tid.TID{t2}, execs)
}

// TestPromoteWhileBlockedKeepsWriterConflict guards against overwriting a
// holding's tree-conflict count on promotion: T1 acquires a reader lock
// that is blocked by T0's overlapping writer lock, then promotes to writer
// while T0 is still held. T1 must remain blocked until T0 unlocks, since
// T0's writer conflict was never released.
func TestPromoteWhileBlockedKeepsWriterConflict(t *testing.T) {
	l := rangelock.New()
	t0, t1 := mkTID(t, 0), mkTID(t, 1)
	c0, c1 := counter.New(), counter.New()

	l.WriteLock(k(0), k(10), t0, 10, c0)
	require.True(t, c0.IsFree())

	l.ReadLock(k(0), k(10), t1, 20, c1)
	require.False(t, c1.IsFree(), "reader overlapping a held writer must block")

	l.WriteLock(k(0), k(10), t1, 20, c1)
	require.False(t, c1.IsFree(),
		"promoting in place must not discard the outstanding writer conflict from T0")

	execs, err := l.Unlock(k(0), k(10), t0)
	require.NoError(t, err)
	require.Equal(t, []tid.TID{t1}, execs)
	require.True(t, c1.IsFree())
}

// TestUpdateReacquiresConflictForPassedHolding guards against a one-sided
// reorder: T1 holds a free reader at ts=10 over [0,10], then T2's writer
// arrives at ts=20 and blocks on it. Updating T1 to ts=25 moves it past T2
// in sort order, so T2's wait on T1 is released, but T1 must pick up a new
// wait on T2 in exchange — otherwise both run at once.
func TestUpdateReacquiresConflictForPassedHolding(t *testing.T) {
	l := rangelock.New()
	t1, t2 := mkTID(t, 1), mkTID(t, 2)
	c1, c2 := counter.New(), counter.New()

	l.ReadLock(k(0), k(10), t1, 10, c1)
	require.True(t, c1.IsFree())

	l.WriteLock(k(0), k(10), t2, 20, c2)
	require.False(t, c2.IsFree(), "t2's writer must block on t1's reader")

	execs, err := l.Update(k(0), k(10), t1, 25)
	require.NoError(t, err)
	require.Equal(t, []tid.TID{t2}, execs, "t2 is freed by t1's reorder past it")
	require.True(t, c2.IsFree())
	require.False(t, c1.IsFree(), "t1 must now wait on t2, whom it just passed")

	execs, err = l.Unlock(k(0), k(10), t2)
	require.NoError(t, err)
	require.Equal(t, []tid.TID{t1}, execs)
	require.True(t, c1.IsFree())
}

func TestUpdateRejectsNonMonotoneTimestamp(t *testing.T) {
	l := rangelock.New()
	t1 := mkTID(t, 1)
	c1 := counter.New()
	l.ReadLock(k(0), k(10), t1, 10, c1)
	_, err := l.Update(k(0), k(10), t1, 5)
	require.Error(t, err)
}

func TestUnlockMissingReturnsError(t *testing.T) {
	l := rangelock.New()
	_, err := l.Unlock(k(0), k(10), mkTID(t, 9))
	require.Error(t, err)
}

func TestRangeLockIsEmptyAfterDraining(t *testing.T) {
	l := rangelock.New()
	t1 := mkTID(t, 1)
	c1 := counter.New()
	l.WriteLock(k(0), k(10), t1, 10, c1)
	require.False(t, l.IsEmpty())
	_, err := l.Unlock(k(0), k(10), t1)
	require.NoError(t, err)
	require.True(t, l.IsEmpty())
}

func TestWriteAllLockUsesFirstLastBounds(t *testing.T) {
	l := rangelock.New()
	t1, t2 := mkTID(t, 1), mkTID(t, 2)
	c1, c2 := counter.New(), counter.New()

	l.WriteLock(storekey.FirstKey, storekey.LastKey, t1, 10, c1)
	require.True(t, c1.IsFree())

	l.ReadLock(k(5), k(5), t2, 20, c2)
	require.False(t, c2.IsFree(), "a [FIRST,LAST] writer overlaps every concrete range")

	execs, err := l.Unlock(storekey.FirstKey, storekey.LastKey, t1)
	require.NoError(t, err)
	require.Equal(t, []tid.TID{t2}, execs)
}
