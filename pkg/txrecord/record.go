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

// Package txrecord defines Record: the per-holding state a KeyLock queue
// entry or RangeLock tree entry carries, sharing one Counter across every
// holding of the same transaction.
package txrecord

import (
	"github.com/cockroachdb/errors"
	"github.com/nvanbenschoten/txnlock/pkg/counter"
	"github.com/nvanbenschoten/txnlock/pkg/tid"
)

// Kind is the lock mode a Record holds.
type Kind uint8

const (
	// Reader holds a shared lock.
	Reader Kind = iota
	// Writer holds an exclusive lock.
	Writer
)

func (k Kind) String() string {
	if k == Writer {
		return "writer"
	}
	return "reader"
}

// Record is one holding of a transaction on a single key or range. Multiple
// Records belonging to the same transaction (across different keys/ranges)
// share one Counter by reference.
type Record struct {
	TID           tid.TID
	Timestamp     int64
	Kind          Kind
	QueueConflict bool
	// TreeConflicts is the number of counter units this holding alone
	// contributes, tracked locally because Counter is shared across every
	// holding (key and range) of the same transaction; only RangeLock
	// holdings use this field.
	TreeConflicts int64
	Counter       *counter.Counter
}

// New constructs a Record. The caller supplies the shared counter handle.
func New(t tid.TID, ts int64, kind Kind, c *counter.Counter) *Record {
	return &Record{TID: t, Timestamp: ts, Kind: kind, Counter: c}
}

// Promote upgrades a Reader to a Writer. Promoting a Writer is a no-op;
// demoting a Writer back to Reader is not supported.
func (r *Record) Promote() {
	r.Kind = Writer
}

// SetQueueConflict sets the queueConflict bit, acquiring one counter unit
// the first time it transitions false->true, so that queueConflict being
// set always implies the counter is nonzero. Setting it when already true
// is a no-op.
func (r *Record) SetQueueConflict() {
	if r.QueueConflict {
		return
	}
	r.QueueConflict = true
	r.Counter.Acquire()
}

// ClearQueueConflict releases the queueConflict bit's counter unit and
// reports whether the counter thereby transitioned from nonzero to zero
// (the edge-triggered condition for adding this record's TID to an
// execSet). Clearing when not set is a bug: every caller must only call
// this once per conflict it itself introduced.
func (r *Record) ClearQueueConflict() (becameFree bool) {
	if !r.QueueConflict {
		panic(errors.AssertionFailedf("txrecord: ClearQueueConflict called with no queue conflict set"))
	}
	r.QueueConflict = false
	before := r.Counter.Value()
	r.Counter.Release()
	return before == 1
}

// ReleaseTreeConflict releases one tree-conflict unit contributed by
// RangeLock admission accounting, reporting whether the counter thereby
// transitioned from nonzero to zero.
func (r *Record) ReleaseTreeConflict() (becameFree bool) {
	if r.TreeConflicts <= 0 {
		panic(errors.AssertionFailedf("txrecord: ReleaseTreeConflict called with no tree conflicts outstanding"))
	}
	r.TreeConflicts--
	before := r.Counter.Value()
	r.Counter.Release()
	return before == 1
}

// AcquireTreeConflicts adds n tree-conflict units, e.g. at insertion into
// an overlap window or on a reorder that newly conflicts with holdings a
// record has moved past.
func (r *Record) AcquireTreeConflicts(n int64) {
	if n == 0 {
		return
	}
	r.TreeConflicts += n
	r.Counter.AcquireN(n)
}

// Executable reports whether r's transaction may run: !queueConflict &&
// counter == 0.
func (r *Record) Executable() bool {
	return !r.QueueConflict && r.Counter.IsFree()
}

// Compare orders records by (timestamp, tid), the order a KeyLock queue or
// a RangeLock overlap window is sorted into before admission decisions.
func Compare(a, b *Record) int {
	if a.Timestamp != b.Timestamp {
		if a.Timestamp < b.Timestamp {
			return -1
		}
		return 1
	}
	return a.TID.Compare(b.TID)
}
