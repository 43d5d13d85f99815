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

// Package keylock implements KeyLock: a per-key FIFO lock queue with
// reader/writer semantics, lock upgrade, and timestamp re-order.
package keylock

import (
	"github.com/cockroachdb/errors"
	"github.com/nvanbenschoten/txnlock/pkg/counter"
	"github.com/nvanbenschoten/txnlock/pkg/ringdeque"
	"github.com/nvanbenschoten/txnlock/pkg/tid"
	"github.com/nvanbenschoten/txnlock/pkg/txrecord"
)

// KeyLock is the FIFO queue of holders for a single concrete key.
type KeyLock struct {
	queue *ringdeque.RingDeque[*txrecord.Record]
}

// New returns an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{queue: ringdeque.New(txrecord.Compare)}
}

// IsEmpty reports whether the queue has no holders, the condition under
// which a TransactionalLocker may drop this KeyLock.
func (l *KeyLock) IsEmpty() bool {
	return l.queue.IsEmpty()
}

// Len reports the number of holders currently queued, for tests/metrics.
func (l *KeyLock) Len() int {
	return l.queue.Len()
}

func (l *KeyLock) tailTID() (tid.TID, bool) {
	r, ok := l.queue.PeekLast()
	if !ok {
		var zero tid.TID
		return zero, false
	}
	return r.TID, true
}

// ReadLock enqueues t as a reader, or is a no-op if t already holds the
// tail position.
func (l *KeyLock) ReadLock(t tid.TID, ts int64, c *counter.Counter) {
	if tailTID, ok := l.tailTID(); ok && tailTID.Equal(t) {
		return
	}
	l.queue.PushLast(txrecord.New(t, ts, txrecord.Reader, c))
	reconcile(l.queue)
}

// WriteLock enqueues t as a writer, promoting an existing reader holding
// the tail position in place instead of enqueuing a new record.
func (l *KeyLock) WriteLock(t tid.TID, ts int64, c *counter.Counter) {
	if tail, ok := l.queue.PeekLast(); ok && tail.TID.Equal(t) {
		if tail.Kind == txrecord.Reader {
			tail.Promote()
			reconcile(l.queue)
		}
		return
	}
	l.queue.PushLast(txrecord.New(t, ts, txrecord.Writer, c))
	reconcile(l.queue)
}

func (l *KeyLock) find(t tid.TID) (*ringdeque.Iterator[*txrecord.Record], *txrecord.Record) {
	it, ok := l.queue.IteratorFromMatch(func(r *txrecord.Record) bool { return r.TID.Equal(t) })
	if !ok {
		return nil, nil
	}
	rec := it.Next()
	return it, rec
}

// reconcile walks the queue head-to-tail, deriving each record's target
// queueConflict bit: the head is always free; any other record is blocked
// if its immediate predecessor is still blocked, or if a writer is on
// either side of an otherwise-free adjacent pair. This single pass covers
// every admission rule this package needs at once (ReadLock, WriteLock, and
// the reordering performed by Update/Unlock are all just "the queue
// changed, recompute who's still blocked"), and only touches records whose
// bit actually needs to flip, so a release only reports a TID whose
// counter actually transitions from nonzero to zero.
func reconcile(queue *ringdeque.RingDeque[*txrecord.Record]) []tid.TID {
	var execs []tid.TID
	n := queue.Len()
	predFree := true
	predIsWriter := false
	for i := 0; i < n; i++ {
		r := queue.At(i)
		var target bool
		if i > 0 {
			target = !predFree || predIsWriter || r.Kind == txrecord.Writer
		}
		switch {
		case target && !r.QueueConflict:
			r.SetQueueConflict()
		case !target && r.QueueConflict:
			if r.ClearQueueConflict() {
				execs = append(execs, r.TID)
			}
		}
		predFree = !target
		predIsWriter = r.Kind == txrecord.Writer
	}
	return execs
}

// Update repositions t's timestamp to ts and reports newly-executable TIDs
// (which may include t itself; the facade filters the caller's own TID
// from any executable set it assembles across components).
func (l *KeyLock) Update(t tid.TID, ts int64) ([]tid.TID, error) {
	_, rec := l.find(t)
	if rec == nil {
		return nil, errors.Newf("keylock: update on tid %s not found in queue", t)
	}
	if ts < rec.Timestamp {
		return nil, errors.Newf("keylock: update timestamp %d precedes current %d for tid %s", ts, rec.Timestamp, t)
	}
	rec.Timestamp = ts
	l.queue.Sort()
	return reconcile(l.queue), nil
}

// Unlock removes t's holding, reporting newly-executable successor TIDs. A
// committing writer must be at the head of the queue: it cannot have any
// unresolved predecessor still ahead of it.
func (l *KeyLock) Unlock(t tid.TID, commit bool) ([]tid.TID, error) {
	it, rec := l.find(t)
	if rec == nil {
		return nil, errors.Newf("keylock: unlock on tid %s not found in queue", t)
	}
	if commit && rec.Kind == txrecord.Writer && it.Pos() != 0 {
		panic(errors.AssertionFailedf(
			"keylock: committing writer %s is not at the head of the queue", t))
	}
	it.Remove()
	return reconcile(l.queue), nil
}
