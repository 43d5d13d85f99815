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

// Package rangelock implements RangeLock: a range-lock index built atop the
// augmented interval tree, with per-range reader/writer semantics and
// overlap-driven conflict counting.
package rangelock

import (
	"github.com/cockroachdb/errors"
	"github.com/nvanbenschoten/txnlock/pkg/counter"
	"github.com/nvanbenschoten/txnlock/pkg/intervaltree"
	"github.com/nvanbenschoten/txnlock/pkg/storekey"
	"github.com/nvanbenschoten/txnlock/pkg/tid"
	"github.com/nvanbenschoten/txnlock/pkg/txrecord"
	"golang.org/x/exp/slices"
)

// holding is one transaction's claim on a [start, end] range over the key
// domain. It is the tree's value type; the tree's (start, end, holding)
// triple is keyed for uniqueness by the held TID via holdingCmp.
type holding struct {
	start, end storekey.Key
	rec        *txrecord.Record
}

func holdingCmp(a, b *holding) int {
	return a.rec.TID.Compare(b.rec.TID)
}

func sameRange(h *holding, start, end storekey.Key) bool {
	return storekey.Equal(h.start, start) && storekey.Equal(h.end, end)
}

// RangeLock indexes range holdings by interval for overlap queries, keyed
// over the FIRST/LAST-bounded key domain.
type RangeLock struct {
	tree *intervaltree.Tree[storekey.Key, *holding]
}

// New returns an empty RangeLock.
func New() *RangeLock {
	return &RangeLock{tree: intervaltree.New[storekey.Key, *holding](storekey.Compare, holdingCmp)}
}

// IsEmpty reports whether the index holds no ranges.
func (l *RangeLock) IsEmpty() bool {
	return l.tree.Len() == 0
}

// Len reports the number of range holdings currently indexed.
func (l *RangeLock) Len() int {
	return l.tree.Len()
}

// window collects every holding overlapping [start, end] and sorts it into
// (timestamp, tid) order, the basis for every admission decision in this
// package.
func (l *RangeLock) window(start, end storekey.Key) []*holding {
	var w []*holding
	l.tree.GetAll(start, end, func(_, _ storekey.Key, v *holding) { w = append(w, v) })
	slices.SortFunc(w, func(a, b *holding) bool { return txrecord.Compare(a.rec, b.rec) < 0 })
	return w
}

func findExact(w []*holding, start, end storekey.Key, t tid.TID) (int, *holding) {
	for i, h := range w {
		if sameRange(h, start, end) && h.rec.TID.Equal(t) {
			return i, h
		}
	}
	return -1, nil
}

// ReadLock inserts a reader over [start, end], or is a no-op if the last
// (highest (ts, tid)) overlapping holding is already t's own exact range.
func (l *RangeLock) ReadLock(start, end storekey.Key, t tid.TID, ts int64, c *counter.Counter) {
	w := l.window(start, end)
	if n := len(w); n > 0 {
		if last := w[n-1]; sameRange(last, start, end) && last.rec.TID.Equal(t) {
			return
		}
	}
	var writers int64
	for _, h := range w {
		if h.rec.Kind == txrecord.Writer {
			writers++
		}
	}
	rec := txrecord.New(t, ts, txrecord.Reader, c)
	rec.AcquireTreeConflicts(writers)
	l.tree.Put(start, end, &holding{start: start, end: end, rec: rec})
}

// WriteLock inserts a writer over [start, end], promoting an existing
// reader holding the same exact range in place if it is the last
// overlapping holding.
func (l *RangeLock) WriteLock(start, end storekey.Key, t tid.TID, ts int64, c *counter.Counter) {
	w := l.window(start, end)
	if n := len(w); n > 0 {
		if last := w[n-1]; sameRange(last, start, end) && last.rec.TID.Equal(t) {
			if last.rec.Kind == txrecord.Reader {
				last.rec.Promote()
				var readers int64
				for _, h := range w[:n-1] {
					if h.rec.Kind == txrecord.Reader {
						readers++
					}
				}
				last.rec.AcquireTreeConflicts(readers)
			}
			return
		}
	}
	rec := txrecord.New(t, ts, txrecord.Writer, c)
	rec.AcquireTreeConflicts(int64(len(w)))
	l.tree.Put(start, end, &holding{start: start, end: end, rec: rec})
}

// Update repositions t's timestamp on its [start, end] holding to ts. Moving
// ts past a later holding cuts both ways: the later holding's wait on h
// is satisfied (a reader update only releases later writers, a writer
// update releases every later holding, each bounded by timestamp <= ts),
// but h now sorts after that holding in (timestamp, tid) order and so owes
// it the same conflict a fresh insertion at ts would have acquired. Skipping
// that reacquisition would let h and a holding it just passed run at once.
func (l *RangeLock) Update(start, end storekey.Key, t tid.TID, ts int64) ([]tid.TID, error) {
	w := l.window(start, end)
	idx, h := findExact(w, start, end, t)
	if h == nil {
		return nil, errors.Newf("rangelock: update on tid %s not found for range [%s,%s]", t, start, end)
	}
	if ts < h.rec.Timestamp {
		return nil, errors.Newf("rangelock: update timestamp %d precedes current %d for tid %s", ts, h.rec.Timestamp, t)
	}
	var execs []tid.TID
	var passed int64
	for _, other := range w[idx+1:] {
		if other.rec.Timestamp > ts {
			break
		}
		if h.rec.Kind == txrecord.Reader && other.rec.Kind != txrecord.Writer {
			continue
		}
		passed++
		if other.rec.ReleaseTreeConflict() {
			execs = append(execs, other.rec.TID)
		}
	}
	h.rec.Timestamp = ts
	h.rec.AcquireTreeConflicts(passed)
	return execs, nil
}

// Unlock removes t's [start, end] holding and applies the same admission
// rule as Update, unbounded by timestamp.
func (l *RangeLock) Unlock(start, end storekey.Key, t tid.TID) ([]tid.TID, error) {
	w := l.window(start, end)
	idx, h := findExact(w, start, end, t)
	if h == nil {
		return nil, errors.Newf("rangelock: unlock on tid %s not found for range [%s,%s]", t, start, end)
	}
	if !l.tree.Remove(start, end, h) {
		panic(errors.AssertionFailedf("rangelock: holding for tid %s range [%s,%s] missing from tree", t, start, end))
	}
	var execs []tid.TID
	for _, other := range w[idx+1:] {
		if h.rec.Kind == txrecord.Reader && other.rec.Kind != txrecord.Writer {
			continue
		}
		if other.rec.ReleaseTreeConflict() {
			execs = append(execs, other.rec.TID)
		}
	}
	return execs, nil
}
