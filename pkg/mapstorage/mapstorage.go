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

// Package mapstorage is a minimal stand-in for the key-addressable ordered
// map storage backend spec.md §1 places out of scope: a
// `google/btree`-ordered committed map with per-transaction buffered
// writes, committed or discarded atomically.
package mapstorage

import (
	"github.com/cockroachdb/errors"
	"github.com/google/btree"
	"github.com/nvanbenschoten/txnlock/pkg/storekey"
	"github.com/nvanbenschoten/txnlock/pkg/tid"
)

const btreeDegree = 32

// entry is the btree.Item stored in both the committed map and every
// per-transaction write buffer, ordered by storekey.Compare.
type entry struct {
	key   storekey.Key
	value storekey.Value
}

func (e *entry) Less(than btree.Item) bool {
	return storekey.Compare(e.key, than.(*entry).key) < 0
}

// MapStorage is an in-memory ordered map with per-transaction write
// buffering. The zero value is not usable; construct with New.
type MapStorage struct {
	committed *btree.BTree
	buffers   map[string]*btree.BTree
	// FakeWrites silently drops writes on Commit instead of merging them,
	// for benchmarks that want to measure locking overhead without paying
	// for the merge itself. Never true by default.
	FakeWrites bool
}

// New returns an empty MapStorage.
func New() *MapStorage {
	return &MapStorage{
		committed: btree.New(btreeDegree),
		buffers:   make(map[string]*btree.BTree),
	}
}

// BeginWrites opens a write buffer for t. Calling it twice for the same
// pending t is a bug.
func (m *MapStorage) BeginWrites(t tid.TID) {
	key := string(t.Bytes())
	if _, ok := m.buffers[key]; ok {
		panic(errors.AssertionFailedf("mapstorage: write buffer for tid %s already open", t))
	}
	m.buffers[key] = btree.New(btreeDegree)
}

// Put buffers a write under t, not yet visible to Get until Commit.
func (m *MapStorage) Put(t tid.TID, k storekey.Key, v storekey.Value) error {
	buf, ok := m.buffers[string(t.Bytes())]
	if !ok {
		return errors.Newf("mapstorage: put with no open write buffer for tid %s", t)
	}
	buf.ReplaceOrInsert(&entry{key: k, value: v})
	return nil
}

// Get reads the committed value for k, optionally overlaid with t's own
// uncommitted buffer (read-your-writes).
func (m *MapStorage) Get(t tid.TID, k storekey.Key) (storekey.Value, bool) {
	if buf, ok := m.buffers[string(t.Bytes())]; ok {
		if it := buf.Get(&entry{key: k}); it != nil {
			return it.(*entry).value, true
		}
	}
	if it := m.committed.Get(&entry{key: k}); it != nil {
		return it.(*entry).value, true
	}
	return storekey.NullValue, false
}

// Commit merges t's write buffer into the committed map (or silently
// drops it when FakeWrites is set) and closes the buffer.
func (m *MapStorage) Commit(t tid.TID) error {
	key := string(t.Bytes())
	buf, ok := m.buffers[key]
	if !ok {
		return errors.Newf("mapstorage: commit with no open write buffer for tid %s", t)
	}
	if !m.FakeWrites {
		buf.Ascend(func(i btree.Item) bool {
			m.committed.ReplaceOrInsert(i)
			return true
		})
	}
	delete(m.buffers, key)
	return nil
}

// Abort discards t's write buffer without touching the committed map.
func (m *MapStorage) Abort(t tid.TID) error {
	key := string(t.Bytes())
	if _, ok := m.buffers[key]; !ok {
		return errors.Newf("mapstorage: abort with no open write buffer for tid %s", t)
	}
	delete(m.buffers, key)
	return nil
}

// Len reports the number of committed entries.
func (m *MapStorage) Len() int {
	return m.committed.Len()
}
