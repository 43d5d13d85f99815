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

package intervaltree_test

import (
	"math/rand"
	"testing"

	"github.com/nvanbenschoten/txnlock/pkg/intervaltree"
	"github.com/stretchr/testify/require"
)

func intCmp(a, b int) int { return a - b }

func newTree() *intervaltree.Tree[int, string] {
	return intervaltree.New[int, string](intCmp, func(a, b string) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	})
}

// checkInvariants validates spec §8 properties 5 and 6 against the live
// tree structure.
func checkInvariants(t *testing.T, tr *intervaltree.Tree[int, string]) {
	t.Helper()
	require.True(t, tr.RootIsBlack(), "root must be black")
	require.NotEqual(t, -1, tr.BlackHeight(), "uniform black height / no red-red violation")
	require.True(t, tr.ValidateAugmentation(), "minStart/maxEnd must match each subtree")
}

func TestPutRejectsDuplicateTriple(t *testing.T) {
	tr := newTree()
	require.True(t, tr.Put(1, 3, "a"))
	require.False(t, tr.Put(1, 3, "a"), "duplicate triple must be rejected")
	require.True(t, tr.Put(1, 3, "b"), "same interval, different value is a distinct triple")
	require.Equal(t, 2, tr.Len())
}

func TestGetAllOverlapCompleteness(t *testing.T) {
	// spec §8 S6: [1,3],[2,6],[4,7],[5,8],[0,9] with distinct values;
	// GetAll(3,5) must return exactly the overlapping triples.
	tr := newTree()
	intervals := [][2]int{{1, 3}, {2, 6}, {4, 7}, {5, 8}, {0, 9}}
	for i, iv := range intervals {
		require.True(t, tr.Put(iv[0], iv[1], string(rune('a'+i))))
	}
	checkInvariants(t, tr)

	var got [][2]int
	tr.GetAll(3, 5, func(s, e int, v string) {
		got = append(got, [2]int{s, e})
	})

	want := map[[2]int]bool{}
	for _, iv := range intervals {
		if iv[0] <= 5 && iv[1] >= 3 {
			want[iv] = true
		}
	}
	require.Len(t, got, len(want))
	for _, iv := range got {
		require.True(t, want[iv], "unexpected overlap result %v", iv)
	}
}

func TestRemoveTwoChildrenSplicesSuccessor(t *testing.T) {
	tr := newTree()
	for i, iv := range [][2]int{{1, 2}, {3, 4}, {5, 6}, {7, 8}, {9, 10}, {2, 3}, {4, 5}} {
		require.True(t, tr.Put(iv[0], iv[1], string(rune('a'+i))))
	}
	checkInvariants(t, tr)
	require.True(t, tr.Remove(3, 4, "b"))
	checkInvariants(t, tr)

	var remaining [][2]int
	tr.GetAll(0, 100, func(s, e int, v string) { remaining = append(remaining, [2]int{s, e}) })
	require.Len(t, remaining, 6)
	for _, iv := range remaining {
		require.NotEqual(t, [2]int{3, 4}, iv)
	}
}

func TestRemoveMissingReturnsFalse(t *testing.T) {
	tr := newTree()
	tr.Put(1, 2, "a")
	require.False(t, tr.Remove(9, 9, "z"))
	require.True(t, tr.Remove(1, 2, "a"))
	require.Equal(t, 0, tr.Len())
}

func TestGetFirstAndGetLast(t *testing.T) {
	tr := newTree()
	for i, iv := range [][2]int{{10, 20}, {5, 15}, {18, 25}, {1, 2}} {
		require.True(t, tr.Put(iv[0], iv[1], string(rune('a'+i))))
	}
	s, e, _, ok := tr.GetFirst(12, 16)
	require.True(t, ok)
	require.True(t, s <= 12 || s == 5)
	_ = e

	_, _, _, ok = tr.GetFirst(100, 200)
	require.False(t, ok)

	s, e, _, ok = tr.GetLast(12, 16)
	require.True(t, ok)
	_ = s
	_ = e
}

func TestIteratorEqualIntervalChain(t *testing.T) {
	tr := newTree()
	require.True(t, tr.Put(1, 5, "a"))
	require.True(t, tr.Put(1, 5, "b"))
	require.True(t, tr.Put(1, 5, "c"))
	require.True(t, tr.Put(2, 9, "d"))

	it, ok := tr.Iterator(1, 5, "a")
	require.True(t, ok)
	require.True(t, it.HasNext())
	s, e, v := it.Next()
	require.Equal(t, 1, s)
	require.Equal(t, 5, e)
	require.Equal(t, "b", v)
	require.True(t, it.HasNext())
	_, _, v = it.Next()
	require.Equal(t, "c", v)
	require.False(t, it.HasNext(), "next triple has a different interval")
}

func TestStressInsertDeleteInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tr := newTree()
	type key struct{ s, e int }
	live := map[key]bool{}

	for i := 0; i < 2000; i++ {
		s := rng.Intn(50)
		e := s + rng.Intn(10)
		k := key{s, e}
		if !live[k] || rng.Intn(2) == 0 {
			if tr.Put(s, e, "v") {
				live[k] = true
			}
		} else {
			if tr.Remove(s, e, "v") {
				delete(live, k)
			}
		}
		if i%97 == 0 {
			checkInvariants(t, tr)
		}
	}
	checkInvariants(t, tr)
	require.Equal(t, len(live), tr.Len())

	// Full overlap-completeness cross-check against the live set.
	var got [][2]int
	tr.GetAll(0, 1000, func(s, e int, v string) { got = append(got, [2]int{s, e}) })
	require.Len(t, got, len(live))
	for _, iv := range got {
		require.True(t, live[key{iv[0], iv[1]}])
	}
}
